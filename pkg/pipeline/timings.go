package pipeline

import (
	"encoding/json"
	"sync"
	"time"
)

// Timings records how long each stage of one run took.
type Timings struct {
	ASR   time.Duration
	LLM   time.Duration
	TTS   time.Duration
	Total time.Duration
}

// MarshalJSON reports durations in whole milliseconds.
func (t Timings) MarshalJSON() ([]byte, error) {
	type ms struct {
		ASR   int64 `json:"asr_ms"`
		LLM   int64 `json:"llm_ms"`
		TTS   int64 `json:"tts_ms"`
		Total int64 `json:"total_ms"`
	}
	return json.Marshal(ms{
		ASR:   t.ASR.Milliseconds(),
		LLM:   t.LLM.Milliseconds(),
		TTS:   t.TTS.Milliseconds(),
		Total: t.Total.Milliseconds(),
	})
}

// FormatLatency returns a one-line latency summary.
func (t Timings) FormatLatency() string {
	return formatDuration(t.ASR) + " ASR | " +
		formatDuration(t.LLM) + " LLM | " +
		formatDuration(t.TTS) + " TTS | " +
		formatDuration(t.Total) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}

// LatencyTracker keeps the timings of recent runs for averaging.
// It is safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	history []Timings
	size    int
}

// NewLatencyTracker creates a tracker remembering the last size runs.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 100
	}
	return &LatencyTracker{history: make([]Timings, 0, size), size: size}
}

// Record archives one run.
func (l *LatencyTracker) Record(t Timings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, t)
	if len(l.history) > l.size {
		l.history = l.history[1:]
	}
}

// Count returns how many runs are remembered.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// Average returns mean timings over remembered runs. Stages a run skipped
// (ASR on the text path) do not drag the average down.
func (l *LatencyTracker) Average() Timings {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.history) == 0 {
		return Timings{}
	}

	var sum Timings
	var nASR, nLLM, nTTS time.Duration
	for _, h := range l.history {
		if h.ASR > 0 {
			sum.ASR += h.ASR
			nASR++
		}
		if h.LLM > 0 {
			sum.LLM += h.LLM
			nLLM++
		}
		if h.TTS > 0 {
			sum.TTS += h.TTS
			nTTS++
		}
		sum.Total += h.Total
	}

	avg := Timings{Total: sum.Total / time.Duration(len(l.history))}
	if nASR > 0 {
		avg.ASR = sum.ASR / nASR
	}
	if nLLM > 0 {
		avg.LLM = sum.LLM / nLLM
	}
	if nTTS > 0 {
		avg.TTS = sum.TTS / nTTS
	}
	return avg
}
