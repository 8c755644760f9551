package stt

import (
	"context"
	"os"
	"sync"
	"time"
)

// Mock implements Recognizer for testing.
// All methods can be customized via function fields.
type Mock struct {
	// RecognizeFunc is called when Recognize is invoked.
	// If nil, returns ErrNotConfigured.
	RecognizeFunc func(ctx context.Context, path string) (*Result, error)

	// Unavailable makes Available report false.
	Unavailable bool

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Path   string
	// Data is the file content seen at call time.
	Data []byte
	Time time.Time
}

// NewMock creates a mock recognizer that returns text for every file.
func NewMock(text string) *Mock {
	return &Mock{
		RecognizeFunc: func(ctx context.Context, path string) (*Result, error) {
			return &Result{Text: text, Confidence: 0.95, Language: "en"}, nil
		},
	}
}

// Recognize calls RecognizeFunc and records the call.
func (m *Mock) Recognize(ctx context.Context, path string) (*Result, error) {
	data, _ := os.ReadFile(path)
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Recognize", Path: path, Data: data, Time: time.Now()})
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, path)
	}
	return nil, ErrNotConfigured
}

// Available reports whether the mock is usable.
func (m *Mock) Available() bool { return !m.Unavailable }

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		RecognizeFunc: func(ctx context.Context, path string) (*Result, error) {
			return nil, err
		},
	}
}

// Verify Mock implements Recognizer at compile time.
var _ Recognizer = (*Mock)(nil)
