package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-voiceagent/pkg/agenterr"
	"github.com/teslashibe/go-voiceagent/pkg/metrics"
	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Observe(pipeline.Event{Type: pipeline.EventStage, Stage: pipeline.StageGenerate, ErrorKind: agenterr.KindLLM, Duration: 200 * time.Millisecond})
	m.Observe(pipeline.Event{Type: pipeline.EventFallback, Stage: pipeline.StageGenerate, ErrorKind: agenterr.KindLLM})
	m.Observe(pipeline.Event{Type: pipeline.EventStage, Stage: pipeline.StageSynthesize, Success: true, Duration: time.Second})
	m.Observe(pipeline.Event{Type: pipeline.EventCompleted, Success: true, FallbackUsed: true, Duration: 2 * time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOutcomes.WithLabelValues("generate", "false", "llm_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOutcomes.WithLabelValues("synthesize", "true", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("generate", "llm_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("true", "", "true")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestObserveRequestAndSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRequest("POST", "/api/text-query", 200, 50*time.Millisecond)
	m.ObserveRequest("POST", "/api/text-query", 200, 70*time.Millisecond)
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("POST", "/api/text-query", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSessions))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewRegistersOncePerRegistry(t *testing.T) {
	metrics.New(prometheus.NewRegistry())
	assert.Panics(t, func() {
		reg := prometheus.NewRegistry()
		metrics.New(reg)
		metrics.New(reg)
	})
}
