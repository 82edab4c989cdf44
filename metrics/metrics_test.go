package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsNamespaceWhenBlank(t *testing.T) {
	m := New("")
	m.RecordToolCall("add_cube", "ok", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCallTotal.WithLabelValues("add_cube", "ok")))
}

func TestRecordToolCallIncrementsCountAndObservesDuration(t *testing.T) {
	m := New("test_ns")
	m.RecordToolCall("add_cube", "ok", 50*time.Millisecond)
	m.RecordToolCall("add_cube", "ok", 75*time.Millisecond)
	m.RecordToolCall("add_cube", "error", 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ToolCallTotal.WithLabelValues("add_cube", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCallTotal.WithLabelValues("add_cube", "error")))
}

func TestRecordToolCallErrorIncrementsByCode(t *testing.T) {
	m := New("test_ns2")
	m.RecordToolCallError("add_cube", "invalid_state_revision_mismatch")
	m.RecordToolCallError("add_cube", "invalid_state_revision_mismatch")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ToolCallErrors.WithLabelValues("add_cube", "invalid_state_revision_mismatch")))
}

func TestSetQueueDepthSetsGaugeByWorkspace(t *testing.T) {
	m := New("test_ns3")
	m.SetQueueDepth("ws-1", 4)
	m.SetQueueDepth("ws-1", 7)
	m.SetQueueDepth("ws-2", 1)

	assert.Equal(t, float64(7), testutil.ToFloat64(m.QueueDepth.WithLabelValues("ws-1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueueDepth.WithLabelValues("ws-2")))
}

func TestRecordJobRetryAndDeadLetter(t *testing.T) {
	m := New("test_ns4")
	m.RecordJobRetry("export")
	m.RecordJobRetry("export")
	m.RecordJobDeadLetter("export")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.JobRetries.WithLabelValues("export")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobDeadLetters.WithLabelValues("export")))
}

func TestSetTraceLogStatsUpdatesBothGauges(t *testing.T) {
	m := New("test_ns5")
	m.SetTraceLogStats(12, 4096)

	assert.Equal(t, float64(12), testutil.ToFloat64(m.TraceLogEntries))
	assert.Equal(t, float64(4096), testutil.ToFloat64(m.TraceLogBytes))
}
