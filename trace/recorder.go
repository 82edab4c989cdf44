package trace

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/cubeforge/gateway/toolenvelope"
)

// Clock lets tests substitute a deterministic time source.
type Clock func() time.Time

// Recorder materializes a dispatched call into a trace Entry and appends
// it to a LogStore (spec §4.5's `TraceRecorder.record`). It satisfies
// dispatch.TraceSink without dispatch needing to import this package.
type Recorder struct {
	store         *LogStore
	seq           int64
	clock         Clock
	pluginVersion string
}

// NewRecorder writes the header entry immediately, matching the spec's
// "Header is emitted at recorder start".
func NewRecorder(store *LogStore, pluginVersion string, clock Clock) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	r := &Recorder{store: store, clock: clock, pluginVersion: pluginVersion}
	store.Append(Entry{
		Kind:          KindHeader,
		SchemaVersion: 1,
		PluginVersion: pluginVersion,
		StartedAt:     clock().UnixMilli(),
	})
	return r
}

// Record implements dispatch.TraceSink.
func (r *Recorder) Record(ctx context.Context, op string, payload map[string]interface{}, response *toolenvelope.Response, state, diff json.RawMessage) {
	seq := atomic.AddInt64(&r.seq, 1)
	payloadJSON, _ := json.Marshal(payload)
	responseJSON, _ := json.Marshal(response)
	r.store.Append(Entry{
		Kind:     KindStep,
		Seq:      seq,
		Ts:       r.clock().UnixMilli(),
		Route:    "tool",
		Op:       op,
		Payload:  payloadJSON,
		Response: responseJSON,
		State:    state,
		Diff:     diff,
	})
}

// Store exposes the underlying ring for the flush scheduler and for
// `resources/read`-style introspection.
func (r *Recorder) Store() *LogStore { return r.store }
