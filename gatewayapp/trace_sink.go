package gatewayapp

import (
	"context"
	"encoding/json"

	"github.com/cubeforge/gateway/toolenvelope"
	"github.com/cubeforge/gateway/trace"
)

// tracingSink composes the Recorder (which appends to the LogStore) with
// the FlushScheduler (which decides when the ring gets written out),
// satisfying dispatch.TraceSink as the one call the dispatcher makes per
// tool invocation.
type tracingSink struct {
	recorder  *trace.Recorder
	scheduler *trace.FlushScheduler
}

func newTracingSink(recorder *trace.Recorder, scheduler *trace.FlushScheduler) *tracingSink {
	return &tracingSink{recorder: recorder, scheduler: scheduler}
}

func (t *tracingSink) Record(ctx context.Context, op string, payload map[string]interface{}, response *toolenvelope.Response, state, diff json.RawMessage) {
	t.recorder.Record(ctx, op, payload, response, state, diff)
	t.scheduler.NotifyAppend()
}
