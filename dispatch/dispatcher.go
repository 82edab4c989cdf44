package dispatch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
	"github.com/cubeforge/gateway/registry"
	"github.com/cubeforge/gateway/toolenvelope"
)

// TraceSink receives one record per dispatched call (spec §4.6 step 9);
// implemented by package trace's Recorder. Kept as a narrow interface here
// to avoid dispatch depending on trace's storage concerns.
type TraceSink interface {
	Record(ctx context.Context, op string, payload map[string]interface{}, response *toolenvelope.Response, state, diff json.RawMessage)
}

type noopTraceSink struct{}

func (noopTraceSink) Record(context.Context, string, map[string]interface{}, *toolenvelope.Response, json.RawMessage, json.RawMessage) {
}

// Dispatcher is the tool-call entry point (spec §4.6): `Handle` resolves a
// tool, runs its fully decorated handler chain, decorates the result by
// family, attaches state/diff, normalizes, and records a trace.
type Dispatcher struct {
	registry  *registry.Registry
	revisions *project.RevisionStore
	revSource RevisionSource
	snap      ports.Snapshot
	trace     TraceSink
	built     map[string]Handler
	mu        sync.Mutex // held for the whole of Handle
}

// New builds a Dispatcher, composing each tool's decorator chain once from
// its registry.Policy: schema validation always; revision guard for
// stateful/stateful_with_retry; auto-retry only for stateful_with_retry. snap
// lets the dispatcher re-read the current state when a stateful call fails,
// so state/diff can still be attached to error.details (spec §4.6 step 7).
func New(reg *registry.Registry, baseHandlers map[string]Handler, revisions *project.RevisionStore, revSource RevisionSource, snap ports.Snapshot, trace TraceSink) *Dispatcher {
	if trace == nil {
		trace = noopTraceSink{}
	}
	d := &Dispatcher{registry: reg, revisions: revisions, revSource: revSource, snap: snap, trace: trace, built: map[string]Handler{}}
	for _, def := range reg.List() {
		base, ok := baseHandlers[def.Name]
		if !ok {
			continue
		}
		h := WithSchemaValidation(def.InputSchema)(base)
		if def.Policy.Classification != registry.ReadOnly {
			h = WithRevisionGuard(def.Policy.RequiresRevision, revSource)(h)
		}
		if def.Policy.Classification == registry.StatefulWithRetry {
			h = WithAutoRetry(revSource)(h)
		}
		d.built[def.Name] = h
	}
	return d
}

// Handle runs the full dispatch algorithm for one tool call. Calls are
// serialized: one tool call runs to completion before the next starts.
func (d *Dispatcher) Handle(ctx context.Context, toolName string, payload map[string]interface{}) *toolenvelope.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	if payload == nil {
		payload = map[string]interface{}{}
	}

	def, ok := d.registry.Get(toolName)
	if !ok {
		resp := toolenvelope.Fail(toolenvelope.CodeUnknownTool, "unknown tool: "+toolName, nil)
		d.trace.Record(ctx, toolName, payload, resp, nil, nil)
		return resp
	}
	handler := d.built[toolName]
	if handler == nil {
		resp := toolenvelope.Fail(toolenvelope.CodeUnknownTool, "no handler wired for tool: "+toolName, nil)
		d.trace.Record(ctx, toolName, payload, resp, nil, nil)
		return resp
	}

	result, err := handler(ctx, payload)

	var resp *toolenvelope.Response
	if err != nil {
		resp = d.toErrorResponse(err)
	} else {
		resp = toolenvelope.Success(result.Data)
	}

	decorate(toolName, resp)

	includeState := def.Policy.DefaultIncludeState || getBool(payload, "includeState")
	includeDiff := def.Policy.DefaultIncludeDiff || getBool(payload, "includeDiff")
	attachEligible := includeState || includeDiff || def.Policy.Classification != registry.ReadOnly

	var snap *project.Snapshot
	if result != nil {
		snap = result.Snapshot
	}
	if snap == nil && err != nil && attachEligible && d.snap != nil {
		// The failed call returned no snapshot (every services/*.go method
		// returns (nil, err) on failure), so re-read current state ourselves:
		// a failed stateful call still owes error.details a {revision,...}.
		if current, cerr := d.snap.Current(ctx); cerr == nil {
			snap = current
		}
	}

	var att toolenvelope.StateAttachment
	var attached bool
	if snap != nil && attachEligible {
		att = d.attachState(snap, payload, includeState, includeDiff)
		resp.AttachState(att)
		attached = true
	}

	normalize(resp)

	var stateJSON, diffJSON json.RawMessage
	if snap != nil {
		stateJSON, _ = json.Marshal(snap)
	}
	if attached {
		diffJSON = att.Diff
	}
	d.trace.Record(ctx, toolName, payload, resp, stateJSON, diffJSON)
	return resp
}

func (d *Dispatcher) attachState(snap *project.Snapshot, payload map[string]interface{}, includeState, includeDiff bool) toolenvelope.StateAttachment {
	revision, _ := d.revisions.Track(snap)
	att := toolenvelope.StateAttachment{Revision: revision}
	if includeState {
		if data, err := json.Marshal(snap); err == nil {
			att.State = data
		}
	}
	if includeDiff {
		prevRevision := getString(payload, "ifRevision")
		var previous *project.Snapshot
		if prevRevision != "" {
			previous = d.revisions.Get(prevRevision)
		}
		diff, err := project.DiffSnapshots(previous, snap, true)
		if err == nil {
			if data, err := json.Marshal(diff); err == nil {
				att.Diff = data
			}
		}
	}
	return att
}

func (d *Dispatcher) toErrorResponse(err error) *toolenvelope.Response {
	if coded, ok := err.(CodedError); ok {
		return toolenvelope.Fail(coded.ToolCode(), coded.Error(), coded.ToolDetails())
	}
	return toolenvelope.Fail(toolenvelope.CodeUnknown, err.Error(), nil)
}

// normalize enforces spec §4.6 step 8: every error carries a non-empty
// details.reason, defaulted to the code.
func normalize(resp *toolenvelope.Response) {
	if resp.Ok || resp.Err == nil {
		return
	}
	if resp.Err.Details == nil {
		resp.Err.Details = map[string]interface{}{}
	}
	if r, ok := resp.Err.Details["reason"]; !ok || r == "" {
		resp.Err.Details["reason"] = string(resp.Err.Code)
	}
}
