// Package toolenvelope defines the response shape every tool call returns,
// independent of the JSON-RPC transport that carries it.
package toolenvelope

import "encoding/json"

// Code is a stable machine token identifying a class of tool failure.
type Code string

const (
	CodeInvalidPayload             Code = "invalid_payload"
	CodeUnknownTool                Code = "unknown_tool"
	CodeInvalidState               Code = "invalid_state"
	CodeInvalidStateRevisionMiss   Code = "invalid_state_revision_missing"
	CodeInvalidStateRevisionWrong  Code = "invalid_state_revision_mismatch"
	CodeUnsupportedFormat          Code = "unsupported_format"
	CodeNotImplemented             Code = "not_implemented"
	CodeIOError                    Code = "io_error"
	CodeNoChange                   Code = "no_change"
	CodePersistentConflict         Code = "persistent_conflict"
	CodePersistentLockTimeout      Code = "persistent_lock_timeout"
	CodeUnknown                    Code = "unknown"
)

// ContentBlock is an MCP content block (text, image, or resource reference).
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// NextAction is a heuristic hint the dispatcher attaches to a response,
// suggesting the caller's next step.
type NextAction struct {
	Kind string          `json:"kind"` // "call-tool" | "ask-user" | "read-resource"
	Tool string          `json:"tool,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
	Ref  *Ref            `json:"ref,omitempty"`
}

// Ref identifies where a follow-up value should be sourced from.
type Ref struct {
	Kind string `json:"kind"` // "user" | "tool"
	Name string `json:"name,omitempty"`
}

// StateAttachment carries the revision/state/diff bundle optionally attached
// to a response by the dispatcher's state-attachment step.
type StateAttachment struct {
	Revision string          `json:"revision,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
	Diff     json.RawMessage `json:"diff,omitempty"`
}

// Error is the normalized shape of a failed tool call.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// Response is the tool-call envelope returned by the dispatcher. Exactly one
// of Data (on success) or Err (on failure) is meaningful; Ok is authoritative
// per the spec's resolved open question — HTTP/JSON-RPC transport status
// never overrides it.
type Response struct {
	Ok                bool            `json:"ok"`
	Data              interface{}     `json:"data,omitempty"`
	Err               *Error          `json:"error,omitempty"`
	Content           []ContentBlock  `json:"content,omitempty"`
	StructuredContent interface{}     `json:"structuredContent,omitempty"`
	NextActions       []NextAction    `json:"nextActions,omitempty"`
}

// Success builds a successful envelope.
func Success(data interface{}) *Response {
	return &Response{Ok: true, Data: data}
}

// Fail builds a failed envelope, defaulting details.reason to the code when
// the caller did not supply one — the normalization step described in
// spec §7 ("every error carries details.reason").
func Fail(code Code, message string, details map[string]interface{}) *Response {
	if details == nil {
		details = map[string]interface{}{}
	}
	if _, ok := details["reason"]; !ok {
		details["reason"] = string(code)
	}
	return &Response{
		Ok: false,
		Err: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithContent attaches MCP content blocks and returns the response for chaining.
func (r *Response) WithContent(blocks ...ContentBlock) *Response {
	r.Content = blocks
	return r
}

// WithStructuredContent sets the structuredContent field and returns the response.
func (r *Response) WithStructuredContent(v interface{}) *Response {
	r.StructuredContent = v
	return r
}

// WithNextActions appends next-action hints and returns the response.
func (r *Response) WithNextActions(actions ...NextAction) *Response {
	r.NextActions = append(r.NextActions, actions...)
	return r
}

// AttachState merges a StateAttachment into the response: on success it
// extends Data, on failure it extends Err.Details, per dispatcher step 7.
func (r *Response) AttachState(att StateAttachment) *Response {
	if r.Ok {
		merged := map[string]interface{}{}
		if m, ok := r.Data.(map[string]interface{}); ok {
			for k, v := range m {
				merged[k] = v
			}
		} else if r.Data != nil {
			merged["result"] = r.Data
		}
		merged["revision"] = att.Revision
		if att.State != nil {
			merged["state"] = att.State
		}
		if att.Diff != nil {
			merged["diff"] = att.Diff
		}
		r.Data = merged
		return r
	}
	if r.Err != nil {
		if r.Err.Details == nil {
			r.Err.Details = map[string]interface{}{}
		}
		r.Err.Details["revision"] = att.Revision
		if att.State != nil {
			r.Err.Details["state"] = att.State
		}
		if att.Diff != nil {
			r.Err.Details["diff"] = att.Diff
		}
	}
	return r
}
