// Package dispatch implements the tool dispatcher (spec §4.6): resolve,
// validate, classify, revision-guard, execute (with auto-retry), decorate,
// attach state, normalize, record. Schema validation, the revision guard
// and auto-retry are composable `func(Handler) Handler` decorators per
// DESIGN NOTES §9, not methods on the use-case services; decoration, state
// attachment, normalization and trace recording run inside Dispatcher.Handle.
package dispatch

import (
	"context"

	"github.com/cubeforge/gateway/services"
	"github.com/cubeforge/gateway/toolenvelope"
)

// Handler runs one tool's use-case logic against an already
// schema-validated, revision-checked payload.
type Handler func(ctx context.Context, payload map[string]interface{}) (*services.Result, error)

// Decorator wraps a Handler with cross-cutting behavior.
type Decorator func(Handler) Handler

// Chain composes decorators outermost-first: Chain(h, a, b, c) runs as
// a(b(c(h))).
func Chain(h Handler, decorators ...Decorator) Handler {
	for i := len(decorators) - 1; i >= 0; i-- {
		h = decorators[i](h)
	}
	return h
}

// CodedError is implemented by *services.Error; the dispatcher type-asserts
// to it instead of string-matching error messages.
type CodedError interface {
	error
	ToolCode() toolenvelope.Code
	ToolDetails() map[string]interface{}
}
