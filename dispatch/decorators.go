package dispatch

import (
	"context"

	gwschema "github.com/cubeforge/gateway/schema"
	"github.com/cubeforge/gateway/services"
	"github.com/cubeforge/gateway/toolenvelope"
)

// WithSchemaValidation fails fast with invalid_payload before the inner
// handler ever runs (spec §4.6 step 2).
func WithSchemaValidation(s *gwschema.Schema) Decorator {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			if verr := gwschema.Validate(s, toInterfaceMap(payload)); verr != nil {
				return nil, &services.Error{
					Code:    toolenvelope.CodeInvalidPayload,
					Message: verr.Error(),
					Details: map[string]interface{}{"reason": "invalid_payload", "path": verr.Path},
				}
			}
			return next(ctx, payload)
		}
	}
}

func toInterfaceMap(m map[string]interface{}) interface{} {
	return interface{}(m)
}

// RevisionSource supplies the project's current revision for the guard
// and retry decorators; implemented by the Project state engine wiring in
// package main.
type RevisionSource interface {
	CurrentRevision(ctx context.Context) (string, error)
}

// WithRevisionGuard implements spec §4.6 step 4: absent ifRevision on a
// policy that requires one fails invalid_state_revision_missing; a
// present-but-stale one fails invalid_state_revision_mismatch with
// {expected, current}. Tools whose policy doesn't require a revision pass
// the guard untouched (a present ifRevision is still checked for
// staleness if given, matching the "revision-guarded" framing in §1).
func WithRevisionGuard(requiresRevision bool, revs RevisionSource) Decorator {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			ifRevision, has := payload["ifRevision"]
			ifRevisionStr, _ := ifRevision.(string)
			if !has || ifRevisionStr == "" {
				if requiresRevision {
					return nil, &services.Error{
						Code:    toolenvelope.CodeInvalidStateRevisionMiss,
						Message: "ifRevision is required for this tool",
						Details: map[string]interface{}{"reason": string(toolenvelope.CodeInvalidStateRevisionMiss)},
					}
				}
				return next(ctx, payload)
			}
			current, err := revs.CurrentRevision(ctx)
			if err != nil {
				return nil, err
			}
			if ifRevisionStr != current {
				return nil, &services.Error{
					Code:    toolenvelope.CodeInvalidStateRevisionWrong,
					Message: "ifRevision does not match the current revision",
					Details: map[string]interface{}{
						"reason":   string(toolenvelope.CodeInvalidStateRevisionWrong),
						"expected": ifRevisionStr,
						"current":  current,
					},
				}
			}
			return next(ctx, payload)
		}
	}
}

// WithAutoRetry implements spec §4.6.1. On invalid_state_revision_mismatch,
// it reads the current revision; if it equals the client's original
// ifRevision (no new revision landed), it returns the original error
// untouched. Otherwise it retries exactly once with ifRevision set to the
// fresh current revision.
func WithAutoRetry(revs RevisionSource) Decorator {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			result, err := next(ctx, payload)
			if err == nil {
				return result, nil
			}
			coded, ok := err.(CodedError)
			if !ok || coded.ToolCode() != toolenvelope.CodeInvalidStateRevisionWrong {
				return result, err
			}
			originalIfRevision, _ := payload["ifRevision"].(string)
			current, revErr := revs.CurrentRevision(ctx)
			if revErr != nil {
				return result, err
			}
			if current == originalIfRevision {
				return result, err
			}
			retryPayload := make(map[string]interface{}, len(payload))
			for k, v := range payload {
				retryPayload[k] = v
			}
			retryPayload["ifRevision"] = current
			return next(ctx, retryPayload)
		}
	}
}
