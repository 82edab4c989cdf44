// Package services implements the use-case layer (spec §4.7): Project,
// Model, Texture, Animation, Export, Render, Validation. Each service holds
// only ports — never a concrete adapter — and every mutating operation
// validates first, mutates through the Editor port, then re-reads and
// returns the post-mutation snapshot for the dispatcher to hash and attach.
package services

import "github.com/cubeforge/gateway/toolenvelope"

// Error is a typed service failure the dispatcher maps directly onto a
// toolenvelope.Code without string sniffing.
type Error struct {
	Code    toolenvelope.Code
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string { return e.Message }

// ToolCode and ToolDetails let the dispatcher map a service error onto a
// toolenvelope.Error without string sniffing.
func (e *Error) ToolCode() toolenvelope.Code           { return e.Code }
func (e *Error) ToolDetails() map[string]interface{}   { return e.Details }

func invalidState(code toolenvelope.Code, msg string, details map[string]interface{}) *Error {
	return &Error{Code: code, Message: msg, Details: details}
}

// Model invariant violations (spec §4.7), surfaced as invalid_state with a
// stable reason token in Details["reason"].
func boneDescendantParent(boneID, newParentID string) *Error {
	return invalidState(toolenvelope.CodeInvalidState, "reparenting would create a cycle", map[string]interface{}{
		"reason": "MODEL_BONE_DESCENDANT_PARENT", "boneId": boneID, "parentId": newParentID,
	})
}

func cubeLimitExceeded(limit int) *Error {
	return invalidState(toolenvelope.CodeInvalidState, "cube count exceeds limit", map[string]interface{}{
		"reason": "MODEL_CUBE_LIMIT_EXCEEDED", "limit": limit,
	})
}

func textureDimensionsInvalid(width, height, maxSize int) *Error {
	return invalidState(toolenvelope.CodeInvalidState, "texture dimensions invalid", map[string]interface{}{
		"reason": "MODEL_TEXTURE_DIMENSIONS_INVALID", "width": width, "height": height, "maxSize": maxSize,
	})
}

func blank(field string) *Error {
	return invalidState(toolenvelope.CodeInvalidPayload, "field must not be blank: "+field, map[string]interface{}{
		"reason": "FIELD_BLANK", "field": field,
	})
}

func notFound(kind, id string) *Error {
	return invalidState(toolenvelope.CodeInvalidState, kind+" not found: "+id, map[string]interface{}{
		"reason": "NOT_FOUND", "kind": kind, "id": id,
	})
}
