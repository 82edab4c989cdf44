package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/toolenvelope"
)

func TestDecorateRenderPreviewMovesFramesIntoContentBlocks(t *testing.T) {
	resp := toolenvelope.Success(map[string]interface{}{
		"frames": []ports.Frame{
			{Data: []byte("abc"), MimeType: "image/png"},
		},
		"durationMs": 1000,
	})

	decorate("render_preview", resp)

	require.Len(t, resp.Content, 1)
	assert.Equal(t, "image", resp.Content[0].Type)
	assert.Equal(t, "image/png", resp.Content[0].MimeType)
	assert.NotEmpty(t, resp.Content[0].Data)

	sc := resp.StructuredContent.(map[string]interface{})
	_, hasFrames := sc["frames"]
	assert.False(t, hasFrames, "frames key is removed from structured content once moved to blocks")
	assert.Equal(t, 1000, sc["durationMs"])
}

func TestDecorateRenderPreviewNoOpOnFailure(t *testing.T) {
	resp := toolenvelope.Fail(toolenvelope.CodeInvalidState, "no project", nil)
	decorate("render_preview", resp)
	assert.Nil(t, resp.Content)
	assert.Nil(t, resp.StructuredContent)
}

func TestDecorateReadTextureMovesFrameIntoContentBlock(t *testing.T) {
	resp := toolenvelope.Success(map[string]interface{}{
		"frame":     ports.Frame{Data: []byte("xyz"), MimeType: "image/png"},
		"textureId": "tex-1",
	})

	decorate("read_texture", resp)

	require.Len(t, resp.Content, 1)
	assert.Equal(t, "image/png", resp.Content[0].MimeType)
	sc := resp.StructuredContent.(map[string]interface{})
	_, hasFrame := sc["frame"]
	assert.False(t, hasFrame)
	assert.Equal(t, "tex-1", sc["textureId"])
}

func TestDecoratePreflightTextureAddsCallToolNextAction(t *testing.T) {
	resp := toolenvelope.Success(map[string]interface{}{"ok": true})
	decorate("preflight_texture", resp)

	require.Len(t, resp.NextActions, 1)
	assert.Equal(t, "call-tool", resp.NextActions[0].Kind)
	assert.Equal(t, "paint_faces", resp.NextActions[0].Tool)
}

func TestDecorateSetFaceUVAddsCallToolNextAction(t *testing.T) {
	resp := toolenvelope.Success(nil)
	decorate("set_face_uv", resp)

	require.Len(t, resp.NextActions, 1)
	assert.Equal(t, "paint_faces", resp.NextActions[0].Tool)
}

func TestDecorateEnsureProjectAddsDialogNextActionsOnlyForThatReason(t *testing.T) {
	resp := toolenvelope.Fail(toolenvelope.CodeInvalidState, "needs a name", map[string]interface{}{
		"reason": "adapter_project_dialog_input_required",
	})
	decorate("ensure_project", resp)

	require.Len(t, resp.NextActions, 3)
	assert.Equal(t, "ask-user", resp.NextActions[1].Kind)
}

func TestDecorateEnsureProjectNoOpForOtherFailureReasons(t *testing.T) {
	resp := toolenvelope.Fail(toolenvelope.CodeInvalidPayload, "bad format", nil)
	decorate("ensure_project", resp)
	assert.Nil(t, resp.NextActions)
}

func TestDecorateEnsureProjectNoOpOnSuccess(t *testing.T) {
	resp := toolenvelope.Success(map[string]interface{}{"needsDialog": false})
	decorate("ensure_project", resp)
	assert.Nil(t, resp.NextActions)
}

func TestDecorateUnknownToolIsNoOp(t *testing.T) {
	resp := toolenvelope.Success(map[string]interface{}{"x": 1})
	decorate("some_other_tool", resp)
	assert.Nil(t, resp.Content)
	assert.Nil(t, resp.StructuredContent)
	assert.Nil(t, resp.NextActions)
}
