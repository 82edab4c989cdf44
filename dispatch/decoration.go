package dispatch

import (
	"encoding/base64"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/toolenvelope"
)

// decorate applies the per-tool-family response decoration table (spec
// §4.6.2).
func decorate(toolName string, resp *toolenvelope.Response) {
	var data map[string]interface{}
	if resp.Ok {
		data, _ = resp.Data.(map[string]interface{})
	}
	switch toolName {
	case "render_preview":
		if data == nil {
			return
		}
		frames, _ := data["frames"].([]ports.Frame)
		blocks := make([]toolenvelope.ContentBlock, 0, len(frames))
		for _, f := range frames {
			blocks = append(blocks, toolenvelope.ContentBlock{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(f.Data),
				MimeType: f.MimeType,
			})
		}
		resp.WithContent(blocks...)
		delete(data, "frames")
		resp.WithStructuredContent(data)

	case "read_texture":
		if data == nil {
			return
		}
		if f, ok := data["frame"].(ports.Frame); ok {
			resp.WithContent(toolenvelope.ContentBlock{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(f.Data),
				MimeType: f.MimeType,
			})
		}
		delete(data, "frame")
		resp.WithStructuredContent(data)

	case "preflight_texture", "set_face_uv":
		resp.WithNextActions(toolenvelope.NextAction{
			Kind: "call-tool",
			Tool: "paint_faces",
		})

	case "ensure_project":
		if resp.Ok {
			return
		}
		if resp.Err == nil || resp.Err.Details["reason"] != "adapter_project_dialog_input_required" {
			return
		}
		resp.WithNextActions(
			toolenvelope.NextAction{Kind: "call-tool", Tool: "get_project_state"},
			toolenvelope.NextAction{Kind: "ask-user", Ref: &toolenvelope.Ref{Kind: "user", Name: "name"}},
			toolenvelope.NextAction{Kind: "call-tool", Tool: "ensure_project", Ref: &toolenvelope.Ref{Kind: "tool", Name: "ensure_project"}},
		)
	}
}
