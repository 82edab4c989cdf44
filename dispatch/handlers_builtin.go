package dispatch

import (
	"context"

	"github.com/cubeforge/gateway/services"
)

// Services bundles the seven use-case services BuiltinHandlers wires into
// the registry's tool names. Built once at startup by the application's
// wiring code and handed to New as baseHandlers via BuiltinHandlers.
type Services struct {
	Project    *services.Project
	Model      *services.Model
	Texture    *services.Texture
	Animation  *services.Animation
	Export     *services.Export
	Render     *services.Render
	Validation *services.Validation
}

// BuiltinHandlers builds the base handler table for every tool in
// registry.Default: one closure per tool name that pulls its arguments out
// of the payload with the accessors in args.go and calls the matching service
// method. New wraps each of these with schema validation, the revision
// guard, and auto-retry per the tool's registry.Policy before the
// dispatcher ever calls it.
func BuiltinHandlers(svc Services) map[string]Handler {
	return map[string]Handler{
		"get_project_state": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Project.GetState(ctx, getString(payload, "detail"))
		},
		"ensure_project": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Project.EnsureProject(ctx, getString(payload, "name"), getString(payload, "formatId"))
		},
		"render_preview": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Render.Preview(ctx, getString(payload, "angle"), getInt(payload, "width"))
		},
		"export_model": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			policy := services.ExportPolicy(getString(payload, "policy"))
			if policy == "" {
				policy = services.ExportStrict
			}
			return svc.Export.Run(ctx, getString(payload, "format"), getString(payload, "codecId"), policy)
		},
		"validate_project": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Validation.Run(ctx)
		},
		"read_texture": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Render.ReadTexture(ctx, getString(payload, "textureId"))
		},
		"preflight_texture": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Texture.Preflight(ctx, getInt(payload, "width"), getInt(payload, "height"))
		},

		"add_bone": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Model.AddBone(ctx, getString(payload, "name"), getString(payload, "parentId"), getFloat3(payload, "origin"), getFloat3(payload, "rotation"))
		},
		"add_cube": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Model.AddCube(ctx, getString(payload, "name"), getString(payload, "boneId"), getFloat3(payload, "from"), getFloat3(payload, "to"))
		},
		"update_cube": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Model.UpdateCube(ctx, getString(payload, "cubeId"), getString(payload, "name"), getString(payload, "boneId"), getFloat3Ptr(payload, "from"), getFloat3Ptr(payload, "to"))
		},
		"delete_cube": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Model.DeleteCube(ctx, getString(payload, "cubeId"))
		},
		"add_mesh": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Model.AddMesh(ctx, getString(payload, "name"), getString(payload, "boneId"), getFloat3Slice(payload, "vertices"))
		},
		"assign_texture": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Texture.AssignTexture(ctx, getString(payload, "name"), getInt(payload, "width"), getInt(payload, "height"))
		},
		"paint_faces": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Texture.PaintFaces(ctx, getString(payload, "cubeId"), getStringSlice(payload, "faces"), getString(payload, "textureId"), getFloat4(payload, "uv"))
		},
		"set_face_uv": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Texture.SetFaceUV(ctx, getString(payload, "cubeId"), getString(payload, "face"), getFloat4(payload, "uv"))
		},
		"add_animation_clip": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Animation.AddClip(ctx, getString(payload, "name"), getFloat(payload, "length"))
		},
		"add_keyframe": func(ctx context.Context, payload map[string]interface{}) (*services.Result, error) {
			return svc.Animation.AddKeyframe(ctx, getString(payload, "clipId"), getString(payload, "target"), getFloat(payload, "time"), getFloat3(payload, "value"))
		},
	}
}
