package registry

import "github.com/cubeforge/gateway/schema"

func ptrBool(b bool) *bool { return &b }
func ptrInt(n int) *int    { return &n }

func strType(t string) *schema.Schema { return &schema.Schema{Type: t} }

func obj(props map[string]*schema.Schema, required ...string) *schema.Schema {
	return &schema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: ptrBool(false),
	}
}

// revisionProps are the fields every stateful tool's payload carries for
// the dispatcher's revision guard and optional state/diff attachment.
func revisionProps(extra map[string]*schema.Schema) map[string]*schema.Schema {
	base := map[string]*schema.Schema{
		"ifRevision":   strType("string"),
		"includeState": strType("boolean"),
		"includeDiff":  strType("boolean"),
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// Default is the fixed tool table the gateway exposes (spec §4.4): a
// high-level group (project/preview/export/validate) and a low-level group
// (direct model edits).
func Default() *Registry {
	return New([]*ToolDefinition{
		// --- high level ---
		{
			Name:        "get_project_state",
			Title:       "Get project state",
			Description: "Returns the current project snapshot, optionally filtered by detail level.",
			InputSchema: obj(map[string]*schema.Schema{
				"detail": {Type: "string", Enum: []interface{}{"summary", "full"}},
			}),
			Policy: Policy{Classification: ReadOnly, DefaultIncludeState: true},
		},
		{
			Name:        "ensure_project",
			Title:       "Ensure project",
			Description: "Creates or opens the project for this session, prompting the adapter for missing fields.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"name":     strType("string"),
				"formatId": strType("string"),
			})),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: false},
		},
		{
			Name:        "render_preview",
			Title:       "Render preview",
			Description: "Renders the current model to one or more preview frames.",
			InputSchema: obj(map[string]*schema.Schema{
				"angle": strType("string"),
				"width": strType("number"),
			}),
			Policy: Policy{Classification: ReadOnly},
		},
		{
			Name:        "export_model",
			Title:       "Export model",
			Description: "Exports the model through a codec: internal format, allow-listed native codec, or gltf fallback.",
			InputSchema: obj(map[string]*schema.Schema{
				"format":  {Type: "string"},
				"codecId": {Type: "string"},
				"policy":  {Type: "string", Enum: []interface{}{"strict", "best_effort"}},
			}, "format"),
			Policy: Policy{Classification: ReadOnly, DefaultIncludeState: true},
		},
		{
			Name:        "validate_project",
			Title:       "Validate project",
			Description: "Runs the full invariant check over the current snapshot and returns any violations.",
			InputSchema: obj(map[string]*schema.Schema{}),
			Policy:      Policy{Classification: ReadOnly},
		},
		{
			Name:        "read_texture",
			Title:       "Read texture",
			Description: "Reads a single texture's pixels as an image content block.",
			InputSchema: obj(map[string]*schema.Schema{
				"textureId": strType("string"),
			}, "textureId"),
			Policy: Policy{Classification: ReadOnly},
		},
		{
			Name:        "preflight_texture",
			Title:       "Preflight texture",
			Description: "Checks a candidate texture's dimensions against limits before upload.",
			InputSchema: obj(map[string]*schema.Schema{
				"width":  strType("number"),
				"height": strType("number"),
			}, "width", "height"),
			Policy: Policy{Classification: ReadOnly},
		},

		// --- low level, model mutations ---
		{
			Name:        "add_bone",
			Title:       "Add bone",
			Description: "Adds a bone, optionally parented to an existing bone.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"name":     strType("string"),
				"parentId": strType("string"),
				"origin":   {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
				"rotation": {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
			}), "name"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "add_cube",
			Title:       "Add cube",
			Description: "Adds a cube, optionally parented to a bone.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"name":   strType("string"),
				"boneId": strType("string"),
				"from":   {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
				"to":     {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
			}), "name", "from", "to"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "update_cube",
			Title:       "Update cube",
			Description: "Updates an existing cube's geometry or parent bone.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"cubeId": strType("string"),
				"name":   strType("string"),
				"boneId": strType("string"),
				"from":   {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
				"to":     {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
			}), "cubeId"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "delete_cube",
			Title:       "Delete cube",
			Description: "Removes a cube by id.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"cubeId": strType("string"),
			}), "cubeId"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "add_mesh",
			Title:       "Add mesh",
			Description: "Adds a free-form mesh, optionally parented to a bone.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"name":     strType("string"),
				"boneId":   strType("string"),
				"vertices": {Type: "array", Items: &schema.Schema{Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)}},
			}), "name", "vertices"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "assign_texture",
			Title:       "Assign texture",
			Description: "Registers a texture resource by name and dimensions.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"name":   strType("string"),
				"width":  strType("number"),
				"height": strType("number"),
			}), "name", "width", "height"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "paint_faces",
			Title:       "Paint faces",
			Description: "Binds one or more cube faces to a texture with a UV rectangle.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"cubeId":    strType("string"),
				"faces":     {Type: "array", Items: strType("string")},
				"textureId": strType("string"),
				"uv":        {Type: "array", Items: strType("number"), MinItems: ptrInt(4), MaxItems: ptrInt(4)},
			}), "cubeId", "faces", "textureId", "uv"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "set_face_uv",
			Title:       "Set face UV",
			Description: "Sets the UV rectangle of a single cube face without changing its texture.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"cubeId": strType("string"),
				"face":   strType("string"),
				"uv":     {Type: "array", Items: strType("number"), MinItems: ptrInt(4), MaxItems: ptrInt(4)},
			}), "cubeId", "face", "uv"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "add_animation_clip",
			Title:       "Add animation clip",
			Description: "Creates a named animation clip with a fixed length.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"name":   strType("string"),
				"length": strType("number"),
			}), "name", "length"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
		{
			Name:        "add_keyframe",
			Title:       "Add keyframe",
			Description: "Appends a keyframe to an animation clip's channel.",
			InputSchema: obj(revisionProps(map[string]*schema.Schema{
				"clipId": strType("string"),
				"target": strType("string"),
				"time":   strType("number"),
				"value":  {Type: "array", Items: strType("number"), MinItems: ptrInt(3), MaxItems: ptrInt(3)},
			}), "clipId", "target", "time", "value"),
			Policy: Policy{Classification: StatefulWithRetry, RequiresRevision: true},
		},
	})
}
