package services

import (
	"context"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
	"github.com/cubeforge/gateway/toolenvelope"
)

// Result is what every use-case operation returns: a JSON-able payload and
// the post-operation snapshot, from which the dispatcher computes the
// revision and any requested diff.
type Result struct {
	Data     interface{}
	Snapshot *project.Snapshot
}

// Project is the use-case service behind `get_project_state` and
// `ensure_project`.
type Project struct {
	Editor   ports.Editor
	Snap     ports.Snapshot
	Formats  ports.Formats
}

func NewProject(editor ports.Editor, snap ports.Snapshot, formats ports.Formats) *Project {
	return &Project{Editor: editor, Snap: snap, Formats: formats}
}

// GetState is read-only: it never mutates, only reads and optionally
// trims the snapshot to a summary.
func (p *Project) GetState(ctx context.Context, detail string) (*Result, error) {
	snap, err := p.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	if detail == "summary" {
		return &Result{Data: map[string]interface{}{
			"id":         snap.ID,
			"name":       snap.Name,
			"formatId":   snap.FormatID,
			"boneCount":  len(snap.Bones),
			"cubeCount":  len(snap.Cubes),
			"meshCount":  len(snap.Meshes),
		}, Snapshot: snap}, nil
	}
	return &Result{Data: snap, Snapshot: snap}, nil
}

// EnsureProject creates or opens the project for this session. When name or
// formatId is blank, it reports needsDialog so the dispatcher's
// `ensure_project` decoration (spec §4.6.2) can prompt the caller.
func (p *Project) EnsureProject(ctx context.Context, name, formatID string) (*Result, error) {
	if formatID != "" {
		if _, err := p.Formats.Get(ctx, formatID); err != nil {
			return nil, invalidState(toolenvelope.CodeUnsupportedFormat, "unknown formatId: "+formatID, map[string]interface{}{"reason": "UNKNOWN_FORMAT", "formatId": formatID})
		}
	}
	needsDialog, err := p.Editor.EnsureProject(ctx, name, formatID)
	if err != nil {
		return nil, err
	}
	snap, err := p.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	if needsDialog {
		return nil, invalidState(toolenvelope.CodeInvalidState, "project name and format are required", map[string]interface{}{
			"reason": "adapter_project_dialog_input_required",
		})
	}
	return &Result{Data: map[string]interface{}{"id": snap.ID, "name": snap.Name, "formatId": snap.FormatID}, Snapshot: snap}, nil
}
