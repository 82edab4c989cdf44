package services

import "github.com/cubeforge/gateway/ports"
import "context"

// Validation is the use-case service behind `validate_project`: it runs
// the full invariant check (project.Snapshot.Validate) and reports
// violations without failing the tool call itself — a violating project
// is still a valid read, per spec §4.7/§7 (invalid_state is reserved for
// mutation attempts, not for reporting on an already-invalid snapshot).
type Validation struct {
	Snap ports.Snapshot
}

func NewValidation(snap ports.Snapshot) *Validation {
	return &Validation{Snap: snap}
}

func (v *Validation) Run(ctx context.Context) (*Result, error) {
	snap, err := v.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	violations := []string{}
	if err := snap.Validate(); err != nil {
		violations = append(violations, err.Error())
	}
	return &Result{Data: map[string]interface{}{
		"valid":      len(violations) == 0,
		"violations": violations,
	}, Snapshot: snap}, nil
}
