package gatewayapp

import (
	"context"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// revisionSource adapts a Snapshot port into dispatch.RevisionSource by
// hashing whatever the editor currently holds (spec §4.1's content-hash
// revision), without the dispatcher needing to know the editor exists.
type revisionSource struct {
	snap ports.Snapshot
}

func (r *revisionSource) CurrentRevision(ctx context.Context) (string, error) {
	s, err := r.snap.Current(ctx)
	if err != nil {
		return "", err
	}
	return project.Hash(s)
}
