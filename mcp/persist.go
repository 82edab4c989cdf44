package mcp

import (
	"context"

	"github.com/cubeforge/gateway/project"
)

// StateSink is notified after a successful tools/call dispatch so the
// application wiring can persist the post-mutation snapshot (spec §4.10's
// workspace pipeline store) independently of the MCP transport. Persist is
// best-effort from the router's perspective: it must not block the
// response and its errors are the sink's own concern to log.
type StateSink interface {
	Persist(ctx context.Context, sessionID string, snap *project.Snapshot)
}
