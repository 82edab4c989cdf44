package gatewayapp

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/cubeforge/gateway/pipeline"
	"github.com/cubeforge/gateway/project"
)

// defaultTenant is the single-tenant scope the in-process ports/memory
// Editor operates under; a multi-tenant deployment would derive this from
// the session's auth context instead, which is an external collaborator
// concern this module does not implement (see ports package doc).
const defaultTenant = "default"

// jobWorkerID identifies this process's claims in the job queue; a
// multi-replica deployment would derive this from hostname+pid, but a
// single gatewayd process only ever runs one worker loop.
const jobWorkerID = "gatewayd-worker"

const jobKindPersistSnapshot = "persist_snapshot"

// persistSink implements mcp.StateSink by enqueueing a NativeJob rather
// than writing synchronously on the router's persist goroutine: the actual
// write (through the workspace lock, §4.10) happens on the job worker
// loop, so a slow persistence backend degrades queue depth, not request
// latency.
type persistSink struct {
	jobs *pipeline.JobQueue
	log  *logrus.Entry
}

func newPersistSink(jobs *pipeline.JobQueue, log *logrus.Entry) *persistSink {
	return &persistSink{jobs: jobs, log: log}
}

func (p *persistSink) Persist(ctx context.Context, sessionID string, snap *project.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		p.log.WithError(err).Warn("persist hook: marshal snapshot")
		return
	}
	_, err = p.jobs.SubmitJob(ctx, pipeline.NativeJob{
		ProjectID:   snap.ID,
		WorkspaceID: sessionID,
		Kind:        jobKindPersistSnapshot,
		Payload:     payload,
		MaxAttempts: 5,
		LeaseMs:     10000,
	})
	if err != nil {
		p.log.WithError(err).Warn("persist hook: submit job")
	}
}
