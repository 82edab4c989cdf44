package gatewayapp

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cubeforge/gateway/mcp"
	"github.com/cubeforge/gateway/metrics"
	"github.com/cubeforge/gateway/pipeline"
)

// pollInterval is how often the worker scans each live session's job
// queue for claimable work; the job queue itself carries no blocking
// primitive (the teacher's queue/redis uses BLPop, but NativeJob's
// lease/backoff scheduling needs ZRangeByScore, not a blocking list pop),
// so a short poll is the idiomatic equivalent here.
const pollInterval = 250 * time.Millisecond

// jobWorker claims and runs queued NativeJobs across every live session's
// workspace, persisting the project snapshot the router's persist hook
// (persistSink) enqueued (spec §4.10.1's submit/claim/complete/fail lifecycle).
type jobWorker struct {
	jobs     *pipeline.JobQueue
	sessions *mcp.SessionStore
	pipe     *pipeline.WorkspacePipelineState
	events   *pipeline.EventLog
	metrics  *metrics.Metrics
	log      *logrus.Entry

	stop chan struct{}
	done chan struct{}
}

func newJobWorker(jobs *pipeline.JobQueue, sessions *mcp.SessionStore, pipe *pipeline.WorkspacePipelineState, events *pipeline.EventLog, m *metrics.Metrics, log *logrus.Entry) *jobWorker {
	return &jobWorker{
		jobs: jobs, sessions: sessions, pipe: pipe, events: events, metrics: m, log: log,
		stop: make(chan struct{}), done: make(chan struct{}),
	}
}

func (w *jobWorker) start() {
	go w.run()
}

func (w *jobWorker) run() {
	defer close(w.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *jobWorker) sweep() {
	ctx := context.Background()
	for _, workspaceID := range w.sessions.IDs() {
		if depth, err := w.jobs.Depth(ctx, workspaceID); err == nil && w.metrics != nil {
			w.metrics.SetQueueDepth(workspaceID, depth)
		}
		job, err := w.jobs.ClaimNextJob(ctx, workspaceID, jobWorkerID)
		if err != nil {
			w.log.WithError(err).WithField("workspaceId", workspaceID).Warn("job worker: claim")
			continue
		}
		if job == nil {
			continue
		}
		w.runJob(ctx, job)
	}
}

func (w *jobWorker) runJob(ctx context.Context, job *pipeline.NativeJob) {
	switch job.Kind {
	case jobKindPersistSnapshot:
		w.runPersistSnapshot(ctx, job)
	default:
		_, _ = w.jobs.FailJob(ctx, job.WorkspaceID, job.ID, "unknown job kind: "+job.Kind)
	}
}

func (w *jobWorker) runPersistSnapshot(ctx context.Context, job *pipeline.NativeJob) {
	_, err := w.pipe.Mutate(ctx, defaultTenant, job.WorkspaceID, func(current []byte) ([]byte, error) {
		return job.Payload, nil
	})
	if err != nil {
		failed, ferr := w.jobs.FailJob(ctx, job.WorkspaceID, job.ID, err.Error())
		if ferr != nil {
			w.log.WithError(ferr).Warn("job worker: fail job")
			return
		}
		if w.metrics != nil {
			if failed.DeadLetter {
				w.metrics.RecordJobDeadLetter(job.Kind)
			} else {
				w.metrics.RecordJobRetry(job.Kind)
			}
		}
		return
	}
	if w.events != nil {
		_ = w.events.Append(ctx, job.ProjectID, "project_snapshot", map[string]interface{}{"workspaceId": job.WorkspaceID, "jobId": job.ID})
	}
	if _, err := w.jobs.CompleteJob(ctx, job.WorkspaceID, job.ID, nil); err != nil {
		w.log.WithError(err).Warn("job worker: complete job")
	}
}

func (w *jobWorker) Close() {
	close(w.stop)
	<-w.done
}
