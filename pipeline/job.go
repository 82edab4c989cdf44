// Package pipeline implements the persistent native-job queue and the
// workspace pipeline store (spec §4.10): Redis-backed job leasing with
// retry/backoff and dead-lettering, and a cross-process workspace lock
// guarding revision-checked persistence. Grounded on the teacher's
// queue/redis list+ZSET queue and db/repository/redis.go lock pattern,
// generalized to the NativeJob lifecycle's attemptCount/leaseExpiresAt/
// nextRetryAt/deadLetter fields.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JobStatus is one of the NativeJob lifecycle states (spec §3).
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// NativeJob is the per-workspace unit of asynchronous work (spec §3).
type NativeJob struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	WorkspaceID   string          `json:"workspaceId"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Status        JobStatus       `json:"status"`
	AttemptCount  int             `json:"attemptCount"`
	MaxAttempts   int             `json:"maxAttempts"`
	LeaseMs       int64           `json:"leaseMs"`
	LeaseExpiresAt int64          `json:"leaseExpiresAt,omitempty"`
	WorkerID      string          `json:"workerId,omitempty"`
	NextRetryAt   int64           `json:"nextRetryAt,omitempty"`
	Error         string          `json:"error,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	DeadLetter    bool            `json:"deadLetter,omitempty"`
	EnqueuedAtMs  int64           `json:"enqueuedAtMs"`
}

// Backoff implements spec §4.10.1: min(30s, 2^(n-1)*100ms) for attempt n.
func Backoff(attemptCount int) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}
	ms := math.Pow(2, float64(attemptCount-1)) * 100
	d := time.Duration(ms) * time.Millisecond
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func clampMaxAttempts(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

func clampLeaseMs(ms int64) int64 {
	if ms < 5000 {
		return 5000
	}
	return ms
}

// JobQueue is the Redis-backed NativeJob queue. One instance serves all
// workspaces; keys are namespaced by workspace id.
type JobQueue struct {
	client *redis.Client
	prefix string
	events *EventLog
	now    func() time.Time
}

// NewJobQueue wraps an existing Redis client (so tests can point it at a
// miniredis instance, per the teacher's queue/redis test style).
func NewJobQueue(client *redis.Client, keyPrefix string, events *EventLog) *JobQueue {
	if keyPrefix == "" {
		keyPrefix = "gateway:jobs:"
	}
	return &JobQueue{client: client, prefix: keyPrefix, events: events, now: time.Now}
}

func (q *JobQueue) docKey(workspaceID, jobID string) string {
	return fmt.Sprintf("%sdoc:%s:%s", q.prefix, workspaceID, jobID)
}
func (q *JobQueue) queuedKey(workspaceID string) string  { return q.prefix + "queued:" + workspaceID }
func (q *JobQueue) runningKey(workspaceID string) string { return q.prefix + "running:" + workspaceID }

// SubmitJob inserts a new job with attemptCount=0 and clamped
// maxAttempts/leaseMs.
func (q *JobQueue) SubmitJob(ctx context.Context, job NativeJob) (*NativeJob, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = JobQueued
	job.AttemptCount = 0
	job.MaxAttempts = clampMaxAttempts(job.MaxAttempts)
	job.LeaseMs = clampLeaseMs(job.LeaseMs)
	job.EnqueuedAtMs = q.now().UnixMilli()

	if err := q.save(ctx, &job); err != nil {
		return nil, err
	}
	if err := q.client.ZAdd(ctx, q.queuedKey(job.WorkspaceID), redis.Z{
		Score: float64(job.EnqueuedAtMs), Member: job.ID,
	}).Err(); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	q.appendEvent(ctx, job.ProjectID, "job_submitted", job.ID)
	return &job, nil
}

// ClaimNextJob reclaims expired leases, then elects the oldest eligible
// queued job and atomically transitions it to running (spec §4.10.1).
// Returns (nil, nil) when nothing is claimable.
func (q *JobQueue) ClaimNextJob(ctx context.Context, workspaceID, workerID string) (*NativeJob, error) {
	if err := q.reclaimExpiredLeases(ctx, workspaceID); err != nil {
		return nil, err
	}

	now := q.now().UnixMilli()
	candidates, err := q.client.ZRangeByScore(ctx, q.queuedKey(workspaceID), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now), Count: 50,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan queued jobs: %w", err)
	}

	for _, jobID := range candidates {
		// ZRem is atomic: exactly one concurrent claimer wins the race
		// for this job id.
		removed, err := q.client.ZRem(ctx, q.queuedKey(workspaceID), jobID).Result()
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		if removed == 0 {
			continue // another worker already claimed it
		}

		job, err := q.load(ctx, workspaceID, jobID)
		if err != nil {
			continue
		}
		job.Status = JobRunning
		job.WorkerID = workerID
		job.AttemptCount++
		job.LeaseExpiresAt = q.now().Add(time.Duration(job.LeaseMs) * time.Millisecond).UnixMilli()
		if err := q.save(ctx, job); err != nil {
			return nil, err
		}
		if err := q.client.ZAdd(ctx, q.runningKey(workspaceID), redis.Z{
			Score: float64(job.LeaseExpiresAt), Member: job.ID,
		}).Err(); err != nil {
			return nil, fmt.Errorf("track lease: %w", err)
		}
		q.appendEvent(ctx, job.ProjectID, "job_claimed", job.ID)
		return job, nil
	}
	return nil, nil
}

// reclaimExpiredLeases returns any running job whose lease has expired
// back to queued, preserving its attemptCount.
func (q *JobQueue) reclaimExpiredLeases(ctx context.Context, workspaceID string) error {
	now := q.now().UnixMilli()
	expired, err := q.client.ZRangeByScore(ctx, q.runningKey(workspaceID), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("scan expired leases: %w", err)
	}
	for _, jobID := range expired {
		removed, err := q.client.ZRem(ctx, q.runningKey(workspaceID), jobID).Result()
		if err != nil || removed == 0 {
			continue
		}
		job, err := q.load(ctx, workspaceID, jobID)
		if err != nil {
			continue
		}
		job.Status = JobQueued
		job.WorkerID = ""
		job.LeaseExpiresAt = 0
		if err := q.save(ctx, job); err != nil {
			continue
		}
		q.client.ZAdd(ctx, q.queuedKey(workspaceID), redis.Z{Score: float64(job.EnqueuedAtMs), Member: job.ID})
		q.appendEvent(ctx, job.ProjectID, "job_lease_expired", job.ID)
	}
	return nil
}

// CompleteJob stores the result and marks the job completed.
func (q *JobQueue) CompleteJob(ctx context.Context, workspaceID, jobID string, result json.RawMessage) (*NativeJob, error) {
	job, err := q.load(ctx, workspaceID, jobID)
	if err != nil {
		return nil, err
	}
	q.client.ZRem(ctx, q.runningKey(workspaceID), jobID)
	job.Status = JobCompleted
	job.Result = result
	if err := q.save(ctx, job); err != nil {
		return nil, err
	}
	q.appendEvent(ctx, job.ProjectID, "job_completed", job.ID)
	return job, nil
}

// FailJob applies the retry-or-dead-letter transition (spec §4.10.1).
func (q *JobQueue) FailJob(ctx context.Context, workspaceID, jobID, errMsg string) (*NativeJob, error) {
	job, err := q.load(ctx, workspaceID, jobID)
	if err != nil {
		return nil, err
	}
	q.client.ZRem(ctx, q.runningKey(workspaceID), jobID)
	job.Error = errMsg

	if job.AttemptCount < job.MaxAttempts {
		job.Status = JobQueued
		job.NextRetryAt = q.now().Add(Backoff(job.AttemptCount)).UnixMilli()
		if err := q.save(ctx, job); err != nil {
			return nil, err
		}
		if err := q.client.ZAdd(ctx, q.queuedKey(workspaceID), redis.Z{
			Score: float64(job.NextRetryAt), Member: job.ID,
		}).Err(); err != nil {
			return nil, fmt.Errorf("requeue job: %w", err)
		}
		q.appendEvent(ctx, job.ProjectID, "job_retry_scheduled", job.ID)
		return job, nil
	}

	job.Status = JobFailed
	job.DeadLetter = true
	if err := q.save(ctx, job); err != nil {
		return nil, err
	}
	q.appendEvent(ctx, job.ProjectID, "job_dead_lettered", job.ID)
	return job, nil
}

// Depth reports the number of queued (not yet running) jobs for a
// workspace, for the Prometheus queue-depth gauge.
func (q *JobQueue) Depth(ctx context.Context, workspaceID string) (int64, error) {
	return q.client.ZCard(ctx, q.queuedKey(workspaceID)).Result()
}

func (q *JobQueue) save(ctx context.Context, job *NativeJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.Set(ctx, q.docKey(job.WorkspaceID, job.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (q *JobQueue) load(ctx context.Context, workspaceID, jobID string) (*NativeJob, error) {
	data, err := q.client.Get(ctx, q.docKey(workspaceID, jobID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	var job NativeJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

func (q *JobQueue) appendEvent(ctx context.Context, projectID, kind, jobID string) {
	if q.events == nil || projectID == "" {
		return
	}
	_ = q.events.Append(ctx, projectID, kind, map[string]interface{}{"jobId": jobID})
}
