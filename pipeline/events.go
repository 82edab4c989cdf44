package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cubeforge/gateway/db"
)

// ProjectEvent is one row of the append-only project activity log (spec
// §4.10, job_submitted/job_claimed/... plus editor-originated events).
type ProjectEvent struct {
	Seq       int64           `json:"seq"`
	ProjectID string          `json:"projectId"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt int64           `json:"createdAt"`
}

// EventLog appends ProjectEvents, either to Postgres (BIGSERIAL seq, durable
// across restarts) or, when no DSN is configured, to an in-memory ring —
// grounded on the teacher's semantic/runtime EventStore, generalized from
// PostgreSQL-only to a dual backend since the gateway must still run with
// zero external services for local/dev use.
type EventLog struct {
	pg *db.PostgresDB

	mu     sync.Mutex
	ring   []ProjectEvent
	cap    int
	seq    int64
	now    func() time.Time
}

const defaultEventRingCap = 5000

// NewEventLog with a live Postgres connection: events persist in the
// project_events table.
func NewEventLog(pg *db.PostgresDB) *EventLog {
	return &EventLog{pg: pg, now: time.Now}
}

// NewInMemoryEventLog is used when no Postgres DSN is configured; it keeps
// the most recent ringCap events (default 5000) per process lifetime.
func NewInMemoryEventLog(ringCap int) *EventLog {
	if ringCap <= 0 {
		ringCap = defaultEventRingCap
	}
	return &EventLog{cap: ringCap, now: time.Now}
}

// EnsureSchema creates the project_events table if absent. Safe to call on
// every startup.
func (l *EventLog) EnsureSchema(ctx context.Context) error {
	if l.pg == nil {
		return nil
	}
	return l.pg.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS project_events (
			seq BIGSERIAL PRIMARY KEY,
			project_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS project_events_project_id_seq_idx
			ON project_events (project_id, seq);
	`)
}

// Append records one event for projectID. data may be nil.
func (l *EventLog) Append(ctx context.Context, projectID, kind string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if l.pg != nil {
		return l.pg.Exec(ctx, `
			INSERT INTO project_events (project_id, kind, data) VALUES ($1, $2, $3)
		`, projectID, kind, payload)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.ring = append(l.ring, ProjectEvent{
		Seq:       l.seq,
		ProjectID: projectID,
		Kind:      kind,
		Data:      payload,
		CreatedAt: l.now().UnixMilli(),
	})
	if len(l.ring) > l.cap {
		l.ring = l.ring[len(l.ring)-l.cap:]
	}
	return nil
}

// Since returns events for projectID with seq > lastSeq, oldest first,
// capped at limit (0 = no cap).
func (l *EventLog) Since(ctx context.Context, projectID string, lastSeq int64, limit int) ([]ProjectEvent, error) {
	if l.pg != nil {
		return l.sinceFromPostgres(ctx, projectID, lastSeq, limit)
	}
	return l.sinceFromRing(projectID, lastSeq, limit), nil
}

func (l *EventLog) sinceFromPostgres(ctx context.Context, projectID string, lastSeq int64, limit int) ([]ProjectEvent, error) {
	query := `
		SELECT seq, project_id, kind, data, extract(epoch from created_at) * 1000
		FROM project_events
		WHERE project_id = $1 AND seq > $2
		ORDER BY seq ASC
	`
	args := []interface{}{projectID, lastSeq}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := l.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query project events: %w", err)
	}
	defer rows.Close()

	var out []ProjectEvent
	for rows.Next() {
		var e ProjectEvent
		var createdAtMs float64
		if err := rows.Scan(&e.Seq, &e.ProjectID, &e.Kind, &e.Data, &createdAtMs); err != nil {
			return nil, fmt.Errorf("scan project event: %w", err)
		}
		e.CreatedAt = int64(createdAtMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *EventLog) sinceFromRing(projectID string, lastSeq int64, limit int) []ProjectEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ProjectEvent
	for _, e := range l.ring {
		if e.ProjectID != projectID || e.Seq <= lastSeq {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
