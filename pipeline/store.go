package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cubeforge/gateway/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

// WorkspacePipelineState is a single (tenantId, workspaceId) document
// guarded by a cross-process Lock and stored through a Persistence port
// with optimistic concurrency (spec §4.10). It layers a small read cache
// over the backend that serves Read; Mutate always loads the current
// document from the backend under the lock.
type WorkspacePipelineState struct {
	persist ports.Persistence
	lock    *Lock
	lockTTL time.Duration

	cache *lru.Cache[string, *ports.PersistedRecord] // key: tenantID+"/"+workspaceID
}

func NewWorkspacePipelineState(persist ports.Persistence, lock *Lock) *WorkspacePipelineState {
	cache, _ := lru.New[string, *ports.PersistedRecord](256)
	return &WorkspacePipelineState{persist: persist, lock: lock, lockTTL: defaultLockTTL, cache: cache}
}

func cacheKey(tenantID, workspaceID string) string { return tenantID + "/" + workspaceID }

// Document key prefixes (spec §4.10/§6), mirroring the lock's own
// "pipeline-lock-v3:" pattern (lock.go:40). Legacy v1/v2 documents are
// read once and migrated forward to v3 the first time they're touched.
const (
	stateKeyV3Prefix = "pipeline-state-v3:"
	stateKeyV2Prefix = "pipeline-state-v2:"
	stateKeyV1Prefix = "pipeline-state-v1:"
)

func stateKey(workspaceID string) string { return stateKeyV3Prefix + workspaceID }

// loadCurrent reads the v3 document, falling back to a one-time
// read-and-migrate of a legacy v2 or v1 document when no v3 document
// exists yet.
func (s *WorkspacePipelineState) loadCurrent(ctx context.Context, tenantID, workspaceID string) (*ports.PersistedRecord, error) {
	rec, err := s.persist.Load(ctx, tenantID, stateKey(workspaceID))
	if err != nil {
		return nil, fmt.Errorf("load workspace state: %w", err)
	}
	if rec != nil {
		return rec, nil
	}
	return s.migrateLegacy(ctx, tenantID, workspaceID)
}

// migrateLegacy looks for a document under the older v2/v1 key prefixes
// and, if found, writes it forward under the current v3 key so every
// later read/mutate only ever has to consider v3.
func (s *WorkspacePipelineState) migrateLegacy(ctx context.Context, tenantID, workspaceID string) (*ports.PersistedRecord, error) {
	for _, prefix := range []string{stateKeyV2Prefix, stateKeyV1Prefix} {
		legacy, err := s.persist.Load(ctx, tenantID, prefix+workspaceID)
		if err != nil {
			return nil, fmt.Errorf("load legacy workspace state (%s): %w", prefix, err)
		}
		if legacy == nil {
			continue
		}
		if err := s.persist.SaveIfRevision(ctx, tenantID, stateKey(workspaceID), legacy, ""); err != nil {
			if _, ok := err.(*ports.ConflictError); ok {
				// Another process already migrated this document forward.
				return s.persist.Load(ctx, tenantID, stateKey(workspaceID))
			}
			return nil, fmt.Errorf("migrate legacy workspace state forward: %w", err)
		}
		return legacy, nil
	}
	return nil, nil
}

// Read returns the current record, preferring the cache but falling back
// to the backend on a cache miss. The cache is never trusted as the sole
// source of truth for a mutate — Mutate always re-reads under lock.
func (s *WorkspacePipelineState) Read(ctx context.Context, tenantID, workspaceID string) (*ports.PersistedRecord, error) {
	if rec, ok := s.cache.Get(cacheKey(tenantID, workspaceID)); ok {
		return rec, nil
	}
	rec, err := s.loadCurrent(ctx, tenantID, workspaceID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.cache.Add(cacheKey(tenantID, workspaceID), rec)
	}
	return rec, nil
}

// Mutate runs fn against the latest state under the workspace lock and
// persists the result with saveIfRevision, invalidating the cache on a
// lost CAS race (spec §4.10: "acquire lock, re-read, mutate, saveIfRevision,
// on conflict invalidate and fail").
func (s *WorkspacePipelineState) Mutate(ctx context.Context, tenantID, workspaceID string, fn func(current []byte) ([]byte, error)) (*ports.PersistedRecord, error) {
	owner, err := s.lock.Acquire(ctx, tenantID, workspaceID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	defer func() { _ = s.lock.Release(context.Background(), tenantID, workspaceID, owner) }()

	key := cacheKey(tenantID, workspaceID)

	current, err := s.loadCurrent(ctx, tenantID, workspaceID)
	if err != nil {
		return nil, err
	}

	var currentState []byte
	expectedRevision := ""
	now := time.Now().UnixMilli()
	createdAt := now
	if current != nil {
		currentState = current.State
		expectedRevision = current.Revision
		createdAt = current.CreatedAt
	}

	next, err := fn(currentState)
	if err != nil {
		return nil, err
	}

	revision, err := hashState(next)
	if err != nil {
		return nil, err
	}

	record := &ports.PersistedRecord{
		TenantID:  tenantID,
		ProjectID: workspaceID,
		Revision:  revision,
		State:     next,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}

	if err := s.persist.SaveIfRevision(ctx, tenantID, stateKey(workspaceID), record, expectedRevision); err != nil {
		s.cache.Remove(key)
		if _, ok := err.(*ports.ConflictError); ok {
			return nil, err
		}
		return nil, fmt.Errorf("save workspace state: %w", err)
	}

	s.cache.Add(key, record)
	return record, nil
}

func hashState(data []byte) (string, error) {
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		// Non-JSON payloads (rare; pipeline state is always JSON in
		// practice) still get a stable revision over the raw bytes.
		sum := sha256.Sum256(data)
		return fmt.Sprintf("%x", sum), nil
	}
	canonical, err := json.Marshal(probe)
	if err != nil {
		return "", fmt.Errorf("canonicalize workspace state: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", sum), nil
}
