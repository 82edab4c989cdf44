package memory

import (
	"context"
	"sync"

	"github.com/cubeforge/gateway/ports"
)

// Persistence is an in-process Persistence adapter with true
// compare-and-swap, used for local/dev runs and tests in place of
// boltstore/couchstore.
type Persistence struct {
	mu   sync.Mutex
	docs map[string]*ports.PersistedRecord
}

func NewPersistence() *Persistence {
	return &Persistence{docs: map[string]*ports.PersistedRecord{}}
}

func key(tenantID, k string) string { return tenantID + "/" + k }

func (p *Persistence) Load(ctx context.Context, tenantID, k string) (*ports.PersistedRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.docs[key(tenantID, k)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (p *Persistence) SaveIfRevision(ctx context.Context, tenantID, k string, record *ports.PersistedRecord, expectedRevision string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.docs[key(tenantID, k)]
	actual := ""
	if ok {
		actual = existing.Revision
	}
	if actual != expectedRevision {
		return &ports.ConflictError{Expected: expectedRevision, Actual: actual}
	}
	copied := *record
	p.docs[key(tenantID, k)] = &copied
	return nil
}

func (p *Persistence) SupportsCAS() bool { return true }

var _ ports.Persistence = (*Persistence)(nil)
