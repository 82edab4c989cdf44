// Package couchstore is a CouchDB Persistence backend with compare-and-swap:
// SupportsCAS reports true, a write against a stale expectedRevision
// returns ports.ConflictError, and a concurrent write that makes CouchDB
// reject the `_rev` with 409 is mapped to ports.ConflictError as well.
// Grounded on the teacher's db/repository/couchdb.go CouchDBRepository and
// db/couchdb_types.go's CouchDBError.IsConflict.
package couchstore

import (
	"context"
	"fmt"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/couchdb/v4"

	"github.com/cubeforge/gateway/ports"
)

// Store wraps one CouchDB database as a Persistence adapter.
type Store struct {
	client *kivik.Client
	db     *kivik.DB
}

// Open connects to CouchDB and ensures dbName exists.
func Open(ctx context.Context, url, dbName string) (*Store, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("create couchdb client: %w", err)
	}
	db := client.DB(dbName)
	if err := db.Err(); err != nil {
		if createErr := client.CreateDB(ctx, dbName); createErr != nil {
			return nil, fmt.Errorf("create couchdb database %s: %w", dbName, createErr)
		}
		db = client.DB(dbName)
	}
	return &Store{client: client, db: db}, nil
}

func docID(tenantID, key string) string { return tenantID + ":" + key }

type couchDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	TenantID  string `json:"tenantId"`
	ProjectID string `json:"projectId"`
	Revision  string `json:"revision"`
	State     []byte `json:"state"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (s *Store) Load(ctx context.Context, tenantID, key string) (*ports.PersistedRecord, error) {
	var doc couchDoc
	err := s.db.Get(ctx, docID(tenantID, key)).ScanDoc(&doc)
	if err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("load couchdb document: %w", err)
	}
	return &ports.PersistedRecord{
		TenantID:  doc.TenantID,
		ProjectID: doc.ProjectID,
		Revision:  doc.Revision,
		State:     doc.State,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// SaveIfRevision reads the current document and returns
// ports.ConflictError when its revision field differs from
// expectedRevision. The PUT carries the `_rev` from that read, so a write
// that lands in between makes CouchDB answer 409, which is also translated
// to ports.ConflictError.
func (s *Store) SaveIfRevision(ctx context.Context, tenantID, key string, record *ports.PersistedRecord, expectedRevision string) error {
	id := docID(tenantID, key)

	var existing couchDoc
	err := s.db.Get(ctx, id).ScanDoc(&existing)
	switch {
	case err != nil && kivik.HTTPStatus(err) == 404:
		if expectedRevision != "" {
			return &ports.ConflictError{Expected: expectedRevision, Actual: ""}
		}
	case err != nil:
		return fmt.Errorf("load couchdb document for CAS check: %w", err)
	default:
		if existing.Revision != expectedRevision {
			return &ports.ConflictError{Expected: expectedRevision, Actual: existing.Revision}
		}
	}

	doc := couchDoc{
		ID:        id,
		Rev:       existing.Rev,
		TenantID:  record.TenantID,
		ProjectID: record.ProjectID,
		Revision:  record.Revision,
		State:     record.State,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	_, err = s.db.Put(ctx, id, doc)
	if err != nil {
		if kivik.HTTPStatus(err) == 409 {
			return &ports.ConflictError{Expected: expectedRevision, Actual: ""}
		}
		return fmt.Errorf("put couchdb document: %w", err)
	}
	return nil
}

func (s *Store) SupportsCAS() bool { return true }

var _ ports.Persistence = (*Store)(nil)
