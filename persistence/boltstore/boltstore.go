// Package boltstore is a single-node Persistence backend over bbolt, for
// running the gateway with zero external services. It performs blind
// writes: SupportsCAS reports false, and the caller (pipeline package) is
// expected to serialize mutation through its own workspace Lock rather
// than relying on this backend for optimistic concurrency. Grounded on the
// teacher's db/bolt wrapper, generalized from string-keyed JSON blobs to
// the ports.PersistedRecord shape.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
	"github.com/sirupsen/logrus"

	"github.com/cubeforge/gateway/ports"
)

const bucketName = "pipeline_state"

// Store wraps a bbolt database file as a Persistence adapter.
type Store struct {
	db *bolt.DB
}

// Open creates/opens the bbolt file at path and logs the CAS capability
// downgrade once at startup, per spec §4.10's backend-capability note.
func Open(path string, log *logrus.Entry) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create pipeline bucket: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.Warn("persistence backend bbolt does not support compare-and-swap; writes are blind")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func recordKey(tenantID, key string) []byte {
	return []byte(tenantID + "/" + key)
}

func (s *Store) Load(ctx context.Context, tenantID, key string) (*ports.PersistedRecord, error) {
	var rec *ports.PersistedRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		data := b.Get(recordKey(tenantID, key))
		if data == nil {
			return nil
		}
		var r ports.PersistedRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshal pipeline record: %w", err)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveIfRevision ignores expectedRevision: bbolt has no server-side CAS
// primitive usable across processes, so every write succeeds (blind
// write). ConflictError is never returned.
func (s *Store) SaveIfRevision(ctx context.Context, tenantID, key string, record *ports.PersistedRecord, expectedRevision string) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal pipeline record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(recordKey(tenantID, key), data)
	})
}

func (s *Store) SupportsCAS() bool { return false }

var _ ports.Persistence = (*Store)(nil)
