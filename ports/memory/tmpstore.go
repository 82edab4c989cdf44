package memory

import (
	"context"
	"sync"

	"github.com/cubeforge/gateway/ports"
)

// TmpStore is an in-process TmpStore adapter; the default when no S3
// bucket is configured. Artifacts stay addressable by key for the
// lifetime of the process only.
type TmpStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewTmpStore() *TmpStore {
	return &TmpStore{data: make(map[string][]byte)}
}

func (t *TmpStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[key] = data
	return "mem://" + key, nil
}

func (t *TmpStore) Get(key string) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.data[key]
	return d, ok
}

var _ ports.TmpStore = (*TmpStore)(nil)
