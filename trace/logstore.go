// Package trace implements the NDJSON trace log: a bounded ring store
// (spec §4.5), the recorder that turns a dispatched call into a trace
// entry, and a scheduled flusher grounded on the teacher's buffered async
// trace exporter.
package trace

import (
	"encoding/json"
	"sync"

	"github.com/dustin/go-humanize"
)

// Kind distinguishes the one header entry from the many step entries in a
// trace log (spec §6, NDJSON format).
type Kind string

const (
	KindHeader Kind = "header"
	KindStep   Kind = "step"
)

// Entry is one NDJSON line. Fields not applicable to a header are omitted.
type Entry struct {
	Kind            Kind            `json:"kind"`
	SchemaVersion   int             `json:"schemaVersion,omitempty"`
	PluginVersion   string          `json:"pluginVersion,omitempty"`
	StartedAt       int64           `json:"startedAt,omitempty"`
	Seq             int64           `json:"seq,omitempty"`
	Ts              int64           `json:"ts,omitempty"`
	Route           string          `json:"route,omitempty"`
	Op              string          `json:"op,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Response        json.RawMessage `json:"response,omitempty"`
	State           json.RawMessage `json:"state,omitempty"`
	Diff            json.RawMessage `json:"diff,omitempty"`
}

// LogStore is a bounded ring of trace entries: appends beyond maxEntries
// evict the oldest; a byte cap (maxBytes, 0 disables) evicts further.
type LogStore struct {
	mu        sync.Mutex
	entries   []Entry
	sizes     []int
	totalSize int
	maxEntries int
	maxBytes   int
}

// NewLogStore builds a store capped at maxEntries (default 2000 when <=0)
// and maxBytes (0 = unbounded).
func NewLogStore(maxEntries, maxBytes int) *LogStore {
	if maxEntries <= 0 {
		maxEntries = 2000
	}
	return &LogStore{maxEntries: maxEntries, maxBytes: maxBytes}
}

// Append adds an entry, evicting oldest entries until both caps hold.
func (s *LogStore) Append(e Entry) {
	data, _ := json.Marshal(e)
	size := len(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	s.sizes = append(s.sizes, size)
	s.totalSize += size

	for len(s.entries) > s.maxEntries || (s.maxBytes > 0 && s.totalSize > s.maxBytes) {
		if len(s.entries) == 0 {
			break
		}
		s.totalSize -= s.sizes[0]
		s.entries = s.entries[1:]
		s.sizes = s.sizes[1:]
	}
}

// Snapshot returns a copy of all entries currently retained, oldest first.
func (s *LogStore) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the current entry count.
func (s *LogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Bytes reports the current total serialized size.
func (s *LogStore) Bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

// Stats summarizes the log's current occupancy for operator-facing output
// (CLI status lines, capability reporting) where byte counts read better
// as "4.2 MB" than raw integers.
type Stats struct {
	Entries      int
	Bytes        int
	HumanBytes   string
	MaxEntries   int
	MaxBytes     int
	HumanMaxBytes string
}

// StatsReport returns a human-readable snapshot of the store's size caps.
func (s *LogStore) StatsReport() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Entries:    len(s.entries),
		Bytes:      s.totalSize,
		HumanBytes: humanize.Bytes(uint64(s.totalSize)),
		MaxEntries: s.maxEntries,
		MaxBytes:   s.maxBytes,
	}
	if s.maxBytes > 0 {
		st.HumanMaxBytes = humanize.Bytes(uint64(s.maxBytes))
	} else {
		st.HumanMaxBytes = "unbounded"
	}
	return st
}
