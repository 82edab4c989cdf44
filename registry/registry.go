// Package registry holds the fixed table of tool definitions the gateway
// exposes, their classification for the dispatcher, and the registry's
// stable content hash used for agent-side capability caching.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cubeforge/gateway/schema"
)

// Classification tells the dispatcher which decorator chain a tool needs.
type Classification string

const (
	ReadOnly          Classification = "read_only"
	Stateful          Classification = "stateful"
	StatefulWithRetry Classification = "stateful_with_retry"
)

// Policy carries the per-tool flags the dispatcher's revision guard and
// state-attachment steps consult.
type Policy struct {
	Classification  Classification
	RequiresRevision bool
	DefaultIncludeState bool
	DefaultIncludeDiff  bool
}

// ToolDefinition is the immutable description of one callable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	InputSchema *schema.Schema `json:"inputSchema"`
	Policy      Policy         `json:"-"`
}

// Registry is the immutable-at-startup table of tool definitions, keyed by
// name, with handlers wired in separately by the dispatcher (registry.go
// defines WHAT a tool is; dispatch defines HOW it runs).
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*ToolDefinition
	order []string
	hash  string
}

// New builds a Registry from a fixed slice of definitions, computing and
// freezing the content hash once. Duplicate names panic — a registry
// construction bug, not a runtime condition.
func New(defs []*ToolDefinition) *Registry {
	r := &Registry{defs: make(map[string]*ToolDefinition, len(defs))}
	for _, d := range defs {
		if _, exists := r.defs[d.Name]; exists {
			panic(fmt.Sprintf("registry: duplicate tool name %q", d.Name))
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	r.hash = computeHash(defs)
	return r
}

// Get returns the definition for name, or (nil, false) when unknown.
func (r *Registry) Get(name string) (*ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// List returns all definitions in registration order.
func (r *Registry) List() []*ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Hash is the hex SHA-256 over the canonical `[{name, inputSchema}, ...]`
// array (spec §4.4), frozen at construction time.
func (r *Registry) Hash() string {
	return r.hash
}

// Count is the number of registered tool definitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

type hashEntry struct {
	Name        string         `json:"name"`
	InputSchema *schema.Schema `json:"inputSchema"`
}

func computeHash(defs []*ToolDefinition) string {
	sorted := append([]*ToolDefinition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	entries := make([]hashEntry, 0, len(sorted))
	for _, d := range sorted {
		entries = append(entries, hashEntry{Name: d.Name, InputSchema: d.InputSchema})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		panic(fmt.Sprintf("registry: failed to marshal hash entries: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
