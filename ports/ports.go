// Package ports defines the narrow collaborator interfaces the core
// depends on and never implements itself: the concrete adapters
// (CubeAdapter, codec writers, TLS/auth, workspace admin CRUD) live outside
// this module. Use-case services in package services hold these ports and
// call through them; this module ships only in-memory default adapters
// (ports/memory) for local use and tests.
package ports

import (
	"context"

	"github.com/cubeforge/gateway/project"
)

// Editor mutates the authoritative model state. It is process-global and
// NOT reentrant (spec §5): callers must serialize access, which the
// dispatcher provides implicitly by running one tool call to completion
// before starting the next for a given workspace.
type Editor interface {
	AddBone(ctx context.Context, b project.Bone) error
	AddCube(ctx context.Context, c project.Cube) error
	UpdateCube(ctx context.Context, id string, mutate func(*project.Cube)) error
	DeleteCube(ctx context.Context, id string) error
	AddMesh(ctx context.Context, m project.Mesh) error
	AddTexture(ctx context.Context, t project.Texture) error
	SetFace(ctx context.Context, cubeID, face string, f project.Face) error
	AddAnimationClip(ctx context.Context, clip project.AnimationClip) error
	AddKeyframe(ctx context.Context, clipID, target string, kf project.AnimationKeyframe) error
	EnsureProject(ctx context.Context, name, formatID string) (needsDialog bool, err error)
}

// Snapshot reads the current authoritative state without mutating it.
type Snapshot interface {
	Current(ctx context.Context) (*project.Snapshot, error)
}

// FormatDescriptor describes one authoring format the adapter supports.
type FormatDescriptor struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	TextureResolution int    `json:"textureResolution" yaml:"textureResolution"`
}

// Formats exposes the authoring formats available to `ensure_project` and
// the capabilities payload.
type Formats interface {
	List(ctx context.Context) ([]FormatDescriptor, error)
	Get(ctx context.Context, id string) (*FormatDescriptor, error)
}

// Frame is one rendered preview image.
type Frame struct {
	MimeType string
	Data     []byte
}

// Renderer produces preview frames and raw texture pixels; it is the port
// behind `render_preview` and `read_texture`.
type Renderer interface {
	RenderPreview(ctx context.Context, s *project.Snapshot, angle string, width int) ([]Frame, error)
	ReadTexturePixels(ctx context.Context, s *project.Snapshot, textureID string) (Frame, error)
}

// ExportResult is what a codec produces: zero or more artifacts plus an
// optional warning (set on a best_effort fallback).
type ExportResult struct {
	Artifacts []Artifact
	Warning   string
}

// Artifact is one exported file, either embedded (Data) or referenced via
// the Exporter's blob backend (URIRef non-empty).
type Artifact struct {
	Suffix      string
	Data        []byte
	URIRef      string
	ContentType string
	Bytes       int64
}

// NotImplementedError marks a codec path the Export service should treat
// as a best_effort-fallback candidate rather than a hard failure.
type NotImplementedError struct{ Msg string }

func (e *NotImplementedError) Error() string { return e.Msg }

// UnsupportedFormatError marks a format/codec combination the registry has
// no writer for.
type UnsupportedFormatError struct{ Msg string }

func (e *UnsupportedFormatError) Error() string { return e.Msg }

// Exporter runs a named codec over a snapshot. `native_codec` requires
// codecID to be present in the allow-list; `gltf` and internal formats
// ignore codecID.
type Exporter interface {
	Export(ctx context.Context, s *project.Snapshot, format, codecID string) (ExportResult, error)
	AllowedCodecs(ctx context.Context) ([]string, error)
}

// TmpStore stages artifact bytes for an Exporter backend that writes to
// blob storage (e.g. S3) instead of returning bytes inline.
type TmpStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (uri string, err error)
}

// ConflictError signals `saveIfRevision` lost a compare-and-swap race.
type ConflictError struct{ Expected, Actual string }

func (e *ConflictError) Error() string {
	return "persistence conflict: expected revision " + e.Expected + ", actual " + e.Actual
}

// PersistedRecord is the document Persistence stores per scope (spec §3).
type PersistedRecord struct {
	TenantID  string
	ProjectID string
	Revision  string
	State     []byte
	CreatedAt int64
	UpdatedAt int64
}

// Persistence stores a single document per (tenantId, key) scope with
// optimistic-concurrency semantics when the backend supports it, or blind
// writes (with a startup-logged capability downgrade) when it doesn't.
type Persistence interface {
	Load(ctx context.Context, tenantID, key string) (*PersistedRecord, error)
	// SaveIfRevision writes record only if the currently stored revision
	// equals expectedRevision (empty expectedRevision means "must not
	// exist yet"). Backends without native CAS perform a blind write and
	// never return ConflictError.
	SaveIfRevision(ctx context.Context, tenantID, key string, record *PersistedRecord, expectedRevision string) error
	// SupportsCAS reports whether this backend enforces the expected
	// revision check (true) or always blind-writes (false).
	SupportsCAS() bool
}
