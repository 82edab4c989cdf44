package memory

import (
	"context"
	"encoding/json"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// Exporter is the internal-codec Exporter adapter: it always knows how to
// write `.geo.json`/`.animation.json` (the internal format) and a minimal
// `.gltf` fallback; any `native_codec` request that isn't in the allow-list
// fails with NotImplementedError so the Export service's best_effort
// policy can fall back to this writer (spec §4.7).
type Exporter struct {
	allowedCodecs map[string]bool
}

// NewExporter builds an Exporter with the given native codec allow-list.
func NewExporter(allowedCodecs ...string) *Exporter {
	m := make(map[string]bool, len(allowedCodecs))
	for _, c := range allowedCodecs {
		m[c] = true
	}
	return &Exporter{allowedCodecs: m}
}

func (e *Exporter) AllowedCodecs(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(e.allowedCodecs))
	for c := range e.allowedCodecs {
		out = append(out, c)
	}
	return out, nil
}

func (e *Exporter) Export(ctx context.Context, s *project.Snapshot, format, codecID string) (ports.ExportResult, error) {
	switch format {
	case "native_codec":
		if !e.allowedCodecs[codecID] {
			return ports.ExportResult{}, &ports.NotImplementedError{Msg: "native codec not implemented: " + codecID}
		}
		// A real native codec adapter would run here; none is wired in
		// this module (out of scope per §1), so an allow-listed codec
		// still degrades to not_implemented until one is configured.
		return ports.ExportResult{}, &ports.NotImplementedError{Msg: "native codec adapter not configured: " + codecID}
	case "gltf":
		geo, err := e.writeGeo(s)
		if err != nil {
			return ports.ExportResult{}, err
		}
		anim, err := e.writeAnimation(s)
		if err != nil {
			return ports.ExportResult{}, err
		}
		gltf, err := e.writeGltf(s)
		if err != nil {
			return ports.ExportResult{}, err
		}
		return ports.ExportResult{Artifacts: []ports.Artifact{geo, anim, gltf}}, nil
	case "internal", "":
		geo, err := e.writeGeo(s)
		if err != nil {
			return ports.ExportResult{}, err
		}
		anim, err := e.writeAnimation(s)
		if err != nil {
			return ports.ExportResult{}, err
		}
		return ports.ExportResult{Artifacts: []ports.Artifact{geo, anim}}, nil
	default:
		return ports.ExportResult{}, &ports.UnsupportedFormatError{Msg: "unsupported format: " + format}
	}
}

func (e *Exporter) writeGeo(s *project.Snapshot) (ports.Artifact, error) {
	data, err := json.Marshal(map[string]interface{}{
		"formatVersion": "1.0",
		"bones":         s.Bones,
		"cubes":         s.Cubes,
		"meshes":        s.Meshes,
		"textures":      s.Textures,
	})
	if err != nil {
		return ports.Artifact{}, err
	}
	return ports.Artifact{Suffix: ".geo.json", Data: data, ContentType: "application/json", Bytes: int64(len(data))}, nil
}

func (e *Exporter) writeAnimation(s *project.Snapshot) (ports.Artifact, error) {
	data, err := json.Marshal(map[string]interface{}{
		"formatVersion": "1.0",
		"animations":    s.Animations,
	})
	if err != nil {
		return ports.Artifact{}, err
	}
	return ports.Artifact{Suffix: ".animation.json", Data: data, ContentType: "application/json", Bytes: int64(len(data))}, nil
}

func (e *Exporter) writeGltf(s *project.Snapshot) (ports.Artifact, error) {
	data, err := json.Marshal(map[string]interface{}{
		"asset":  map[string]string{"version": "2.0"},
		"scenes": []interface{}{},
		"nodes":  len(s.Bones) + len(s.Cubes),
	})
	if err != nil {
		return ports.Artifact{}, err
	}
	return ports.Artifact{Suffix: ".gltf", Data: data, ContentType: "model/gltf+json", Bytes: int64(len(data))}, nil
}

var _ ports.Exporter = (*Exporter)(nil)
