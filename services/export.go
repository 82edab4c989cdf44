package services

import (
	"context"
	"fmt"

	"github.com/cubeforge/gateway/ports"
)

// ExportPolicy controls whether a not_implemented/unsupported_format
// failure from the native path is promoted to a warning via the internal
// writer (spec §4.7).
type ExportPolicy string

const (
	ExportStrict     ExportPolicy = "strict"
	ExportBestEffort ExportPolicy = "best_effort"
)

// Export is the use-case service behind `export_model`.
type Export struct {
	Snap     ports.Snapshot
	Exporter ports.Exporter
	TmpStore ports.TmpStore
}

func NewExport(snap ports.Snapshot, exporter ports.Exporter, tmp ports.TmpStore) *Export {
	return &Export{Snap: snap, Exporter: exporter, TmpStore: tmp}
}

// Run resolves {format, codecId} to a target and, for native_codec
// requests that fail as not_implemented/unsupported_format under
// best_effort, retries through the gltf-style internal writer and
// surfaces the original error as a warning.
func (e *Export) Run(ctx context.Context, format, codecID string, policy ExportPolicy) (*Result, error) {
	snap, err := e.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}

	result, err := e.Exporter.Export(ctx, snap, format, codecID)
	warning := ""
	if err != nil {
		fallbackEligible := isFallbackEligible(err)
		if policy != ExportBestEffort || !fallbackEligible || format == "internal" || format == "" {
			return nil, mapExportErr(err)
		}
		warning = err.Error()
		result, err = e.Exporter.Export(ctx, snap, "gltf", "")
		if err != nil {
			return nil, mapExportErr(err)
		}
	}
	if warning == "" {
		warning = result.Warning
	}

	artifacts := make([]map[string]interface{}, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		entry := map[string]interface{}{"suffix": a.Suffix, "contentType": a.ContentType, "bytes": a.Bytes}
		if a.URIRef != "" {
			entry["uri"] = a.URIRef
		}
		artifacts = append(artifacts, entry)
	}
	data := map[string]interface{}{"artifacts": artifacts}
	if warning != "" {
		data["warning"] = warning
	}
	return &Result{Data: data, Snapshot: snap}, nil
}

func isFallbackEligible(err error) bool {
	switch err.(type) {
	case *ports.NotImplementedError, *ports.UnsupportedFormatError:
		return true
	default:
		return false
	}
}

func mapExportErr(err error) error {
	switch err.(type) {
	case *ports.NotImplementedError:
		return invalidState("not_implemented", err.Error(), nil)
	case *ports.UnsupportedFormatError:
		return invalidState("unsupported_format", err.Error(), nil)
	default:
		return invalidState("io_error", fmt.Sprintf("export failed: %v", err), nil)
	}
}
