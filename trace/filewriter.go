package trace

import (
	"bufio"
	"encoding/json"
	"os"
)

// FileWriter is the default Writer: it appends the ring's current NDJSON
// lines to a local file, grounded on the teacher's AsyncExporter batch
// pattern (tracing/async.go) but simplified to a single local sink since
// this module ships no object-store adapter of its own.
type FileWriter struct {
	path string
}

// NewFileWriter returns a writer for the NDJSON trace file at path; each
// Flush opens the file, creating it if absent.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Flush appends every entry as one NDJSON line, truncating nothing: the
// LogStore's ring already bounds what it hands the scheduler, and the file
// is an append-only audit trail of what was ever in the ring.
func (w *FileWriter) Flush(entries []Entry) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return bw.Flush()
}
