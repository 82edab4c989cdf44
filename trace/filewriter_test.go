package trace

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterFlushAppendsNDJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	w := NewFileWriter(path)

	require.NoError(t, w.Flush([]Entry{{Kind: KindHeader, PluginVersion: "v1"}}))
	require.NoError(t, w.Flush([]Entry{{Kind: KindStep, Op: "add_cube"}}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2, "each Flush call appends rather than truncates")
	assert.Contains(t, lines[0], `"header"`)
	assert.Contains(t, lines[1], "add_cube")
}
