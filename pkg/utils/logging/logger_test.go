package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := InitLogger("test", Options{Dir: dir, Console: &console})
	require.NoError(t, err)

	logger.Debug("file only")
	logger.Info("both")
	require.NoError(t, logger.Sync())

	assert.Contains(t, console.String(), "both")
	assert.NotContains(t, console.String(), "file only")

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "file only", entry["msg"])
	assert.Equal(t, "test", entry["env"])
	assert.Contains(t, entry, "timestamp")
}

func TestInitLogger_Verbose(t *testing.T) {
	var console bytes.Buffer

	logger, err := InitLogger("dev", Options{Dir: t.TempDir(), Console: &console, Verbose: true})
	require.NoError(t, err)

	logger.Debug("details")
	require.NoError(t, logger.Sync())
	assert.Contains(t, console.String(), "details")
}
