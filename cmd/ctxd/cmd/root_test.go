package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersAllSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "index", "search", "status", "doctor", "references", "cycles", "version"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, "subcommand %q should be registered", name)
		assert.Equal(t, name, found.Name())
	}
}

func TestNewRootCmd_UsesCtxdAsProgramName(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "ctxd", root.Use)
}

func TestFileExists_TrueForExistingFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "present.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0o644))
	assert.True(t, fileExists(tmpFile))
}

func TestFileExists_FalseForMissingFile(t *testing.T) {
	assert.False(t, fileExists("/nonexistent/path/does-not-exist"))
}
