package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireArtifacts(t *testing.T) {
	t.Parallel()

	assert.Error(t, RequireArtifacts(""))
	assert.Error(t, RequireArtifacts(filepath.Join(t.TempDir(), "absent")))

	dir := t.TempDir()
	assert.ErrorContains(t, RequireArtifacts(dir), "is empty")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))
	assert.NoError(t, RequireArtifacts(dir))
}
