package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceLifecycle(t *testing.T) {
	parent := t.TempDir()
	ws, err := New(parent, uuid.New(), nil)
	require.NoError(t, err)

	info, err := os.Stat(ws.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, parent, filepath.Dir(ws.Dir()))

	pages, err := ws.Subdir("pages")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pages, "page-001.png"), []byte("x"), 0o600))

	require.NoError(t, ws.Close())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err), "workspace must be gone after Close")

	// second close is a no-op
	assert.NoError(t, ws.Close())
}

func TestWorkspaceNamesAreUnique(t *testing.T) {
	parent := t.TempDir()
	id := uuid.New()

	a, err := New(parent, id, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := New(parent, id, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.Contains(t, filepath.Base(a.Dir()), id.String())
}

func TestWorkspacePath(t *testing.T) {
	ws, err := New(t.TempDir(), uuid.New(), nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, filepath.Join(ws.Dir(), "normalized", "page-001.png"), ws.Path("normalized", "page-001.png"))
}
