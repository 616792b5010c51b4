package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "sqljob/pkg/discovery"
	"sqljob/pkg/models"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("select 1;\n"), 0o644))
}

func TestDiscover_FiltersBySuffix(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.sql"))
	touch(t, filepath.Join(dir, "b.sql"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "c.sql.bak"))

	got, err := Discover(dir, "*.sql")
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.TestFile{
		models.TestFile(filepath.Join(dir, "a.sql")),
		models.TestFile(filepath.Join(dir, "b.sql")),
	}, got)
}

func TestDiscover_KeepsDirectoryAsGiven(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "job"), 0o755))
	touch(t, filepath.Join(root, "job", "b.sql"))
	t.Chdir(root)

	got, err := Discover("./job", "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []models.TestFile{"./job/b.sql"}, got)

	got, err = Discover("./job/", "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []models.TestFile{"./job/b.sql"}, got)
}

func TestDiscover_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.sql"), 0o755))
	touch(t, filepath.Join(dir, "nested.sql", "inner.sql"))

	got, err := Discover(dir, "*.sql")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	got, err := Discover(t.TempDir(), "*.sql")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	got, err := Discover(filepath.Join(t.TempDir(), "missing"), "*.sql")
	require.ErrorIs(t, err, ErrDirectory)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDiscover_BadPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), "[")
	require.ErrorIs(t, err, filepath.ErrBadPattern)
	assert.NotErrorIs(t, err, ErrDirectory)
}
