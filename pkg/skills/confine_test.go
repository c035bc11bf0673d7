package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInside(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "references", "a.md"), "a")

	got, err := ResolveInside(dir, "references/a.md")
	require.NoError(t, err)
	assert.Equal(t, "a.md", filepath.Base(got))

	got, err = ResolveInside(dir, "references/missing.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "references", "missing.md"), got)

	for _, rel := range []string{"", "../secret", "references/../../x", "/etc/passwd"} {
		_, err := ResolveInside(dir, rel)
		assert.Error(t, err, rel)
	}

	_, err = ResolveInside(dir, "../secret")
	assert.ErrorIs(t, err, ErrOutsideSkill)
}

func TestResolveInsideSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.md"), "top secret")

	dir := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "references")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.md"), filepath.Join(dir, "leak.md")))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(dir, "docs"), filepath.Join(dir, "guides")))

	for _, rel := range []string{"references/secret.md", "references/missing.md", "references/deep/missing.md", "leak.md"} {
		_, err := ResolveInside(dir, rel)
		assert.ErrorIs(t, err, ErrOutsideSkill, rel)
	}

	_, err := ResolveInside(dir, "guides/new.md")
	assert.NoError(t, err)
}
