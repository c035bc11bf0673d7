package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeSkill(t *testing.T, dir, name, description string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, skills.SkillFileName),
		"---\nname: "+name+"\ndescription: "+description+"\n---\n\n# "+name+"\n\nSee `references/guide.md`.\n")
	writeFile(t, filepath.Join(dir, "references", "guide.md"), "# Guide\n")
}

func newTestInstaller(t *testing.T, opts ...Option) (*Installer, string) {
	t.Helper()
	base := t.TempDir()
	i, err := NewInstaller(append([]Option{WithBaseDir(base)}, opts...)...)
	require.NoError(t, err)
	i.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return i, base
}

func TestParseSource(t *testing.T) {
	local := t.TempDir()

	src, err := ParseSource(local)
	require.NoError(t, err)
	assert.Equal(t, local, src.Local)

	src, err = ParseSource("jingkaihe/skills@v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, Source{Repo: "jingkaihe/skills", Ref: "v1.2.0"}, src)
	assert.Equal(t, "jingkaihe/skills@v1.2.0", src.String())

	for _, bad := range []string{"", "noslash", "/owner", "owner/", "a/b/c", "./missing-dir"} {
		_, err := ParseSource(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewInstallerDirs(t *testing.T) {
	i, err := NewInstaller()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ConfigDir, "skills"), i.SkillsDir())
	assert.Equal(t, filepath.Join(ConfigDir, ManifestFileName), i.ManifestPath())

	i, err = NewInstaller(WithGlobal(true))
	require.NoError(t, err)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ConfigDir, "skills"), i.SkillsDir())
}

func TestInstallLocal(t *testing.T) {
	src := t.TempDir()
	writeSkill(t, filepath.Join(src, "skills", "ink"), "ink", "Build terminal UIs")
	writeSkill(t, filepath.Join(src, "skills", "docker"), "docker", "Write Dockerfiles")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main\n")

	installer, base := newTestInstaller(t)
	result, err := installer.Install(context.Background(), Source{Local: src})
	require.NoError(t, err)

	assert.Equal(t, []string{"docker", "ink"}, result.Skills)
	assert.Equal(t, 0, result.Report.Errors)
	assert.FileExists(t, filepath.Join(base, "skills", "ink", skills.SkillFileName))
	assert.FileExists(t, filepath.Join(base, "skills", "ink", "references", "guide.md"))

	m, err := ReadManifest(installer.ManifestPath())
	require.NoError(t, err)
	require.Contains(t, m.Skills, "ink")
	assert.Equal(t, "skills/ink", m.Skills["ink"].Path)
	assert.True(t, filepath.IsAbs(m.Skills["ink"].Source))
	assert.Equal(t, 2026, m.Skills["ink"].InstalledAt.Year())

	_, err = installer.Install(context.Background(), Source{Local: src})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInstallForce(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeSkill(t, filepath.Join(src, "ink"), "ink", "Build terminal UIs")

	installer, base := newTestInstaller(t)
	_, err := installer.Install(ctx, Source{Local: src})
	require.NoError(t, err)

	forced, err := NewInstaller(WithBaseDir(base), WithForce(true))
	require.NoError(t, err)

	t.Run("replaces existing copy", func(t *testing.T) {
		writeSkill(t, filepath.Join(src, "ink"), "ink", "Build richer terminal UIs")
		_, err := forced.Install(ctx, Source{Local: src})
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(base, "skills", "ink", skills.SkillFileName))
		require.NoError(t, err)
		assert.Contains(t, string(content), "Build richer terminal UIs")

		entries, err := os.ReadDir(filepath.Join(base, "skills"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "ink", entries[0].Name())
	})

	t.Run("source already at destination", func(t *testing.T) {
		installed := filepath.Join(base, "skills", "ink")
		_, err := forced.Install(ctx, Source{Local: installed})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already installed at")
		assert.FileExists(t, filepath.Join(installed, skills.SkillFileName))
		assert.FileExists(t, filepath.Join(installed, "references", "guide.md"))
	})
}

func TestInstallRejectsDuplicateNames(t *testing.T) {
	src := t.TempDir()
	writeSkill(t, filepath.Join(src, "team-a", "ink"), "ink", "Ink from team A")
	writeSkill(t, filepath.Join(src, "team-b", "ink"), "ink", "Ink from team B")

	installer, base := newTestInstaller(t, WithForce(true))
	_, err := installer.Install(context.Background(), Source{Local: src})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `both install as "ink"`)
	assert.Contains(t, err.Error(), filepath.Join(src, "team-a", "ink"))
	assert.Contains(t, err.Error(), filepath.Join(src, "team-b", "ink"))
	assert.NoDirExists(t, filepath.Join(base, "skills", "ink"))

	_, err = os.Stat(installer.ManifestPath())
	assert.True(t, os.IsNotExist(err))
}

func TestInstallSubdir(t *testing.T) {
	src := t.TempDir()
	writeSkill(t, filepath.Join(src, "a", "ink"), "ink", "Ink")
	writeSkill(t, filepath.Join(src, "b", "docker"), "docker", "Docker")

	installer, _ := newTestInstaller(t)
	result, err := installer.Install(context.Background(), Source{Local: src, Dir: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docker"}, result.Skills)

	_, err = installer.Install(context.Background(), Source{Local: src, Dir: "../x"})
	assert.Error(t, err)
}

func TestInstallRefusesLintErrors(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "broken-refs", skills.SkillFileName),
		"---\nname: broken-refs\ndescription: Points nowhere\n---\n\nRead [this](references/missing.md).\n")

	installer, base := newTestInstaller(t)
	_, err := installer.Install(context.Background(), Source{Local: src})
	var refused *RefusedError
	require.ErrorAs(t, err, &refused)
	assert.Equal(t, 1, refused.Report.Errors)
	assert.NoDirExists(t, filepath.Join(base, "skills", "broken-refs"))

	forced, _ := newTestInstaller(t, WithForce(true))
	result, err := forced.Install(context.Background(), Source{Local: src})
	require.NoError(t, err)
	assert.Equal(t, []string{"broken-refs"}, result.Skills)
}

func TestInstallFromRepo(t *testing.T) {
	clone := t.TempDir()
	writeSkill(t, filepath.Join(clone, "skills", "ink"), "ink", "Ink")

	installer, _ := newTestInstaller(t)
	installer.clone = func(_ context.Context, repo, ref string) (string, error) {
		assert.Equal(t, "acme/skills", repo)
		assert.Equal(t, "main", ref)
		dir := t.TempDir()
		require.NoError(t, copyDir(clone, dir))
		return dir, nil
	}

	result, err := installer.Install(context.Background(), Source{Repo: "acme/skills", Ref: "main"})
	require.NoError(t, err)
	assert.Equal(t, "acme/skills@main", result.Source)

	m, err := ReadManifest(installer.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, Entry{
		Source:      "github.com/acme/skills",
		Ref:         "main",
		Path:        "skills/ink",
		InstalledAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}, m.Skills["ink"])
}

func TestInstallEmptySource(t *testing.T) {
	installer, _ := newTestInstaller(t)
	_, err := installer.Install(context.Background(), Source{Local: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no skills found")
}

func TestRemover(t *testing.T) {
	src := t.TempDir()
	writeSkill(t, filepath.Join(src, "ink"), "ink", "Ink")
	writeSkill(t, filepath.Join(src, "docker"), "docker", "Docker")

	installer, base := newTestInstaller(t)
	_, err := installer.Install(context.Background(), Source{Local: src})
	require.NoError(t, err)

	remover := NewRemoverAt(base)
	installed, err := remover.List()
	require.NoError(t, err)
	require.Len(t, installed, 2)
	assert.Equal(t, "docker", installed[0].Name)
	require.NotNil(t, installed[0].Entry)

	require.NoError(t, remover.Remove("ink"))
	assert.NoDirExists(t, filepath.Join(base, "skills", "ink"))

	m, err := ReadManifest(installer.ManifestPath())
	require.NoError(t, err)
	assert.NotContains(t, m.Skills, "ink")
	assert.Contains(t, m.Skills, "docker")

	err = remover.Remove("ink")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.Error(t, remover.Remove("../etc"))
}

func TestManifestMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	m, err := ReadManifest(filepath.Join(dir, ManifestFileName))
	require.NoError(t, err)
	assert.Empty(t, m.Skills)

	path := filepath.Join(dir, "nested", ManifestFileName)
	require.NoError(t, UpdateManifest(path, func(m *Manifest) error {
		m.Skills["ink"] = Entry{Source: "local"}
		return nil
	}))
	m, err = ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, "local", m.Skills["ink"].Source)
}

func TestRetryableClone(t *testing.T) {
	transient := &cloneError{err: errors.New("exit status 128"), output: "fatal: unable to access: Could not resolve host: github.com"}
	missing := &cloneError{err: errors.New("exit status 1"), output: "GraphQL: Could not resolve to a Repository with the name 'acme/nope'."}

	assert.True(t, retryableClone(transient))
	assert.False(t, retryableClone(missing))
	assert.False(t, retryableClone(errors.New("other")))
	assert.Contains(t, transient.Error(), "Could not resolve host")
}
