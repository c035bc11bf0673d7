package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skillkitBinary returns the installed skillkit binary, skipping the test
// when it has not been built.
func skillkitBinary(t *testing.T) string {
	t.Helper()
	bin, err := exec.LookPath("skillkit")
	if err != nil {
		t.Skip("skillkit binary not found in PATH")
	}
	return bin
}

func runSkillkit(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(skillkitBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+dir, "SKILLKIT_BASE_PATH="+filepath.Join(dir, ".state"), "NO_COLOR=1")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestAcceptanceScaffoldAndLint(t *testing.T) {
	dir := t.TempDir()

	out, err := runSkillkit(t, dir, "new", "pdf-tools", "--dir", "skills",
		"-d", "Converts and merges PDF files. Use when a task involves PDF documents.",
		"--with-reference", "--with-evals")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(dir, "skills", "pdf-tools", "SKILL.md"))

	out, err = runSkillkit(t, dir, "lint", "skills", "--history")
	require.NoError(t, err, out)

	out, err = runSkillkit(t, dir, "evals", "validate", "skills")
	require.NoError(t, err, out)

	out, err = runSkillkit(t, dir, "history", "list", "--format", "json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"run_id"`)
}

func TestAcceptanceLintFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "skills", "broken", "SKILL.md"), "---\nname: broken\ndescription: Uses a missing file.\n---\n\nSee [guide](references/guide.md).\n")

	out, err := runSkillkit(t, dir, "lint", "skills", "--format", "json")
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, out, "reference-exists")
}

func TestAcceptanceVersionAndSchema(t *testing.T) {
	dir := t.TempDir()

	out, err := runSkillkit(t, dir, "version")
	require.NoError(t, err, out)
	assert.True(t, strings.Contains(out, `"version"`))

	out, err = runSkillkit(t, dir, "evals", "schema")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"prompt"`)
}
