package skillfmt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		changed  bool
	}{
		{
			name:     "reorders keys and fixes spacing",
			input:    "---\ndescription: Write Dockerfiles\nname: docker\n---\n# Docker   \n\n\n",
			expected: "---\nname: docker\ndescription: Write Dockerfiles\n---\n\n# Docker\n",
			changed:  true,
		},
		{
			name:     "already formatted",
			input:    "---\nname: docker\ndescription: Write Dockerfiles\nlicense: MIT\n---\n\n# Docker\n",
			expected: "---\nname: docker\ndescription: Write Dockerfiles\nlicense: MIT\n---\n\n# Docker\n",
		},
		{
			name:     "unknown keys keep their order after known keys",
			input:    "---\nzeta: 1\nname: ink\nalpha: 2\ndescription: Ink\n---\n\nBody\n",
			expected: "---\nname: ink\ndescription: Ink\nzeta: 1\nalpha: 2\n---\n\nBody\n",
			changed:  true,
		},
		{
			name:     "trims quoted values",
			input:    "---\nname: ink\ndescription: \"  Ink UIs  \"\n---\n\nBody\n",
			expected: "---\nname: ink\ndescription: \"Ink UIs\"\n---\n\nBody\n",
			changed:  true,
		},
		{
			name:     "no body",
			input:    "---\nname: ink\ndescription: Ink\n---\n\n\n",
			expected: "---\nname: ink\ndescription: Ink\n---\n",
			changed:  true,
		},
		{
			name:     "no frontmatter",
			input:    "# Notes\n\nBody  ",
			expected: "# Notes\n\nBody\n",
			changed:  true,
		},
		{
			name:     "windows line endings",
			input:    "---\r\nname: ink\r\ndescription: Ink\r\n---\r\n\r\nBody\r\n",
			expected: "---\nname: ink\ndescription: Ink\n---\n\nBody\n",
			changed:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed, err := Format([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
			assert.Equal(t, tt.changed, changed)

			again, changed, err := Format(out)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, string(out), string(again))
		})
	}
}

func TestFormatKeepsComments(t *testing.T) {
	input := "---\ndescription: Ink\n# owned by the UI team\nmetadata:\n  owner: ui\nname: ink\n---\n\nBody\n"

	out, changed, err := Format([]byte(input))
	require.NoError(t, err)
	assert.True(t, changed)

	s := string(out)
	assert.Contains(t, s, "# owned by the UI team\nmetadata:")
	assert.Less(t, strings.Index(s, "name: ink"), strings.Index(s, "description: Ink"))
	assert.Less(t, strings.Index(s, "description: Ink"), strings.Index(s, "metadata:"))
}

func TestFormatErrors(t *testing.T) {
	_, _, err := Format([]byte("---\nname: ink\n"))
	assert.Error(t, err)

	_, _, err = Format([]byte("---\n- a\n- b\n---\n"))
	assert.Error(t, err)

	_, _, err = Format([]byte("---\nname: [x\n---\n"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	assert.Empty(t, Diff("SKILL.md", []byte("a\n"), []byte("a\n")))

	diff := Diff("ink/SKILL.md", []byte("description: x\nname: ink\n"), []byte("name: ink\ndescription: x\n"))
	assert.Contains(t, diff, "--- a/ink/SKILL.md")
	assert.Contains(t, diff, "+++ b/ink/SKILL.md")
	assert.Contains(t, diff, "-description: x")
	assert.Contains(t, diff, "+description: x")
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SKILL.md")
	original := "---\ndescription: Ink\nname: ink\n---\nBody\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	res, err := File(path, false)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.NotEmpty(t, res.Diff)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(content), "check mode must not write")

	res, err = File(path, true)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "---\nname: ink\ndescription: Ink\n---\n\nBody\n", string(content))

	res, err = File(path, true)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Diff)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "SKILL.md"), false)
	assert.Error(t, err)
}
