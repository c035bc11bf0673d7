package evals

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evals", "evals.json")
	writeFile(t, path, `{
  "skill_name": "ink",
  "evals": [
    {
      "id": 1,
      "prompt": "Build a spinner component",
      "expected_output": "A working Ink component",
      "files": ["evals/files/app.tsx"],
      "assertions": ["Uses ink-spinner", "Exports a component"]
    },
    {
      "id": "layout",
      "prompt": "Lay out two columns",
      "expectations": ["Uses Box with flexDirection"]
    }
  ]
}`)

	suite, doc, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "ink", suite.SkillName)
	assert.Equal(t, FormatJSON, suite.Format)
	assert.Equal(t, path, suite.Path)
	require.Len(t, suite.Evals, 2)
	assert.Equal(t, "1", suite.Evals[0].ID)
	assert.Equal(t, []string{"evals/files/app.tsx"}, suite.Evals[0].Files)
	assert.Equal(t, []string{"Uses ink-spinner", "Exports a component"}, suite.Evals[0].Checks())
	assert.Equal(t, "layout", suite.Evals[1].ID)
	assert.Equal(t, []string{"Uses Box with flexDirection"}, suite.Evals[1].Checks())
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evals.yaml")
	writeFile(t, path, `skill_name: docker
evals:
  - id: 7
    prompt: Write a multi-stage Dockerfile for a Go service
    assertions:
      - Uses a distroless or scratch final stage
`)

	suite, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, suite.Format)
	require.Len(t, suite.Evals, 1)
	assert.Equal(t, "7", suite.Evals[0].ID)
}

func TestParseTopLevelList(t *testing.T) {
	suite, doc, err := Parse("evals.json", []byte(`[{"prompt": "p", "assertions": ["a"]}]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, suite.Evals, 1)
	assert.Contains(t, doc, "evals")
}

func TestParallelForm(t *testing.T) {
	suite, _, err := Parse("evals.yaml", []byte(`prompts:
  - Scrape a product page
  - Respect robots.txt
assertions:
  - [Extracts the title, Extracts the price]
  - [Checks robots.txt first]
`), FormatYAML)
	require.NoError(t, err)

	cases := suite.Cases()
	require.Len(t, cases, 2)
	assert.Equal(t, "1", cases[0].ID)
	assert.Equal(t, "Scrape a product page", cases[0].Prompt)
	assert.Equal(t, []string{"Checks robots.txt first"}, cases[1].Assertions)
	assert.Empty(t, Validate(suite, t.TempDir(), ""))
}

func TestSyntaxErrors(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		_, _, err := Parse("evals.json", []byte("{\n  \"evals\": [\n    {\"prompt\": \"x\",}\n  ]\n}\n"), FormatJSON)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 3, se.Line)
		assert.Positive(t, se.Column)
		assert.Contains(t, se.Error(), "evals.json:3:")
	})

	t.Run("json truncated", func(t *testing.T) {
		_, _, err := Parse("evals.json", []byte(`{"evals": [`), FormatJSON)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 1, se.Line)
	})

	t.Run("json trailing content", func(t *testing.T) {
		_, _, err := Parse("evals.json", []byte(`{"evals": []} {}`), FormatJSON)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Msg, "unexpected content")
	})

	t.Run("yaml", func(t *testing.T) {
		_, _, err := Parse("evals.yaml", []byte("evals:\n\t- prompt: x\n"), FormatYAML)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 2, se.Line)
	})

	t.Run("scalar document", func(t *testing.T) {
		_, _, err := Parse("evals.yaml", []byte("just text\n"), FormatYAML)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
	})

	t.Run("empty yaml", func(t *testing.T) {
		_, _, err := Parse("evals.yaml", []byte(""), FormatYAML)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Msg, "empty")
	})
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("a/evals.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatOf("evals.toml")
	assert.Error(t, err)
}

func TestPosition(t *testing.T) {
	line, col := position([]byte("ab\ncd\nef"), 4)
	assert.Equal(t, 2, line)
	assert.Equal(t, 2, col)
}
