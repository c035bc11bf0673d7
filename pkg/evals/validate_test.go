package evals

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problemPaths(problems []Problem) []string {
	paths := make([]string, 0, len(problems))
	for _, p := range problems {
		paths = append(paths, p.Path)
	}
	return paths
}

func TestValidate(t *testing.T) {
	skillDir := t.TempDir()
	writeFile(t, filepath.Join(skillDir, "evals", "files", "page.html"), "<html></html>")

	tests := []struct {
		name     string
		suite    *Suite
		expected []string
	}{
		{
			name: "valid",
			suite: &Suite{SkillName: "web-scraper", Evals: []Case{
				{ID: "1", Prompt: "Scrape it", Files: []string{"evals/files/page.html"}, Assertions: []string{"Returns JSON"}},
			}},
		},
		{
			name:     "no cases",
			suite:    &Suite{},
			expected: []string{"evals"},
		},
		{
			name: "skill name mismatch",
			suite: &Suite{SkillName: "other", Evals: []Case{
				{Prompt: "p", Assertions: []string{"a"}},
			}},
			expected: []string{"skill_name"},
		},
		{
			name: "empty prompt and no assertions",
			suite: &Suite{Evals: []Case{
				{Prompt: "  "},
			}},
			expected: []string{"evals[0].prompt", "evals[0].assertions"},
		},
		{
			name: "empty assertion",
			suite: &Suite{Evals: []Case{
				{Prompt: "p", Assertions: []string{"a", ""}},
			}},
			expected: []string{"evals[0].assertions[1]"},
		},
		{
			name: "duplicate ids",
			suite: &Suite{Evals: []Case{
				{ID: "a", Prompt: "p", Assertions: []string{"x"}},
				{ID: "a", Prompt: "q", Assertions: []string{"y"}},
			}},
			expected: []string{"evals[1].id"},
		},
		{
			name: "missing and escaping files",
			suite: &Suite{Evals: []Case{
				{Prompt: "p", Assertions: []string{"x"}, Files: []string{"evals/files/missing.csv", "../secret", "/etc/passwd"}},
			}},
			expected: []string{"evals[0].files[0]", "evals[0].files[1]", "evals[0].files[2]"},
		},
		{
			name:     "parallel count mismatch",
			suite:    &Suite{Prompts: []string{"a", "b"}, Assertions: [][]string{{"x"}}},
			expected: []string{""},
		},
		{
			name:     "parallel empty list",
			suite:    &Suite{Prompts: []string{"a"}, Assertions: [][]string{{}}},
			expected: []string{"assertions[0]"},
		},
		{
			name: "mixed forms",
			suite: &Suite{
				Evals:   []Case{{Prompt: "p", Assertions: []string{"x"}}},
				Prompts: []string{"q"},
			},
			expected: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := Validate(tt.suite, skillDir, "web-scraper")
			if len(tt.expected) == 0 {
				assert.Empty(t, problems)
				return
			}
			assert.Equal(t, tt.expected, problemPaths(problems))
		})
	}
}

func TestValidateFileRelativeToEvalFile(t *testing.T) {
	skillDir := t.TempDir()
	writeFile(t, filepath.Join(skillDir, "evals", "input.txt"), "data")

	suite := &Suite{
		Path:  filepath.Join(skillDir, "evals", "evals.json"),
		Evals: []Case{{Prompt: "p", Assertions: []string{"a"}, Files: []string{"input.txt"}}},
	}
	assert.Empty(t, Validate(suite, skillDir, ""))
}

func TestProblemString(t *testing.T) {
	assert.Equal(t, "evals[0].prompt: prompt is empty", Problem{Path: "evals[0].prompt", Message: "prompt is empty"}.String())
	assert.Equal(t, "no eval cases defined", Problem{Message: "no eval cases defined"}.String())
}

func TestSchema(t *testing.T) {
	schema := Schema()
	assert.Equal(t, SchemaID, string(schema.ID))

	encoded, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"expected_output"`)
	assert.Contains(t, string(encoded), `"prompt"`)
}

func TestValidateSchema(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		_, doc, err := Parse("evals.json", []byte(`{"evals": [{"id": 1, "prompt": "p", "assertions": ["a"]}]}`), FormatJSON)
		require.NoError(t, err)

		problems, err := ValidateSchema(doc)
		require.NoError(t, err)
		assert.Empty(t, problems)
	})

	t.Run("wrong types", func(t *testing.T) {
		_, doc, err := Parse("evals.yaml", []byte("evals:\n  - prompt: 5\n    assertions: [a]\n"), FormatYAML)
		require.NoError(t, err)

		problems, err := ValidateSchema(doc)
		require.NoError(t, err)
		require.NotEmpty(t, problems)
		assert.Equal(t, "evals[0].prompt", problems[0].Path)
	})

	t.Run("missing prompt", func(t *testing.T) {
		_, doc, err := Parse("evals.json", []byte(`{"evals": [{"assertions": ["a"]}]}`), FormatJSON)
		require.NoError(t, err)

		problems, err := ValidateSchema(doc)
		require.NoError(t, err)
		require.NotEmpty(t, problems)
		assert.Equal(t, "evals[0]", problems[0].Path)
		assert.Contains(t, problems[0].Message, "prompt")
	})
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "", pointerToPath(""))
	assert.Equal(t, "evals[2].prompt", pointerToPath("/evals/2/prompt"))
	assert.Equal(t, "assertions[0][1]", pointerToPath("/assertions/0/1"))
	assert.Equal(t, "a/b", pointerToPath("/a~1b"))
}
