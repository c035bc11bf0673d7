package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffold(t *testing.T) {
	parent := t.TempDir()

	dir, err := Scaffold(parent, ScaffoldOptions{
		Name:          "web-scraper",
		Description:   "Scrape sites: fast and politely",
		WithReference: true,
		WithEvals:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "web-scraper"), dir)

	skills, err := Scan(dir, ScanOptions{})
	require.NoError(t, err)
	require.Len(t, skills, 1)

	skill := skills[0]
	require.NoError(t, skill.Validate())
	assert.Equal(t, "web-scraper", skill.Name)
	assert.Equal(t, "Scrape sites: fast and politely", skill.Description)
	assert.Contains(t, skill.Content, "# Web Scraper")
	assert.Equal(t, []string{"references/web-scraper-playbook.md"}, skill.References)
	assert.Equal(t, []string{"evals/evals.json"}, skill.EvalFiles)

	require.Len(t, skill.Links, 1)
	assert.Equal(t, "references/web-scraper-playbook.md", skill.Links[0].Path)

	raw, err := os.ReadFile(filepath.Join(dir, "evals", "evals.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "web-scraper", doc["skill_name"])
}

func TestScaffoldMinimal(t *testing.T) {
	dir, err := Scaffold(t.TempDir(), ScaffoldOptions{Name: "ink", Description: "Terminal UIs"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ReferencesDir))
	assert.True(t, os.IsNotExist(err))

	content, err := os.ReadFile(filepath.Join(dir, SkillFileName))
	require.NoError(t, err)
	assert.Contains(t, string(content), "description: \"Terminal UIs\"\n")
	assert.NotContains(t, string(content), "## References")
}

func TestScaffoldErrors(t *testing.T) {
	parent := t.TempDir()

	_, err := Scaffold(parent, ScaffoldOptions{Name: "Bad_Name", Description: "d"})
	assert.Error(t, err)

	_, err = Scaffold(parent, ScaffoldOptions{Name: "ink", Description: "  "})
	assert.ErrorIs(t, err, ErrMissingDescription)

	_, err = Scaffold(parent, ScaffoldOptions{Name: "ink", Description: "d"})
	require.NoError(t, err)
	_, err = Scaffold(parent, ScaffoldOptions{Name: "ink", Description: "d"})
	assert.ErrorContains(t, err, "already exists")
}

func TestYAMLScalar(t *testing.T) {
	assert.Equal(t, `"plain text"`, yamlScalar("plain   text"))
	assert.Equal(t, `"key: value"`, yamlScalar("key: value"))
	assert.Equal(t, `"say \"hi\""`, yamlScalar(`say "hi"`))
	assert.Equal(t, `"- dash"`, yamlScalar("- dash"))
	assert.Equal(t, `"C:\\tools"`, yamlScalar(`C:\tools`))
}

func TestScaffoldDescriptionRoundTrip(t *testing.T) {
	tests := []string{
		"*Use* when writing docs",
		"@docker compose helper",
		"> quoted advice",
		"`ink` terminal UIs",
		"% of builds that fail",
		"!important scraping guide",
		"&anchor like text",
		"| piped text",
		"yes",
		"true",
		"42",
		"null",
		"~",
		"Scrape sites: fast # politely",
		"Café menus, naïve parsing",
		`back\slash and "quotes"`,
	}

	for i, description := range tests {
		t.Run(description, func(t *testing.T) {
			name := fmt.Sprintf("skill-%d", i)
			dir, err := Scaffold(t.TempDir(), ScaffoldOptions{Name: name, Description: description})
			require.NoError(t, err)

			skill, err := LoadSkill(filepath.Join(dir, SkillFileName))
			require.NoError(t, err)
			assert.Equal(t, name, skill.Name)
			assert.Equal(t, description, skill.Description)
		})
	}
}

func TestScaffoldRemovesPartialDirectory(t *testing.T) {
	orig := writeScaffoldFile
	t.Cleanup(func() { writeScaffoldFile = orig })
	writeScaffoldFile = func(name string, data []byte, perm os.FileMode) error {
		if filepath.Base(name) == "evals.json" {
			return errors.New("disk full")
		}
		return orig(name, data, perm)
	}

	parent := t.TempDir()
	_, err := Scaffold(parent, ScaffoldOptions{Name: "web-scraper", Description: "d", WithReference: true, WithEvals: true})
	require.ErrorContains(t, err, "disk full")

	_, err = os.Stat(filepath.Join(parent, "web-scraper"))
	assert.True(t, os.IsNotExist(err))

	writeScaffoldFile = orig
	_, err = Scaffold(parent, ScaffoldOptions{Name: "web-scraper", Description: "d"})
	assert.NoError(t, err)
}
