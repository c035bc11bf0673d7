package skills

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkillFrontmatter(t *testing.T) {
	content := `---
name: docker
description: >
  Author Dockerfiles
  and compose files.
license: MIT
allowed-tools: Read, Grep Bash
metadata:
  owner: platform
  tags: [containers, ci]
x-custom: 1
---

# Docker
`
	skill, err := ParseSkill("SKILL.md", []byte(content))
	require.NoError(t, err)

	assert.True(t, skill.HasFrontmatter)
	assert.Equal(t, "docker", skill.Name)
	assert.Equal(t, "Author Dockerfiles and compose files.", skill.Description)
	assert.Equal(t, "MIT", skill.Frontmatter.License)
	assert.Equal(t, []string{"Read", "Grep", "Bash"}, skill.Frontmatter.AllowedTools)
	assert.Equal(t, "platform", skill.Frontmatter.Metadata["owner"])
	assert.Equal(t, []any{"containers", "ci"}, skill.Frontmatter.Metadata["tags"])
	assert.Equal(t, 1, skill.RawFrontmatter["x-custom"])
	assert.Equal(t, "# Docker\n", skill.Content)

	assert.Equal(t, map[string]int{
		"name":          2,
		"description":   3,
		"license":       6,
		"allowed-tools": 7,
		"metadata":      8,
		"x-custom":      11,
	}, skill.KeyLines)
	assert.Equal(t, 6, skill.Line("license"))
	assert.Equal(t, 1, skill.Line("compatibility"))
}

func TestParseSkillAllowedToolsList(t *testing.T) {
	skill, err := ParseSkill("SKILL.md", []byte("---\nname: ink\ndescription: d\nallowed-tools: [Read, Write]\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Write"}, skill.Frontmatter.AllowedTools)
}

func TestParseSkillScalarStrings(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{value: "yes", expected: "true"},
		{value: "false", expected: "false"},
		{value: "42", expected: "42"},
		{value: "1.5", expected: "1.5"},
		{value: `"yes"`, expected: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			content := "---\nname: ink\ndescription: " + tt.value + "\nlicense: " + tt.value + "\n---\n"
			skill, err := ParseSkill("SKILL.md", []byte(content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, skill.Description)
			assert.Equal(t, tt.expected, skill.Frontmatter.License)
		})
	}
}

func TestParseSkillWithoutFrontmatter(t *testing.T) {
	skill, err := ParseSkill("SKILL.md", []byte("# Ink\n\nBody\n"))
	require.NoError(t, err)

	assert.False(t, skill.HasFrontmatter)
	assert.Empty(t, skill.Name)
	assert.ErrorIs(t, skill.Validate(), ErrMissingFrontmatter)
}

func TestParseSkillErrors(t *testing.T) {
	t.Run("unterminated", func(t *testing.T) {
		_, err := ParseSkill("ink/SKILL.md", []byte("---\nname: ink\n\n# Body\n"))
		var fmErr *FrontmatterError
		require.ErrorAs(t, err, &fmErr)
		assert.Equal(t, 1, fmErr.Line)
		assert.Contains(t, err.Error(), "ink/SKILL.md:1")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseSkill("ink/SKILL.md", []byte("---\nname: [oops\n---\n"))
		var fmErr *FrontmatterError
		require.ErrorAs(t, err, &fmErr)
		assert.Equal(t, "ink/SKILL.md", fmErr.Path)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := ParseSkill("SKILL.md", []byte("---\nname: ink\ndescription:\n  nested: map\n---\n"))
		var fmErr *FrontmatterError
		require.ErrorAs(t, err, &fmErr)
		assert.Contains(t, err.Error(), "description")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSkill(filepath.Join(t.TempDir(), "SKILL.md"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read skill file")
	})
}

func TestSkillValidate(t *testing.T) {
	assert.NoError(t, (&Skill{HasFrontmatter: true, Name: "ink", Description: "d"}).Validate())
	assert.ErrorIs(t, (&Skill{HasFrontmatter: true, Description: "d"}).Validate(), ErrMissingName)
	assert.ErrorIs(t, (&Skill{HasFrontmatter: true, Name: "ink"}).Validate(), ErrMissingDescription)
}

func TestValidateName(t *testing.T) {
	valid := []string{"ink", "docker", "crawl4ai", "web-scraper", "a1-b2-c3"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", "Ink", "web_scraper", "-ink", "ink-", "ink--ui", "ink ui", string(make([]byte, 65))}
	for _, name := range invalid {
		assert.Error(t, ValidateName(name), name)
	}

	long := ""
	for len(long) < MaxNameLength+1 {
		long += "a"
	}
	assert.ErrorContains(t, ValidateName(long), "65 characters")
}

func TestNormalizeValue(t *testing.T) {
	in := map[any]any{
		"owner": "platform",
		"nested": map[any]any{
			1: []any{map[any]any{"k": "v"}},
		},
	}

	out := normalizeValue(in)
	assert.Equal(t, map[string]any{
		"owner": "platform",
		"nested": map[string]any{
			"1": []any{map[string]any{"k": "v"}},
		},
	}, out)
}
