package skills

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// ScaffoldOptions describes a new skill.
type ScaffoldOptions struct {
	Name          string
	Description   string
	WithReference bool
	WithEvals     bool
}

var skillTemplate = template.Must(template.New("skill").Parse(`---
name: {{ .Name }}
description: {{ .Description }}
---

# {{ .Title }}

## When to use

Describe the requests this skill should handle.

## Workflow

1. Confirm the use case.
2. Implement the change.
3. Verify the result.
{{- if .WithReference }}

## References

- ` + "`" + `{{ .Playbook }}` + "`" + `: extended examples and troubleshooting notes.
{{- end }}
`))

var playbookTemplate = template.Must(template.New("playbook").Parse(`# {{ .Title }} playbook

Extended examples and troubleshooting notes for the {{ .Name }} skill.
`))

var evalsTemplate = template.Must(template.New("evals").Parse(`{
  "skill_name": "{{ .Name }}",
  "evals": [
    {
      "id": 1,
      "prompt": "Describe a realistic request for the {{ .Name }} skill.",
      "expected_output": "What a good answer looks like.",
      "files": [],
      "assertions": [
        "The answer follows the skill workflow."
      ]
    }
  ]
}
`))

// Scaffold creates parent/<name> with a SKILL.md template and, optionally,
// a playbook under references/ and an eval prompt list under evals/.
// It returns the new skill directory.
func Scaffold(parent string, opts ScaffoldOptions) (string, error) {
	if err := ValidateName(opts.Name); err != nil {
		return "", err
	}
	if strings.TrimSpace(opts.Description) == "" {
		return "", ErrMissingDescription
	}
	if len(opts.Description) > MaxDescriptionLength {
		return "", errors.Errorf("description is %d characters, the limit is %d", len(opts.Description), MaxDescriptionLength)
	}

	dir := filepath.Join(parent, opts.Name)
	if _, err := os.Stat(dir); err == nil {
		return "", errors.Errorf("skill directory %s already exists", dir)
	}

	data := struct {
		ScaffoldOptions
		Title       string
		Description string
		Playbook    string
	}{
		ScaffoldOptions: opts,
		Title:           titleFromName(opts.Name),
		Description:     yamlScalar(opts.Description),
		Playbook:        ReferencesDir + "/" + opts.Name + "-playbook.md",
	}

	files := map[string]*template.Template{SkillFileName: skillTemplate}
	if opts.WithReference {
		files[filepath.FromSlash(data.Playbook)] = playbookTemplate
	}
	if opts.WithEvals {
		files[filepath.Join(EvalsDir, "evals.json")] = evalsTemplate
	}

	if err := writeScaffold(dir, files, data); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// writeScaffoldFile is replaced in tests to simulate a failing disk.
var writeScaffoldFile = os.WriteFile

func writeScaffold(dir string, files map[string]*template.Template, data any) error {
	for rel, tmpl := range files {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "failed to render %s", rel)
		}
		target := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrap(err, "failed to create skill directory")
		}
		if err := writeScaffoldFile(target, buf.Bytes(), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", rel)
		}
	}
	return nil
}

func titleFromName(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// yamlScalar renders a description as a double-quoted YAML scalar so that
// indicators (*, &, !, @, `, >, |, %) and plain booleans such as "yes"
// always load back as the same string. Go escape sequences produced by
// strconv.Quote are a subset of YAML's double-quoted escapes.
func yamlScalar(s string) string {
	return strconv.Quote(strings.Join(strings.Fields(s), " "))
}
