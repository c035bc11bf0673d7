// Package skillfmt normalises SKILL.md files: canonical frontmatter key
// order, trimmed values, one blank line before the body and a trailing
// newline.
package skillfmt

import (
	"bytes"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

const delimiter = "---"

// Format returns the normalised content and whether it differs from the
// input. Comments in the frontmatter are kept with their keys. Files
// without frontmatter only get their trailing whitespace normalised.
func Format(content []byte) ([]byte, bool, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		out := []byte(normaliseBody(text))
		return out, !bytes.Equal(out, content), nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, false, errors.New("frontmatter is not terminated by ---")
	}

	block := strings.Join(lines[1:end], "\n")
	front, err := formatFrontmatter(block)
	if err != nil {
		return nil, false, err
	}

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.WriteString(front)
	b.WriteString(delimiter + "\n")
	if body := normaliseBody(strings.Join(lines[end+1:], "\n")); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}

	out := []byte(b.String())
	return out, !bytes.Equal(out, content), nil
}

// normaliseBody drops leading blank lines and trailing whitespace on each
// line, and ends non-empty text with exactly one newline.
func normaliseBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	body = strings.Trim(strings.Join(lines, "\n"), "\n")
	if body == "" {
		return ""
	}
	return body + "\n"
}

func formatFrontmatter(block string) (string, error) {
	if strings.TrimSpace(block) == "" {
		return "", nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return "", errors.Wrap(err, "invalid frontmatter")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return "", errors.New("frontmatter must be a YAML mapping")
	}

	mapping := doc.Content[0]
	mapping.Content = reorder(mapping.Content)
	for i := 1; i < len(mapping.Content); i += 2 {
		trimScalar(mapping.Content[i])
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", errors.Wrap(err, "failed to encode frontmatter")
	}
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "failed to encode frontmatter")
	}
	return buf.String(), nil
}

// reorder sorts key/value pairs into KnownFrontmatterKeys order, keeping
// other keys after them in their original order.
func reorder(pairs []*yaml.Node) []*yaml.Node {
	rank := make(map[string]int, len(skills.KnownFrontmatterKeys))
	for i, k := range skills.KnownFrontmatterKeys {
		rank[k] = i
	}

	known := make([][]*yaml.Node, len(skills.KnownFrontmatterKeys))
	var rest []*yaml.Node
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := pairs[i], pairs[i+1]
		if r, ok := rank[key.Value]; ok && known[r] == nil {
			known[r] = []*yaml.Node{key, value}
			continue
		}
		rest = append(rest, key, value)
	}

	out := make([]*yaml.Node, 0, len(pairs))
	for _, pair := range known {
		out = append(out, pair...)
	}
	return append(out, rest...)
}

func trimScalar(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!str" {
		return
	}
	if n.Style == yaml.LiteralStyle || n.Style == yaml.FoldedStyle {
		n.Value = strings.TrimRight(n.Value, " \t\n") + "\n"
		return
	}
	n.Value = strings.TrimSpace(n.Value)
}

// Diff returns a unified diff between two versions of path, empty when
// they are equal.
func Diff(path string, before, after []byte) string {
	if bytes.Equal(before, after) {
		return ""
	}
	return udiff.Unified("a/"+path, "b/"+path, string(before), string(after))
}

// Result describes one formatted file.
type Result struct {
	Path    string
	Changed bool
	Diff    string
}

// File formats path. When write is set the file is rewritten in place
// while holding its lock; otherwise it is left untouched.
func File(path string, write bool) (*Result, error) {
	res := &Result{Path: path}

	if !write {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read skill file")
		}
		formatted, changed, err := Format(content)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to format %s", path)
		}
		res.Changed = changed
		res.Diff = Diff(path, content, formatted)
		return res, nil
	}

	err := lockedfile.Transform(path, func(content []byte) ([]byte, error) {
		formatted, changed, err := Format(content)
		if err != nil {
			return nil, err
		}
		res.Changed = changed
		res.Diff = Diff(path, content, formatted)
		return formatted, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to format %s", path)
	}
	return res, nil
}
