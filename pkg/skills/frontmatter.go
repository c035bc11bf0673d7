package skills

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const frontmatterDelimiter = "---"

var topLevelKeyPattern = regexp.MustCompile(`^([A-Za-z0-9_][A-Za-z0-9_.-]*)\s*:`)

// FrontmatterError reports frontmatter that could not be parsed or decoded.
type FrontmatterError struct {
	Path string
	Line int
	Err  error
}

func (e *FrontmatterError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: invalid frontmatter: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: invalid frontmatter: %v", e.Path, e.Err)
}

// Unwrap returns the underlying parse error
func (e *FrontmatterError) Unwrap() error {
	return e.Err
}

// LoadSkill reads and parses a SKILL.md file. A file without frontmatter
// still loads, with HasFrontmatter unset, so callers can report on it;
// malformed YAML returns a *FrontmatterError.
func LoadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}
	return ParseSkill(path, content)
}

// ParseSkill parses SKILL.md content read from path.
func ParseSkill(path string, content []byte) (*Skill, error) {
	block, hasBlock, terminated := splitFrontmatter(content)
	if hasBlock && !terminated {
		return nil, &FrontmatterError{Path: path, Line: 1, Err: errors.New("frontmatter is not terminated by ---")}
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	pctx := parser.NewContext()
	doc := md.Parser().Parse(text.NewReader(content), parser.WithContext(pctx))

	skill := &Skill{
		Path:           path,
		Content:        extractBodyContent(string(content)),
		HasFrontmatter: hasBlock,
		KeyLines:       frontmatterKeyLines(block),
		RawFrontmatter: map[string]any{},
	}

	if hasBlock {
		raw, err := meta.TryGet(pctx)
		if err != nil {
			return nil, &FrontmatterError{Path: path, Err: err}
		}
		for k, v := range raw {
			skill.RawFrontmatter[k] = normalizeValue(v)
		}

		if err := decodeFrontmatter(skill.RawFrontmatter, &skill.Frontmatter); err != nil {
			return nil, &FrontmatterError{Path: path, Err: err}
		}
		skill.Name = strings.TrimSpace(skill.Frontmatter.Name)
		skill.Description = strings.TrimSpace(skill.Frontmatter.Description)
	}

	skill.Links = extractLinks(doc, content)
	return skill, nil
}

func decodeFrontmatter(raw map[string]any, out *Frontmatter) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(scalarToStringHook, splitToolListHook),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create frontmatter decoder")
	}
	return decoder.Decode(raw)
}

// scalarToStringHook keeps the YAML spelling of booleans and numbers that
// land in string fields, so "description: yes" reads "true" instead of the
// "1" weak typing would produce.
func scalarToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(data), nil
	}
	return data, nil
}

// splitToolListHook accepts allowed-tools written as "Read, Grep" or "Read Grep".
func splitToolListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	fields := strings.FieldsFunc(data.(string), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return fields, nil
}

// normalizeValue converts the map[interface{}]interface{} values produced by
// the YAML decoder into JSON-friendly map[string]any.
func normalizeValue(v any) any {
	switch typed := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// splitFrontmatter returns the raw frontmatter lines. hasBlock is set when the
// file opens with a delimiter, terminated when a closing delimiter follows.
func splitFrontmatter(content []byte) (block []string, hasBlock, terminated bool) {
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return nil, false, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			return lines[1:i], true, true
		}
	}
	return lines[1:], true, false
}

// frontmatterKeyLines maps top-level keys to file line numbers. The block
// starts on line 2, after the opening delimiter.
func frontmatterKeyLines(block []string) map[string]int {
	lines := make(map[string]int)
	for i, line := range block {
		if m := topLevelKeyPattern.FindStringSubmatch(line); m != nil {
			if _, seen := lines[m[1]]; !seen {
				lines[m[1]] = i + 2
			}
		}
	}
	return lines
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, frontmatterDelimiter) {
		return content
	}

	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			return strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
		}
	}
	return content
}

// lineAt converts a byte offset into a 1-based line number.
func lineAt(source []byte, offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte("\n")) + 1
}

// nodeOffset finds a byte offset for an AST node, using its first text
// segment or the first line of the closest enclosing block.
func nodeOffset(n ast.Node) int {
	if off := firstTextOffset(n); off >= 0 {
		return off
	}
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start
		}
	}
	return -1
}

func firstTextOffset(n ast.Node) int {
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := firstTextOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}
