// Package evals loads and validates eval prompt lists: the natural-language
// test cases (a prompt plus the assertions a good answer satisfies) that
// ship with a skill under evals/.
package evals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the serialisation of an eval file.
type Format string

const (
	// FormatJSON is an evals.json document
	FormatJSON Format = "json"
	// FormatYAML is an evals.yaml document
	FormatYAML Format = "yaml"
)

// Suite is an eval prompt list. Cases are normally written under evals;
// the older parallel form lists prompts and assertions side by side and
// the two lists must have the same length.
type Suite struct {
	SkillName  string     `mapstructure:"skill_name" json:"skill_name,omitempty" jsonschema:"description=Name of the skill under test"`
	Evals      []Case     `mapstructure:"evals" json:"evals,omitempty" jsonschema:"description=Eval cases"`
	Prompts    []string   `mapstructure:"prompts" json:"prompts,omitempty" jsonschema:"description=Prompts of the parallel-list form"`
	Assertions [][]string `mapstructure:"assertions" json:"assertions,omitempty" jsonschema:"description=One assertion list per prompt of the parallel-list form"`

	Path   string `mapstructure:"-" json:"-"`
	Format Format `mapstructure:"-" json:"-"`
}

// Case is a single eval: a prompt and the checks its answer must satisfy.
type Case struct {
	ID             string   `mapstructure:"id" json:"id,omitempty" jsonschema:"oneof_type=string;integer"`
	Prompt         string   `mapstructure:"prompt" json:"prompt" jsonschema:"minLength=1"`
	ExpectedOutput string   `mapstructure:"expected_output" json:"expected_output,omitempty"`
	Files          []string `mapstructure:"files" json:"files,omitempty"`
	Assertions     []string `mapstructure:"assertions" json:"assertions,omitempty"`
	Expectations   []string `mapstructure:"expectations" json:"expectations,omitempty" jsonschema:"description=Alias of assertions"`
}

// Checks returns the assertions of a case, including those written under
// the expectations alias.
func (c Case) Checks() []string {
	return append(append([]string{}, c.Assertions...), c.Expectations...)
}

// Cases returns the suite as cases, converting the parallel-list form.
// Extra prompts or assertion lists without a partner are dropped; Validate
// reports the mismatch.
func (s *Suite) Cases() []Case {
	if len(s.Evals) > 0 || len(s.Prompts) == 0 {
		return s.Evals
	}

	cases := make([]Case, 0, len(s.Prompts))
	for i, p := range s.Prompts {
		c := Case{ID: strconv.Itoa(i + 1), Prompt: p}
		if i < len(s.Assertions) {
			c.Assertions = s.Assertions[i]
		}
		cases = append(cases, c)
	}
	return cases
}

// SyntaxError reports an eval file that is not well-formed JSON or YAML.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unsupported eval file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads and decodes an eval file.
func LoadFile(path string) (*Suite, any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read eval file")
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}
	return Parse(path, content, format)
}

// Parse decodes eval content. It returns the suite and the generic document
// it was decoded from, which ValidateSchema checks.
func Parse(path string, content []byte, format Format) (*Suite, any, error) {
	var doc any
	var err error

	switch format {
	case FormatJSON:
		doc, err = decodeJSON(path, content)
	case FormatYAML:
		doc, err = decodeYAML(path, content)
	default:
		err = errors.Errorf("unsupported eval format %q", format)
	}
	if err != nil {
		return nil, nil, err
	}

	doc = toJSONValue(doc)
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"evals": list}
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, nil, &SyntaxError{Path: path, Msg: "eval file must contain an object or a list of cases"}
	}

	suite := &Suite{Path: path, Format: format}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           suite,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create eval decoder")
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, nil, &SyntaxError{Path: path, Msg: err.Error()}
	}

	return suite, doc, nil
}

func decodeJSON(path string, content []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, jsonSyntaxError(path, content, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SyntaxError{Path: path, Msg: "unexpected content after the JSON document"}
	}
	return doc, nil
}

func jsonSyntaxError(path string, content []byte, err error) error {
	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}

	se := &SyntaxError{Path: path, Msg: err.Error()}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		se.Msg = "unexpected end of JSON input"
		offset = int64(len(content))
	}
	if offset >= 0 {
		se.Line, se.Column = position(content, int(offset))
	}
	return se
}

// position converts a byte offset into a 1-based line and column.
func position(content []byte, offset int) (int, int) {
	if offset > len(content) {
		offset = len(content)
	}
	before := content[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := offset - bytes.LastIndexByte(before, '\n')
	return line, col
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

func decodeYAML(path string, content []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		se := &SyntaxError{Path: path, Msg: strings.TrimPrefix(err.Error(), "yaml: ")}
		if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
			se.Line, _ = strconv.Atoi(m[1])
		}
		return nil, se
	}
	if doc == nil {
		return nil, &SyntaxError{Path: path, Msg: "eval file is empty"}
	}
	return doc, nil
}

// toJSONValue converts decoded YAML into the value shapes encoding/json
// produces, so both formats validate identically.
func toJSONValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = toJSONValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = toJSONValue(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = toJSONValue(val)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(typed))
	case int64:
		return json.Number(strconv.FormatInt(typed, 10))
	case uint64:
		return json.Number(strconv.FormatUint(typed, 10))
	case float64:
		return json.Number(strconv.FormatFloat(typed, 'f', -1, 64))
	default:
		return v
	}
}
