package evals

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaID is the $id of the eval prompt list schema.
const SchemaID = "https://github.com/jingkaihe/skillkit/schemas/evals.json"

// Schema returns the JSON schema of an eval prompt list document.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&Suite{})
	schema.ID = SchemaID
	schema.Title = "Skill eval prompt list"
	return schema
}

var (
	compileOnce sync.Once
	compiled    *validator.Schema
	compileErr  error
)

func compiledSchema() (*validator.Schema, error) {
	compileOnce.Do(func() {
		encoded, err := json.Marshal(Schema())
		if err != nil {
			compileErr = errors.Wrap(err, "failed to encode eval schema")
			return
		}

		compiler := validator.NewCompiler()
		compiler.Draft = validator.Draft2020
		if err := compiler.AddResource(SchemaID, bytes.NewReader(encoded)); err != nil {
			compileErr = errors.Wrap(err, "failed to load eval schema")
			return
		}
		compiled, compileErr = compiler.Compile(SchemaID)
		if compileErr != nil {
			compileErr = errors.Wrap(compileErr, "failed to compile eval schema")
		}
	})
	return compiled, compileErr
}

// ValidateSchema checks a decoded eval document (as returned by Parse)
// against Schema. Structural problems are returned with their location.
func ValidateSchema(doc any) ([]Problem, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil, nil
	}

	var verr *validator.ValidationError
	if !errors.As(err, &verr) {
		return nil, errors.Wrap(err, "failed to validate eval document")
	}

	var problems []Problem
	var walk func(*validator.ValidationError)
	walk = func(node *validator.ValidationError) {
		if len(node.Causes) == 0 {
			problems = append(problems, Problem{
				Path:    pointerToPath(node.InstanceLocation),
				Message: strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return problems, nil
}

// pointerToPath turns a JSON pointer such as /evals/2/prompt into
// evals[2].prompt.
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" || pointer == "/" {
		return ""
	}

	var b strings.Builder
	for _, token := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(token); err == nil {
			b.WriteString("[" + token + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(token)
	}
	return b.String()
}
