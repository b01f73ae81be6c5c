// Package validate renders Go-side JSON Schema documents and validates
// invocation params against them, generalized from the teacher's
// docker.Manager template-loading flow (load a structured document, parse
// it, use it to drive downstream behavior).
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/browserbase/sdk-functions-go/registry"
)

// Schema wraps a compiled JSON Schema document and satisfies
// registry.Validator.
type Schema struct {
	raw      map[string]interface{}
	compiled *jsonschema.Schema
}

// Compile parses a JSON Schema object (as produced by json.Unmarshal into
// map[string]interface{}, or hand-built in code) and compiles it.
func Compile(schema map[string]interface{}) (*Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("inline.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("inline.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Schema{raw: schema, compiled: compiled}, nil
}

// Validate checks params against the compiled schema.
func (s *Schema) Validate(params map[string]interface{}) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	if err := s.compiled.Validate(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// Schema returns the original JSON Schema object, as persisted verbatim to
// the function manifest.
func (s *Schema) Schema() map[string]interface{} {
	return s.raw
}

var _ registry.Validator = (*Schema)(nil)
