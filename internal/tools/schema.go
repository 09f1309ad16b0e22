package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/golovatskygroup/atlassian-lens/pkg/mcp"
)

// argValidator checks tool arguments against the advertised input schemas,
// compiled once per handler.
type argValidator struct {
	schemas map[string]*jsonschema.Schema
}

func newArgValidator(tools []mcp.Tool) (*argValidator, error) {
	c := jsonschema.NewCompiler()
	for _, t := range tools {
		if err := c.AddResource(t.Name+".json", bytes.NewReader(t.InputSchema)); err != nil {
			return nil, fmt.Errorf("add schema for %s: %w", t.Name, err)
		}
	}
	v := &argValidator{schemas: make(map[string]*jsonschema.Schema, len(tools))}
	for _, t := range tools {
		s, err := c.Compile(t.Name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", t.Name, err)
		}
		v.schemas[t.Name] = s
	}
	return v, nil
}

// validate checks args for tool. Absent or null arguments count as {}.
func (v *argValidator) validate(tool string, args json.RawMessage) error {
	s, ok := v.schemas[tool]
	if !ok {
		return nil
	}
	raw := bytes.TrimSpace(args)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("arguments for %s are not valid JSON: %w", tool, err)
	}

	err := s.Validate(doc)
	var ve *jsonschema.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ve):
		cause := rootCause(ve)
		at := cause.InstanceLocation
		if at == "" {
			at = "/"
		}
		return fmt.Errorf("invalid %s arguments: %s (at %s)", tool, cause.Message, at)
	default:
		return fmt.Errorf("invalid %s arguments: %v", tool, err)
	}
}

// rootCause follows the first cause down to the innermost failure, which
// names the offending value instead of the enclosing schema.
func rootCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
