package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/scenario.schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// Load reads a scenario file. See Parse.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	s, err := Parse(raw)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse checks a YAML scenario against the embedded schema, decodes it,
// fills defaults and validates the result.
func Parse(raw []byte) (Scenario, error) {
	var s Scenario
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return s, fmt.Errorf("scenario yaml: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scenario yaml: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func validateDocument(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	// The validator wants encoding/json shapes: string keys and float64 numbers.
	b, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return fmt.Errorf("scenario document: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("scenario document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	return nil
}

// stringKeys rewrites YAML mappings with non-string keys, like the
// frequencies of the attenuation table, into JSON-compatible objects.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = stringKeys(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = stringKeys(e)
		}
		return out
	default:
		return v
	}
}
