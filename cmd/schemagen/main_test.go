package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSchema_Compiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "scenario.schema.json")
	require.NoError(t, writeSchema(out, buildSchema()))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.ElementsMatch(t, []any{"map", "robots"}, doc["required"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"seed", "algorithm", "map", "robots", "simulation", "constraints"} {
		assert.Contains(t, props, key)
	}

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	schema, err := jsonschema.Compile(out)
	require.NoError(t, err)

	valid := map[string]any{
		"map":    map[string]any{"rows": []any{"###", "#.#", "###"}},
		"robots": map[string]any{"count": 1.0},
	}
	assert.NoError(t, schema.Validate(valid))

	unknown := map[string]any{
		"map":    map[string]any{"rows": []any{"#"}},
		"robots": map[string]any{"count": 1.0, "colour": "red"},
	}
	assert.Error(t, schema.Validate(unknown))

	badAlgorithm := map[string]any{
		"algorithm": "greedy",
		"map":       map[string]any{"rows": []any{"#"}},
		"robots":    map[string]any{"count": 1.0},
	}
	assert.Error(t, schema.Validate(badAlgorithm))
}
