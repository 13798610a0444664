package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONStripsFences(t *testing.T) {
	var out struct {
		Intent string `json:"intent"`
	}
	raw := "```json\n{\"intent\": \"next\"}\n```"
	require.NoError(t, DecodeJSON(raw, &out))
	assert.Equal(t, "next", out.Intent)
}

func TestDecodeJSONRepairsMalformedOutput(t *testing.T) {
	var out struct {
		Name     string `json:"name"`
		Servings int    `json:"servings"`
	}
	// Unquoted keys and a trailing comma, the usual model sloppiness.
	raw := `{name: "Soup", servings: 4,}`
	require.NoError(t, DecodeJSON(raw, &out))
	assert.Equal(t, "Soup", out.Name)
	assert.Equal(t, 4, out.Servings)
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var out map[string]any
	assert.Error(t, DecodeJSON("certainly! here is your recipe", &out))
}
