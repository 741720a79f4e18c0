package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Object(t *testing.T) {
	s := Object(map[string]JSON{
		"query":       StringWithDesc("search query"),
		"max_results": Int(),
	}, "query")

	t.Run("valid arguments", func(t *testing.T) {
		err := s.Validate(map[string]any{"query": "circuit breakers", "max_results": 5})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := s.Validate(map[string]any{"max_results": 5})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required field query is missing")
	})

	t.Run("wrong property type", func(t *testing.T) {
		err := s.Validate(map[string]any{"query": 42})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "property query")
	})

	t.Run("unknown properties pass through", func(t *testing.T) {
		err := s.Validate(map[string]any{"query": "x", "extra": true})
		assert.NoError(t, err)
	})
}

func TestValidate_DecodedJSONNumbers(t *testing.T) {
	// encoding/json decodes all numbers as float64; integer schemas must
	// accept whole-valued floats and reject fractional ones.
	s := Object(map[string]JSON{"count": Int()})

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"count": 3}`), &args))
	assert.NoError(t, s.Validate(args))

	require.NoError(t, json.Unmarshal([]byte(`{"count": 3.5}`), &args))
	assert.Error(t, s.Validate(args))
}

func TestValidate_StringConstraints(t *testing.T) {
	min, max := 2, 5
	s := JSON{Type: "string", MinLength: &min, MaxLength: &max, Pattern: "^[a-z]+$"}

	assert.NoError(t, s.Validate("abc"))
	assert.Error(t, s.Validate("a"))
	assert.Error(t, s.Validate("abcdef"))
	assert.Error(t, s.Validate("ABC"))
}

func TestValidate_NumericBounds(t *testing.T) {
	min, max := 0.0, 100.0
	s := JSON{Type: "number", Minimum: &min, Maximum: &max}

	assert.NoError(t, s.Validate(50))
	assert.NoError(t, s.Validate(99.9))
	assert.Error(t, s.Validate(-1))
	assert.Error(t, s.Validate(101))
}

func TestValidate_Enum(t *testing.T) {
	s := Enum("fast", "thorough")

	assert.NoError(t, s.Validate("fast"))
	assert.Error(t, s.Validate("slow"))
}

func TestValidate_Array(t *testing.T) {
	s := Array(String())

	assert.NoError(t, s.Validate([]any{"a", "b"}))
	err := s.Validate([]any{"a", 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}

func TestValidate_Any(t *testing.T) {
	s := Any()

	assert.NoError(t, s.Validate(nil))
	assert.NoError(t, s.Validate("anything"))
	assert.NoError(t, s.Validate(map[string]any{"k": "v"}))
}

func TestJSON_RoundTrip(t *testing.T) {
	s := Object(map[string]JSON{"depth": Int()}, "depth")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded JSON
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "object", decoded.Type)
	assert.Equal(t, []string{"depth"}, decoded.Required)
	assert.Equal(t, "integer", decoded.Properties["depth"].Type)
}
