package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var offerRequestSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent_id", "amount"},
	"properties": map[string]interface{}{
		"intent_id": map[string]interface{}{"type": "string", "minLength": 1},
		"amount":    map[string]interface{}{"type": "number", "exclusiveMinimum": 0},
	},
}

func TestSchema_Validate(t *testing.T) {
	schema, err := Compile(offerRequestSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       interface{}
		wantValid bool
		wantField string
	}{
		{
			name:      "valid document",
			doc:       map[string]interface{}{"intent_id": "i-1", "amount": 5000.0},
			wantValid: true,
		},
		{
			name:      "missing required field",
			doc:       map[string]interface{}{"intent_id": "i-1"},
			wantValid: false,
			wantField: "amount",
		},
		{
			name:      "wrong type",
			doc:       map[string]interface{}{"intent_id": "i-1", "amount": "lots"},
			wantValid: false,
			wantField: "amount",
		},
		{
			name:      "not an object",
			doc:       []interface{}{1, 2},
			wantValid: false,
			wantField: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.doc)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.True(t, result.HasErrors(tt.wantField), "errors: %v", result.GetErrorMessages())
			}
		})
	}
}

func TestSchema_Validate_NestedRequired(t *testing.T) {
	schema := MustCompile(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"terms": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"duration_months"},
			},
		},
	})

	result := schema.Validate(map[string]interface{}{"terms": map[string]interface{}{}})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "terms.duration_months", result.Errors[0].Field)
	assert.Equal(t, "required", result.Errors[0].Code)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(map[string]interface{}{"type": 12})
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustCompile(map[string]interface{}{"type": 12})
	})
}
