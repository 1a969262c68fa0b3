package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name     string `json:"name" validate:"required,max=5"`
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=novelty balanced"`
	Count    int    `json:"count" validate:"min=1"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{"valid", sample{Name: "abc", Count: 1}, ""},
		{"missing name", sample{Count: 1}, "name is required"},
		{"too long", sample{Name: "abcdefg", Count: 1}, "name must be at most 5"},
		{"bad oneof uses yaml name", sample{Name: "a", Strategy: "x", Count: 1}, "strategy must be one of: novelty balanced"},
		{"multiple", sample{Count: 0}, "name is required; count must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestValidateStruct_FieldErrors(t *testing.T) {
	type ref struct {
		ID   string `json:"id" validate:"required,uuid"`
		Mail string `json:"mail,omitempty" validate:"email"`
	}

	err := ValidateStruct(ref{ID: "nope", Mail: "xx"})
	var fields FieldErrors
	if assert.ErrorAs(t, err, &fields) {
		assert.Equal(t, map[string]interface{}{
			"id":   "id must be a UUID",
			"mail": "mail is invalid",
		}, fields.Map())
	}
}
