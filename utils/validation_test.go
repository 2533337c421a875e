package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeBody struct {
	Prompt          string   `json:"prompt" validate:"max=100"`
	PreferQuality   bool     `json:"prefer_quality"`
	AvailableModels []string `json:"available_models" validate:"omitempty,dive,required"`
	Tier            string   `json:"tier" validate:"omitempty,model_tier"`
	Limit           int      `json:"limit" validate:"gte=0,lte=500"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := routeBody{Prompt: "Hello!", Tier: "CODE", Limit: 10}
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("empty prompt is allowed", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(&routeBody{}))
	})

	t.Run("lowercase tier accepted", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(&routeBody{Tier: "quality"}))
	})

	t.Run("fields reported by json name", func(t *testing.T) {
		s := routeBody{Tier: "TURBO", Limit: 501}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "tier must be one of: FAST QUALITY CODE", fields["tier"])
		assert.Equal(t, "limit must be less than or equal to 500", fields["limit"])
	})

	t.Run("blank available model", func(t *testing.T) {
		s := routeBody{AvailableModels: []string{"mistral", ""}}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "available_models[1] is required", fields["available_models[1]"])
	})

	t.Run("max length", func(t *testing.T) {
		s := routeBody{Prompt: string(make([]byte, 101))}
		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "prompt must be at most 100", fields["prompt"])
	})
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "x"}))
	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}

func TestParseUUID(t *testing.T) {
	id, err := ParseUUID(" 7d444840-9dc0-11d1-b245-5ffdce74fad2 ", "id")
	require.NoError(t, err)
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", id.String())

	_, err = ParseUUID("not-a-uuid", "id")
	require.Error(t, err)
	assert.Equal(t, "id must be a valid UUID", GetValidationFields(err)["id"])
}
