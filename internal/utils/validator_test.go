package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestFormatValidationErrors(t *testing.T) {
	err := ValidateStruct(signupBody{Username: "ab", Email: "nope", Password: "short"})
	require.Error(t, err)

	got := FormatValidationErrors(err)
	require.Len(t, got, 3)

	byField := map[string]ValidationError{}
	for _, e := range got {
		byField[e.Field] = e
	}
	assert.Equal(t, "min", byField["username"].Tag)
	assert.Equal(t, "username must be at least 3", byField["username"].Message)
	assert.Equal(t, "email must be a valid email address", byField["email"].Message)
	assert.Equal(t, "nope", byField["email"].Value)
	assert.Empty(t, byField["password"].Value)
}

func TestFormatValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(nil))
	assert.Nil(t, FormatValidationErrors(assert.AnError))
	assert.NoError(t, ValidateStruct(signupBody{Username: "alice", Email: "a@b.co", Password: "longenough"}))
}
