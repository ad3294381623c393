package validator

import (
	"testing"

	"repairhub/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email string `validate:"required,email"`
	Name  string `validate:"required,max=5"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(signup{Email: "a@b.co", Name: "Ann"}))

	err := Validate(signup{Email: "nope", Name: "Bartholomew"})
	assert.True(t, apperr.IsValidation(err))
	details := apperr.Details(err)
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "max", details["name"])
}
