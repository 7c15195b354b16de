// Package validator wraps go-playground/validator with the matching
// specific tags registered.
package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

// New registers the "operation" and "furnished" tags used by the nearby
// search query.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("operation", validOperation)
	_ = v.RegisterValidation("furnished", validFurnished)
	return &Validator{v: v}
}

func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// operation accepts an empty value or one of the two operation types.
func validOperation(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "", "sale", "rental":
		return true
	}
	return false
}

func validFurnished(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "", "yes", "partial", "no":
		return true
	}
	return false
}
