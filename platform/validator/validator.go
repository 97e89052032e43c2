// Package validator wraps go-playground struct validation behind a small
// injectable type so services can validate without a package-level singleton.
package validator

import "github.com/go-playground/validator/v10"

// Validator checks transport structs against their validate tags.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates s against its validate tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}
