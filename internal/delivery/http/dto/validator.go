package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StructValidator plugs go-playground/validator into fiber's body binding.
type StructValidator struct {
	validate *validator.Validate
}

func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &StructValidator{validate: v}
}

func (v *StructValidator) Validate(out any) error {
	return v.validate.Struct(out)
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// FieldErrors flattens validation failures for the response body. It returns
// nil when err is not a validation error.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag()})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
