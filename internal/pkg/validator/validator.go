package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// share the request DTO tags gin validates on bind
	validate.SetTagName("binding")
}

// Validate struct fields, returning field -> failed tag.
func Validate(v interface{}) map[string]string {
	return Fields(validate.Struct(v))
}

// Fields maps a validation or bind error to field -> failed tag. Errors that
// are not about a field (malformed JSON) land under "_".
func Fields(err error) map[string]string {
	if err == nil {
		return nil
	}

	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
