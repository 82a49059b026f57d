package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Field names in errors come from
// the json tag, so error-envelope keys match the request body fields.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Fields validates the given struct and returns per-field messages keyed by
// the field's json name, for form-shaped error envelopes.
// Returns nil when the struct is valid.
func Fields(s interface{}) map[string][]string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"": {err.Error()}}
	}
	out := make(map[string][]string, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		out[name] = append(out[name], fmt.Sprintf("failed '%s' validation", fe.Tag()))
	}
	return out
}
