package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors lists every failed constraint of a struct, keyed by the field's
// json or yaml name
type FieldErrors []FieldError

// FieldError is one failed constraint
type FieldError struct {
	Field   string
	Message string
}

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Message
	}
	return strings.Join(parts, "; ")
}

// Map returns field -> message for error details
func (fe FieldErrors) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(fe))
	for _, e := range fe {
		out[e.Field] = e.Message
	}
	return out
}

var messageByTag = map[string]string{
	"required": "%s is required",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"oneof":    "%s must be one of: %s",
	"uuid":     "%s must be a UUID",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(tagName)
	})
	return validate
}

// tagName prefers the json name, then the yaml name, then the Go name
func tagName(field reflect.StructField) string {
	for _, key := range []string{"json", "yaml"} {
		name, _, _ := strings.Cut(field.Tag.Get(key), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return field.Name
}

// ValidateStruct checks the validate tags of s. Constraint failures come
// back as FieldErrors.
func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}
	out := make(FieldErrors, 0, len(failures))
	for _, f := range failures {
		out = append(out, FieldError{Field: f.Field(), Message: describe(f)})
	}
	return out
}

func describe(f validator.FieldError) string {
	format, ok := messageByTag[f.Tag()]
	if !ok {
		return f.Field() + " is invalid"
	}
	if strings.Count(format, "%s") == 1 {
		return fmt.Sprintf(format, f.Field())
	}
	return fmt.Sprintf(format, f.Field(), f.Param())
}
