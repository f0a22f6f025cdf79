// Package validation wraps go-playground/validator so every failed rule is
// reported at once, keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"trackApply/internal/errcode"
)

// DateLayout is the only accepted calendar-date format.
const DateLayout = "2006-01-02"

// Password bounds are in bytes; bcrypt rejects input longer than 72 bytes.
const (
	MinPasswordBytes = 6
	MaxPasswordBytes = 72
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		n := len(fl.Field().String())
		return n >= MinPasswordBytes && n <= MaxPasswordBytes
	})
	return v
}

// Struct validates s and converts violations into an errcode validation error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string]string, len(violations))
	for _, v := range violations {
		if _, seen := fields[v.Field()]; seen {
			continue
		}
		fields[v.Field()] = message(v)
	}
	return errcode.ValidationFailed(fields)
}

func message(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", v.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", v.Param())
	case "email":
		return "must be a valid email address"
	case "http_url", "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(v.Param(), " ", ", ")
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "password":
		return fmt.Sprintf("must be between %d and %d bytes long", MinPasswordBytes, MaxPasswordBytes)
	default:
		return "is invalid"
	}
}
