package api

import (
	"encoding/json"
	"errors"
	"reflect"

	"github.com/gin-gonic/gin"

	"trackApply/internal/errcode"
)

// bindJSON decodes the request body into dst. JSON type mismatches come back
// as field errors so callers can merge them with their own validation; the
// rest of dst is still populated. A body that cannot be decoded at all is
// answered here and ok is false.
func bindJSON(c *gin.Context, dst any) (typeErrs map[string]string, ok bool) {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string]string{typeErr.Field: typeMessage(typeErr.Type)}, true
	}
	badRequest(c, "Invalid request body.")
	return nil, false
}

// decodeBody is bindJSON for handlers with no further field validation of
// their own: any type mismatch is answered as a validation error.
func decodeBody(c *gin.Context, dst any) bool {
	typeErrs, ok := bindJSON(c, dst)
	if !ok {
		return false
	}
	if typeErrs != nil {
		respondError(c, errcode.ValidationFailed(typeErrs))
		return false
	}
	return true
}

// withTypeErrors folds type mismatches into err, the result of validating the
// rest of the body. The mismatch wins when both name the same field.
func withTypeErrors(typeErrs map[string]string, err error) error {
	if len(typeErrs) == 0 {
		return err
	}
	merged := make(map[string]string, len(typeErrs))
	var e *errcode.Error
	if errors.As(err, &e) && e.Kind == errcode.Validation {
		for field, msg := range e.Fields {
			merged[field] = msg
		}
	}
	for field, msg := range typeErrs {
		merged[field] = msg
	}
	return errcode.ValidationFailed(merged)
}

func typeMessage(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "has an invalid type"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "must be a boolean"
	case reflect.String:
		return "must be a string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "must be a number"
	default:
		return "has an invalid type"
	}
}
