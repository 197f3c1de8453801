package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

// MaxBodyBytes caps every JSON body. Onboarding photos are the largest
// payloads and travel base64 encoded.
const MaxBodyBytes = 16 << 20

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}()

type decodeMode struct {
	strict     bool
	allowEmpty bool
}

// DecodeJSONBody decodes a strict JSON body and runs struct tag validation.
func DecodeJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, decodeMode{strict: true})
}

// DecodeJSONPayload decodes a body posted by the guest site. Unknown fields
// are ignored and an empty body leaves dest untouched.
func DecodeJSONPayload(r *http.Request, dest any) error {
	return decode(r, dest, decodeMode{allowEmpty: true})
}

func decode(r *http.Request, dest any, mode decodeMode) error {
	if r.Body == nil || r.Body == http.NoBody {
		if mode.allowEmpty {
			return Struct(dest)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	if mode.strict {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(dest)
	switch {
	case errors.Is(err, io.EOF) && mode.allowEmpty:
		return Struct(dest)
	case errors.Is(err, io.EOF):
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	case err != nil:
		return malformed(err)
	case dec.More():
		return malformed(errors.New("body must contain a single JSON value"))
	}
	return Struct(dest)
}

func malformed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

// Struct runs validate tags on dest and reports failures per JSON field.
func Struct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
