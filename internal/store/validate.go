package store

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/pkg/errors"
)

// A Validator checks struct tags and reports the first violation as a ValidationError.
// It implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator that names fields after their json tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks the given struct.
func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return errors.Wrap(err, "could not validate")
	}

	fe := ve[0]
	var message string
	switch fe.Tag() {
	case "required":
		message = fmt.Sprintf("%s is required.", fe.Field())
	case "contains", "email":
		message = fmt.Sprintf("%s must be a valid email address.", fe.Field())
	case "min":
		message = fmt.Sprintf("%s must be at least %s characters long.", fe.Field(), fe.Param())
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters long.", fe.Field(), fe.Param())
	case "url", "http_url":
		message = fmt.Sprintf("%s must be a valid URL.", fe.Field())
	default:
		message = fmt.Sprintf("%s is invalid.", fe.Field())
	}
	return apperror.New(apperror.ValidationError, message)
}
