// Package validation binds request bodies and checks them against struct tags.
//
// Failures come back as Errors keyed by the JSON field name, each carrying
// client-facing messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/model"
)

// ErrMalformed is returned when the body cannot be decoded
var ErrMalformed = errors.New("malformed request body")

// Errors maps JSON field names to validation messages
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Validator implements echo.Validator on top of go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

// New returns a validator with the custom tags used by request types:
// unitname, level, date and bcrypt.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("unitname", func(fl validator.FieldLevel) bool {
		return model.UnitName(fl.Field().String()).Valid()
	})
	v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		return model.Level(fl.Field().String()).Valid()
	})
	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(model.DateLayout, fl.Field().String())
		return err == nil
	})

	v.RegisterValidation("bcrypt", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})

	return &Validator{validate: v}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := Errors{}
	for _, fe := range fieldErrs {
		out[fe.Field()] = append(out[fe.Field()], message(fe))
	}
	return out
}

// BindAndValidate decodes the request body into payload and validates it.
// Path and query parameters are not bound.
func BindAndValidate(c echo.Context, payload interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return c.Validate(payload)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "bcrypt":
		return fmt.Sprintf("Ensure this field has no more than %d bytes.", MaxPasswordBytes)
	case "unitname", "level":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	case "date":
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	default:
		return fmt.Sprintf("Failed on the %s rule.", fe.Tag())
	}
}
