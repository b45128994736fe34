package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/store"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// bcrypt only looks at the first 72 bytes and rejects anything longer.
const (
	minPasswordRunes = 8
	maxPasswordBytes = 72
)

// Validator checks model structs against their validate tags.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = fld.Tag.Get("db")
		}
		return name
	})

	// the zero UUID counts as missing
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		id, ok := field.Interface().(uuid.UUID)
		if !ok || id == uuid.Nil {
			return ""
		}
		return id.String()
	}, uuid.UUID{})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) >= 2 && slugPattern.MatchString(s)
	})

	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return validPassword(fl.Field().String())
	})

	return &Validator{v: v}
}

func validPassword(s string) bool {
	return utf8.RuneCountInString(s) >= minPasswordRunes && len(s) <= maxPasswordBytes
}

// Struct validates s and returns an error wrapping store.ErrValidation that
// lists every failing field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return fmt.Errorf("%w: %s", store.ErrValidation, strings.Join(msgs, "; "))
}

func passwordRule(field string) string {
	return fmt.Sprintf("%s must be at least %d characters and at most %d bytes", field, minPasswordRunes, maxPasswordBytes)
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "password":
		return passwordRule(field)
	case "slug":
		return field + " must be 2-63 lowercase letters, digits or dashes"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
