// Package validation wires go-playground/validator with English messages and
// JSON field names so request errors can be reported field by field.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
)

const trimmedMinTag = "trimmed_min"

// Validator bundles the validator instance with its translator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator that reports JSON field names.
func New() *Validator {
	validate := validator.New()
	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v := &Validator{validate: validate, translator: translator}
	v.registerTrimmedMin()
	return v
}

// Engine exposes the underlying validator for services that validate directly.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Struct validates s and converts failures into a VALIDATION_ERROR with field messages.
func (v *Validator) Struct(s interface{}, message string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return v.Translate(err, message)
}

// Translate converts validator errors into an application error.
func (v *Validator) Translate(err error, message string) error {
	if message == "" {
		message = appErrors.ErrValidation.Message
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = fe.Translate(v.translator)
	}
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	appErr.Fields = fields
	return appErr
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

// trimmed_min=N behaves like min but ignores surrounding whitespace.
func (v *Validator) registerTrimmedMin() {
	_ = v.validate.RegisterValidation(trimmedMinTag, func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		limit := 0
		for _, r := range fl.Param() {
			if r < '0' || r > '9' {
				return false
			}
			limit = limit*10 + int(r-'0')
		}
		return len([]rune(strings.TrimSpace(field.String()))) >= limit
	})
	_ = v.validate.RegisterTranslation(trimmedMinTag, v.translator,
		func(t ut.Translator) error {
			return t.Add(trimmedMinTag, "{0} must be at least {1} characters long", false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(trimmedMinTag, fe.Field(), fe.Param())
			return msg
		},
	)
}
