package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	itsTag   = "its"
	itsText  = "{0} must be exactly 8 digits"
	itsRegex = regexp.MustCompile(`^[0-9]{8}$`)

	dateTag  = "datetime"
	dateText = "{0} must be a date formatted as YYYY-MM-DD"

	requiredTag  = "required"
	requiredText = "this field is required"

	errInvalidInput = errors.New("invalid input")
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	enLocale := en.New()
	translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	validate = validator.New()
	InitValidators(validate, translator)
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(itsTag, itsValidation)
	RegisterCustomTranslation(validate, translator, itsTag, itsText)

	RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// itsValidation only allows ITS numbers: exactly 8 ASCII digits.
func itsValidation(fl validator.FieldLevel) bool {
	return itsRegex.MatchString(fl.Field().String())
}

// IsValidITS reports whether s is a well-formed ITS number.
func IsValidITS(s string) bool {
	return itsRegex.MatchString(s)
}

// Validate checks a struct against its `validate` tags and returns a *ValidationError
// carrying one translated message per failing field.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return NewValidationError(errInvalidInput, flds...)
}

// ValidateVar checks a single value against tag, reporting failures under field.
func ValidateVar(field string, value interface{}, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrs) == 0 {
		return err
	}
	// Var errors carry no field name, so the {0} placeholder renders empty.
	msg := strings.TrimSpace(vErrs[0].Translate(translator))
	if vErrs[0].Tag() != requiredTag {
		msg = field + " " + msg
	}
	return NewValidationError(errInvalidInput, FieldError{Field: field, Error: msg})
}

// ValidateITS checks the ITS number format.
func ValidateITS(itsNumber string) error {
	return ValidateVar("itsNumber", itsNumber, "required,its")
}

// ValidateDate checks a day-granularity date (YYYY-MM-DD).
func ValidateDate(date string) error {
	return ValidateVar("date", date, "required,datetime=2006-01-02")
}
