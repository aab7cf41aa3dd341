package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// SelectOption is the placeholder shown first in every dropdown.
const SelectOption = "Select"

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"

	notSelectTag  = "notselect"
	notSelectText = "please select a value for {0}"

	consentedTag  = "consented"
	consentedText = "{0} must be accepted"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

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

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(notSelectTag, notSelectValidation)
	RegisterCustomTranslation(validate, translator, notSelectTag, notSelectText)

	_ = validate.RegisterValidation(consentedTag, consentedValidation)
	RegisterCustomTranslation(validate, translator, consentedTag, consentedText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
// `{0}` in text is replaced by the field name.
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

// RegisterParamTranslation is like RegisterCustomTranslation, but `{0}` is replaced by the tag param.
func RegisterParamTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Param())
			return s
		},
	)
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// notSelectValidation rejects the dropdown placeholder and empty values.
func notSelectValidation(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s != "" && s != SelectOption
}

func consentedValidation(fl validator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
}

// IsSelected reports whether a dropdown value was chosen.
func IsSelected(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != SelectOption
}

// TranslateErrors converts validator errors into field errors, using msgs[<field>.<tag>]
// when present and the translator otherwise.
func TranslateErrors(err error, translator ut.Translator, msgs map[string]string) []FieldError {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Error: err.Error()}}
	}
	fields := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		msg, ok := msgs[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Translate(translator)
		}
		fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return fields
}
