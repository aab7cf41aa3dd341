package enrolment

import (
	"fmt"
	"image"
	"image/color"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
)

var (
	emailLocalRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+-]{1,64}$`)
	emailDomainRegex   = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)
	emailTLDRegex      = regexp.MustCompile(`^[A-Za-z]{2,}$`)
	emailConsecutive   = regexp.MustCompile(`[._%+-]{2}`)
	emailLocalSpecials = "._%+-"

	earliestDOB = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

	// mockable in tests
	nowFunc = time.Now
)

// phone messages
const (
	phoneDigitsText = "Phone number must contain only digits after the dialing code."
	phonePrefixText = "Phone number must start with {0}."
	phoneLengthText = "Phone number must be between {0} digits long (excluding country code)."
)

// validation tags
const (
	applicantEmailTag = "applicant_email"
	dobRangeTag       = "dob_range"
	countryTag        = "country"
	nationalityTag    = "nationality"
	phoneDigitsTag    = "phone_digits"
	phonePrefixTag    = "phone_prefix"
	phoneLengthTag    = "phone_length"
)

type (
	// PhoneRules toggles the optional phone checks.
	PhoneRules struct {
		CheckPrefix bool
		CheckLength bool
		MinDigits   int
		MaxDigits   int
	}

	// Rules are the configurable parts of the step predicates.
	Rules struct {
		MinimumAge int
		Phone      PhoneRules
		Background color.Color // signature surface
	}

	// PhoneError is a phone format failure. Tag and Param identify the failed check.
	PhoneError struct {
		Tag   string
		Param string
	}
)

func (err PhoneError) Error() string {
	switch err.Tag {
	case phonePrefixTag:
		return strings.Replace(phonePrefixText, "{0}", err.Param, 1)
	case phoneLengthTag:
		return strings.Replace(phoneLengthText, "{0}", err.Param, 1)
	}
	return phoneDigitsText
}

// DefaultRules matches the default configuration.
func DefaultRules() Rules {
	return Rules{
		MinimumAge: 14,
		Phone:      PhoneRules{MinDigits: 10, MaxDigits: 15},
		Background: color.White,
	}
}

// RulesFromConfig reads the wizard and phone settings.
func RulesFromConfig(conf *core.Config) (Rules, error) {
	bg, err := ParseHexColor(conf.Wizard.SignatureBackground)
	if err != nil {
		return Rules{}, errors.Wrap(err, "wizard.signatureBackground")
	}
	return Rules{
		MinimumAge: conf.Wizard.MinimumAge,
		Phone: PhoneRules{
			CheckPrefix: conf.Phone.CheckPrefix,
			CheckLength: conf.Phone.CheckLength,
			MinDigits:   conf.Phone.MinDigits,
			MaxDigits:   conf.Phone.MaxDigits,
		},
		Background: bg,
	}, nil
}

// ValidEmail checks the address format. The local part is 1-64 characters of
// [A-Za-z0-9._%+-] that neither starts nor ends with one of ._%+-; the domain is
// made of [A-Za-z0-9.-] without a leading or trailing dot or hyphen and ends with
// a top-level domain of at least 2 letters. Two special characters never follow each other.
func ValidEmail(email string) bool {
	local, domain, ok := splitEmail(email)
	if !ok || !emailLocalRegex.MatchString(local) || emailConsecutive.MatchString(email) {
		return false
	}
	if strings.ContainsAny(local[:1], emailLocalSpecials) || strings.ContainsAny(local[len(local)-1:], emailLocalSpecials) {
		return false
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return false
	}
	host, tld := domain[:dot], domain[dot+1:]
	if !emailDomainRegex.MatchString(host) || !emailTLDRegex.MatchString(tld) {
		return false
	}
	return !strings.HasPrefix(host, ".") && !strings.HasPrefix(host, "-") &&
		!strings.HasSuffix(host, ".") && !strings.HasSuffix(host, "-")
}

func splitEmail(email string) (local, domain string, ok bool) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ValidatePhone strips spaces and hyphens, splits off the dialing code and
// requires the remainder to be made of digits only. The prefix and length checks
// run only when enabled in rules.
func ValidatePhone(phone, dialingCode string, rules PhoneRules) error {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(phone)
	dialingCode = strings.TrimSpace(dialingCode)

	if rules.CheckPrefix && !strings.HasPrefix(phone, dialingCode) {
		return PhoneError{Tag: phonePrefixTag, Param: dialingCode}
	}
	number := strings.TrimPrefix(phone, dialingCode)
	if number == "" || strings.IndexFunc(number, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return PhoneError{Tag: phoneDigitsTag}
	}
	if rules.CheckLength && (len(number) < rules.MinDigits || len(number) > rules.MaxDigits) {
		return PhoneError{Tag: phoneLengthTag, Param: fmt.Sprintf("%d and %d", rules.MinDigits, rules.MaxDigits)}
	}
	return nil
}

// SignatureDrawn reports whether img holds at least one pixel that differs from the
// background. Fully transparent pixels count as background.
func SignatureDrawn(img image.Image, background color.Color) bool {
	if img == nil {
		return false
	}
	if v := reflect.ValueOf(img); v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}
	b := img.Bounds()
	if b.Empty() {
		return false
	}
	if background == nil {
		background = color.White
	}
	br, bg, bb, _ := background.RGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			// compare against the background composited at the same alpha
			if r != br*a/0xffff || g != bg*a/0xffff || bl != bb*a/0xffff {
				return true
			}
		}
	}
	return false
}

// ParseHexColor parses #RRGGBB or #RGB.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return nil, errors.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// newValidator returns a validator with the global tags plus the wizard tags,
// and its english translator.
func newValidator(cat *catalog.Catalog, rules Rules) (*validator.Validate, ut.Translator) {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	_ = validate.RegisterValidation(applicantEmailTag, func(fl validator.FieldLevel) bool {
		return ValidEmail(strings.TrimSpace(fl.Field().String()))
	})
	core.RegisterCustomTranslation(validate, translator, applicantEmailTag, "{0} must be a valid email address")

	_ = validate.RegisterValidation(dobRangeTag, func(fl validator.FieldLevel) bool {
		dob, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !dob.Before(earliestDOB) && !dob.After(latestDOB(rules.MinimumAge))
	})
	core.RegisterCustomTranslation(validate, translator, dobRangeTag, "{0} is out of range")

	_ = validate.RegisterValidation(countryTag, func(fl validator.FieldLevel) bool {
		return cat.HasCountry(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, countryTag, "{0} is not a known country")

	_ = validate.RegisterValidation(nationalityTag, func(fl validator.FieldLevel) bool {
		return cat.HasNationality(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, nationalityTag, "{0} is not a known nationality")

	core.RegisterCustomTranslation(validate, translator, phoneDigitsTag, phoneDigitsText)
	core.RegisterParamTranslation(validate, translator, phonePrefixTag, phonePrefixText)
	core.RegisterParamTranslation(validate, translator, phoneLengthTag, phoneLengthText)

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(contactInput)
		if strings.TrimSpace(in.Phone) == "" {
			return
		}
		if err := ValidatePhone(in.Phone, in.DialingCode, rules.Phone); err != nil {
			pErr := err.(PhoneError)
			sl.ReportError(in.Phone, "phone", "Phone", pErr.Tag, pErr.Param)
		}
	}, contactInput{})

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(backgroundInput)
		if in.HighestEducation == OtherPleaseSpecify && strings.TrimSpace(in.OtherEducation) == "" {
			sl.ReportError(in.OtherEducation, "otherEducation", "OtherEducation", "notblank", "")
		}
	}, backgroundInput{})

	return validate, translator
}

// latestDOB is the last birth date old enough to enrol.
func latestDOB(minimumAge int) time.Time {
	today := dateOnly(nowFunc())
	return today.AddDate(-minimumAge, 0, 0)
}
