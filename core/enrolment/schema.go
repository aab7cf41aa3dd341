package enrolment

import (
	"time"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
)

// Field is the stable identifier of a top-level answer.
type Field string

const (
	FieldFullName            Field = "personalInfo"
	FieldDOB                 Field = "dob"
	FieldGender              Field = "gender"
	FieldCountry             Field = "country"
	FieldNationality         Field = "nationality"
	FieldPreferredLanguage   Field = "preferredLanguage"
	FieldEmail               Field = "email"
	FieldPhone               Field = "phone"
	FieldCurrentInstitution  Field = "currentInstitution"
	FieldHighestEducation    Field = "highestEducation"
	FieldOtherEducation      Field = "otherEducation"
	FieldAccredited          Field = "accreditedQualifications"
	FieldIndustryExperience  Field = "industryExperience"
	FieldCurrentRole         Field = "currentRole"
	FieldCVPortfolio         Field = "cvPortfolio"
	FieldSupportingDocuments Field = "supportingDocuments"
	FieldPreferredStartDate  Field = "preferredStartDate"
	FieldLearningPreferences Field = "learningPreferences"
	FieldSpecialRequirements Field = "specialRequirements"
	FieldEmergencyContact    Field = "emergencyContact"
	FieldConsent             Field = "consent"
	FieldDigitalMediaConsent Field = "digitalMediaConsent"
)

// Kind is the value type of a field.
//
//	text, choice: string
//	date: time.Time (zero when unset)
//	bool: bool
//	multichoice: []string
//	uploads: []Upload
type Kind string

const (
	KindText        Kind = "text"
	KindDate        Kind = "date"
	KindBool        Kind = "bool"
	KindChoice      Kind = "choice"
	KindMultiChoice Kind = "multichoice"
	KindUploads     Kind = "uploads"
)

const OtherPleaseSpecify = "Other (please specify)"

var (
	genderOptions    = []string{"Male", "Female", "Other"}
	educationOptions = []string{
		"High School Diploma",
		"Bachelor's Degree",
		"Master's Degree",
		"Doctorate",
		OtherPleaseSpecify,
	}
	experienceOptions = []string{
		"Less than 1 year",
		"1–2 years",
		"3–5 years",
		"More than 5 years",
	}
	startDateOptions = []string{"ASAP", "1 to 2 months", "2 to 4 months", "6 months +"}
)

// FieldSpec declares a field once: its default, type, label and options.
type FieldSpec struct {
	Name     Field
	Label    string
	Kind     Kind
	Required bool
	Default  interface{}
	// options of choice fields, without the Select placeholder
	Options func(cat *catalog.Catalog) []string
}

func static(opts []string) func(*catalog.Catalog) []string {
	return func(*catalog.Catalog) []string { return opts }
}

var fieldSpecs = []FieldSpec{
	{Name: FieldFullName, Kind: KindText, Required: true, Default: "",
		Label: "Please enter your full name as it appears on your official documents."},
	{Name: FieldDOB, Kind: KindDate, Required: true, Label: "Date of Birth"},
	{Name: FieldGender, Kind: KindChoice, Required: true, Default: core.SelectOption,
		Label: "Please select your gender.", Options: static(genderOptions)},
	{Name: FieldCountry, Kind: KindChoice, Required: true, Default: core.SelectOption,
		Label: "Please select your country of residence:", Options: (*catalog.Catalog).CountryNames},
	{Name: FieldNationality, Kind: KindChoice, Required: true, Default: core.SelectOption,
		Label: "Please select your nationality:", Options: (*catalog.Catalog).Nationalities},
	{Name: FieldPreferredLanguage, Kind: KindText, Required: true, Default: "",
		Label: "Preferred Language of Communication:"},
	{Name: FieldEmail, Kind: KindText, Required: true, Default: "",
		Label: "Please enter your email address where we can reach you."},
	{Name: FieldPhone, Kind: KindText, Required: true, Default: "",
		Label: "Please enter your WhatsApp number (international format starting with your country's dialing code):"},
	{Name: FieldCurrentInstitution, Kind: KindText, Required: true, Default: "",
		Label: "Please enter the name of your current educational institution (if applicable, else put 'none'):"},
	{Name: FieldHighestEducation, Kind: KindChoice, Required: true, Default: core.SelectOption,
		Label: "Highest Level of Education:", Options: static(educationOptions)},
	{Name: FieldOtherEducation, Kind: KindText, Default: "",
		Label: "Please specify your highest level of education:"},
	{Name: FieldAccredited, Kind: KindText, Default: "",
		Label: "Accredited Qualifications (please specify the sector, if applicable):"},
	{Name: FieldIndustryExperience, Kind: KindChoice, Required: true, Default: core.SelectOption,
		Label: "Years of Professional Industry Work Experience:", Options: static(experienceOptions)},
	{Name: FieldCurrentRole, Kind: KindText, Required: true, Default: "",
		Label: "Current Role or Profession: (Indicate N/A if not working)"},
	{Name: FieldCVPortfolio, Kind: KindUploads, Label: "Upload CV or Portfolio (if applicable):"},
	{Name: FieldSupportingDocuments, Kind: KindUploads,
		Label: "Upload Supporting Documents (certificates, qualifications, etc.):"},
	{Name: FieldPreferredStartDate, Kind: KindChoice, Required: true, Default: core.SelectOption,
		Label: "Preferred Start Date/Timeline for Participation:", Options: static(startDateOptions)},
	{Name: FieldLearningPreferences, Kind: KindText, Required: true, Default: "",
		Label: "Please describe any learning preferences you have."},
	{Name: FieldSpecialRequirements, Kind: KindText, Required: true, Default: "",
		Label: "Please let us know if you have any special requirements."},
	{Name: FieldEmergencyContact, Kind: KindText, Required: true, Default: "",
		Label: "Please provide emergency contact details."},
	{Name: FieldConsent, Kind: KindBool, Required: true, Default: false,
		Label: "I consent to the collection and processing of my personal data according to AspireCraft’s privacy policy."},
	{Name: FieldDigitalMediaConsent, Kind: KindBool, Default: true,
		Label: "I consent to AspireCraft using my photos, videos, or digital media for promotional and educational purposes."},
}

var specsByName = func() map[Field]FieldSpec {
	m := make(map[Field]FieldSpec, len(fieldSpecs))
	for _, s := range fieldSpecs {
		m[s.Name] = s
	}
	return m
}()

// Spec returns the declaration of a field.
func Spec(f Field) (FieldSpec, bool) {
	s, ok := specsByName[f]
	return s, ok
}

// Fields returns every declared field, in form order.
func Fields() []FieldSpec { return fieldSpecs }

func defaultValues() map[Field]interface{} {
	vals := make(map[Field]interface{}, len(fieldSpecs))
	for _, s := range fieldSpecs {
		vals[s.Name] = zeroValue(s.Kind, s.Default)
	}
	return vals
}

func zeroValue(kind Kind, def interface{}) interface{} {
	if def != nil {
		if list, ok := def.([]string); ok {
			return append([]string(nil), list...)
		}
		return def
	}
	switch kind {
	case KindText, KindChoice:
		return ""
	case KindDate:
		return time.Time{}
	case KindBool:
		return false
	case KindMultiChoice:
		return []string{}
	case KindUploads:
		return []Upload{}
	}
	return nil
}
