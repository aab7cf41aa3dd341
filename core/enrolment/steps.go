package enrolment

import (
	"strings"
	"time"

	"github.com/aspirecraft/enrolment/core"
)

// Step is a page of the wizard.
type Step int

const (
	StepWelcome Step = iota + 1
	StepPersonal
	StepDateOfBirth
	StepGender
	StepResidence
	StepContact
	StepBackground
	StepServices
	StepCVPortfolio
	StepSupportingDocuments
	StepAdditional
	StepSignature
	StepReview
	StepThankYou
)

const TotalSteps = int(StepThankYou)

// ReviewNotice is shown on the review page.
const ReviewNotice = "If you go back, you will have to re-sign the form."

type page struct {
	title  string
	fields []Field
	next   Step // 0: no Next action
	// check returns every unmet condition; nil for pages without requirements
	check func(c *Controller, st *State) []core.FieldError
}

var pages = map[Step]page{
	StepWelcome:     {title: "WELCOME TO ASPIRECRAFT!", next: StepPersonal},
	StepPersonal:    {title: "Personal Information", fields: []Field{FieldFullName}, next: StepDateOfBirth, check: checkPersonal},
	StepDateOfBirth: {title: "Date of Birth", fields: []Field{FieldDOB}, next: StepGender, check: checkDateOfBirth},
	StepGender:      {title: "Gender", fields: []Field{FieldGender}, next: StepResidence, check: checkGender},
	StepResidence: {
		title:  "Country of Residence, Nationality, and Preferred Language",
		fields: []Field{FieldCountry, FieldNationality, FieldPreferredLanguage},
		next:   StepContact,
		check:  checkResidence,
	},
	StepContact: {title: "Contact Information", fields: []Field{FieldEmail, FieldPhone}, next: StepBackground, check: checkContact},
	StepBackground: {
		title: "Educational and Professional Background",
		fields: []Field{
			FieldCurrentInstitution, FieldHighestEducation, FieldOtherEducation,
			FieldAccredited, FieldIndustryExperience, FieldCurrentRole,
		},
		next:  StepServices,
		check: checkBackground,
	},
	// the services page jumps straight to the additional information page
	StepServices:            {title: "Select Services", next: StepAdditional, check: checkServices},
	StepCVPortfolio:         {title: "Supporting Documents (Optional)", fields: []Field{FieldCVPortfolio}, next: StepSupportingDocuments},
	StepSupportingDocuments: {title: "Supporting Documents (Optional)", fields: []Field{FieldSupportingDocuments}, next: StepAdditional},
	StepAdditional: {
		title: "Additional Information",
		fields: []Field{
			FieldPreferredStartDate, FieldLearningPreferences, FieldSpecialRequirements,
			FieldEmergencyContact, FieldConsent, FieldDigitalMediaConsent,
		},
		next:  StepSignature,
		check: checkAdditional,
	},
	StepSignature: {title: "Signature", next: StepReview, check: checkSignature},
	StepReview:    {title: "Final Review"},
	StepThankYou:  {title: "Thank You!"},
}

// Valid reports whether s is a wizard step.
func (s Step) Valid() bool { return s >= StepWelcome && s <= StepThankYou }

// Title is the page heading of s.
func (s Step) Title() string { return pages[s].title }

// Successor is the step Next leads to, 0 when s has no Next action.
func (s Step) Successor() Step { return pages[s].next }

// Progress is the completion percentage shown on s.
func (s Step) Progress() int { return int(s) * 100 / TotalSteps }

// Fields are the top-level fields edited on s.
func (s Step) Fields() []Field { return pages[s].fields }

func (s Step) edits(f Field) bool {
	for _, pf := range pages[s].fields {
		if pf == f {
			return true
		}
	}
	return false
}

// step inputs, validated with the wizard validator

type personalInput struct {
	FullName string `json:"personalInfo" validate:"notblank"`
}

type dobInput struct {
	DOB time.Time `json:"dob" validate:"required,dob_range"`
}

type genderInput struct {
	Gender string `json:"gender" validate:"notselect"`
}

type residenceInput struct {
	Country           string `json:"country" validate:"notselect,country"`
	Nationality       string `json:"nationality" validate:"notselect,nationality"`
	PreferredLanguage string `json:"preferredLanguage" validate:"notblank"`
}

type contactInput struct {
	Email       string `json:"email" validate:"notblank,applicant_email"`
	Phone       string `json:"phone" validate:"notblank"`
	DialingCode string `json:"-"`
}

type backgroundInput struct {
	CurrentInstitution string `json:"currentInstitution" validate:"notblank"`
	HighestEducation   string `json:"highestEducation" validate:"notselect"`
	OtherEducation     string `json:"otherEducation"`
	IndustryExperience string `json:"industryExperience" validate:"notselect"`
	CurrentRole        string `json:"currentRole" validate:"notblank"`
}

type additionalInput struct {
	PreferredStartDate  string `json:"preferredStartDate" validate:"notselect"`
	LearningPreferences string `json:"learningPreferences" validate:"notblank"`
	SpecialRequirements string `json:"specialRequirements" validate:"notblank"`
	EmergencyContact    string `json:"emergencyContact" validate:"notblank"`
	Consent             bool   `json:"consent" validate:"consented"`
}

// stepMessages are the user-facing messages, keyed by <field>.<tag>.
var stepMessages = map[string]string{
	"personalInfo.notblank":        "Please enter your full name before proceeding.",
	"dob.required":                 "Please select your date of birth before proceeding.",
	"dob.dob_range":                "Your date of birth must be between 01-01-1900 and {latest}.",
	"gender.notselect":             "Please select your gender before proceeding.",
	"country.notselect":            "Please select your country of residence before proceeding.",
	"country.country":              "Please select a country of residence from the list.",
	"nationality.notselect":        "Please select your nationality before proceeding.",
	"nationality.nationality":      "Please select a nationality from the list.",
	"preferredLanguage.notblank":   "Please enter your preferred language of communication before proceeding.",
	"email.notblank":               "Please enter your email address before proceeding.",
	"email.applicant_email":        "Please enter a valid email address.",
	"phone.notblank":               "Please enter your WhatsApp number before proceeding.",
	"currentInstitution.notblank":  "Please enter your current educational institution (or 'none') before proceeding.",
	"highestEducation.notselect":   "Please select your highest level of education before proceeding.",
	"otherEducation.notblank":      "Please specify your highest level of education before proceeding.",
	"industryExperience.notselect": "Please select your years of professional industry work experience before proceeding.",
	"currentRole.notblank":         "Please enter your current role or profession (N/A if not working) before proceeding.",
	"preferredStartDate.notselect": "Please select your preferred start date before proceeding.",
	"learningPreferences.notblank": "Please describe your learning preferences before proceeding.",
	"specialRequirements.notblank": "Please let us know about any special requirements (or 'none') before proceeding.",
	"emergencyContact.notblank":    "Please provide emergency contact details before proceeding.",
	"consent.consented":            "Please consent to the processing of your personal data before proceeding.",
	"subjectAreas.min":             "Please select at least one subject area before proceeding.",
	"signature.drawn":              "Please provide your signature before proceeding.",
}

func (c *Controller) validateInput(in interface{}) []core.FieldError {
	if err := c.validate.Struct(in); err != nil {
		return core.TranslateErrors(err, c.translator, stepMessages)
	}
	return nil
}

func checkPersonal(c *Controller, st *State) []core.FieldError {
	return c.validateInput(personalInput{FullName: st.Text(FieldFullName)})
}

func checkDateOfBirth(c *Controller, st *State) []core.FieldError {
	dob, _ := st.Date(FieldDOB)
	errs := c.validateInput(dobInput{DOB: dob})
	for i := range errs {
		errs[i].Error = strings.Replace(errs[i].Error, "{latest}", latestDOB(c.rules.MinimumAge).Format(dateFormat), 1)
	}
	return errs
}

func checkGender(c *Controller, st *State) []core.FieldError {
	return c.validateInput(genderInput{Gender: st.Text(FieldGender)})
}

func checkResidence(c *Controller, st *State) []core.FieldError {
	return c.validateInput(residenceInput{
		Country:           st.Text(FieldCountry),
		Nationality:       st.Text(FieldNationality),
		PreferredLanguage: st.Text(FieldPreferredLanguage),
	})
}

func checkContact(c *Controller, st *State) []core.FieldError {
	code, _ := c.cat.DialingCode(st.Text(FieldCountry))
	return c.validateInput(contactInput{
		Email:       st.Text(FieldEmail),
		Phone:       st.Text(FieldPhone),
		DialingCode: code,
	})
}

func checkBackground(c *Controller, st *State) []core.FieldError {
	return c.validateInput(backgroundInput{
		CurrentInstitution: st.Text(FieldCurrentInstitution),
		HighestEducation:   st.Text(FieldHighestEducation),
		OtherEducation:     st.Text(FieldOtherEducation),
		IndustryExperience: st.Text(FieldIndustryExperience),
		CurrentRole:        st.Text(FieldCurrentRole),
	})
}

func checkServices(c *Controller, st *State) []core.FieldError {
	if len(st.SubjectAreas) == 0 {
		return []core.FieldError{{Field: "subjectAreas", Error: stepMessages["subjectAreas.min"]}}
	}
	return c.subjects.Resolve(st)
}

func checkAdditional(c *Controller, st *State) []core.FieldError {
	return c.validateInput(additionalInput{
		PreferredStartDate:  st.Text(FieldPreferredStartDate),
		LearningPreferences: st.Text(FieldLearningPreferences),
		SpecialRequirements: st.Text(FieldSpecialRequirements),
		EmergencyContact:    st.Text(FieldEmergencyContact),
		Consent:             st.Bool(FieldConsent),
	})
}

func checkSignature(c *Controller, st *State) []core.FieldError {
	if st.Signature == nil || !SignatureDrawn(st.Signature, c.rules.Background) {
		return []core.FieldError{{Field: "signature", Error: stepMessages["signature.drawn"]}}
	}
	return nil
}
