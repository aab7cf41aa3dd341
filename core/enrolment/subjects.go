package enrolment

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
)

// SubjectArea is a selectable programme or service.
type SubjectArea string

const (
	AreaUniversitySuccess  SubjectArea = "University Success (Admissions Support)"
	AreaICAN               SubjectArea = "International Career Advice and Navigation (ICAN)"
	AreaFunctionalSkills   SubjectArea = "Functional Skills Commerce"
	AreaTeachingAssessment SubjectArea = "Teaching and Assessment Programme"
	AreaAccreditedCourses  SubjectArea = "International Accredited Courses"
	AreaSummerInternship   SubjectArea = "Summer International Internship Programme"
	AreaIELTS              SubjectArea = "IELTS"
	AreaCPDCourses         SubjectArea = "CPD Courses"
	AreaBusinessIncubation SubjectArea = "Business Incubation Services"
)

const experiencePath = "More than 2 years of professional industry work experience"

var (
	courseLevels  = []string{"Foundation", "Undergraduate", "Pre-Masters", "Postgraduate", "PhD & Research", "Professional development"}
	learningModes = []string{"Online", "Blended", "On-Campus"}
	icanReasons   = []string{
		"Career exploration and development",
		"CV building and job placement support",
		"Personalized career diagnostics",
	}
	functionalReasons = []string{
		"To improve workplace communication and productivity.",
		"To meet employer expectations for functional skills.",
		"To access better employment opportunities.",
	}
	qualificationPaths = []string{"An accredited qualification", experiencePath}
	vocationalSectors  = []string{
		"Health & Social Care",
		"Construction & Engineering",
		"Business & Administration",
		"Digital & IT",
		"Education & Training",
		"Retail & Customer Service",
		"Hospitality & Tourism",
		"Creative Arts & Media",
		OtherPleaseSpecify,
	}
	accreditationSectors = []string{
		"Health, public services and care",
		"Construction, planning and the built environment",
		"Information and communication technology",
		"Arts, media and publishing",
		"Education and training",
		"Preparation for Life and Work",
		"Business, administration and law",
	}
	internshipPackages = []string{"Basic", "Premium"}
	cohortDates        = []string{"15th July 2025", "29th July 2025", "12th August 2025", "26th August 2025"}
	internshipReasons  = []string{
		"To gain hands-on work experience in UK hospitals or allied sectors.",
		"To enhance employability with practical international exposure.",
		"To participate in cultural and professional development activities.",
	}
	ieltsReasons = []string{
		"Higher Education Abroad: Admission to universities or colleges in English-speaking countries.",
		"Immigration: Meeting language requirements for migration to countries like the UK, Canada, or Australia.",
		"Professional Registration: Certification for professions such as nursing, engineering, or accounting.",
		"Employment: Enhancing job prospects in international or English-speaking environments.",
		"Personal Development: Assessing and improving English language proficiency for personal growth.",
	}
	businessServices = []string{
		"MVP Testing: Minimal Viable Product testing and validation.",
		"Business Plan Review: Expert feedback on your business plan.",
		"Market Gap Analysis: Identifying opportunities in your target market.",
		"Workforce Development: Training and support for building your team.",
		"Growth Management: Strategies for scaling and managing business growth.",
	}
)

type (
	// SubField is one input of a sub-form.
	SubField struct {
		Key      string
		Label    string // input label
		DocLabel string // label in the submission document
		Kind     Kind
		Default  interface{}
		Options  func(cat *catalog.Catalog, draft Answers) []string
		Visible  func(draft Answers) bool // nil: always visible
		Optional bool                     // only rendered when set
	}

	// SubForm is the sub-schema of one subject area. Its rule only ever looks at its own draft.
	SubForm struct {
		Area      SubjectArea
		Fields    []SubField
		rule      func(c *subChecker, draft Answers)
		normalize func(cat *catalog.Catalog, draft Answers, changed string)
	}

	// subChecker collects every failure of one area.
	subChecker struct {
		validate *validator.Validate
		area     SubjectArea
		errs     []core.FieldError
	}
)

func (c *subChecker) check(key string, value interface{}, tag, msg string) bool {
	if err := c.validate.Var(value, tag); err != nil {
		c.errs = append(c.errs, core.FieldError{
			Field: subFieldName(c.area, key),
			Error: fmt.Sprintf("[%s] %s", c.area, msg),
		})
		return false
	}
	return true
}

func subFieldName(area SubjectArea, key string) string {
	return fmt.Sprintf("subForms[%s].%s", area, key)
}

func staticSub(opts []string) func(*catalog.Catalog, Answers) []string {
	return func(*catalog.Catalog, Answers) []string { return opts }
}

func choice(key, label, docLabel string, opts []string) SubField {
	return SubField{Key: key, Label: label, DocLabel: docLabel, Kind: KindChoice, Default: core.SelectOption, Options: staticSub(opts)}
}

var subForms = map[SubjectArea]SubForm{
	AreaUniversitySuccess: {
		Fields: []SubField{
			choice("course_level", "Please select your course level.", "Course Level", courseLevels),
			choice("learning_mode", "Please select the learning mode.", "Learning Mode", learningModes),
		},
		rule: func(c *subChecker, d Answers) {
			c.check("course_level", d.Text("course_level"), "notselect", "Please select the course level before proceeding.")
			c.check("learning_mode", d.Text("learning_mode"), "notselect", "Please select the learning mode before proceeding.")
		},
	},
	AreaICAN: {
		Fields: []SubField{
			{Key: "career_goals", Kind: KindText, Default: "", DocLabel: "Career Goals",
				Label: "Career Goals: Outline your career aspirations and sectors of interest:"},
			choice("reason_for_interest", "Reason for Interest:", "Reason for Interest", icanReasons),
		},
		rule: func(c *subChecker, d Answers) {
			c.check("career_goals", d.Text("career_goals"), "notblank", "Please outline your career goals before proceeding.")
			c.check("reason_for_interest", d.Text("reason_for_interest"), "notselect", "Please select your reason for interest before proceeding.")
		},
	},
	AreaFunctionalSkills: {
		Fields: []SubField{
			{Key: "current_role", Kind: KindText, Default: "", DocLabel: "Current Role",
				Label: "Please specify your position (e.g., migrant worker, business owner):"},
			choice("reason_for_interest", "Reason for Interest:", "Reason for Interest", functionalReasons),
		},
		rule: func(c *subChecker, d Answers) {
			c.check("current_role", d.Text("current_role"), "notblank", "Please specify your current role before proceeding.")
			c.check("reason_for_interest", d.Text("reason_for_interest"), "notselect", "Please select a reason for interest before proceeding.")
		},
	},
	AreaTeachingAssessment: {
		Fields: []SubField{
			choice("qualification_or_experience", "Please choose one of the following:", "Qualification or Experience", qualificationPaths),
			{Key: "vocational_sector", Kind: KindChoice, Default: core.SelectOption, DocLabel: "Vocational Sector",
				Label:   "Please select your professional vocational sector:",
				Options: staticSub(vocationalSectors),
				Visible: func(d Answers) bool { return d.Text("qualification_or_experience") == experiencePath }},
			{Key: "vocational_other", Kind: KindText, Default: "", DocLabel: "Other Vocational Sector", Optional: true,
				Label:   "Please specify your vocational sector:",
				Visible: func(d Answers) bool { return d.Text("vocational_sector") == OtherPleaseSpecify }},
		},
		rule: func(c *subChecker, d Answers) {
			if !c.check("qualification_or_experience", d.Text("qualification_or_experience"), "notselect",
				"Please select an option (accredited qualification or industry experience).") {
				return
			}
			if d.Text("qualification_or_experience") != experiencePath {
				return
			}
			msg := "Please select your vocational sector and specify if applicable."
			if c.check("vocational_sector", d.Text("vocational_sector"), "notselect", msg) &&
				d.Text("vocational_sector") == OtherPleaseSpecify {
				c.check("vocational_other", d.Text("vocational_other"), "notblank", msg)
			}
		},
		normalize: func(_ *catalog.Catalog, d Answers, _ string) {
			if d.Text("qualification_or_experience") != experiencePath {
				d["vocational_sector"] = core.SelectOption
			}
			if d.Text("vocational_sector") != OtherPleaseSpecify {
				d["vocational_other"] = ""
			}
		},
	},
	AreaAccreditedCourses: {
		Fields: []SubField{
			choice("sector_accreditation", "Which sector do you wish to achieve accreditation?", "Sector Accreditation", accreditationSectors),
		},
		rule: func(c *subChecker, d Answers) {
			c.check("sector_accreditation", d.Text("sector_accreditation"), "notselect", "Please select a sector before proceeding.")
		},
	},
	AreaSummerInternship: {
		Fields: []SubField{
			choice("internship_package", "Which package you are interested in? (Basic or Premium)", "Internship Package", internshipPackages),
			choice("cohort_date", "Which cohort date would you like to be part of?", "Cohort Date", cohortDates),
			choice("reason_for_interest", "Please select your reason for interest:", "Reason for Interest", internshipReasons),
		},
		rule: func(c *subChecker, d Answers) {
			c.check("internship_package", d.Text("internship_package"), "notselect", "Please select a package (Basic or Premium) before proceeding.")
			c.check("cohort_date", d.Text("cohort_date"), "notselect", "Please select a cohort date before proceeding.")
			c.check("reason_for_interest", d.Text("reason_for_interest"), "notselect", "Please select a reason for interest before proceeding.")
		},
	},
	AreaIELTS: {
		Fields: []SubField{
			choice("ielts_reason", "Please select your primary reason for taking the IELTS exam:", "IELTS Reason", ieltsReasons),
		},
		rule: func(c *subChecker, d Answers) {
			c.check("ielts_reason", d.Text("ielts_reason"), "notselect", "Please select your reason for taking the IELTS exam before proceeding.")
		},
	},
	AreaCPDCourses: {
		Fields: []SubField{
			{Key: "category", Kind: KindChoice, Default: core.SelectOption, DocLabel: "Category",
				Label:   "Please select the course category.",
				Options: func(cat *catalog.Catalog, _ Answers) []string { return cat.Categories() }},
			{Key: "courses", Kind: KindMultiChoice, DocLabel: "Courses",
				Label: "Please select your courses.",
				Options: func(cat *catalog.Catalog, d Answers) []string {
					return cat.Courses(d.Text("category"))
				},
				Visible: func(d Answers) bool { return core.IsSelected(d.Text("category")) }},
			{Key: "learning_mode_cpd", Kind: KindChoice, Default: "Online", DocLabel: "Learning Mode",
				Label: "Please select your preferred mode of learning.", Options: staticSub(learningModes)},
		},
		rule: func(c *subChecker, d Answers) {
			c.check("category", d.Text("category"), "notselect", "Please select the course category before proceeding.")
			c.check("courses", d.Strings("courses"), "min=1", "Please select your courses before proceeding.")
			c.check("learning_mode_cpd", d.Text("learning_mode_cpd"), "notselect", "Please select your preferred mode of learning before proceeding.")
		},
		normalize: func(_ *catalog.Catalog, d Answers, changed string) {
			if changed == "category" {
				d["courses"] = []string{}
			}
		},
	},
	AreaBusinessIncubation: {
		Fields: []SubField{
			{Key: "business_services", Kind: KindMultiChoice, DocLabel: "Business Services",
				Label: "Please select the services you are interested in:", Options: staticSub(businessServices)},
		},
		rule: func(c *subChecker, d Answers) {
			c.check("business_services", d.Strings("business_services"), "min=1", "Please select at least one service to proceed.")
		},
	},
}

func init() {
	for area, form := range subForms {
		form.Area = area
		subForms[area] = form
	}
}

// Resolver evaluates the sub-form of each selected subject area independently.
type Resolver struct {
	cat      *catalog.Catalog
	validate *validator.Validate
}

func NewResolver(cat *catalog.Catalog, validate *validator.Validate) *Resolver {
	return &Resolver{cat: cat, validate: validate}
}

// Form returns the sub-form of area. Areas without one have no fields.
func (r *Resolver) Form(area SubjectArea) SubForm {
	if form, ok := subForms[area]; ok {
		return form
	}
	return SubForm{Area: area}
}

// NewDraft returns the default answers of area.
func (r *Resolver) NewDraft(area SubjectArea) Answers {
	form := r.Form(area)
	draft := make(Answers, len(form.Fields))
	for _, f := range form.Fields {
		draft[f.Key] = zeroValue(f.Kind, f.Default)
	}
	return draft
}

// Options returns the choices of a sub-field given the current draft.
func (r *Resolver) Options(f SubField, draft Answers) []string {
	if f.Options == nil {
		return nil
	}
	return f.Options(r.cat, draft)
}

// SetField stores one sub-answer after checking its type and options.
func (r *Resolver) SetField(draft Answers, area SubjectArea, key string, value interface{}) error {
	form := r.Form(area)
	var field *SubField
	for i := range form.Fields {
		if form.Fields[i].Key == key {
			field = &form.Fields[i]
			break
		}
	}
	name := subFieldName(area, key)
	if field == nil {
		return core.NewValidationError(nil, core.FieldError{Field: name, Error: fmt.Sprintf("[%s] unknown field %q", area, key)})
	}

	val, err := coerce(field.Kind, value)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: name, Error: err.Error()})
	}
	if field.Options != nil {
		if fErr := checkOptions(name, field.Kind, val, r.Options(*field, draft)); fErr != nil {
			return core.NewValidationError(nil, *fErr)
		}
	}

	draft[key] = val
	if form.normalize != nil {
		form.normalize(r.cat, draft, key)
	}
	return nil
}

// Finalize runs the rule of area against draft. On success it returns a copy
// holding exactly the keys of the sub-form that are visible for draft.
func (r *Resolver) Finalize(area SubjectArea, draft Answers) (Answers, []core.FieldError) {
	form := r.Form(area)
	if form.rule != nil {
		chk := &subChecker{validate: r.validate, area: area}
		form.rule(chk, draft)
		if len(chk.errs) > 0 {
			return nil, chk.errs
		}
	}
	final := make(Answers, len(form.Fields))
	for _, f := range form.Fields {
		if f.Visible != nil && !f.Visible(draft) {
			continue
		}
		if v, ok := draft[f.Key]; ok {
			final[f.Key] = v
		} else {
			final[f.Key] = zeroValue(f.Kind, f.Default)
		}
	}
	return final.Clone(), nil
}

// Resolve evaluates every selected area, storing answers for those that pass and
// evicting those that fail. It returns every failure of every area.
func (r *Resolver) Resolve(st *State) []core.FieldError {
	var errs []core.FieldError
	for _, area := range st.SubjectAreas {
		draft, ok := st.SubForms[area]
		if !ok {
			draft = r.NewDraft(area)
			st.SubForms[area] = draft
		}
		final, fErrs := r.Finalize(area, draft)
		if len(fErrs) > 0 {
			delete(st.Answers, area)
			errs = append(errs, fErrs...)
			continue
		}
		st.Answers[area] = final
	}
	return errs
}

// SelectAreas replaces the selection. Deselected areas lose their finalized answers;
// drafts are kept so that re-selecting an area restores its inputs.
func (r *Resolver) SelectAreas(st *State, areas []SubjectArea) error {
	var (
		selected = make([]SubjectArea, 0, len(areas))
		seen     = make(map[SubjectArea]bool, len(areas))
		fErrs    []core.FieldError
	)
	for _, a := range areas {
		a = SubjectArea(strings.TrimSpace(string(a)))
		if seen[a] {
			continue
		}
		if !r.cat.HasSubjectArea(string(a)) {
			fErrs = append(fErrs, unknownOption("subjectAreas", string(a), r.cat.SubjectAreas()))
			continue
		}
		seen[a] = true
		selected = append(selected, a)
	}
	if len(fErrs) > 0 {
		return core.NewValidationError(nil, fErrs...)
	}

	for area := range st.Answers {
		if !seen[area] {
			delete(st.Answers, area)
		}
	}
	for _, a := range selected {
		if _, ok := st.SubForms[a]; !ok {
			st.SubForms[a] = r.NewDraft(a)
		}
	}
	st.SubjectAreas = selected
	return nil
}

// checkOptions validates a choice or multichoice value against its options.
// The Select placeholder and the empty value are always accepted for single choices.
func checkOptions(name string, kind Kind, val interface{}, opts []string) *core.FieldError {
	switch kind {
	case KindChoice:
		s := val.(string)
		if !core.IsSelected(s) || contains(opts, s) {
			return nil
		}
		fErr := unknownOption(name, s, opts)
		return &fErr
	case KindMultiChoice:
		for _, s := range val.([]string) {
			if !contains(opts, s) {
				fErr := unknownOption(name, s, opts)
				return &fErr
			}
		}
	}
	return nil
}

func unknownOption(name, value string, opts []string) core.FieldError {
	msg := fmt.Sprintf("%q is not a valid option.", value)
	if sugg := catalog.Suggest(value, opts); len(sugg) > 0 {
		msg += fmt.Sprintf(" Did you mean %q?", sugg[0])
	}
	return core.FieldError{Field: name, Error: msg}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
