package enrolment

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
)

const (
	DocumentTitle  = "Enrolment Form Submission"
	FilenamePrefix = "AspireCraft_Form_Submission_"

	// displayed size of the embedded signature
	SignatureWidthInches  = 2.0
	SignatureHeightInches = 1.0

	dateFormat   = "02-01-2006"
	notProvided  = "Not Provided"
	noSubFormMsg = "No specific fields defined for this subject area."
)

// section headings, in document order
const (
	SectionPersonal   = "Personal Information"
	SectionContact    = "Contact Information"
	SectionBackground = "Educational & Professional Background"
	SectionServices   = "Services & Courses"
	SectionAdditional = "Additional Information"
	SectionSignature  = "Signature"
)

var ErrMissingName = errors.New("the applicant full name is required to build the document")

type (
	// Line is one paragraph of a section. Lines without a label are plain text.
	Line struct {
		Label string `json:"label,omitempty"`
		Value string `json:"value"`
	}

	Section struct {
		Heading     string    `json:"heading"`
		Lines       []Line    `json:"lines,omitempty"`
		Subsections []Section `json:"subsections,omitempty"`
	}

	// Document is the structured submission, independent of its output format.
	Document struct {
		Title       string    `json:"title"`
		Name        string    `json:"name"` // file name without extension
		Sections    []Section `json:"sections"`
		Signature   []byte    `json:"-"` // PNG, nil when no signature was captured
		Uploads     []Upload  `json:"uploads"`
		SubmittedAt time.Time `json:"submittedAt"`

		// applicant details used by the notifications
		ApplicantName  string        `json:"-"`
		ApplicantEmail string        `json:"-"`
		Country        string        `json:"-"`
		SubjectAreas   []SubjectArea `json:"-"`
	}
)

func (l Line) String() string {
	if l.Label == "" {
		return l.Value
	}
	return l.Label + ": " + l.Value
}

// Filename returns the file name of the document with the given extension (eg: ".pdf").
func (d *Document) Filename(ext string) string {
	return d.Name + ext
}

// Section returns the top-level section with the given heading.
func (d *Document) Section(heading string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Heading == heading {
			return s, true
		}
	}
	return Section{}, false
}

// Subsection returns the subsection with the given heading.
func (s Section) Subsection(heading string) (Section, bool) {
	for _, sub := range s.Subsections {
		if sub.Heading == heading {
			return sub, true
		}
	}
	return Section{}, false
}

// Value returns the value of the first line with the given label.
func (s Section) Value(label string) (string, bool) {
	for _, l := range s.Lines {
		if l.Label == label {
			return l.Value, true
		}
	}
	return "", false
}

// Text renders the document as plain text.
func (d *Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteString("\n")
	for _, s := range d.Sections {
		writeSection(&b, s, 1)
	}
	return b.String()
}

func writeSection(b *strings.Builder, s Section, level int) {
	fmt.Fprintf(b, "\n%s %s\n", strings.Repeat("#", level), s.Heading)
	for _, l := range s.Lines {
		b.WriteString(l.String())
		b.WriteString("\n")
	}
	for _, sub := range s.Subsections {
		writeSection(b, sub, level+1)
	}
}

// Assemble builds the submission document from st. It has no side effects and
// only fails when the applicant name is missing.
func Assemble(st *State, background color.Color) (*Document, error) {
	name := strings.TrimSpace(st.Text(FieldFullName))
	if name == "" {
		return nil, ErrMissingName
	}

	doc := &Document{
		Title:          DocumentTitle,
		Name:           FilenamePrefix + safeFilename(name),
		Uploads:        st.AllUploads(),
		SubmittedAt:    nowFunc().UTC(),
		ApplicantName:  name,
		ApplicantEmail: strings.TrimSpace(st.Text(FieldEmail)),
		Country:        st.Text(FieldCountry),
		SubjectAreas:   append([]SubjectArea(nil), st.SubjectAreas...),
	}

	dob := notProvided
	if d, ok := st.Date(FieldDOB); ok {
		dob = d.Format(dateFormat)
	}
	education := orNotProvided(st.Text(FieldHighestEducation))
	if st.Text(FieldHighestEducation) == OtherPleaseSpecify {
		education += " - " + strings.TrimSpace(st.Text(FieldOtherEducation))
	}
	mediaConsent := "No, consent not provided."
	if st.Bool(FieldDigitalMediaConsent) {
		mediaConsent = "Yes, consent provided."
	}

	doc.Sections = []Section{
		{Heading: SectionPersonal, Lines: []Line{
			{"Full Name", name},
			{"Date of Birth", dob},
			{"Gender", orNotProvided(st.Text(FieldGender))},
			{"Country of Residence", orNotProvided(st.Text(FieldCountry))},
			{"Nationality", orNotProvided(st.Text(FieldNationality))},
			{"Preferred Language of Communication", orNotProvided(st.Text(FieldPreferredLanguage))},
		}},
		{Heading: SectionContact, Lines: []Line{
			{"Email", orNotProvided(st.Text(FieldEmail))},
			{"Phone", orNotProvided(st.Text(FieldPhone))},
		}},
		{Heading: SectionBackground, Lines: []Line{
			{"Current Institution", orNotProvided(st.Text(FieldCurrentInstitution))},
			{"Highest Level of Education", education},
			{"Accredited Qualifications", orNotProvided(st.Text(FieldAccredited))},
			{"Years of Professional Industry Work Experience", orNotProvided(st.Text(FieldIndustryExperience))},
			{"Current Role or Profession", orNotProvided(st.Text(FieldCurrentRole))},
		}},
		servicesSection(st),
		{Heading: SectionAdditional, Lines: []Line{
			{"Preferred Start Date/Timeline for Participation", orNotProvided(st.Text(FieldPreferredStartDate))},
			{"Learning Preferences", orNotProvided(st.Text(FieldLearningPreferences))},
			{"Special Requirements", orNotProvided(st.Text(FieldSpecialRequirements))},
			{"Emergency Contact", orNotProvided(st.Text(FieldEmergencyContact))},
			{"Digital Media Consent", mediaConsent},
		}},
	}

	sig := Section{Heading: SectionSignature}
	if st.Signature != nil {
		data, err := encodeSignature(st.Signature, background)
		if err != nil {
			return nil, errors.Wrap(err, "encoding signature")
		}
		doc.Signature = data
	} else {
		sig.Lines = []Line{{Value: notProvided}}
	}
	doc.Sections = append(doc.Sections, sig)
	return doc, nil
}

// servicesSection holds one subsection per finalized subject area, in selection order.
func servicesSection(st *State) Section {
	sec := Section{Heading: SectionServices}
	for _, area := range st.SubjectAreas {
		answers, ok := st.Answers[area]
		if !ok {
			continue
		}
		sub := Section{Heading: string(area)}
		form, ok := subForms[area]
		if !ok || len(form.Fields) == 0 {
			sub.Lines = []Line{{Value: noSubFormMsg}}
		}
		for _, f := range form.Fields {
			if _, ok := answers[f.Key]; !ok {
				continue // hidden when finalized
			}
			val := answerText(answers, f)
			if f.Optional && val == "" {
				continue
			}
			sub.Lines = append(sub.Lines, Line{Label: f.DocLabel, Value: orNotProvided(val)})
		}
		sec.Subsections = append(sec.Subsections, sub)
	}
	if len(sec.Subsections) == 0 {
		sec.Lines = []Line{{Label: "Courses Interested In", Value: "None"}}
	}
	return sec
}

func answerText(answers Answers, f SubField) string {
	if f.Kind == KindMultiChoice {
		return strings.Join(answers.Strings(f.Key), ", ")
	}
	return strings.TrimSpace(answers.Text(f.Key))
}

func orNotProvided(s string) string {
	s = strings.TrimSpace(s)
	if !core.IsSelected(s) {
		return notProvided
	}
	return s
}

// safeFilename keeps the name as typed, minus path separators.
func safeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}

// encodeSignature flattens the drawing onto the background colour and encodes it as PNG.
func encodeSignature(img image.Image, background color.Color) ([]byte, error) {
	if background == nil {
		background = color.White
	}
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
