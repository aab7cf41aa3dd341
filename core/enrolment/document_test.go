package enrolment

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	freezeTime(t)
	c := newController(t)
	st := NewState("s")
	walkTo(t, c, st, StepServices)
	require.NoError(t, c.SelectSubjectAreas(st, []SubjectArea{AreaCPDCourses, AreaTeachingAssessment}))
	require.NoError(t, c.SetSubField(st, AreaCPDCourses, "category", "Health and Social Care"))
	require.NoError(t, c.SetSubField(st, AreaCPDCourses, "courses", []string{"Basic Life Support (BLS)", "Safeguarding Adults"}))
	require.NoError(t, c.SetSubField(st, AreaTeachingAssessment, "qualification_or_experience", qualificationPaths[0]))
	require.NoError(t, c.Advance(st))
	walkTo(t, c, st, StepReview)
	st.Values[FieldDigitalMediaConsent] = false

	doc, err := Assemble(st, color.White)
	require.NoError(t, err)

	assert.Equal(t, DocumentTitle, doc.Title)
	assert.Equal(t, "AspireCraft_Form_Submission_Ada Lovelace.pdf", doc.Filename(".pdf"))
	assert.Equal(t, fixedNow, doc.SubmittedAt)

	var headings []string
	for _, s := range doc.Sections {
		headings = append(headings, s.Heading)
	}
	assert.Equal(t, []string{
		SectionPersonal, SectionContact, SectionBackground, SectionServices, SectionAdditional, SectionSignature,
	}, headings)

	personal, _ := doc.Section(SectionPersonal)
	dob, _ := personal.Value("Date of Birth")
	assert.Equal(t, "17-05-1990", dob)

	background, _ := doc.Section(SectionBackground)
	accredited, _ := background.Value("Accredited Qualifications")
	assert.Equal(t, "Not Provided", accredited)

	services, _ := doc.Section(SectionServices)
	require.Len(t, services.Subsections, 2)
	assert.Equal(t, string(AreaCPDCourses), services.Subsections[0].Heading, "selection order")
	courses, _ := services.Subsections[0].Value("Courses")
	assert.Equal(t, "Basic Life Support (BLS), Safeguarding Adults", courses)

	teaching := services.Subsections[1]
	route, _ := teaching.Value("Qualification or Experience")
	assert.Equal(t, qualificationPaths[0], route)
	_, ok := teaching.Value("Vocational Sector")
	assert.False(t, ok, "the sector only belongs to the experience path")
	_, ok = teaching.Value("Other Vocational Sector")
	assert.False(t, ok)

	additional, _ := doc.Section(SectionAdditional)
	media, _ := additional.Value("Digital Media Consent")
	assert.Equal(t, "No, consent not provided.", media)

	require.NotEmpty(t, doc.Signature)
	img, err := png.Decode(bytes.NewReader(doc.Signature))
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())

	text := doc.Text()
	assert.True(t, strings.HasPrefix(text, DocumentTitle+"\n"))
	assert.Contains(t, text, "## "+string(AreaCPDCourses))
	assert.Contains(t, text, "Full Name: Ada Lovelace")
}

func TestAssemble_Partial(t *testing.T) {
	st := NewState("s")
	_, err := Assemble(st, color.White)
	assert.Equal(t, ErrMissingName, err)

	st.Values[FieldFullName] = "Grace/Hopper"
	st.Values[FieldHighestEducation] = OtherPleaseSpecify
	st.Values[FieldOtherEducation] = "Navy training"
	st.SubjectAreas = []SubjectArea{AreaIELTS}

	doc, err := Assemble(st, color.White)
	require.NoError(t, err)
	assert.Equal(t, "AspireCraft_Form_Submission_Grace_Hopper", doc.Name)

	personal, _ := doc.Section(SectionPersonal)
	for _, l := range personal.Lines[1:] {
		assert.Equal(t, "Not Provided", l.Value, l.Label)
	}
	background, _ := doc.Section(SectionBackground)
	education, _ := background.Value("Highest Level of Education")
	assert.Equal(t, "Other (please specify) - Navy training", education)

	// selected but never finalized
	services, _ := doc.Section(SectionServices)
	assert.Empty(t, services.Subsections)
	none, _ := services.Value("Courses Interested In")
	assert.Equal(t, "None", none)

	signature, _ := doc.Section(SectionSignature)
	assert.Nil(t, doc.Signature)
	assert.Equal(t, []Line{{Value: "Not Provided"}}, signature.Lines)
}

func TestAssemble_AreaWithoutSubForm(t *testing.T) {
	st := NewState("s")
	st.Values[FieldFullName] = "Ada"
	st.SubjectAreas = []SubjectArea{"Mentoring"}
	st.Answers["Mentoring"] = Answers{}
	st.Answers[AreaIELTS] = Answers{"ielts_reason": ieltsReason} // not selected

	doc, err := Assemble(st, nil)
	require.NoError(t, err)
	services, _ := doc.Section(SectionServices)
	require.Len(t, services.Subsections, 1)
	assert.Equal(t, []Line{{Value: "No specific fields defined for this subject area."}}, services.Subsections[0].Lines)
}
