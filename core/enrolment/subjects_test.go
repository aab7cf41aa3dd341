package enrolment

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspirecraft/enrolment/core"
)

func TestResolver_Finalize(t *testing.T) {
	c := newController(t)
	r := c.Subjects()

	tests := []struct {
		area     SubjectArea
		valid    map[string]interface{}
		invalid  map[string]interface{} // applied on top of the defaults
		wantKeys []string
	}{
		{
			area:     AreaUniversitySuccess,
			valid:    map[string]interface{}{"course_level": "Postgraduate", "learning_mode": "Blended"},
			invalid:  map[string]interface{}{"course_level": "Postgraduate"},
			wantKeys: []string{"course_level", "learning_mode"},
		},
		{
			area:     AreaICAN,
			valid:    map[string]interface{}{"career_goals": "Data science in healthcare", "reason_for_interest": icanReasons[0]},
			invalid:  map[string]interface{}{"career_goals": "  ", "reason_for_interest": icanReasons[0]},
			wantKeys: []string{"career_goals", "reason_for_interest"},
		},
		{
			area:     AreaFunctionalSkills,
			valid:    map[string]interface{}{"current_role": "Business owner", "reason_for_interest": functionalReasons[2]},
			invalid:  map[string]interface{}{"current_role": "Business owner"},
			wantKeys: []string{"current_role", "reason_for_interest"},
		},
		{
			area:     AreaTeachingAssessment,
			valid:    map[string]interface{}{"qualification_or_experience": qualificationPaths[0]},
			invalid:  map[string]interface{}{"qualification_or_experience": experiencePath},
			wantKeys: []string{"qualification_or_experience"},
		},
		{
			area:     AreaAccreditedCourses,
			valid:    map[string]interface{}{"sector_accreditation": accreditationSectors[3]},
			invalid:  map[string]interface{}{},
			wantKeys: []string{"sector_accreditation"},
		},
		{
			area: AreaSummerInternship,
			valid: map[string]interface{}{
				"internship_package": "Premium", "cohort_date": cohortDates[1], "reason_for_interest": internshipReasons[0],
			},
			invalid:  map[string]interface{}{"internship_package": "Basic"},
			wantKeys: []string{"internship_package", "cohort_date", "reason_for_interest"},
		},
		{
			area:     AreaIELTS,
			valid:    map[string]interface{}{"ielts_reason": ieltsReason},
			invalid:  map[string]interface{}{},
			wantKeys: []string{"ielts_reason"},
		},
		{
			area: AreaCPDCourses,
			valid: map[string]interface{}{
				"category": "Health and Social Care", "courses": []string{"Basic Life Support (BLS)"},
			},
			invalid:  map[string]interface{}{"category": "Health and Social Care"},
			wantKeys: []string{"category", "courses", "learning_mode_cpd"},
		},
		{
			area:     AreaBusinessIncubation,
			valid:    map[string]interface{}{"business_services": businessServices[:2]},
			invalid:  map[string]interface{}{},
			wantKeys: []string{"business_services"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.area), func(t *testing.T) {
			apply := func(values map[string]interface{}) Answers {
				draft := r.NewDraft(tt.area)
				draft["unrelated"] = "ignored"
				for _, k := range sortedKeys(values) {
					require.NoError(t, r.SetField(draft, tt.area, k, values[k]), "setting %s", k)
				}
				return draft
			}

			final, errs := r.Finalize(tt.area, apply(tt.valid))
			require.Empty(t, errs)
			assert.ElementsMatch(t, tt.wantKeys, keys(final))

			final, errs = r.Finalize(tt.area, apply(tt.invalid))
			assert.Nil(t, final)
			require.NotEmpty(t, errs)
			for _, e := range errs {
				assert.True(t, strings.HasPrefix(e.Error, "["+string(tt.area)+"]"), e.Error)
			}
		})
	}
}

func TestResolver_TeachingAssessment(t *testing.T) {
	c := newController(t)
	r := c.Subjects()
	area := AreaTeachingAssessment
	draft := r.NewDraft(area)

	require.NoError(t, r.SetField(draft, area, "qualification_or_experience", experiencePath))
	require.NoError(t, r.SetField(draft, area, "vocational_sector", OtherPleaseSpecify))
	_, errs := r.Finalize(area, draft)
	require.Len(t, errs, 1)
	assert.Equal(t, subFieldName(area, "vocational_other"), errs[0].Field)
	assert.Equal(t, "[Teaching and Assessment Programme] Please select your vocational sector and specify if applicable.", errs[0].Error)

	require.NoError(t, r.SetField(draft, area, "vocational_other", "Aviation"))
	final, errs := r.Finalize(area, draft)
	require.Empty(t, errs)
	assert.Equal(t, "Aviation", final.Text("vocational_other"))
	assert.ElementsMatch(t, []string{"qualification_or_experience", "vocational_sector", "vocational_other"}, keys(final))

	require.NoError(t, r.SetField(draft, area, "vocational_sector", vocationalSectors[0]))
	final, errs = r.Finalize(area, draft)
	require.Empty(t, errs)
	assert.ElementsMatch(t, []string{"qualification_or_experience", "vocational_sector"}, keys(final))

	// switching back to the qualification path resets the sector answers
	require.NoError(t, r.SetField(draft, area, "qualification_or_experience", qualificationPaths[0]))
	assert.Equal(t, core.SelectOption, draft.Text("vocational_sector"))
	assert.Equal(t, "", draft.Text("vocational_other"))
	final, errs = r.Finalize(area, draft)
	require.Empty(t, errs)
	assert.Equal(t, []string{"qualification_or_experience"}, keys(final))
}

func TestResolver_CPDCourses(t *testing.T) {
	c := newController(t)
	r := c.Subjects()
	area := AreaCPDCourses
	draft := r.NewDraft(area)

	err := r.SetField(draft, area, "courses", []string{"Basic Life Support (BLS)"})
	require.Error(t, err, "courses depend on the category")

	require.NoError(t, r.SetField(draft, area, "category", "Health and Social Care"))
	require.NoError(t, r.SetField(draft, area, "courses", []interface{}{"Basic Life Support (BLS)", "Safeguarding Adults"}))
	assert.Len(t, draft.Strings("courses"), 2)

	require.NoError(t, r.SetField(draft, area, "category", "Digital and IT"))
	assert.Empty(t, draft.Strings("courses"), "changing the category resets the courses")

	_, errs := r.Finalize(area, draft)
	require.Len(t, errs, 1)
	assert.Equal(t, "[CPD Courses] Please select your courses before proceeding.", errs[0].Error)

	err = r.SetField(draft, area, "learning_mode_cpd", "Offline")
	assert.Error(t, err)
	err = r.SetField(draft, area, "nope", "x")
	assert.Error(t, err)
}

func TestResolver_Resolve(t *testing.T) {
	c := newController(t)
	st := NewState("s")
	st.Step = StepServices

	require.NoError(t, c.SelectSubjectAreas(st, []SubjectArea{AreaIELTS, AreaAccreditedCourses, AreaIELTS}))
	assert.Equal(t, []SubjectArea{AreaIELTS, AreaAccreditedCourses}, st.SubjectAreas)
	require.NoError(t, c.SetSubField(st, AreaIELTS, "ielts_reason", ieltsReason))

	// each area is evaluated on its own: IELTS passes, the accredited courses area does not
	errs := c.Subjects().Resolve(st)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "[International Accredited Courses]")
	assert.Contains(t, st.Answers, AreaIELTS)
	assert.NotContains(t, st.Answers, AreaAccreditedCourses)

	require.NoError(t, c.SetSubField(st, AreaAccreditedCourses, "sector_accreditation", accreditationSectors[0]))
	require.NoError(t, c.Advance(st))
	assert.Equal(t, StepAdditional, st.Step)
	assert.Len(t, st.Answers, 2)
}

func TestResolver_SelectAreas(t *testing.T) {
	c := newController(t)
	st := NewState("s")
	walkTo(t, c, st, StepServices)
	fill(t, c, st)
	require.NoError(t, c.Advance(st))
	require.Contains(t, st.Answers, AreaIELTS)
	st.Step = StepServices

	// deselecting evicts the finalized answer but keeps the draft
	require.NoError(t, c.SelectSubjectAreas(st, []SubjectArea{AreaBusinessIncubation}))
	assert.NotContains(t, st.Answers, AreaIELTS)
	assert.Equal(t, ieltsReason, st.SubForms[AreaIELTS].Text("ielts_reason"))

	err := c.SetSubField(st, AreaIELTS, "ielts_reason", ieltsReason)
	assert.Error(t, err, "area is not selected")

	require.NoError(t, c.SelectSubjectAreas(st, []SubjectArea{AreaIELTS}))
	assert.NotContains(t, st.Answers, AreaIELTS, "re-selected areas are finalized again on advance")
	require.NoError(t, c.Advance(st))
	assert.Contains(t, st.Answers, AreaIELTS)

	st.Step = StepServices
	err = c.SelectSubjectAreas(st, []SubjectArea{"IELTs"})
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, vErr.Fields[0].Error, `Did you mean "IELTS"?`)
	assert.Equal(t, []SubjectArea{AreaIELTS}, st.SubjectAreas, "rejected selection must not be stored")

	st.Step = StepPersonal
	assert.Error(t, c.SelectSubjectAreas(st, nil))
}

func keys(a Answers) []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	return out
}

// sortedKeys orders parent answers first so that dependent options resolve.
func sortedKeys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i] == "category" || out[j] == "category" {
			return out[i] == "category"
		}
		return out[i] < out[j]
	})
	return out
}
