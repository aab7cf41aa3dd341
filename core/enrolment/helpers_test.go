package enrolment

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aspirecraft/enrolment/assets"
	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
)

const ieltsReason = "Immigration: Meeting language requirements for migration to countries like the UK, Canada, or Australia."

var fixedNow = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

func freezeTime(t *testing.T) {
	t.Helper()
	nowFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { nowFunc = time.Now })
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(assets.Resources())
	require.NoError(t, err)
	return cat
}

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	return NewController(loadCatalog(t), DefaultRules(), opts...)
}

// signature returns a white surface, with a black stroke when drawn is true.
func signature(drawn bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.White)
		}
	}
	if drawn {
		for x := 10; x < 50; x++ {
			img.Set(x, 15, color.Black)
		}
	}
	return img
}

// fill answers the fields of st.Step with valid values.
func fill(t *testing.T, c *Controller, st *State) {
	t.Helper()
	set := func(f Field, v interface{}) {
		t.Helper()
		require.NoError(t, c.SetField(st, f, v), "setting %s", f)
	}
	switch st.Step {
	case StepPersonal:
		set(FieldFullName, "Ada Lovelace")
	case StepDateOfBirth:
		set(FieldDOB, "1990-05-17")
	case StepGender:
		set(FieldGender, "Female")
	case StepResidence:
		set(FieldCountry, "United Kingdom")
		set(FieldNationality, "British")
		set(FieldPreferredLanguage, "English")
	case StepContact:
		set(FieldEmail, "ada.lovelace@example.com")
		set(FieldPhone, "+44 7911 123456")
	case StepBackground:
		set(FieldCurrentInstitution, "none")
		set(FieldHighestEducation, "Master's Degree")
		set(FieldIndustryExperience, "3–5 years")
		set(FieldCurrentRole, "Analyst")
	case StepServices:
		require.NoError(t, c.SelectSubjectAreas(st, []SubjectArea{AreaIELTS}))
		require.NoError(t, c.SetSubField(st, AreaIELTS, "ielts_reason", ieltsReason))
	case StepAdditional:
		set(FieldPreferredStartDate, "ASAP")
		set(FieldLearningPreferences, "Evening classes")
		set(FieldSpecialRequirements, "none")
		set(FieldEmergencyContact, "Charles Babbage +44 20 7946 0000")
		set(FieldConsent, true)
	case StepSignature:
		require.NoError(t, c.SetSignature(st, signature(true)))
	}
}

// walkTo fills and advances st until it reaches step.
func walkTo(t *testing.T, c *Controller, st *State, step Step) {
	t.Helper()
	for st.Step != step {
		fill(t, c, st)
		require.NoError(t, c.Advance(st), "advancing from step %d", st.Step)
	}
}

// emailMock records every message and fails the call number failOn (1-based) with err.
type emailMock struct {
	mu     sync.Mutex
	sent   []*core.EmailMessage
	calls  int
	failOn int
	err    error
}

func (m *emailMock) SendMessages(_ context.Context, messages ...*core.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failOn == m.calls {
		return m.err
	}
	m.sent = append(m.sent, messages...)
	return nil
}

func (m *emailMock) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent, m.calls, m.failOn, m.err = nil, 0, 0, nil
}

// recorderMock counts recorder calls.
type recorderMock struct {
	changes     [][2]Step
	failures    map[Step]int
	submissions []error
}

func (r *recorderMock) StepChanged(from, to Step) { r.changes = append(r.changes, [2]Step{from, to}) }
func (r *recorderMock) ValidationFailed(step Step, count int) {
	if r.failures == nil {
		r.failures = make(map[Step]int)
	}
	r.failures[step] += count
}
func (r *recorderMock) SubmissionFinished(err error, _ time.Duration) {
	r.submissions = append(r.submissions, err)
}

func testConfig() *core.Config {
	return &core.Config{
		AppName: "AspireCraft",
		Email:   core.EmailConfig{InternalEmail: "staff@aspirecraft.test"},
	}
}

func fieldNames(err error) []string {
	vErr, ok := core.AsValidationError(err)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(vErr.Fields))
	for _, f := range vErr.Fields {
		names = append(names, f.Field)
	}
	return names
}
