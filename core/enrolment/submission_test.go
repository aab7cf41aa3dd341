package enrolment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspirecraft/enrolment/core"
)

func TestController_Submit_EndToEnd(t *testing.T) {
	freezeTime(t)
	emails := &emailMock{}
	rec := &recorderMock{}
	c := newController(t,
		WithSubmitter(NewSubmitter(testConfig(), TextRenderer{}, NewDispatcher(emails))),
		WithRecorder(rec),
	)
	ctx := context.Background()
	st := NewState("e2e")

	events := []Event{
		NextClicked{},
		FieldChanged{Field: FieldFullName, Value: "Ada Lovelace"}, NextClicked{},
		FieldChanged{Field: FieldDOB, Value: "1990-05-17"}, NextClicked{},
		FieldChanged{Field: FieldGender, Value: "Female"}, NextClicked{},
		FieldChanged{Field: FieldCountry, Value: "United Kingdom"},
		FieldChanged{Field: FieldNationality, Value: "British"},
		FieldChanged{Field: FieldPreferredLanguage, Value: "English"}, NextClicked{},
		FieldChanged{Field: FieldEmail, Value: "ada.lovelace@example.com"},
		FieldChanged{Field: FieldPhone, Value: "+447911123456"}, NextClicked{},
		FieldChanged{Field: FieldCurrentInstitution, Value: "none"},
		FieldChanged{Field: FieldHighestEducation, Value: "Bachelor's Degree"},
		FieldChanged{Field: FieldIndustryExperience, Value: "1–2 years"},
		FieldChanged{Field: FieldCurrentRole, Value: "Nurse"}, NextClicked{},
		SubjectAreasChanged{Areas: []SubjectArea{AreaIELTS}},
		SubFieldChanged{Area: AreaIELTS, Key: "ielts_reason", Value: ieltsReason}, NextClicked{},
		FieldChanged{Field: FieldPreferredStartDate, Value: "ASAP"},
		FieldChanged{Field: FieldLearningPreferences, Value: "Weekends"},
		FieldChanged{Field: FieldSpecialRequirements, Value: "none"},
		FieldChanged{Field: FieldEmergencyContact, Value: "Charles +44 20 7946 0000"},
		FieldChanged{Field: FieldConsent, Value: true}, NextClicked{},
		SignatureCaptured{Image: signature(true)}, NextClicked{},
	}
	for i, ev := range events {
		require.NoError(t, c.Reduce(ctx, st, ev), "event #%d %T", i, ev)
	}
	require.Equal(t, StepReview, st.Step)

	require.NoError(t, c.Reduce(ctx, st, SubmitClicked{}))
	assert.True(t, st.SubmissionDone)
	assert.Equal(t, StepThankYou, st.Step)
	require.Len(t, emails.sent, 2, "internal and applicant messages")
	assert.Equal(t, "staff@aspirecraft.test", emails.sent[0].To[0].Address)
	assert.Equal(t, "ada.lovelace@example.com", emails.sent[1].To[0].Address)
	assert.Equal(t, []error{nil}, rec.submissions)

	doc := string(emails.sent[0].Attachments[0].Content)
	for _, s := range []string{
		"# " + SectionPersonal, "# " + SectionContact, "# " + SectionBackground, "# " + SectionServices,
		"## IELTS\nIELTS Reason: " + ieltsReason, "# " + SectionAdditional, "# " + SectionSignature,
	} {
		assert.Contains(t, doc, s)
	}

	assert.Equal(t, ErrAlreadySubmitted, c.Reduce(ctx, st, SubmitClicked{}))
	assert.Equal(t, ErrBackDisabled, c.Reduce(ctx, st, BackClicked{}))
	assert.Len(t, emails.sent, 2)
}

func TestController_Submit_Failures(t *testing.T) {
	emails := &emailMock{}
	c := newController(t, WithSubmitter(NewSubmitter(testConfig(), TextRenderer{}, NewDispatcher(emails))))
	ctx := context.Background()

	t.Run("dispatch failure leaves the state retryable", func(t *testing.T) {
		emails.reset()
		st := reviewedState(t, c)
		emails.failOn, emails.err = 2, errors.New("connection reset")

		err := c.Submit(ctx, st)
		require.True(t, core.IsDispatchError(err), "got %v", err)
		assert.False(t, st.SubmissionDone)
		assert.Equal(t, StepReview, st.Step)
		assert.True(t, c.CanRetreat(st))

		emails.failOn = 0
		require.NoError(t, c.Submit(ctx, st))
		assert.True(t, st.SubmissionDone)
		assert.Equal(t, StepThankYou, st.Step)
	})

	t.Run("missing configuration", func(t *testing.T) {
		emails.reset()
		st := reviewedState(t, c)
		conf := &core.Config{SecretsFile: ""}
		c := newController(t, WithSubmitter(NewSubmitter(conf, TextRenderer{}, NewDispatcher(emails))))
		t.Setenv("SENDER_EMAIL", "")

		err := c.Submit(ctx, st)
		require.True(t, core.IsConfigurationError(err), "got %v", err)
		assert.Empty(t, emails.sent)
		assert.False(t, st.SubmissionDone)
	})

	t.Run("gate re-checks every step", func(t *testing.T) {
		emails.reset()
		st := reviewedState(t, c)
		st.Values[FieldConsent] = false

		err := c.Submit(ctx, st)
		assert.Equal(t, []string{"consent"}, fieldNames(err))
		assert.Empty(t, emails.sent)
	})

	t.Run("only from the review step", func(t *testing.T) {
		st := NewState("s")
		st.Step = StepSignature
		assert.Equal(t, ErrNotOnReview, c.Submit(ctx, st))
	})

	t.Run("disabled without a submitter", func(t *testing.T) {
		c := newController(t)
		st := reviewedState(t, c)
		assert.Equal(t, ErrSubmitDisabled, c.Submit(ctx, st))
	})
}
