package enrolment

import (
	"github.com/aspirecraft/enrolment/core"
)

// KindSignature marks the drawing surface in views.
const KindSignature Kind = "signature"

type (
	Input struct {
		Field    string      `json:"field"`
		Label    string      `json:"label"`
		Kind     Kind        `json:"kind"`
		Required bool        `json:"required"`
		Options  []string    `json:"options,omitempty"`
		Value    interface{} `json:"value"`
	}

	SubFormView struct {
		Area   SubjectArea `json:"area"`
		Inputs []Input     `json:"inputs"`
	}

	// StepView is what a client needs to render the current page.
	StepView struct {
		Step           Step          `json:"step"`
		Title          string        `json:"title"`
		Progress       int           `json:"progress"`
		Inputs         []Input       `json:"inputs,omitempty"`
		SubForms       []SubFormView `json:"subForms,omitempty"`
		Review         *Document     `json:"review,omitempty"`
		Notice         string        `json:"notice,omitempty"`
		CanGoBack      bool          `json:"canGoBack"`
		CanGoNext      bool          `json:"canGoNext"`
		CanSubmit      bool          `json:"canSubmit"`
		SubmissionDone bool          `json:"submissionDone"`
	}
)

// View projects st onto its current page.
func (c *Controller) View(st *State) StepView {
	v := StepView{
		Step:           st.Step,
		Title:          st.Step.Title(),
		Progress:       st.Step.Progress(),
		CanGoBack:      c.CanRetreat(st),
		CanGoNext:      st.Step.Successor() != 0,
		CanSubmit:      st.Step == StepReview && !st.SubmissionDone && c.submitter != nil,
		SubmissionDone: st.SubmissionDone,
	}

	for _, f := range st.Step.Fields() {
		if f == FieldOtherEducation && st.Text(FieldHighestEducation) != OtherPleaseSpecify {
			continue
		}
		spec, _ := Spec(f)
		in := Input{
			Field:    string(f),
			Label:    spec.Label,
			Kind:     spec.Kind,
			Required: spec.Required,
			Value:    st.Values[f],
		}
		if spec.Options != nil {
			in.Options = withPlaceholder(spec.Kind, spec.Options(c.cat))
		}
		v.Inputs = append(v.Inputs, in)
	}

	switch st.Step {
	case StepServices:
		v.Inputs = append(v.Inputs, Input{
			Field:    "subjectAreas",
			Label:    "Select Subject Areas:",
			Kind:     KindMultiChoice,
			Required: true,
			Options:  c.cat.SortedSubjectAreas(),
			Value:    st.SubjectAreas,
		})
		for _, area := range st.SubjectAreas {
			v.SubForms = append(v.SubForms, c.subFormView(st, area))
		}
	case StepSignature:
		v.Inputs = append(v.Inputs, Input{
			Field:    "signature",
			Label:    "Please draw your signature below:",
			Kind:     KindSignature,
			Required: true,
			Value:    st.Signature != nil,
		})
	case StepReview:
		if doc, err := c.Document(st); err == nil {
			v.Review = doc
		}
		if !st.SubmissionDone {
			v.Notice = ReviewNotice
		}
	}
	return v
}

// Document assembles the submission document of st as it would be sent.
func (c *Controller) Document(st *State) (*Document, error) {
	return Assemble(st, c.rules.Background)
}

func (c *Controller) subFormView(st *State, area SubjectArea) SubFormView {
	draft := st.SubForms[area]
	if draft == nil {
		draft = c.subjects.NewDraft(area)
	}
	sv := SubFormView{Area: area}
	for _, f := range c.subjects.Form(area).Fields {
		if f.Visible != nil && !f.Visible(draft) {
			continue
		}
		in := Input{
			Field:    subFieldName(area, f.Key),
			Label:    f.Label,
			Kind:     f.Kind,
			Required: !f.Optional,
			Value:    draft[f.Key],
		}
		if f.Options != nil {
			in.Options = withPlaceholder(f.Kind, c.subjects.Options(f, draft))
		}
		sv.Inputs = append(sv.Inputs, in)
	}
	return sv
}

// withPlaceholder prepends the Select placeholder to single choice options.
func withPlaceholder(kind Kind, opts []string) []string {
	if kind != KindChoice {
		return opts
	}
	return append([]string{core.SelectOption}, opts...)
}
