package enrolment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
)

var (
	// errors
	ErrNoNextStep       = errors.New("this step has no next action")
	ErrBackDisabled     = errors.New("going back is not possible from this step")
	ErrNotOnReview      = errors.New("the form can only be submitted from the review step")
	ErrAlreadySubmitted = errors.New("the form was already submitted")
	ErrSubmitDisabled   = errors.New("submissions are disabled")
)

type (
	// Event is a discrete user action.
	Event interface{ isEvent() }

	FieldChanged struct {
		Field Field
		Value interface{}
	}
	SubFieldChanged struct {
		Area  SubjectArea
		Key   string
		Value interface{}
	}
	SubjectAreasChanged struct{ Areas []SubjectArea }
	SignatureCaptured   struct{ Image image.Image } // nil clears the drawing surface
	FilesUploaded       struct {
		Field Field
		Files []Upload
	}
	NextClicked   struct{}
	BackClicked   struct{}
	SubmitClicked struct{}
)

func (FieldChanged) isEvent()        {}
func (SubFieldChanged) isEvent()     {}
func (SubjectAreasChanged) isEvent() {}
func (SignatureCaptured) isEvent()   {}
func (FilesUploaded) isEvent()       {}
func (NextClicked) isEvent()         {}
func (BackClicked) isEvent()         {}
func (SubmitClicked) isEvent()       {}

// Recorder observes the wizard.
type Recorder interface {
	StepChanged(from, to Step)
	ValidationFailed(step Step, count int)
	SubmissionFinished(err error, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) StepChanged(Step, Step)                  {}
func (nopRecorder) ValidationFailed(Step, int)              {}
func (nopRecorder) SubmissionFinished(error, time.Duration) {}

// Controller is the wizard state machine. It holds no session state: every call
// works on the *State it is given.
type Controller struct {
	cat        *catalog.Catalog
	rules      Rules
	validate   *validator.Validate
	translator ut.Translator
	subjects   *Resolver
	submitter  *Submitter
	recorder   Recorder
	logger     core.Logger
}

type Option func(c *Controller)

// WithSubmitter enables the Submit action.
func WithSubmitter(s *Submitter) Option {
	return func(c *Controller) { c.submitter = s }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func NewController(cat *catalog.Catalog, rules Rules, opts ...Option) *Controller {
	validate, translator := newValidator(cat, rules)
	c := &Controller{
		cat:        cat,
		rules:      rules,
		validate:   validate,
		translator: translator,
		subjects:   NewResolver(cat, validate),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Catalog() *catalog.Catalog { return c.cat }
func (c *Controller) Subjects() *Resolver       { return c.subjects }

// Reduce applies one event to st. On error st is left as it was, except that a
// failed services advance refreshes the finalized answers of the selected areas.
func (c *Controller) Reduce(ctx context.Context, st *State, ev Event) error {
	var err error
	switch e := ev.(type) {
	case FieldChanged:
		err = c.SetField(st, e.Field, e.Value)
	case SubFieldChanged:
		err = c.SetSubField(st, e.Area, e.Key, e.Value)
	case SubjectAreasChanged:
		err = c.SelectSubjectAreas(st, e.Areas)
	case SignatureCaptured:
		err = c.SetSignature(st, e.Image)
	case FilesUploaded:
		err = c.AddUploads(st, e.Field, e.Files)
	case NextClicked:
		err = c.Advance(st)
	case BackClicked:
		err = c.Retreat(st)
	case SubmitClicked:
		err = c.Submit(ctx, st)
	default:
		err = fmt.Errorf("unknown event %T", ev)
	}
	if err == nil {
		st.UpdatedAt = nowFunc().UTC()
	}
	return err
}

func (c *Controller) wrongStep(st *State, name string) error {
	return core.NewValidationError(nil, core.FieldError{
		Field: name,
		Error: fmt.Sprintf("%s cannot be changed on step %d (%s)", name, st.Step, st.Step.Title()),
	})
}

// SetField stores a top-level answer of the current step.
func (c *Controller) SetField(st *State, f Field, value interface{}) error {
	spec, ok := Spec(f)
	if !ok {
		return core.NewValidationError(nil, fieldErr(f, fmt.Sprintf("unknown field %q", f)))
	}
	if !st.Step.edits(f) || spec.Kind == KindUploads {
		return c.wrongStep(st, string(f))
	}

	val, err := coerce(spec.Kind, value)
	if err != nil {
		return core.NewValidationError(err, fieldErr(f, err.Error()))
	}
	if spec.Options != nil {
		if fErr := checkOptions(string(f), spec.Kind, val, spec.Options(c.cat)); fErr != nil {
			return core.NewValidationError(nil, *fErr)
		}
	}
	st.Values[f] = val
	return nil
}

// SetSubField stores a draft sub-answer of a selected subject area.
func (c *Controller) SetSubField(st *State, area SubjectArea, key string, value interface{}) error {
	if st.Step != StepServices {
		return c.wrongStep(st, subFieldName(area, key))
	}
	if !st.HasSubjectArea(area) {
		return core.NewValidationError(nil, core.FieldError{
			Field: subFieldName(area, key),
			Error: fmt.Sprintf("[%s] is not a selected subject area", area),
		})
	}
	draft, ok := st.SubForms[area]
	if !ok {
		draft = c.subjects.NewDraft(area)
		st.SubForms[area] = draft
	}
	return c.subjects.SetField(draft, area, key, value)
}

// SelectSubjectAreas replaces the selected subject areas.
func (c *Controller) SelectSubjectAreas(st *State, areas []SubjectArea) error {
	if st.Step != StepServices {
		return c.wrongStep(st, "subjectAreas")
	}
	return c.subjects.SelectAreas(st, areas)
}

// SetSignature copies the drawing surface. A nil image clears it.
func (c *Controller) SetSignature(st *State, img image.Image) error {
	if st.Step != StepSignature {
		return c.wrongStep(st, "signature")
	}
	if img == nil {
		st.Signature = nil
		return nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	st.Signature = rgba
	return nil
}

// AddUploads appends files to the upload field of the current step.
func (c *Controller) AddUploads(st *State, f Field, files []Upload) error {
	if spec, ok := Spec(f); !ok || spec.Kind != KindUploads || !st.Step.edits(f) {
		return c.wrongStep(st, string(f))
	}
	st.AddUploads(f, files)
	return nil
}

// Advance validates the current step and moves to its successor.
// On failure every unmet condition is reported and the step is unchanged.
func (c *Controller) Advance(st *State) error {
	pg, ok := pages[st.Step]
	if !ok || pg.next == 0 {
		return ErrNoNextStep
	}
	if pg.check != nil {
		if errs := pg.check(c, st); len(errs) > 0 {
			c.recorder.ValidationFailed(st.Step, len(errs))
			return core.NewValidationError(nil, errs...)
		}
	}
	from := st.Step
	st.Step = pg.next
	c.recorder.StepChanged(from, st.Step)
	return nil
}

// Retreat moves to the previous step without validation. Leaving the review page
// clears the signature. The thank-you page is final, and so is the review page once submitted.
func (c *Controller) Retreat(st *State) error {
	if !c.CanRetreat(st) {
		return ErrBackDisabled
	}
	if st.Step == StepReview {
		st.Signature = nil
	}
	from := st.Step
	st.Step--
	c.recorder.StepChanged(from, st.Step)
	return nil
}

// CanRetreat mirrors Retreat.
func (c *Controller) CanRetreat(st *State) bool {
	switch {
	case !st.Step.Valid(), st.Step == StepWelcome, st.Step == StepThankYou:
		return false
	case st.Step == StepReview:
		return !st.SubmissionDone
	}
	return true
}

// Verify re-runs the predicate of every step on the main route. It never moves the step.
func (c *Controller) Verify(st *State) error {
	var errs []core.FieldError
	for s := StepPersonal; s <= StepSignature; s++ {
		if pg := pages[s]; pg.check != nil {
			errs = append(errs, pg.check(c, st)...)
		}
	}
	if len(errs) > 0 {
		return core.NewValidationError(nil, errs...)
	}
	return nil
}

// Submit assembles the document and dispatches it. Only a fully successful
// dispatch marks the state as submitted and moves it to the thank-you page.
func (c *Controller) Submit(ctx context.Context, st *State) (err error) {
	if st.SubmissionDone {
		return ErrAlreadySubmitted
	}
	if st.Step != StepReview {
		return ErrNotOnReview
	}
	if c.submitter == nil {
		return ErrSubmitDisabled
	}
	if err := c.Verify(st); err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.recorder.SubmissionFinished(err, time.Since(start)) }()

	if err = c.submitter.Submit(ctx, st, c.rules.Background); err != nil {
		if c.logger != nil {
			c.logger.Error(fmt.Sprintf("submitting session %s: %v", st.ID, err), err)
		}
		return err
	}
	st.SubmissionDone = true
	st.Step = StepThankYou
	c.recorder.StepChanged(StepReview, StepThankYou)
	if c.logger != nil {
		c.logger.Info(fmt.Sprintf("session %s submitted", st.ID))
	}
	return nil
}
