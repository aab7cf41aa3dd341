package enrolment

import (
	"context"
	"image/color"

	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
)

// Renderer serializes a document into a file.
type Renderer interface {
	Render(doc *Document) (core.Attachment, error)
}

// TextRenderer renders documents as plain text files.
type TextRenderer struct{}

func (TextRenderer) Render(doc *Document) (core.Attachment, error) {
	return core.Attachment{
		Content:     []byte(doc.Text()),
		ContentType: "text/plain; charset=utf-8",
		Filename:    doc.Filename(".txt"),
	}, nil
}

// Submitter turns a reviewed state into a rendered document and dispatches it.
type Submitter struct {
	conf       *core.Config
	renderer   Renderer
	dispatcher *Dispatcher
}

func NewSubmitter(conf *core.Config, renderer Renderer, dispatcher *Dispatcher) *Submitter {
	return &Submitter{conf: conf, renderer: renderer, dispatcher: dispatcher}
}

// Prepare assembles and renders the document of st.
func (s *Submitter) Prepare(st *State, background color.Color) (*Document, core.Attachment, error) {
	doc, err := Assemble(st, background)
	if err != nil {
		return nil, core.Attachment{}, err
	}
	rendered, err := s.renderer.Render(doc)
	if err != nil {
		return nil, core.Attachment{}, errors.Wrap(err, "rendering document")
	}
	return doc, rendered, nil
}

// Submit resolves the internal recipient before any work so that missing
// credentials are reported without building the document.
func (s *Submitter) Submit(ctx context.Context, st *State, background color.Color) error {
	internal, err := s.conf.InternalRecipient()
	if err != nil {
		return err
	}
	doc, rendered, err := s.Prepare(st, background)
	if err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, doc, rendered, internal, doc.ApplicantEmail)
}
