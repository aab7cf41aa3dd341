package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aspirecraft/enrolment/apps/shared"
	"github.com/aspirecraft/enrolment/core/enrolment"
	emailsvc "github.com/aspirecraft/enrolment/services/email"
)

// answers is a recorded wizard session.
//
//	{
//	  "fields": {"personalInfo": "Ada Lovelace", "dob": "1990-05-17", ...},
//	  "subjectAreas": ["IELTS"],
//	  "subForms": {"IELTS": {"ielts_reason": "..."}},
//	  "signature": "signature.png"
//	}
type answers struct {
	Fields       map[string]interface{}            `json:"fields"`
	SubjectAreas []string                          `json:"subjectAreas"`
	SubForms     map[string]map[string]interface{} `json:"subForms"`
	Signature    string                            `json:"signature"` // PNG file, relative to the answers file
}

func (cli *commandLine) previewCommand() *cobra.Command {
	var (
		answersPath string
		outPath     string
		text        bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the submission document of an answers file",
		Long: `Replay an answers file through the wizard, step by step, and render the
document that would be sent. Nothing is dispatched.

Examples:
  # Write the PDF next to the current directory
  admin preview --answers answers.json

  # Print the plain text rendition
  admin preview --answers answers.json --text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.preview(answersPath, outPath, text)
		},
	}
	cmd.Flags().StringVar(&answersPath, "answers", "", "Answers file (JSON)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output PDF path (defaults to the document file name)")
	cmd.Flags().BoolVar(&text, "text", false, "Print the plain text document instead of writing a PDF")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func (cli *commandLine) preview(answersPath, outPath string, text bool) error {
	raw, err := os.ReadFile(answersPath)
	if err != nil {
		return errors.Wrap(err, "reading answers")
	}
	var ans answers
	if err = json.Unmarshal(raw, &ans); err != nil {
		return errors.Wrap(err, "decoding answers")
	}

	opts := cli.opts
	if opts.Emails == nil {
		opts.Emails = emailsvc.NewConsoleService(cli.conf)
	}
	deps, err := shared.Setup(cli.conf, opts)
	if err != nil {
		return err
	}

	st, err := replay(deps.Controller, ans, filepath.Dir(answersPath))
	if err != nil {
		return err
	}
	doc, err := deps.Controller.Document(st)
	if err != nil {
		return err
	}

	if text {
		_, err = fmt.Fprint(cli.out, doc.Text())
		return err
	}
	rendered, err := deps.Renderer.Render(doc)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = rendered.Filename
	}
	if err = os.WriteFile(outPath, rendered.Content, 0o644); err != nil {
		return errors.Wrap(err, "writing document")
	}
	fmt.Fprintf(cli.out, "written %s (%d bytes)\n", outPath, len(rendered.Content))
	return nil
}

// replay answers every page and advances until the review page.
func replay(ctrl *enrolment.Controller, ans answers, baseDir string) (*enrolment.State, error) {
	ctx := context.Background()
	st := enrolment.NewState("preview")

	for st.Step != enrolment.StepReview {
		var evs []enrolment.Event
		for _, f := range st.Step.Fields() {
			if v, ok := ans.Fields[string(f)]; ok {
				evs = append(evs, enrolment.FieldChanged{Field: f, Value: v})
			}
		}
		switch st.Step {
		case enrolment.StepServices:
			evs = append(evs, servicesEvents(ctrl, ans)...)
		case enrolment.StepSignature:
			if ans.Signature != "" {
				ev, err := signatureEvent(filepath.Join(baseDir, ans.Signature))
				if err != nil {
					return nil, err
				}
				evs = append(evs, ev)
			}
		}
		evs = append(evs, enrolment.NextClicked{})

		for _, ev := range evs {
			if err := ctrl.Reduce(ctx, st, ev); err != nil {
				return nil, errors.Wrapf(err, "step %d (%s)", st.Step, st.Step.Title())
			}
		}
	}
	return st, nil
}

func servicesEvents(ctrl *enrolment.Controller, ans answers) []enrolment.Event {
	areas := make([]enrolment.SubjectArea, 0, len(ans.SubjectAreas))
	for _, a := range ans.SubjectAreas {
		areas = append(areas, enrolment.SubjectArea(a))
	}
	evs := []enrolment.Event{enrolment.SubjectAreasChanged{Areas: areas}}

	for _, area := range areas {
		values := ans.SubForms[string(area)]
		// in form order, so that dependent option lists are resolved first
		for _, f := range ctrl.Subjects().Form(area).Fields {
			if v, ok := values[f.Key]; ok {
				evs = append(evs, enrolment.SubFieldChanged{Area: area, Key: f.Key, Value: v})
			}
		}
	}
	return evs
}

func signatureEvent(path string) (enrolment.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening signature")
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "decoding signature")
	}
	return enrolment.SignatureCaptured{Image: img}, nil
}
