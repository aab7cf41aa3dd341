// Package shared wires the services used by every app.
package shared

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/assets"
	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
	"github.com/aspirecraft/enrolment/core/enrolment"
	docsvc "github.com/aspirecraft/enrolment/services/document"
	emailsvc "github.com/aspirecraft/enrolment/services/email"
)

type (
	// Deps are the ready-to-use wizard services.
	Deps struct {
		Catalog    *catalog.Catalog
		Emails     core.EmailService
		Renderer   enrolment.Renderer
		Controller *enrolment.Controller
	}

	// Options replace the configured services, mostly in tests.
	Options struct {
		Emails   core.EmailService
		Recorder enrolment.Recorder
		Logger   core.Logger
	}
)

// ResourcesFS returns the reference data directory, or the embedded copy when none is configured.
func ResourcesFS(conf *core.Config) fs.FS {
	if conf.Resources.Dir != "" {
		return os.DirFS(conf.Resources.Dir)
	}
	return assets.Resources()
}

// Setup loads the reference data and the email templates and builds the wizard controller.
func Setup(conf *core.Config, opts Options) (*Deps, error) {
	cat, err := catalog.Load(ResourcesFS(conf))
	if err != nil {
		return nil, errors.Wrap(err, "loading reference data")
	}
	if err = core.ParseEmailTemplates(assets.FS(), assets.EmailTemplatesDir, conf.Debug || conf.TestMode); err != nil {
		return nil, errors.Wrap(err, "parsing email templates")
	}
	rules, err := enrolment.RulesFromConfig(conf)
	if err != nil {
		return nil, errors.Wrap(err, "reading wizard rules")
	}

	emails := opts.Emails
	if emails == nil {
		if emails, err = emailsvc.NewService(conf); err != nil {
			return nil, err
		}
	}
	renderer := docsvc.NewPDFRenderer(conf)

	ctrlOpts := []enrolment.Option{
		enrolment.WithSubmitter(enrolment.NewSubmitter(conf, renderer, enrolment.NewDispatcher(emails))),
	}
	if opts.Recorder != nil {
		ctrlOpts = append(ctrlOpts, enrolment.WithRecorder(opts.Recorder))
	}
	if opts.Logger != nil {
		ctrlOpts = append(ctrlOpts, enrolment.WithLogger(opts.Logger))
	}

	return &Deps{
		Catalog:    cat,
		Emails:     emails,
		Renderer:   renderer,
		Controller: enrolment.NewController(cat, rules, ctrlOpts...),
	}, nil
}
