// Package emailsvc holds the email backends.
package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
)

// NewService returns the backend named by the email.backend setting.
func NewService(conf *core.Config) (core.EmailService, error) {
	switch conf.Email.Backend {
	case core.EmailBackendConsole, "":
		return NewConsoleService(conf), nil
	case core.EmailBackendSMTP:
		return NewSMTPService(conf), nil
	case core.EmailBackendSendgrid:
		return NewSendgridService(conf), nil
	}
	return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
}
