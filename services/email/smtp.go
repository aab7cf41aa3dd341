package emailsvc

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/aspirecraft/enrolment/core"
)

type smtpService struct {
	conf *core.Config
	// mockable in tests
	dialAndSend func(d *gomail.Dialer, m ...*gomail.Message) error
}

var _ core.EmailService = (*smtpService)(nil)

// NewSMTPService sends through an SMTP relay with STARTTLS, authenticated with the
// sender credentials. Credentials are read on every send.
func NewSMTPService(conf *core.Config) core.EmailService {
	return &smtpService{
		conf:        conf,
		dialAndSend: func(d *gomail.Dialer, m ...*gomail.Message) error { return d.DialAndSend(m...) },
	}
}

func (svc *smtpService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	from, err := sender(svc.conf)
	if err != nil {
		return err
	}
	password, err := svc.conf.Secret(core.SecretSenderPassword)
	if err != nil {
		return err
	}

	out := make([]*gomail.Message, 0, len(messages))
	for _, msg := range messages {
		ok, err := prepare(svc.conf.AppName, msg)
		if err != nil {
			return errors.Wrap(err, "rendering email")
		}
		if ok {
			out = append(out, buildMessage(from, msg))
		}
	}
	if len(out) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := gomail.NewDialer(svc.conf.Email.SMTPHost, svc.conf.Email.SMTPPort, from.Address, password)
	return errors.Wrap(svc.dialAndSend(d, out...), "sending email")
}
