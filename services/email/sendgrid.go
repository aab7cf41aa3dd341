package emailsvc

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/aspirecraft/enrolment/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	conf *core.Config
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config) core.EmailService {
	return &sendgridService{conf: conf}
}

func (svc sendgridService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	key, err := svc.conf.Secret(core.SecretSendgridAPIKey)
	if err != nil {
		return err
	}
	from, err := sender(svc.conf)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		ok, err := prepare(svc.conf.AppName, msg)
		if err != nil {
			return errors.Wrap(err, "rendering email")
		}
		if !ok {
			continue
		}
		if err := svc.send(ctx, key, svc.prepare(from, *msg)); err != nil {
			return err
		}
	}
	return nil
}

func (svc sendgridService) prepare(from mail.Address, msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject

	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(svc.getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(svc.getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.getSGEmail(from))
	m.AddPersonalizations(p)

	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(svc.getSGAttachment(a))
	}
	return m
}

func (svc sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridService) getSGAttachment(at core.Attachment) *sgmail.Attachment {
	return sgmail.NewAttachment().
		SetContent(base64.StdEncoding.EncodeToString(at.Content)).
		SetType(at.ContentType).
		SetFilename(at.Filename).
		SetDisposition("attachment")
}

func (svc sendgridService) send(ctx context.Context, key string, m *sgmail.SGMailV3) error {
	req := sendgrid.GetRequest(key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}
