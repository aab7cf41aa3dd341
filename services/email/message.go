package emailsvc

import (
	"bytes"
	"io"
	"net/mail"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/aspirecraft/enrolment/core"
)

// defaultSender is used by the console backend when no sender is configured.
const defaultSender = "no-reply@aspirecraft.co.uk"

// sender returns the configured From address.
func sender(conf *core.Config) (mail.Address, error) {
	addr, err := conf.Secret(core.SecretSenderEmail)
	if err != nil {
		return mail.Address{}, err
	}
	return mail.Address{Name: conf.Email.SenderName, Address: addr}, nil
}

// buildMessage converts a rendered message into a MIME message.
func buildMessage(from mail.Address, msg *core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from.Address, from.Name)
	m.SetHeader("To", formatAddresses(m, msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", formatAddresses(m, msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", formatAddresses(m, msg.Bcc)...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetDateHeader("Date", time.Now())

	switch {
	case msg.TextContent != "" && msg.HTMLContent != "":
		m.SetBody("text/plain", msg.TextContent)
		m.AddAlternative("text/html", msg.HTMLContent)
	case msg.HTMLContent != "":
		m.SetBody("text/html", msg.HTMLContent)
	default:
		m.SetBody("text/plain", msg.TextContent)
	}

	for _, at := range msg.Attachments {
		content := at.Content
		m.Attach(at.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(content))
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {at.ContentType}}),
		)
	}
	return m
}

func formatAddresses(m *gomail.Message, addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, m.FormatAddress(a.Address, a.Name))
	}
	return out
}

// prepare renders msg and reports whether it has anything to send.
func prepare(appName string, msg *core.EmailMessage) (bool, error) {
	if err := msg.Render(appName); err != nil {
		return false, err
	}
	return msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()), nil
}
