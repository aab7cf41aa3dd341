package enrolment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aspirecraft/enrolment/core"
)

// applicant contact details, shown in the confirmation
const (
	ContactEmail    = "enquiries@aspirecraft.co.uk"
	ContactWhatsApp = "+44 7711 317561"
)

// email templates
const (
	InternalTemplate  = "internal_submission"
	ApplicantTemplate = "applicant_confirmation"
)

const (
	applicantSubject = "Thank You for Signing Up – Next Steps for Your Journey with AspireCraft"
	submissionDate   = "2006-01-02"
)

type (
	internalData struct {
		Name            string
		Country         string
		Email           string
		SubjectAreas    []SubjectArea
		AttachmentCount int
	}

	applicantData struct {
		Name            string
		ContactEmail    string
		ContactWhatsApp string
	}
)

// Dispatcher sends the two submission messages. It never retries.
type Dispatcher struct {
	emails core.EmailService
}

func NewDispatcher(emails core.EmailService) *Dispatcher {
	return &Dispatcher{emails: emails}
}

// Dispatch sends the rendered document and the uploads to the internal address,
// then the confirmation to the applicant. The submission is complete only when
// both were sent; configuration errors are returned as they are, any other
// failure as a *core.DispatchError.
func (d *Dispatcher) Dispatch(ctx context.Context, doc *Document, rendered core.Attachment, internal, applicant string) error {
	if internal == "" {
		return core.NewConfigurationError(core.SecretSenderEmail)
	}

	staff := d.internalMessage(doc, rendered, internal)
	if err := d.send(ctx, staff, internal); err != nil {
		return err
	}
	return d.send(ctx, d.applicantMessage(doc, applicant), applicant)
}

func (d *Dispatcher) send(ctx context.Context, m *core.EmailMessage, recipient string) error {
	if _, err := mail.ParseAddress(recipient); err != nil {
		return core.NewDispatchError(recipient, err)
	}
	if err := d.emails.SendMessages(ctx, m); err != nil {
		if core.IsConfigurationError(err) {
			return err
		}
		return core.NewDispatchError(recipient, err)
	}
	return nil
}

// InternalSubject is the subject line of the staff message.
func InternalSubject(doc *Document) string {
	return fmt.Sprintf("AspireCraft - Country: %s Name: %s Submission Date: %s",
		doc.Country, doc.ApplicantName, doc.SubmittedAt.Format(submissionDate))
}

func (d *Dispatcher) internalMessage(doc *Document, rendered core.Attachment, to string) *core.EmailMessage {
	attachments := make([]core.Attachment, 0, len(doc.Uploads)+1)
	attachments = append(attachments, rendered)
	for _, u := range doc.Uploads {
		attachments = append(attachments, core.Attachment{
			Content:     u.Content,
			ContentType: u.ContentType,
			Filename:    u.Filename,
		})
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Address: to}},
		Subject:      InternalSubject(doc),
		TemplateName: InternalTemplate,
		TemplateData: internalData{
			Name:            doc.ApplicantName,
			Country:         doc.Country,
			Email:           doc.ApplicantEmail,
			SubjectAreas:    doc.SubjectAreas,
			AttachmentCount: len(attachments),
		},
		Attachments: attachments,
	}
}

func (d *Dispatcher) applicantMessage(doc *Document, to string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: doc.ApplicantName, Address: to}},
		Subject:      applicantSubject,
		TemplateName: ApplicantTemplate,
		TemplateData: applicantData{
			Name:            doc.ApplicantName,
			ContactEmail:    ContactEmail,
			ContactWhatsApp: ContactWhatsApp,
		},
	}
}
