package emailsvc

import (
	"context"
	"io"
	"net/mail"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
)

type consoleService struct {
	appName       string
	from          mail.Address
	out           io.Writer
	disableOutput bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints every message to stdout instead of sending it.
func NewConsoleService(conf *core.Config) core.EmailService {
	return newConsoleService(conf, os.Stdout, false)
}

func newConsoleService(conf *core.Config, out io.Writer, disableOutput bool) *consoleService {
	from, err := sender(conf)
	if err != nil {
		from = mail.Address{Name: conf.Email.SenderName, Address: defaultSender}
	}
	return &consoleService{
		appName:       conf.AppName,
		from:          from,
		out:           out,
		disableOutput: disableOutput,
	}
}

func (svc *consoleService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := prepare(svc.appName, msg)
		if err != nil {
			return errors.Wrap(err, "rendering email")
		}
		if !ok {
			continue
		}
		if err := svc.send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (svc *consoleService) send(msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !svc.disableOutput {
		if _, err := buildMessage(svc.from, msg).WriteTo(svc.out); err != nil {
			return errors.Wrap(err, "writing email")
		}
		_, _ = io.WriteString(svc.out, "\r\n")
	}
	svc.sent = append(svc.sent, *msg)
	return nil
}

// ConsoleServiceMock records messages instead of printing them.
// Err, when set, is returned by every send.
type ConsoleServiceMock struct {
	*consoleService
	Err error
}

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{consoleService: newConsoleService(conf, io.Discard, true)}
}

func (svc *ConsoleServiceMock) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	if svc.Err != nil {
		return svc.Err
	}
	return svc.consoleService.SendMessages(ctx, messages...)
}

// SentMessages returns a copy of every message sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

// Reset forgets the sent messages and the error.
func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
	svc.Err = nil
}
