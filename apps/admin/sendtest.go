package main

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aspirecraft/enrolment/apps/shared"
	"github.com/aspirecraft/enrolment/core"
)

const sendTestTemplate = "sendtest"

var errNoPassword = errors.New("no password provided")

type sendTestData struct {
	SentAt string
}

func (cli *commandLine) sendTestCommand() *cobra.Command {
	var (
		to      string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sendtest",
		Short: "Send a test message through the configured email backend",
		Long: `Send a test message through the configured email backend. With the smtp
backend, the sender password is prompted for when it is not configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return cli.sendTest(ctx, to)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (cli *commandLine) sendTest(ctx context.Context, to string) error {
	addr, err := mail.ParseAddress(core.CleanString(to, true /* lower */))
	if err != nil {
		return errors.Wrapf(err, "invalid recipient %q", to)
	}
	if cli.conf.Email.Backend == core.EmailBackendSMTP {
		if err = cli.promptPassword(); err != nil {
			return err
		}
	}

	deps, err := shared.Setup(cli.conf, cli.opts)
	if err != nil {
		return err
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      cli.conf.AppName + " - test message",
		TemplateName: sendTestTemplate,
		TemplateData: sendTestData{SentAt: time.Now().UTC().Format(time.RFC1123)},
	}
	if err = deps.Emails.SendMessages(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "test message sent to %s\n", addr.Address)
	return nil
}

// promptPassword asks for the sender password when none is configured.
func (cli *commandLine) promptPassword() error {
	if _, err := cli.conf.Secret(core.SecretSenderPassword); err == nil {
		return nil
	}
	fmt.Fprint(cli.out, "Enter sender password:")
	pwd, err := readPasswordFunc(stdinFd)
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		return errNoPassword
	}
	cli.conf.SetSecret(core.SecretSenderPassword, string(pwd))
	return nil
}
