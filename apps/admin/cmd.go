package main

import (
	"io"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aspirecraft/enrolment/apps/shared"
	"github.com/aspirecraft/enrolment/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	stdinFd          = int(syscall.Stdin)
)

type commandLine struct {
	conf *core.Config
	out  io.Writer
	opts shared.Options // service overrides, for tests
}

func newCommandLine(conf *core.Config, out io.Writer) *commandLine {
	return &commandLine{conf: conf, out: out}
}

func (cli *commandLine) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "AspireCraft enrolment administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.AddCommand(
		cli.catalogCommand(),
		cli.previewCommand(),
		cli.sendTestCommand(),
	)
	return root
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	root := cli.root()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}
