package main

import (
	"os"

	"github.com/aspirecraft/enrolment/core"
	logsvc "github.com/aspirecraft/enrolment/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewSink(os.Stderr, conf), conf)

	cli := newCommandLine(conf, os.Stdout)
	err := cli.run(os.Args)
	if err != nil {
		logger.Error("admin command failed", err)
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
