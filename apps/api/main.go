package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	echoapi "github.com/aspirecraft/enrolment/apps/api/echo"
	"github.com/aspirecraft/enrolment/apps/shared"
	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/enrolment"
	logsvc "github.com/aspirecraft/enrolment/services/logger"
	"github.com/aspirecraft/enrolment/services/metrics"
	inmemdb "github.com/aspirecraft/enrolment/storage/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewSink(os.Stdout, conf), conf)
	defer logger.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	deps, err := shared.Setup(conf, shared.Options{Recorder: m, Logger: logger})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}
	sessions := inmemdb.NewSessionRepository(inmemdb.NewDB())

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Purge idle sessions

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go purgeIdleSessions(purgeCtx, conf, sessions, m, logger)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Controller: deps.Controller,
			Sessions:   sessions,
			Renderer:   deps.Renderer,
			Metrics:    m,
			Gatherer:   reg,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// purgeIdleSessions drops the sessions whose token has expired.
func purgeIdleSessions(ctx context.Context, conf *core.Config, sessions enrolment.SessionRepository, m *metrics.Metrics, logger core.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.PurgeIdle(now.Add(-conf.Server.SessionTokenExpiry)); n > 0 {
				m.SessionsChanged(-n)
				logger.Debug(fmt.Sprintf("purged %d idle sessions", n))
			}
		}
	}
}
