package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/sparkmeter/nquery/cmd/nquery/cmd"
	"github.com/sparkmeter/nquery/internal/common/logging"
)

func main() {
	logging.ConfigureCommandLineLogging(os.Stderr, false)

	// Cancelled on SIGINT/SIGTERM, which abandons any requests in flight.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.RootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if log.IsLevelEnabled(log.DebugLevel) {
			logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("nquery failed")
		} else {
			log.Error(err)
		}
		os.Exit(1)
	}
}
