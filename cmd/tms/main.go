// Command tms runs the taskforce management service: the scalar
// starter/stopper loop, the JEL watcher supervisor, and the file manager,
// all against one (collector, schedd) pair. Grounded on
// original_source/tms/__main__.py's main(), with golang.org/x/sync/errgroup
// standing in for asyncio.TaskGroup's cancel-on-first-failure semantics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/filemanager"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/monitor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/ratelimit"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/scalar"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/watcher"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tms:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(&logging.Config{
		OutputPath:   "stderr",
		MinVerbosity: logging.VerbosityFromString(cfg.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	logger.Info(logging.DestinationGeneral, "TMS activated")

	limiter := ratelimit.NewManager(0, 0, 0, 0)
	wms := wmsclient.New(cfg, limiter, logger)
	tmons := &monitor.List{}

	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(sigCtx)

	logger.Info(logging.DestinationGeneral, "firing off scalar loop...")
	scalarLoop := scalar.NewLoop(cfg, wms, logger)
	g.Go(func() error { return scalarLoop.Run(ctx) })

	logger.Info(logging.DestinationGeneral, "firing off watcher supervisor...")
	supervisor := watcher.NewSupervisor(cfg, wms, logger, tmons)
	g.Go(func() error { return supervisor.Run(ctx) })

	logger.Info(logging.DestinationGeneral, "firing off file manager...")
	fileManager := filemanager.NewManager(cfg, wms, logger)
	g.Go(func() error { return fileManager.Run(ctx) })

	if err := g.Wait(); err != nil && sigCtx.Err() == nil {
		return err
	}
	logger.Info(logging.DestinationGeneral, "TMS shutting down")
	return nil
}
