package scalar

import (
	"context"
	"errors"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/condor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// Loop drains WMS's pending-starter and pending-stopper queues, one
// taskforce at a time, matching scalar/__init__.py's scalar_loop: every
// start is fully drained before stops are considered, then the whole cycle
// waits out the configured interval.
type Loop struct {
	cfg    *config.Config
	schedd *condor.Schedd
	wms    *wmsclient.Client
	logger *logging.Logger
}

// NewLoop constructs a Loop, not yet running.
func NewLoop(cfg *config.Config, wms *wmsclient.Client, logger *logging.Logger) *Loop {
	return &Loop{
		cfg:    cfg,
		schedd: condor.NewSchedd(cfg.Schedd, cfg.ScheddAddr, cfg.ScheddPort),
		wms:    wms,
		logger: logger,
	}
}

// Run loops until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info(logging.DestinationScalar, "scalar loop activated")
	ticker := time.NewTicker(l.cfg.OuterLoopWait)
	defer ticker.Stop()

	for {
		if err := l.drainStarts(ctx); err != nil {
			return err
		}
		if err := l.drainStops(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Loop) drainStarts(ctx context.Context) error {
	for {
		resp, err := l.wms.PendingStarterTaskforce(ctx, l.cfg.Collector, l.cfg.Schedd)
		if err != nil {
			return err
		}
		if resp.Empty {
			return nil
		}

		if err := startOne(ctx, l.cfg, l.schedd, l.wms, l.logger, resp.TaskDirective); err != nil {
			if errors.Is(err, errHaltedByDryRun) || errors.Is(err, errTaskforceNotPending) {
				continue
			}
			l.logger.Warnf(logging.DestinationScalar, "starting %s: %v", resp.TaskDirective.TaskforceUUID, err)
			if err := l.errorWait(ctx); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) drainStops(ctx context.Context) error {
	for {
		resp, err := l.wms.PendingStopperTaskforce(ctx, l.cfg.Collector, l.cfg.Schedd)
		if err != nil {
			return err
		}
		if resp.Empty {
			return nil
		}

		if err := stopOne(ctx, l.cfg, l.schedd, l.wms, l.logger, resp.TaskforceUUID, resp.ClusterID); err != nil {
			l.logger.Warnf(logging.DestinationScalar, "stopping %s: %v", resp.TaskforceUUID, err)
			if err := l.errorWait(ctx); err != nil {
				return err
			}
		}
	}
}

// errorWait pauses for cfg.ErrorWait between failed directive attempts,
// matching the original's throttled retry but remaining responsive to
// cancellation.
func (l *Loop) errorWait(ctx context.Context) error {
	timer := time.NewTimer(l.cfg.ErrorWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
