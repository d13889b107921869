package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jelpath"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/monitor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// Supervisor periodically scans the configured JEL directory for new files
// and spawns one JELWatcher per file, grounded on
// original_source/tms/watcher/watcher_loop.py's run(). It uses
// golang.org/x/sync/errgroup for the task-group cancel-on-first-failure
// semantics spec.md section 5 requires, in place of the original's
// asyncio.TaskGroup.
type Supervisor struct {
	cfg    *config.Config
	wms    *wmsclient.Client
	logger *logging.Logger
	tmons  *monitor.List

	mu         sync.Mutex
	inProgress map[string]bool
}

// NewSupervisor constructs a Supervisor, not yet running.
func NewSupervisor(cfg *config.Config, wms *wmsclient.Client, logger *logging.Logger, tmons *monitor.List) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		wms:        wms,
		logger:     logger,
		tmons:      tmons,
		inProgress: map[string]bool{},
	}
}

// Run scans for JEL files and watches each until ctx is cancelled or one
// watcher fails with an error other than ErrJobEventLogDeleted.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info(logging.DestinationWatcher, "supervisor activated")

	g, ctx := errgroup.WithContext(ctx)
	ticker := time.NewTicker(s.cfg.OuterLoopWait)
	defer ticker.Stop()

	for {
		s.logger.Infof(logging.DestinationWatcher, "analyzing JEL directory for new logs (%s)...", s.cfg.JobEventLogDir)

		entries, err := os.ReadDir(s.cfg.JobEventLogDir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := filepath.Join(s.cfg.JobEventLogDir, entry.Name())
			if !jelpath.IsJEL(s.cfg.JobEventLogDir, path) {
				continue
			}
			if s.markInProgress(path) {
				continue
			}

			s.logger.Infof(logging.DestinationWatcher, "creating new JEL watcher for %s...", path)
			jw := NewJELWatcher(path, s.wms, s.cfg, s.logger, s.tmons)
			g.Go(func() error {
				defer s.clearInProgress(path)
				err := jw.Run(ctx)
				if errors.Is(err, ErrJobEventLogDeleted) {
					s.logger.Infof(logging.DestinationWatcher, "%s removed, watcher exiting", path)
					return nil
				}
				return err
			})
		}

		select {
		case <-ctx.Done():
			return g.Wait()
		case <-ticker.C:
		}
	}
}

// markInProgress atomically checks and, if absent, adds path to the
// in-progress set, returning whether it was already present.
func (s *Supervisor) markInProgress(path string) (alreadyPresent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress[path] {
		return true
	}
	s.inProgress[path] = true
	return false
}

func (s *Supervisor) clearInProgress(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inProgress, path)
}
