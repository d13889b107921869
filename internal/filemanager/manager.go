// Package filemanager retires filesystem artifacts TMS leaves behind --
// expired job event logs, stale taskforce working directories, and their
// tarballs -- grounded on original_source/tms/file_manager/file_manager.py.
// That file is a messy mid-refactor snapshot (MAIN_LIST is typed
// inconsistently as both a list and a dict, and FileManager's constructor
// signature doesn't agree with its own call sites); this package keeps its
// three-rule shape and precheck/age-threshold/action structure but is a
// clean rewrite, not a transcription.
//
// This package also owns the one piece of behavior the watcher
// deliberately does not: actually unlinking a retired JEL. The watcher
// only notices a JEL's disappearance; the file manager is what makes it
// disappear, once WMS confirms nothing is still using it.
package filemanager

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/fsage"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jelpath"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// rule pairs a glob pattern with the age threshold, optional precheck, and
// action to apply to every path it matches.
type rule struct {
	name         string
	pattern      string
	ageThreshold time.Duration
	precheck     func(ctx context.Context, path string) (bool, error)
	action       func(path string) error
}

// Manager runs the file-lifecycle rules above on a fixed interval.
type Manager struct {
	cfg    *config.Config
	wms    *wmsclient.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewManager constructs a Manager, not yet running.
func NewManager(cfg *config.Config, wms *wmsclient.Client, logger *logging.Logger) *Manager {
	return &Manager{cfg: cfg, wms: wms, logger: logger, now: time.Now}
}

func (m *Manager) rules() []rule {
	return []rule{
		{
			name:         "expired job event logs",
			pattern:      filepath.Join(m.cfg.JobEventLogDir, "*"+jelpath.Suffix),
			ageThreshold: m.cfg.JELModificationExpiry,
			precheck: func(ctx context.Context, path string) (bool, error) {
				return jelNoLongerUsed(ctx, m.wms, m.cfg, path)
			},
			action: removeFile,
		},
		{
			name:         "stale taskforce directories",
			pattern:      filepath.Join(m.cfg.JobEventLogDir, jelpath.TaskforceDirPrefix+"*"),
			ageThreshold: m.cfg.TaskforceDirsExpiry,
			action: func(path string) error {
				return tarGzInto(path, m.cfg.JobEventLogDir)
			},
		},
		{
			name:         "archived taskforce directories",
			pattern:      filepath.Join(m.cfg.JobEventLogDir, jelpath.TaskforceDirPrefix+"*.tar.gz"),
			ageThreshold: m.cfg.TaskforceDirsTarExpiry,
			action:       removeFile,
		},
	}
}

// Run loops until ctx is cancelled, applying every rule once per
// FileManagerInterval.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.FileManagerInterval)
	defer ticker.Stop()

	for {
		m.logger.Info(logging.DestinationFileManager, "inspecting filepaths...")
		if err := m.runOnce(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Manager) runOnce(ctx context.Context) error {
	for _, r := range m.rules() {
		m.logger.Debugf(logging.DestinationFileManager, "searching filepath pattern: %s", r.pattern)

		matches, err := filepath.Glob(r.pattern)
		if err != nil {
			return fmt.Errorf("globbing %s: %w", r.pattern, err)
		}

		for _, path := range matches {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.act(ctx, r, path)
		}
	}
	return nil
}

func (m *Manager) act(ctx context.Context, r rule, path string) {
	if r.precheck != nil {
		ok, err := r.precheck(ctx, path)
		if err != nil {
			m.logger.Warnf(logging.DestinationFileManager, "precheck error for %s (%s): %v", path, r.name, err)
			return
		}
		if !ok {
			m.logger.Infof(logging.DestinationFileManager, "precheck failed for %s (%s), will retry next interval", path, r.name)
			return
		}
	}

	old, err := fsage.IsOldEnough(path, r.ageThreshold, m.now())
	if err != nil {
		m.logger.Warnf(logging.DestinationFileManager, "age check error for %s (%s): %v", path, r.name, err)
		return
	}
	if !old {
		m.logger.Debugf(logging.DestinationFileManager, "%s not old enough yet (%s)", path, r.name)
		return
	}

	if err := r.action(path); err != nil {
		m.logger.Warnf(logging.DestinationFileManager, "acting on %s (%s): %v", path, r.name, err)
		return
	}
	m.logger.Infof(logging.DestinationFileManager, "done: %s -> %s", r.name, path)
}
