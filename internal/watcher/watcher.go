// Package watcher drains job event logs and reports aggregated per-taskforce
// worker status to WMS, grounded on
// original_source/tms/watcher/watcher.py and watcher_loop.py. Unlike the
// Python original, this watcher never deletes its own JEL file -- spec.md
// assigns that responsibility to the file manager/operator instead, so a
// JEL's disappearance is treated purely as an external signal to stop.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/interval"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jel"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jelpath"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/monitor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// ErrJobEventLogDeleted signals that the watched JEL no longer exists on
// disk. It is not a failure: the caller should treat the watcher's run as
// having finished normally.
var ErrJobEventLogDeleted = errors.New("watcher: job event log deleted")

// JELWatcher drains a single job event log file, aggregating per-cluster
// worker status and flushing it to WMS.
type JELWatcher struct {
	path   string
	wms    *wmsclient.Client
	cfg    *config.Config
	logger *logging.Logger
	tmons  *monitor.List

	clusters map[int]*jel.ClusterInfo
}

// NewJELWatcher constructs a watcher for path, not yet running.
func NewJELWatcher(path string, wms *wmsclient.Client, cfg *config.Config, logger *logging.Logger, tmons *monitor.List) *JELWatcher {
	return &JELWatcher{
		path:     path,
		wms:      wms,
		cfg:      cfg,
		logger:   logger,
		tmons:    tmons,
		clusters: map[int]*jel.ClusterInfo{},
	}
}

// Run drains path until it disappears or ctx is cancelled. It returns
// ErrJobEventLogDeleted (never treated as a failure by the caller) once the
// file is gone, after a best-effort final flush.
func (w *JELWatcher) Run(ctx context.Context) error {
	w.logger.Infof(logging.DestinationWatcher, "watching %s", w.path)

	f, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrJobEventLogDeleted
		}
		return fmt.Errorf("opening %s: %w", w.path, err)
	}
	defer f.Close()

	year, ok := jelpath.ParseYear(w.path)
	if !ok {
		year = time.Now().Year()
	}
	reader := jel.NewReader(f, year)
	updateEWMSTimer := interval.New("update_ewms_timer", w.cfg.WatcherInterval)

	ticker := time.NewTicker(w.cfg.WatcherInterval)
	defer ticker.Stop()

	for first := true; ; first = false {
		if !first {
			select {
			case <-ctx.Done():
				_ = w.flush(ctx)
				return ctx.Err()
			case <-ticker.C:
			}
		}

		if _, statErr := os.Stat(w.path); statErr != nil {
			if os.IsNotExist(statErr) {
				_ = w.flush(ctx)
				return ErrJobEventLogDeleted
			}
			return fmt.Errorf("stat %s: %w", w.path, statErr)
		}

		if err := w.queryForMoreTaskforces(ctx); err != nil {
			w.logger.Warnf(logging.DestinationWatcher, "querying WMS for new taskforces on %s: %v", w.path, err)
		}

		if err := w.drain(ctx, reader, updateEWMSTimer); err != nil {
			if errors.Is(err, ErrJobEventLogDeleted) {
				_ = w.flush(ctx)
			}
			return err
		}
	}
}

// drain reads every fully-formed event currently available and applies it,
// flushing aggregated status whenever updateEWMSTimer comes due. It returns
// once the reader hits io.EOF (the log has no more complete blocks right
// now) rather than blocking for new data -- the outer loop's ticker governs
// when to look again.
func (w *JELWatcher) drain(ctx context.Context, reader *jel.Reader, updateEWMSTimer *interval.Timer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return w.flush(ctx)
		}
		if err != nil {
			w.logger.Debugf(logging.DestinationWatcher, "skipping unparseable event in %s: %v", w.path, err)
			continue
		}

		cluster, ok := w.clusters[ev.Cluster]
		if !ok {
			w.logger.Debugf(logging.DestinationWatcher, "event for untracked cluster %d in %s, skipping", ev.Cluster, w.path)
			continue
		}

		if removed := cluster.UpdateFromEvent(ev); removed {
			if err := w.wms.ConfirmCondorComplete(ctx, cluster.TaskforceUUID, ev.Timestamp.Unix()); err != nil {
				w.logger.Warnf(logging.DestinationWatcher, "condor-complete for %s: %v", cluster.TaskforceUUID, err)
			}
			delete(w.clusters, ev.Cluster)
			continue
		}

		if updateEWMSTimer.Ready(time.Now()) {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
}

// queryForMoreTaskforces picks up clusters that started submitting after
// this watcher began, by asking WMS which taskforces are associated with
// this JEL path, matching
// original_source/tms/watcher/utils.py's query_for_more_taskforces.
func (w *JELWatcher) queryForMoreTaskforces(ctx context.Context) error {
	resp, err := w.wms.QueryTaskforces(ctx, wmsclient.QueryRequest{
		Query: map[string]any{
			"collector":           w.cfg.Collector,
			"schedd":              w.cfg.Schedd,
			"job_event_log_fpath": w.path,
		},
		Projection: []string{"taskforce_uuid", "cluster_id"},
	})
	if err != nil {
		return err
	}
	for _, tf := range resp.Taskforces {
		if _, known := w.clusters[tf.ClusterID]; known {
			continue
		}
		w.logger.Infof(logging.DestinationWatcher, "tracking new taskforce %s (cluster %d)", tf.TaskforceUUID, tf.ClusterID)
		w.clusters[tf.ClusterID] = jel.NewClusterInfo(tf.ClusterID, tf.TaskforceUUID)
		w.tmons.Append(monitor.TaskforceSummary{TaskforceUUID: tf.TaskforceUUID, ClusterID: tf.ClusterID})
	}
	return nil
}

// flush aggregates every tracked cluster's compound statuses and top task
// errors and sends one batched POST to WMS if any content survives (the
// shared monitor list is appended to by queryForMoreTaskforces, once per
// newly tracked cluster, not here), matching watcher.py's _aggregate_cluster_infos/_update_ewms.
func (w *JELWatcher) flush(ctx context.Context) error {
	req := wmsclient.StatusesRequest{
		TopTaskErrorsByTaskforce:    map[string]map[string]int{},
		CompoundStatusesByTaskforce: map[string]map[string]map[string]int{},
	}

	for _, cluster := range w.clusters {
		if statuses, changed := cluster.AggregateCompoundStatuses(); changed {
			req.CompoundStatusesByTaskforce[cluster.TaskforceUUID] = statuses
		}
		if errs, changed := cluster.GetTopTaskErrors(config.WatcherNTopTaskErrors); changed {
			req.TopTaskErrorsByTaskforce[cluster.TaskforceUUID] = errs
		}
	}

	if len(req.TopTaskErrorsByTaskforce) == 0 {
		req.TopTaskErrorsByTaskforce = nil
	}
	if len(req.CompoundStatusesByTaskforce) == 0 {
		req.CompoundStatusesByTaskforce = nil
	}

	return w.wms.PostStatuses(ctx, req)
}
