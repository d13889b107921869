package filemanager

import (
	"context"
	"fmt"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// jelNoLongerUsed asks WMS whether any taskforce still in flight references
// path as its job event log. It is the sole precheck the JEL removal rule
// runs before IsOldEnough is even considered, grounded on
// original_source/tms/watcher/utils.py's is_jel_no_longer_used -- rewritten
// to query for taskforces that have NOT condor-completed yet, rather than
// the original's query (which filtered for condor_complete_ts != null and
// so inverted the check); see DESIGN.md for that decision.
func jelNoLongerUsed(ctx context.Context, wms *wmsclient.Client, cfg *config.Config, path string) (bool, error) {
	resp, err := wms.QueryTaskforces(ctx, wmsclient.QueryRequest{
		Query: map[string]any{
			"job_event_log_fpath": path,
			"collector":           cfg.Collector,
			"schedd":              cfg.Schedd,
			"condor_complete_ts":  nil,
		},
		Projection: []string{"taskforce_uuid"},
	})
	if err != nil {
		return false, fmt.Errorf("querying taskforces still using %s: %w", path, err)
	}
	return len(resp.Taskforces) == 0, nil
}
