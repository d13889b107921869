package scalar

import (
	"context"
	"errors"
	"fmt"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/condor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// stopOne realizes one WMS stop directive, matching stopper.py's stop():
// condor_rm the whole cluster, tagged with a fixed reason, then confirm the
// outcome back to WMS.
func stopOne(ctx context.Context, cfg *config.Config, schedd *condor.Schedd, wms *wmsclient.Client, logger *logging.Logger, taskforceUUID string, clusterID int) error {
	logger.Infof(logging.DestinationScalar, "stopping taskforce %s (cluster %d) on %s/%s", taskforceUUID, clusterID, cfg.Collector, cfg.Schedd)

	results, err := schedd.RemoveCluster(ctx, clusterID, "Requested by EWMS")
	if err != nil {
		reportErr := wms.ConfirmCondorRemoveFailed(ctx, taskforceUUID)
		return errors.Join(fmt.Errorf("removing cluster %d for %s: %w", clusterID, taskforceUUID, err), reportErr)
	}
	logger.Infof(logging.DestinationScalar, "removed %d workers from cluster %d", results.Success, clusterID)

	return wms.ConfirmCondorRemove(ctx, taskforceUUID)
}
