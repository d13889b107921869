// Package scalar runs the starter/stopper half of TMS's control plane --
// the loop that turns WMS directives into scheduler submissions and
// removals -- grounded on original_source/tms/scalar/__init__.py,
// starter.py, and stopper.py. The name matches the original package: one
// taskforce worked on at a time per phase, as opposed to the watcher's
// one-goroutine-per-JEL concurrency.
package scalar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/condor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/taskforce"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

// errHaltedByDryRun and errTaskforceNotPending mirror starter.py's
// HaltedByDryRun and TaskforceNotToBeStarted: both are normal control flow,
// not failures, so the loop logs and moves on rather than propagating them.
var (
	errHaltedByDryRun      = errors.New("scalar: halted by dry run")
	errTaskforceNotPending = errors.New("scalar: taskforce no longer pending")
)

// startOne realizes one WMS start directive against the scheduler,
// matching starter.py's start(). It builds the submit description, checks
// the two abort conditions (dry run, taskforce no longer pending-starter),
// submits, and reports the outcome back to WMS.
func startOne(ctx context.Context, cfg *config.Config, schedd *condor.Schedd, wms *wmsclient.Client, logger *logging.Logger, directive wmsclient.TaskDirective) error {
	uuid := directive.TaskforceUUID
	logger.Infof(logging.DestinationScalar, "starting %d workers for taskforce %s on %s/%s", directive.NWorkers, uuid, cfg.Collector, cfg.Schedd)

	desc, err := taskforce.BuildSubmitDescription(
		uuid,
		taskforce.PilotConfig{
			ImageSource: directive.Pilot.ImageSource,
			Tag:         directive.Pilot.Tag,
			Environment: directive.Pilot.Environment,
			InputFiles:  directive.Pilot.InputFiles,
		},
		taskforce.WorkerConfig{
			TransferStdouterr:            directive.Worker.TransferStdouterr,
			MaxRuntimeSeconds:            directive.Worker.MaxWorkerRuntime,
			NCores:                       directive.Worker.NCores,
			Priority:                     directive.Worker.Priority,
			Disk:                         directive.Worker.WorkerDisk,
			Memory:                       directive.Worker.WorkerMemory,
			AdditionalCondorRequirements: directive.Worker.AdditionalCondorRequirements,
		},
		cfg.JobEventLogDir,
		cfg.CVMFSPilotPath,
		cfg.EnvVarsAndValsAddToPilot,
		time.Now(),
	)
	if err != nil {
		reportErr := wms.ConfirmCondorSubmitFailed(ctx, uuid, err.Error())
		return errors.Join(fmt.Errorf("building submit description for %s: %w", uuid, err), reportErr)
	}

	if cfg.DryRun {
		logger.Warnf(logging.DestinationScalar, "startup aborted - dryrun enabled: %s", uuid)
		return errHaltedByDryRun
	}

	status, err := wms.TaskforceStatus(ctx, uuid)
	if err != nil {
		return fmt.Errorf("checking taskforce status for %s: %w", uuid, err)
	}
	if status.Phase != wmsclient.PhasePendingStarter {
		logger.Warnf(logging.DestinationScalar, "startup aborted - %s is no longer pending-starter (phase=%s)", uuid, status.Phase)
		return errTaskforceNotPending
	}

	result, err := schedd.SubmitDict(ctx, desc.SubmitDict, directive.NWorkers)
	if err != nil {
		reportErr := wms.ConfirmCondorSubmitFailed(ctx, uuid, err.Error())
		return errors.Join(fmt.Errorf("submitting %s: %w", uuid, err), reportErr)
	}
	logger.Infof(logging.DestinationScalar, "submitted %s: cluster_id=%d num_procs=%d", uuid, result.ClusterID, result.NumProcs)

	if desc.MakeOutputSubdir {
		if err := taskforce.MakeOutputSubdir(cfg.JobEventLogDir, uuid); err != nil {
			logger.Warnf(logging.DestinationScalar, "creating output subdir for %s: %v", uuid, err)
		}
	}

	return wms.ConfirmCondorSubmit(ctx, uuid, wmsclient.CondorSubmitRequest{
		ClusterID:        result.ClusterID,
		NWorkers:         result.NumProcs,
		SubmitDict:       desc.SubmitDict,
		JobEventLogFpath: desc.JobEventLogFpath,
	})
}
