// Package taskforce implements the data model and submission logic spec.md
// section 3 and section 4.2 describe: pilot/worker configuration, the
// per-taskforce environment file, and the deterministic scheduler submit
// description built from them. This is the Starter's core, grounded on
// original_source/tms/scalar/starter.py's make_condor_job_description and
// write_envfile, reimplemented against internal/condor's SubmitDict and
// internal/sizeconv instead of the python htcondor bindings.
package taskforce

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jelpath"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/sizeconv"
)

// PilotConfig describes the pilot image and environment WMS asked for.
type PilotConfig struct {
	ImageSource string // "auto", "cvmfs", ... -- resolved to a filesystem path prefix
	Tag         string
	Environment map[string]any // scalar or []string values
	InputFiles  []string
}

// WorkerConfig describes the worker process resources WMS asked for.
type WorkerConfig struct {
	TransferStdouterr             bool
	MaxRuntimeSeconds             int
	NCores                        int
	Priority                      int
	Disk                          string // human-readable or integer bytes
	Memory                        string // human-readable or integer bytes
	AdditionalCondorRequirements  string
}

// Description is the outcome of BuildSubmitDescription: the flat submit
// dict ready for internal/condor.Schedd.SubmitDict, plus whether an output
// subdirectory needs to be created once a cluster id is assigned.
type Description struct {
	SubmitDict       map[string]string
	MakeOutputSubdir bool
	JobEventLogFpath string
}

// staticPilotEnvDefaults are merged into every pilot's environment before
// the operator-provided additions, and are themselves overridable by the
// directive's explicit values -- order of precedence (descending): WMS's
// values, operator-configured additions, these constants.
var staticPilotEnvDefaults = map[string]string{
	"EWMS_PILOT_HTCHIRP":      "True",
	"EWMS_PILOT_HTCHIRP_DEST": "JOB_EVENT_LOG",
}

// BuildSubmitDescription assembles the scheduler submit description for one
// taskforce, writing its environment file as a side effect. jelDir is the
// configured JobEventLogDir; cvmfsPilotPath is config.Config.CVMFSPilotPath;
// opEnvAdditions is config.Config.EnvVarsAndValsAddToPilot; now is the
// submission time, used to name the day's JEL file.
func BuildSubmitDescription(
	taskforceUUID string,
	pilot PilotConfig,
	worker WorkerConfig,
	jelDir string,
	cvmfsPilotPath string,
	opEnvAdditions map[string]string,
	now time.Time,
) (Description, error) {
	taskforceDir := jelpath.TaskforceDir(jelDir, taskforceUUID)
	if err := os.MkdirAll(taskforceDir, 0o755); err != nil {
		return Description{}, fmt.Errorf("failed to create taskforce dir: %w", err)
	}

	env := mergedPilotEnvironment(pilot.Environment, opEnvAdditions)
	envfilePath, err := WriteEnvFile(taskforceDir, env)
	if err != nil {
		return Description{}, fmt.Errorf("failed to write env file: %w", err)
	}

	inputFiles := append(append([]string{}, pilot.InputFiles...), envfilePath)

	requirements := config.DefaultCondorRequirements
	if extra := strings.TrimSpace(worker.AdditionalCondorRequirements); extra != "" {
		requirements = requirements + " && " + extra
	}

	memory, err := sizeconv.NormalizeSize(worker.Memory)
	if err != nil {
		return Description{}, fmt.Errorf("invalid worker memory: %w", err)
	}
	disk, err := sizeconv.NormalizeSize(worker.Disk)
	if err != nil {
		return Description{}, fmt.Errorf("invalid worker disk: %w", err)
	}

	jelFpath := jelpath.NewJELPath(jelDir, now)

	submitDict := map[string]string{
		"universe":                   "container",
		"+should_transfer_container": `"no"`,
		"container_image":            fmt.Sprintf("%s:%s", resolveImageSource(pilot.ImageSource, cvmfsPilotPath), pilot.Tag),
		"Requirements":               requirements,
		"+FileSystemDomain":          `"blah"`,
		"log":                        jelFpath,
		"transfer_input_files":       strings.Join(inputFiles, ","),
		"transfer_output_files":      "",
		"should_transfer_files":      "YES",
		"when_to_transfer_output":    "ON_EXIT_OR_EVICT",
		"transfer_executable":        "false",
		"request_cpus":               fmt.Sprintf("%d", worker.NCores),
		"request_memory":             memory,
		"request_disk":               disk,
		"priority":                   fmt.Sprintf("%d", worker.Priority),
		"+WantIOProxy":               `"true"`,
		"+OriginalTime":              fmt.Sprintf("%d", worker.MaxRuntimeSeconds),
		"+EWMSTaskforceUUID":         fmt.Sprintf("%q", taskforceUUID),
		"job_ad_information_attrs":   "EWMSTaskforceUUID",
	}

	if worker.TransferStdouterr {
		submitDict["output"] = filepath.Join(taskforceDir, "cluster-$(ClusterId)", "$(ProcId).out")
		submitDict["error"] = filepath.Join(taskforceDir, "cluster-$(ClusterId)", "$(ProcId).err")
	}

	return Description{
		SubmitDict:       submitDict,
		MakeOutputSubdir: worker.TransferStdouterr,
		JobEventLogFpath: jelFpath,
	}, nil
}

// MakeOutputSubdir creates the taskforce's "outputs" directory once a
// cluster has actually been submitted, matching the original's post-submit
// mkdir; the scheduler itself resolves $(ClusterId)/$(ProcId) in the
// output/error paths, so no per-cluster directory needs to be pre-created.
func MakeOutputSubdir(jelDir, taskforceUUID string) error {
	dir := filepath.Join(jelpath.TaskforceDir(jelDir, taskforceUUID), "outputs")
	return os.MkdirAll(dir, 0o755)
}

func resolveImageSource(source, cvmfsPilotPath string) string {
	// "cvmfs" (and the default "auto") both resolve to the CVMFS mount;
	// future sources can be added here without touching the submit-dict
	// builder.
	switch strings.ToLower(source) {
	case "", "auto", "cvmfs":
		return cvmfsPilotPath
	default:
		return source
	}
}

func mergedPilotEnvironment(directiveEnv map[string]any, opAdditions map[string]string) map[string]any {
	merged := map[string]any{}
	for k, v := range directiveEnv {
		merged[k] = v
	}
	for k, v := range opAdditions {
		if !strings.HasPrefix(k, "EWMS_PILOT_") {
			continue
		}
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	for k, v := range staticPilotEnvDefaults {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return merged
}
