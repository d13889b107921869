// Package config loads TMS's process-wide environment configuration: the
// WMS connection, the local JEL directory, and the tunable intervals each
// loop uses. It mirrors the teacher's convention of a single frozen config
// struct built once at startup (see logging.Config) rather than scattering
// os.Getenv calls through the codebase.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultCondorRequirements is the base Requirements clause every taskforce
// submission carries, before any caller-supplied extras are appended with
// "&&". It excludes sites that have historically failed to run containers
// correctly for this pilot image.
const DefaultCondorRequirements = `ifthenelse(!isUndefined(HAS_SINGULARITY), HAS_SINGULARITY, HasSingularity) && HAS_CVMFS_icecube_opensciencegrid_org && (OSG_OS_VERSION =?= "8" || OSG_OS_VERSION =?= "9") && GLIDEIN_Site =!= "San Diego Supercomputer Center" && GLIDEIN_Site =!= "SDSC-PRP" && GLIDEIN_Site =!= "Kansas State University" && GLIDEIN_Site =!= "AMNH" && GLIDEIN_Site =!= "NotreDame" && GLIDEIN_Site =!= "Rhodes-HPC"`

// WMSRouteVersionPrefix is prefixed onto every WMS REST route.
const WMSRouteVersionPrefix = "v1"

// WatcherNTopTaskErrors caps how many distinct chirp error strings a single
// flush reports per cluster.
const WatcherNTopTaskErrors = 10

// TaskforceDirPrefix names the per-taskforce working directory under
// JobEventLogDir.
const TaskforceDirPrefix = "ewms-taskforce-"

// JELSuffix is the filename suffix that marks a file as a TMS-owned JEL.
const JELSuffix = ".tms.jel"

// Config holds every environment-derived setting TMS's loops consult.
type Config struct {
	// Required.
	EWMSAddress      string
	EWMSTokenURL     string
	EWMSClientID     string
	EWMSClientSecret string
	JobEventLogDir   string

	// Optional, defaulted.
	OuterLoopWait            time.Duration
	WatcherInterval          time.Duration
	FileManagerInterval      time.Duration
	MaxLoggingInterval       time.Duration
	ErrorWait                time.Duration
	JELModificationExpiry    time.Duration
	TaskforceDirsExpiry      time.Duration
	TaskforceDirsTarExpiry   time.Duration
	CVMFSPilotPath           string
	EnvVarsAndValsAddToPilot map[string]string
	DryRun                   bool
	LogLevel                 string

	// Collector and Schedd are the identifiers this agent reports to WMS
	// when filtering which taskforces belong to it. ScheddAddr/ScheddPort
	// are the actual network coordinates TMS dials to reach that scheduler
	// over CEDAR -- distinct from the identifier since TMS runs alongside
	// the scheduler it manages, not necessarily addressed by the same name
	// WMS uses to refer to it.
	Collector  string
	Schedd     string
	ScheddAddr string
	ScheddPort int
}

// FromEnvironment builds a Config from the process environment, applying
// the defaults documented in spec.md section 6. It fails closed: any
// required variable that is empty is reported together, not one at a time,
// so an operator sees the whole list of what's missing on the first try.
func FromEnvironment() (*Config, error) {
	cfg := &Config{
		EWMSAddress:      os.Getenv("EWMS_ADDRESS"),
		EWMSTokenURL:     os.Getenv("EWMS_TOKEN_URL"),
		EWMSClientID:     os.Getenv("EWMS_CLIENT_ID"),
		EWMSClientSecret: os.Getenv("EWMS_CLIENT_SECRET"),
		JobEventLogDir:   os.Getenv("JOB_EVENT_LOG_DIR"),

		OuterLoopWait:          durationSecondsOrDefault("TMS_OUTER_LOOP_WAIT", 60),
		WatcherInterval:        durationSecondsOrDefault("TMS_WATCHER_INTERVAL", 180),
		FileManagerInterval:    durationSecondsOrDefault("TMS_FILE_MANAGER_INTERVAL", 3600),
		MaxLoggingInterval:     durationSecondsOrDefault("TMS_MAX_LOGGING_INTERVAL", 300),
		ErrorWait:              durationSecondsOrDefault("TMS_ERROR_WAIT", 10),
		JELModificationExpiry:  durationSecondsOrDefault("JOB_EVENT_LOG_MODIFICATION_EXPIRY", 86400),
		TaskforceDirsExpiry:    durationSecondsOrDefault("TASKFORCE_DIRS_EXPIRY", 5*86400),
		TaskforceDirsTarExpiry: durationSecondsOrDefault("TASKFORCE_DIRS_TAR_EXPIRY", 5*86400),
		CVMFSPilotPath: envOrDefault(
			"CVMFS_PILOT_PATH",
			"/cvmfs/icecube.opensciencegrid.org/containers/ewms/observation-management-service/ewms-pilot",
		),
		EnvVarsAndValsAddToPilot: parseEnvMap(os.Getenv("TMS_ENV_VARS_AND_VALS_ADD_TO_PILOT")),
		DryRun:                   parseBool(os.Getenv("DRYRUN")),
		LogLevel:                 envOrDefault("LOG_LEVEL", "INFO"),

		Collector:  os.Getenv("COLLECTOR"),
		Schedd:     os.Getenv("SCHEDD"),
		ScheddAddr: envOrDefault("SCHEDD_ADDR", "localhost"),
		ScheddPort: intOrDefault("SCHEDD_PORT", 9618),
	}

	var missing []string
	for name, val := range map[string]string{
		"EWMS_ADDRESS":       cfg.EWMSAddress,
		"EWMS_TOKEN_URL":     cfg.EWMSTokenURL,
		"EWMS_CLIENT_ID":     cfg.EWMSClientID,
		"EWMS_CLIENT_SECRET": cfg.EWMSClientSecret,
		"JOB_EVENT_LOG_DIR":  cfg.JobEventLogDir,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationSecondsOrDefault(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}

func intOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false
	}
	return b
}

// parseEnvMap decodes "foo=1 bar=barbar baz=1" (the format the original
// service documents for TMS_ENV_VARS_AND_VALS_ADD_TO_PILOT).
func parseEnvMap(v string) map[string]string {
	out := map[string]string{}
	for _, tok := range strings.Fields(v) {
		k, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		out[k] = val
	}
	return out
}
