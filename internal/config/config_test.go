package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, val)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

var requiredVars = []string{
	"EWMS_ADDRESS", "EWMS_TOKEN_URL", "EWMS_CLIENT_ID", "EWMS_CLIENT_SECRET", "JOB_EVENT_LOG_DIR",
}

func setAllRequired(t *testing.T) {
	setEnv(t, "EWMS_ADDRESS", "https://wms.example.org")
	setEnv(t, "EWMS_TOKEN_URL", "https://auth.example.org/token")
	setEnv(t, "EWMS_CLIENT_ID", "tms")
	setEnv(t, "EWMS_CLIENT_SECRET", "secret")
	setEnv(t, "JOB_EVENT_LOG_DIR", "/var/jel")
}

func TestFromEnvironmentReportsAllMissingAtOnce(t *testing.T) {
	clearEnv(t, requiredVars...)

	_, err := FromEnvironment()
	if err == nil {
		t.Fatal("expected error when required vars are missing")
	}
	for _, v := range requiredVars {
		if !strings.Contains(err.Error(), v) {
			t.Errorf("expected error to mention %s, got: %v", v, err)
		}
	}
}

func TestFromEnvironmentDefaults(t *testing.T) {
	setAllRequired(t)
	clearEnv(t, "TMS_OUTER_LOOP_WAIT", "TMS_WATCHER_INTERVAL", "DRYRUN", "CVMFS_PILOT_PATH")

	cfg, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if cfg.OuterLoopWait != 60*time.Second {
		t.Errorf("OuterLoopWait = %v, want 60s", cfg.OuterLoopWait)
	}
	if cfg.WatcherInterval != 180*time.Second {
		t.Errorf("WatcherInterval = %v, want 180s", cfg.WatcherInterval)
	}
	if cfg.TaskforceDirsExpiry != 5*86400*time.Second {
		t.Errorf("TaskforceDirsExpiry = %v, want 5 days", cfg.TaskforceDirsExpiry)
	}
	if cfg.DryRun {
		t.Error("expected DryRun default false")
	}
	if cfg.ScheddAddr != "localhost" {
		t.Errorf("ScheddAddr = %q, want %q", cfg.ScheddAddr, "localhost")
	}
	if cfg.ScheddPort != 9618 {
		t.Errorf("ScheddPort = %d, want 9618", cfg.ScheddPort)
	}
}

func TestFromEnvironmentOverrides(t *testing.T) {
	setAllRequired(t)
	setEnv(t, "TMS_OUTER_LOOP_WAIT", "5")
	setEnv(t, "DRYRUN", "true")
	setEnv(t, "TMS_ENV_VARS_AND_VALS_ADD_TO_PILOT", "EWMS_PILOT_FOO=1 EWMS_PILOT_BAR=barbar")

	cfg, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if cfg.OuterLoopWait != 5*time.Second {
		t.Errorf("OuterLoopWait = %v, want 5s", cfg.OuterLoopWait)
	}
	if !cfg.DryRun {
		t.Error("expected DryRun true")
	}
	if cfg.EnvVarsAndValsAddToPilot["EWMS_PILOT_FOO"] != "1" || cfg.EnvVarsAndValsAddToPilot["EWMS_PILOT_BAR"] != "barbar" {
		t.Errorf("unexpected EnvVarsAndValsAddToPilot: %+v", cfg.EnvVarsAndValsAddToPilot)
	}
}

func TestParseEnvMapIgnoresMalformedTokens(t *testing.T) {
	got := parseEnvMap("foo=1 malformed bar=2")
	if len(got) != 2 || got["foo"] != "1" || got["bar"] != "2" {
		t.Errorf("parseEnvMap() = %+v", got)
	}
}
