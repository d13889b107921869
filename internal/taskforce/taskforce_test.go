package taskforce

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jelpath"
)

func TestBuildSubmitDescriptionBasicFields(t *testing.T) {
	jelDir := t.TempDir()
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	desc, err := BuildSubmitDescription(
		"abc-123",
		PilotConfig{
			ImageSource: "auto",
			Tag:         "v1.2.3",
			Environment: map[string]any{"FOO": "bar"},
			InputFiles:  []string{"/shared/input.json"},
		},
		WorkerConfig{
			TransferStdouterr: false,
			MaxRuntimeSeconds: 3600,
			NCores:            2,
			Priority:          5,
			Disk:              "2GB",
			Memory:            "1073741824",
		},
		jelDir,
		"/cvmfs/icecube.opensciencegrid.org/containers/ewms/pilot",
		nil,
		now,
	)
	if err != nil {
		t.Fatalf("BuildSubmitDescription: %v", err)
	}

	d := desc.SubmitDict
	if d["universe"] != "container" {
		t.Errorf("universe = %q", d["universe"])
	}
	if d["container_image"] != "/cvmfs/icecube.opensciencegrid.org/containers/ewms/pilot:v1.2.3" {
		t.Errorf("container_image = %q", d["container_image"])
	}
	if d["+EWMSTaskforceUUID"] != `"abc-123"` {
		t.Errorf("+EWMSTaskforceUUID = %q", d["+EWMSTaskforceUUID"])
	}
	if d["request_cpus"] != "2" {
		t.Errorf("request_cpus = %q", d["request_cpus"])
	}
	if d["request_memory"] != "1 GB" {
		t.Errorf("request_memory = %q", d["request_memory"])
	}
	if d["request_disk"] != "2 GB" {
		t.Errorf("request_disk = %q", d["request_disk"])
	}
	if !strings.Contains(d["transfer_input_files"], "/shared/input.json") {
		t.Errorf("transfer_input_files missing pilot input: %q", d["transfer_input_files"])
	}
	if !strings.HasSuffix(d["transfer_input_files"], EnvFileName) {
		t.Errorf("transfer_input_files missing envfile: %q", d["transfer_input_files"])
	}
	wantJEL := jelpath.NewJELPath(jelDir, now)
	if d["log"] != wantJEL {
		t.Errorf("log = %q, want %q", d["log"], wantJEL)
	}
	if _, ok := d["output"]; ok {
		t.Error("did not expect output path without TransferStdouterr")
	}
}

func TestBuildSubmitDescriptionTransferStdouterr(t *testing.T) {
	jelDir := t.TempDir()
	desc, err := BuildSubmitDescription(
		"uuid-1",
		PilotConfig{Tag: "latest"},
		WorkerConfig{TransferStdouterr: true, Disk: "1GB", Memory: "1GB"},
		jelDir,
		"/cvmfs/pilot",
		nil,
		time.Now(),
	)
	if err != nil {
		t.Fatalf("BuildSubmitDescription: %v", err)
	}
	if !desc.MakeOutputSubdir {
		t.Error("expected MakeOutputSubdir true")
	}
	if _, ok := desc.SubmitDict["output"]; !ok {
		t.Error("expected output path to be set")
	}
	if !strings.Contains(desc.SubmitDict["output"], "$(ClusterId)") {
		t.Errorf("output path missing ClusterId placeholder: %q", desc.SubmitDict["output"])
	}
}

func TestBuildSubmitDescriptionAppliesAdditionalRequirements(t *testing.T) {
	jelDir := t.TempDir()
	desc, err := BuildSubmitDescription(
		"uuid-2",
		PilotConfig{Tag: "latest"},
		WorkerConfig{Disk: "1GB", Memory: "1GB", AdditionalCondorRequirements: `GLIDEIN_Site == "Example"`},
		jelDir,
		"/cvmfs/pilot",
		nil,
		time.Now(),
	)
	if err != nil {
		t.Fatalf("BuildSubmitDescription: %v", err)
	}
	if !strings.Contains(desc.SubmitDict["Requirements"], `GLIDEIN_Site == "Example"`) {
		t.Errorf("Requirements missing extra clause: %q", desc.SubmitDict["Requirements"])
	}
}

func TestMergedPilotEnvironmentDefaultsAndFiltering(t *testing.T) {
	merged := mergedPilotEnvironment(
		map[string]any{"EWMS_PILOT_HTCHIRP": "False"},
		map[string]string{"EWMS_PILOT_EXTRA": "1", "UNRELATED": "skip-me"},
	)
	if merged["EWMS_PILOT_HTCHIRP"] != "False" {
		t.Error("directive value should win over static default")
	}
	if merged["EWMS_PILOT_HTCHIRP_DEST"] != "JOB_EVENT_LOG" {
		t.Error("expected static default to apply when directive omits a key")
	}
	if merged["EWMS_PILOT_EXTRA"] != "1" {
		t.Error("expected operator addition with EWMS_PILOT_ prefix to be merged")
	}
	if _, ok := merged["UNRELATED"]; ok {
		t.Error("expected non EWMS_PILOT_ operator addition to be filtered out")
	}
}

func TestMakeOutputSubdir(t *testing.T) {
	jelDir := t.TempDir()
	if err := MakeOutputSubdir(jelDir, "uuid-3"); err != nil {
		t.Fatalf("MakeOutputSubdir: %v", err)
	}
	want := filepath.Join(jelpath.TaskforceDir(jelDir, "uuid-3"), "outputs")
	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("expected %s to exist as a directory", want)
	}
}
