package filemanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/jelpath"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/ratelimit"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func testManager(t *testing.T, dir string, queryResponse wmsclient.QueryResponse) *Manager {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/query/taskforces", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(queryResponse)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		EWMSAddress: srv.URL, EWMSTokenURL: srv.URL + "/token",
		EWMSClientID: "id", EWMSClientSecret: "secret",
		JobEventLogDir:         dir,
		JELModificationExpiry:  time.Hour,
		TaskforceDirsExpiry:    time.Hour,
		TaskforceDirsTarExpiry: time.Hour,
		FileManagerInterval:    time.Hour,
	}
	logger, err := logging.New(nil)
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	wms := wmsclient.New(cfg, ratelimit.NewManager(0, 0, 0, 0), logger)
	m := NewManager(cfg, wms, logger)
	m.now = func() time.Time { return time.Now() }
	return m
}

func TestRunOnceRemovesExpiredUnusedJEL(t *testing.T) {
	dir := t.TempDir()
	jel := filepath.Join(dir, "2026-3-7"+jelpath.Suffix)
	touch(t, jel, time.Now().Add(-2*time.Hour))

	m := testManager(t, dir, wmsclient.QueryResponse{})
	if err := m.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if _, err := os.Stat(jel); !os.IsNotExist(err) {
		t.Error("expected expired, unused JEL to be removed")
	}
}

func TestRunOnceKeepsJELStillInUse(t *testing.T) {
	dir := t.TempDir()
	jel := filepath.Join(dir, "2026-3-7"+jelpath.Suffix)
	touch(t, jel, time.Now().Add(-2*time.Hour))

	m := testManager(t, dir, wmsclient.QueryResponse{
		Taskforces: []wmsclient.TaskforceQueryResult{{TaskforceUUID: "TF-A", ClusterID: 1}},
	})
	if err := m.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if _, err := os.Stat(jel); err != nil {
		t.Errorf("expected still-used JEL to survive, stat err = %v", err)
	}
}

func TestRunOnceKeepsYoungJELEvenIfUnused(t *testing.T) {
	dir := t.TempDir()
	jel := filepath.Join(dir, "2026-3-7"+jelpath.Suffix)
	touch(t, jel, time.Now().Add(-time.Minute))

	m := testManager(t, dir, wmsclient.QueryResponse{})
	if err := m.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if _, err := os.Stat(jel); err != nil {
		t.Errorf("expected young JEL to survive, stat err = %v", err)
	}
}

func TestRunOnceArchivesStaleTaskforceDir(t *testing.T) {
	dir := t.TempDir()
	tfDir := filepath.Join(dir, jelpath.TaskforceDirPrefix+"abc")
	if err := os.Mkdir(tfDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	touch(t, filepath.Join(tfDir, "out.txt"), time.Now().Add(-2*time.Hour))
	if err := os.Chtimes(tfDir, time.Now().Add(-2*time.Hour), time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	m := testManager(t, dir, wmsclient.QueryResponse{})
	if err := m.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	if _, err := os.Stat(tfDir); !os.IsNotExist(err) {
		t.Error("expected taskforce dir to be removed after archiving")
	}
	tarball := filepath.Join(dir, jelpath.TaskforceDirPrefix+"abc.tar.gz")
	if _, err := os.Stat(tarball); err != nil {
		t.Errorf("expected tarball to exist, stat err = %v", err)
	}
}

func TestRunOnceRemovesExpiredTarball(t *testing.T) {
	dir := t.TempDir()
	tarball := filepath.Join(dir, jelpath.TaskforceDirPrefix+"abc.tar.gz")
	touch(t, tarball, time.Now().Add(-2*time.Hour))

	m := testManager(t, dir, wmsclient.QueryResponse{})
	if err := m.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if _, err := os.Stat(tarball); !os.IsNotExist(err) {
		t.Error("expected expired tarball to be removed")
	}
}
