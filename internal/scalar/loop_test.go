package scalar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/config"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/logging"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/ratelimit"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

func testSetup(t *testing.T, mux *http.ServeMux) (*config.Config, *wmsclient.Client, *logging.Logger) {
	t.Helper()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "token_type": "bearer", "expires_in": 3600})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		EWMSAddress: srv.URL, EWMSTokenURL: srv.URL + "/token",
		EWMSClientID: "id", EWMSClientSecret: "secret",
		JobEventLogDir: t.TempDir(),
		ErrorWait:      10 * time.Millisecond,
		OuterLoopWait:  10 * time.Millisecond,
		ScheddAddr:     "127.0.0.1",
		ScheddPort:     1,
		Collector:      "collector-a",
		Schedd:         "schedd-a",
	}
	logger, err := logging.New(nil)
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	wms := wmsclient.New(cfg, ratelimit.NewManager(0, 0, 0, 0), logger)
	return cfg, wms, logger
}

func TestDrainStartsHaltsOnDryRunWithoutTouchingSchedd(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/v1/tms/pending-starter/taskforces", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"task_directive": map[string]any{
					"taskforce_uuid": "TF-A",
					"n_workers":      2,
					"pilot":          map[string]any{"tag": "v1", "environment": map[string]any{}},
					"worker": map[string]any{
						"worker_memory": "1073741824", "worker_disk": "1073741824",
					},
				},
				"mqprofiles": []any{},
			})
			return
		}
		w.Write([]byte("{}"))
	})

	cfg, wms, logger := testSetup(t, mux)
	loop := NewLoop(cfg, wms, logger)
	cfg.DryRun = true

	if err := loop.drainStarts(context.Background()); err != nil {
		t.Fatalf("drainStarts: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected pending-starter polled twice (directive, then empty), got %d", calls)
	}
}

func TestDrainStartsNoOpsWhenEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tms/pending-starter/taskforces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	cfg, wms, logger := testSetup(t, mux)
	loop := NewLoop(cfg, wms, logger)

	if err := loop.drainStarts(context.Background()); err != nil {
		t.Fatalf("drainStarts: %v", err)
	}
}

func TestDrainStopsNoOpsWhenEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tms/pending-stopper/taskforces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	cfg, wms, logger := testSetup(t, mux)
	loop := NewLoop(cfg, wms, logger)

	if err := loop.drainStops(context.Background()); err != nil {
		t.Fatalf("drainStops: %v", err)
	}
}

func TestDrainStartsHaltsWhenTaskforceNoLongerPending(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/v1/tms/pending-starter/taskforces", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"task_directive": map[string]any{
					"taskforce_uuid": "TF-B",
					"n_workers":      1,
					"pilot":          map[string]any{"tag": "v1", "environment": map[string]any{}},
					"worker":         map[string]any{"worker_memory": "1073741824", "worker_disk": "1073741824"},
				},
			})
			return
		}
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("/v1/taskforces/TF-B", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wmsclient.TaskforceStatusResponse{Phase: wmsclient.PhaseCondorSubmitted})
	})

	cfg, wms, logger := testSetup(t, mux)
	loop := NewLoop(cfg, wms, logger)

	if err := loop.drainStarts(context.Background()); err != nil {
		t.Fatalf("drainStarts: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected pending-starter polled twice, got %d", calls)
	}
}

func TestDrainStopsRetriesAndRespectsCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tms/pending-stopper/taskforces", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"taskforce_uuid": "TF-C", "cluster_id": 7})
	})
	mux.HandleFunc("/v1/tms/condor-rm/taskforces/TF-C/failed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cfg, wms, logger := testSetup(t, mux)
	loop := NewLoop(cfg, wms, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := loop.drainStops(ctx)
	if err == nil {
		t.Fatal("expected drainStops to eventually return a context error against an unreachable schedd")
	}
}
