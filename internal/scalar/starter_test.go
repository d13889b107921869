package scalar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/condor"
	"github.com/Observation-Management-Service/ewms-task-management-service/internal/wmsclient"
)

func TestStartOneReportsSubmitDescriptionBuildFailure(t *testing.T) {
	mux := http.NewServeMux()
	failedCalled := false
	mux.HandleFunc("/v1/tms/condor-submit/taskforces/TF-BAD/failed", func(w http.ResponseWriter, r *http.Request) {
		failedCalled = true
		w.WriteHeader(http.StatusOK)
	})

	cfg, wms, logger := testSetup(t, mux)
	schedd := condor.NewSchedd(cfg.Schedd, cfg.ScheddAddr, cfg.ScheddPort)

	directive := wmsclient.TaskDirective{TaskforceUUID: "TF-BAD", NWorkers: 1}
	directive.Worker.WorkerMemory = "not-a-size"
	directive.Worker.WorkerDisk = "1073741824"

	err := startOne(context.Background(), cfg, schedd, wms, logger, directive)
	if err == nil {
		t.Fatal("expected startOne to fail on an unparseable worker_memory")
	}
	if !failedCalled {
		t.Error("expected condor-submit/failed to be reported to WMS")
	}
}
