package scalar

import (
	"context"
	"net/http"
	"testing"

	"github.com/Observation-Management-Service/ewms-task-management-service/internal/condor"
)

func TestStopOneReportsRemoveFailureAgainstUnreachableSchedd(t *testing.T) {
	mux := http.NewServeMux()
	failedCalled := false
	mux.HandleFunc("/v1/tms/condor-rm/taskforces/TF-X/failed", func(w http.ResponseWriter, r *http.Request) {
		failedCalled = true
		w.WriteHeader(http.StatusOK)
	})

	cfg, wms, logger := testSetup(t, mux)
	schedd := condor.NewSchedd(cfg.Schedd, cfg.ScheddAddr, cfg.ScheddPort)

	err := stopOne(context.Background(), cfg, schedd, wms, logger, "TF-X", 99)
	if err == nil {
		t.Fatal("expected stopOne to fail against an unreachable schedd")
	}
	if !failedCalled {
		t.Error("expected condor-rm/failed to be reported to WMS")
	}
}
