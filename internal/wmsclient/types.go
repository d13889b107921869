package wmsclient

// TaskDirective is the pilot/worker configuration WMS hands the starter for
// one taskforce, grounded on spec.md section 3's Data Model.
type TaskDirective struct {
	TaskforceUUID string `json:"taskforce_uuid"`
	NWorkers      int    `json:"n_workers"`
	Pilot         struct {
		ImageSource string         `json:"image_source"`
		Tag         string         `json:"tag"`
		Environment map[string]any `json:"environment"`
		InputFiles  []string       `json:"input_files"`
	} `json:"pilot"`
	Worker struct {
		TransferStdouterr            bool   `json:"transfer_stdouterr"`
		MaxWorkerRuntime             int    `json:"max_worker_runtime"`
		NCores                       int    `json:"n_cores"`
		Priority                     int    `json:"priority"`
		WorkerMemory                 string `json:"worker_memory"`
		WorkerDisk                   string `json:"worker_disk"`
		AdditionalCondorRequirements string `json:"additional_condor_requirements"`
	} `json:"worker"`
}

// PendingStarterResponse wraps the task_directive the way
// GET /tms/pending-starter/taskforces returns it; Empty is true for the
// documented "{}" no-work response.
type PendingStarterResponse struct {
	Empty          bool
	TaskDirective  TaskDirective `json:"task_directive"`
	MQProfiles     []any         `json:"mqprofiles"`
}

// PendingStopperResponse is GET /tms/pending-stopper/taskforces's body;
// Empty is true for the documented "{}" no-work response.
type PendingStopperResponse struct {
	Empty         bool
	TaskforceUUID string `json:"taskforce_uuid"`
	ClusterID     int    `json:"cluster_id"`
}

// TaskforcePhase is the taskforce lifecycle phase GET /taskforces/{uuid}
// reports.
type TaskforcePhase string

const (
	PhasePendingStarter TaskforcePhase = "pending-starter"
	PhasePendingStopper TaskforcePhase = "pending-stopper"
	PhaseCondorSubmitted TaskforcePhase = "condor-submitted"
	PhaseCondorComplete TaskforcePhase = "condor-complete"
)

// TaskforceStatusResponse is GET /taskforces/{uuid}'s body.
type TaskforceStatusResponse struct {
	Phase TaskforcePhase `json:"phase"`
}

// CondorSubmitRequest is the body of
// POST /tms/condor-submit/taskforces/{uuid}.
type CondorSubmitRequest struct {
	ClusterID        int               `json:"cluster_id"`
	NWorkers         int               `json:"n_workers"`
	SubmitDict       map[string]string `json:"submit_dict"`
	JobEventLogFpath string            `json:"job_event_log_fpath"`
}

// FailedRequest is the shared body shape of both "/failed" confirmation
// endpoints.
type FailedRequest struct {
	Error string `json:"error"`
}

// CondorCompleteRequest is the body of
// POST /tms/condor-complete/taskforces/{uuid}.
type CondorCompleteRequest struct {
	CondorCompleteTS int64 `json:"condor_complete_ts"`
}

// StatusesRequest is the body of POST /tms/statuses/taskforces. Both
// fields omit empty to match spec.md's "drop empty top-level keys" flush
// rule.
type StatusesRequest struct {
	TopTaskErrorsByTaskforce  map[string]map[string]int            `json:"top_task_errors_by_taskforce,omitempty"`
	CompoundStatusesByTaskforce map[string]map[string]map[string]int `json:"compound_statuses_by_taskforce,omitempty"`
}

// QueryRequest is the body of POST /query/taskforces.
type QueryRequest struct {
	Query      map[string]any `json:"query"`
	Projection []string       `json:"projection"`
}

// TaskforceQueryResult is one element of QueryResponse.Taskforces.
type TaskforceQueryResult struct {
	TaskforceUUID string `json:"taskforce_uuid"`
	ClusterID     int    `json:"cluster_id"`
}

// QueryResponse is POST /query/taskforces's body.
type QueryResponse struct {
	Taskforces []TaskforceQueryResult `json:"taskforces"`
}
