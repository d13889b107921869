package wmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// PendingStarterTaskforce fetches the next taskforce to start, if any.
func (c *Client) PendingStarterTaskforce(ctx context.Context, collector, schedd string) (PendingStarterResponse, error) {
	path := fmt.Sprintf("/tms/pending-starter/taskforces?%s", url.Values{
		"collector": {collector}, "schedd": {schedd},
	}.Encode())

	var raw json.RawMessage
	if err := c.do(ctx, "GET", path, nil, &raw); err != nil {
		return PendingStarterResponse{}, err
	}
	if isEmptyObject(raw) {
		return PendingStarterResponse{Empty: true}, nil
	}
	var resp PendingStarterResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return PendingStarterResponse{}, fmt.Errorf("decoding pending-starter response: %w", err)
	}
	return resp, nil
}

// PendingStopperTaskforce fetches the next taskforce to stop, if any.
func (c *Client) PendingStopperTaskforce(ctx context.Context, collector, schedd string) (PendingStopperResponse, error) {
	path := fmt.Sprintf("/tms/pending-stopper/taskforces?%s", url.Values{
		"collector": {collector}, "schedd": {schedd},
	}.Encode())

	var raw json.RawMessage
	if err := c.do(ctx, "GET", path, nil, &raw); err != nil {
		return PendingStopperResponse{}, err
	}
	if isEmptyObject(raw) {
		return PendingStopperResponse{Empty: true}, nil
	}
	var resp PendingStopperResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return PendingStopperResponse{}, fmt.Errorf("decoding pending-stopper response: %w", err)
	}
	return resp, nil
}

// TaskforceStatus fetches a single taskforce's current lifecycle phase.
func (c *Client) TaskforceStatus(ctx context.Context, taskforceUUID string) (TaskforceStatusResponse, error) {
	var resp TaskforceStatusResponse
	err := c.do(ctx, "GET", "/taskforces/"+taskforceUUID, nil, &resp)
	return resp, err
}

// ConfirmCondorSubmit reports a successful submission.
func (c *Client) ConfirmCondorSubmit(ctx context.Context, taskforceUUID string, req CondorSubmitRequest) error {
	return c.do(ctx, "POST", "/tms/condor-submit/taskforces/"+taskforceUUID, req, nil)
}

// ConfirmCondorSubmitFailed reports a failed submission attempt.
func (c *Client) ConfirmCondorSubmitFailed(ctx context.Context, taskforceUUID, errMsg string) error {
	return c.do(ctx, "POST", "/tms/condor-submit/taskforces/"+taskforceUUID+"/failed", FailedRequest{Error: errMsg}, nil)
}

// ConfirmCondorRemove reports a successful condor_rm.
func (c *Client) ConfirmCondorRemove(ctx context.Context, taskforceUUID string) error {
	return c.do(ctx, "POST", "/tms/condor-rm/taskforces/"+taskforceUUID, nil, nil)
}

// ConfirmCondorRemoveFailed reports a failed condor_rm attempt.
func (c *Client) ConfirmCondorRemoveFailed(ctx context.Context, taskforceUUID string) error {
	return c.do(ctx, "POST", "/tms/condor-rm/taskforces/"+taskforceUUID+"/failed", nil, nil)
}

// ConfirmCondorComplete reports that a cluster has fully exited the queue.
func (c *Client) ConfirmCondorComplete(ctx context.Context, taskforceUUID string, timestamp int64) error {
	return c.do(ctx, "POST", "/tms/condor-complete/taskforces/"+taskforceUUID,
		CondorCompleteRequest{CondorCompleteTS: timestamp}, nil)
}

// PostStatuses flushes one batched status update. The caller is
// responsible for dropping empty top-level keys before calling; PostStatuses
// itself no-ops if both fields are empty, matching spec.md's "never split
// across requests; one batched call per flush" rule.
func (c *Client) PostStatuses(ctx context.Context, req StatusesRequest) error {
	if len(req.TopTaskErrorsByTaskforce) == 0 && len(req.CompoundStatusesByTaskforce) == 0 {
		return nil
	}
	return c.do(ctx, "POST", "/tms/statuses/taskforces", req, nil)
}

// QueryTaskforces runs an arbitrary filtered query against WMS's taskforce
// collection, used both by the watcher (finding taskforces for a JEL path)
// and the file manager (checking whether a JEL is still in use).
func (c *Client) QueryTaskforces(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	var resp QueryResponse
	err := c.do(ctx, "POST", "/query/taskforces", req, &resp)
	return resp, err
}

func isEmptyObject(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("{}"))
}
