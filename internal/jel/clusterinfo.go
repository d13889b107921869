package jel

import (
	"reflect"
	"sort"
)

// JobStatus is the scheduler's canonical worker status, the status-changing
// half of the transition table in
// original_source/tms/condor_tools.py's JOB_EVENT_STATUS_TRANSITIONS.
type JobStatus string

const (
	Idle      JobStatus = "IDLE"
	Running   JobStatus = "RUNNING"
	Suspended JobStatus = "SUSPENDED"
	Held      JobStatus = "HELD"
	Removed   JobStatus = "REMOVED"
	Completed JobStatus = "COMPLETED"
)

// statusTransitions maps an event type to the worker status it drives,
// transcribed from JOB_EVENT_STATUS_TRANSITIONS. JobHeld is handled
// separately since it also carries a hold code/subcode.
var statusTransitions = map[EventType]JobStatus{
	Submit:             Idle,
	JobEvicted:         Idle,
	JobUnsuspended:     Idle,
	JobReleased:        Idle,
	ShadowException:    Idle,
	JobReconnectFailed: Idle,
	JobTerminated:      Completed,
	Execute:            Running,
	JobSuspended:       Suspended,
	JobAborted:         Removed,
}

// jobStatusValue is a job's current JobStatus attribute; HoldCode/HoldSubCode
// are only meaningful when Status is Held, mirroring the original's
// (status_code, hold_code, hold_subcode) triple.
type jobStatusValue struct {
	Status      JobStatus
	HoldCode    int
	HoldSubCode int
}

// StatusKey renders a job status the way compound-status aggregation keys
// its counts: the scheduler's status name, or "HELD: <reason>" for holds.
func (v jobStatusValue) StatusKey() string {
	if v.Status == Held {
		return "HELD: " + HoldReasonToString(v.HoldCode, v.HoldSubCode)
	}
	return string(v.Status)
}

type jobRecord struct {
	status    jobStatusValue
	hasStatus bool
	chirp     map[ChirpAttr]string
}

// ClusterInfo accumulates per-job state for one HTCondor cluster as its
// events are drained from the JEL, grounded on
// original_source/tms/watcher/utils.py's ClusterInfo class.
type ClusterInfo struct {
	ClusterID     int
	TaskforceUUID string
	// SeenInJEL marks that at least one event for this cluster has been
	// applied; nothing in this module reads it.
	SeenInJEL bool

	jobs map[int]*jobRecord

	lastCompoundStatuses map[string]map[string]int
	lastTopTaskErrors    map[string]int
}

// NewClusterInfo starts tracking a cluster belonging to taskforceUUID.
func NewClusterInfo(clusterID int, taskforceUUID string) *ClusterInfo {
	return &ClusterInfo{
		ClusterID:     clusterID,
		TaskforceUUID: taskforceUUID,
		jobs:          map[int]*jobRecord{},
	}
}

func (c *ClusterInfo) jobRecordFor(proc int) *jobRecord {
	j, ok := c.jobs[proc]
	if !ok {
		j = &jobRecord{chirp: map[ChirpAttr]string{}}
		c.jobs[proc] = j
	}
	return j
}

// UpdateFromEvent classifies and applies ev to this cluster's job state.
// clusterRemoved reports that ev was a CLUSTER_REMOVE event -- the caller
// should send the condor-complete notification and drop the cluster --
// mirroring ReceivedClusterRemovedJobEvent in the original. Any other event
// this cluster's jobs don't track (an "Other" event, or a chirp attribute
// outside the closed enum) is simply a no-op, not an error.
func (c *ClusterInfo) UpdateFromEvent(ev Event) (clusterRemoved bool) {
	c.SeenInJEL = true

	if ev.Type == ClusterRemove {
		return true
	}

	if ev.Type == Generic {
		if attr, value, ok := ParseChirp(ev.Info); ok {
			c.jobRecordFor(ev.Proc).chirp[attr] = value
		}
		return false
	}

	if ev.Type == JobHeld {
		code := parseIntAttr(ev.Attrs["HoldReasonCode"], 0)
		subcode := parseIntAttr(ev.Attrs["HoldReasonSubCode"], 0)
		rec := c.jobRecordFor(ev.Proc)
		rec.status = jobStatusValue{Status: Held, HoldCode: code, HoldSubCode: subcode}
		rec.hasStatus = true
		return false
	}

	if target, ok := statusTransitions[ev.Type]; ok {
		rec := c.jobRecordFor(ev.Proc)
		rec.status = jobStatusValue{Status: target}
		rec.hasStatus = true
	}
	return false
}

// AggregateCompoundStatuses groups this cluster's jobs by status, then by
// their last-reported HTChirpEWMSPilotStatus (a job that never chirped a
// status groups under the literal key "null", matching how the original's
// None key stringifies when the snapshot is serialized to JSON). ok is
// false when the result is empty or identical to the last snapshot
// returned, so the watcher can skip sending a no-op update.
func (c *ClusterInfo) AggregateCompoundStatuses() (map[string]map[string]int, bool) {
	result := map[string]map[string]int{}
	for _, rec := range c.jobs {
		if !rec.hasStatus {
			continue
		}
		statusKey := rec.status.StatusKey()
		chirpKey := "null"
		if v, ok := rec.chirp[ChirpStatus]; ok {
			chirpKey = v
		}
		if result[statusKey] == nil {
			result[statusKey] = map[string]int{}
		}
		result[statusKey][chirpKey]++
	}
	if len(result) == 0 {
		return nil, false
	}
	if reflect.DeepEqual(result, c.lastCompoundStatuses) {
		return nil, false
	}
	c.lastCompoundStatuses = result
	return result, true
}

// GetTopTaskErrors counts distinct HTChirpEWMSPilotError values across this
// cluster's jobs (nulls excluded) and keeps only the top n by count,
// matching Counter.most_common(WATCHER_N_TOP_TASK_ERRORS).
func (c *ClusterInfo) GetTopTaskErrors(n int) (map[string]int, bool) {
	counts := map[string]int{}
	for _, rec := range c.jobs {
		if errMsg, ok := rec.chirp[ChirpError]; ok && errMsg != "" {
			counts[errMsg]++
		}
	}
	if len(counts) == 0 {
		return nil, false
	}

	type pair struct {
		msg   string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for msg, cnt := range counts {
		pairs = append(pairs, pair{msg, cnt})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].msg < pairs[j].msg
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}

	result := make(map[string]int, len(pairs))
	for _, p := range pairs {
		result[p.msg] = p.count
	}
	if reflect.DeepEqual(result, c.lastTopTaskErrors) {
		return nil, false
	}
	c.lastTopTaskErrors = result
	return result, true
}
