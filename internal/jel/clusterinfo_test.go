package jel

import "testing"

func TestUpdateFromEventClusterRemoveSignalsRemoval(t *testing.T) {
	c := NewClusterInfo(42, "TF-B")
	removed := c.UpdateFromEvent(Event{Type: ClusterRemove})
	if !removed {
		t.Error("expected clusterRemoved true for a CLUSTER_REMOVE event")
	}
}

func TestUpdateFromEventTracksStatusTransitions(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	c.UpdateFromEvent(Event{Type: Submit, Proc: 0})
	c.UpdateFromEvent(Event{Type: Execute, Proc: 1})

	statuses, ok := c.AggregateCompoundStatuses()
	if !ok {
		t.Fatal("expected a non-empty, changed snapshot")
	}
	if statuses["IDLE"]["null"] != 1 {
		t.Errorf("IDLE/null = %d, want 1", statuses["IDLE"]["null"])
	}
	if statuses["RUNNING"]["null"] != 1 {
		t.Errorf("RUNNING/null = %d, want 1", statuses["RUNNING"]["null"])
	}
}

func TestUpdateFromEventHeldRendersHoldReason(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	c.UpdateFromEvent(Event{
		Type: JobHeld,
		Proc: 0,
		Attrs: map[string]string{
			"HoldReasonCode":    "34",
			"HoldReasonSubCode": "0",
		},
	})
	statuses, ok := c.AggregateCompoundStatuses()
	if !ok {
		t.Fatal("expected a changed snapshot")
	}
	key := "HELD: Memory usage exceeds a memory limit"
	if statuses[key]["null"] != 1 {
		t.Errorf("statuses[%q] = %v", key, statuses[key])
	}
}

func TestAggregateCompoundStatusesSuppressesUnchanged(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	c.UpdateFromEvent(Event{Type: Submit, Proc: 0})

	if _, ok := c.AggregateCompoundStatuses(); !ok {
		t.Fatal("expected first aggregation to report a change")
	}
	if _, ok := c.AggregateCompoundStatuses(); ok {
		t.Error("expected second aggregation with no new events to report no change")
	}

	c.UpdateFromEvent(Event{Type: Execute, Proc: 0})
	if _, ok := c.AggregateCompoundStatuses(); !ok {
		t.Error("expected aggregation after a real transition to report a change")
	}
}

func TestAggregateCompoundStatusesEmptyIsSuppressed(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	if _, ok := c.AggregateCompoundStatuses(); ok {
		t.Error("expected an empty cluster to produce no snapshot")
	}
}

func TestChirpStatusGroupsCompoundStatuses(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	c.UpdateFromEvent(Event{Type: Submit, Proc: 0})
	c.UpdateFromEvent(Event{Type: Generic, Proc: 0, Info: `HTChirpEWMSPilotStatus: "tasking"`})

	statuses, ok := c.AggregateCompoundStatuses()
	if !ok {
		t.Fatal("expected a changed snapshot")
	}
	if statuses["IDLE"]["tasking"] != 1 {
		t.Errorf("IDLE/tasking = %d, want 1; got %v", statuses["IDLE"]["tasking"], statuses)
	}
}

func TestGetTopTaskErrorsCapsAndOrders(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	errs := map[int]string{0: "boom-a", 1: "boom-a", 2: "boom-b", 3: "boom-c"}
	for proc, msg := range errs {
		c.UpdateFromEvent(Event{Type: Generic, Proc: proc, Info: "HTChirpEWMSPilotError: " + msg})
	}

	top, ok := c.GetTopTaskErrors(2)
	if !ok {
		t.Fatal("expected a non-empty result")
	}
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top["boom-a"] != 2 {
		t.Errorf("top[boom-a] = %d, want 2", top["boom-a"])
	}
}

func TestGetTopTaskErrorsEmptyWhenNoneReported(t *testing.T) {
	c := NewClusterInfo(42, "TF-A")
	c.UpdateFromEvent(Event{Type: Submit, Proc: 0})
	if _, ok := c.GetTopTaskErrors(10); ok {
		t.Error("expected no task errors to report no change")
	}
}
