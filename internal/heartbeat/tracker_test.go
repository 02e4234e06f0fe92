package heartbeat

import (
	"testing"
	"time"

	"github.com/jengzang/geoevents-backend-go/internal/models"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestUpsertMergesFieldByField(t *testing.T) {
	tracker := NewTracker()
	now := time.Now()

	tracker.Upsert("n1", now, models.HeartbeatRequest{
		BatteryPct: f64(80),
		FramesSent: i64(5),
	})

	// A later heartbeat omitting battery_pct must not erase it.
	status := tracker.Upsert("n1", now.Add(time.Minute), models.HeartbeatRequest{
		FramesSent: i64(6),
	})

	if status.BatteryPct == nil || *status.BatteryPct != 80 {
		t.Errorf("battery_pct = %v, want 80 preserved", status.BatteryPct)
	}
	if status.FramesSent == nil || *status.FramesSent != 6 {
		t.Errorf("frames_sent = %v, want 6", status.FramesSent)
	}
}

func TestUpsertLocationRequiresPair(t *testing.T) {
	tracker := NewTracker()
	now := time.Now()

	tracker.Upsert("n1", now, models.HeartbeatRequest{Lat: f64(37.77), Lon: f64(-122.42)})

	// Lat without lon is ignored by the merge; the previous pair stays.
	status := tracker.Upsert("n1", now, models.HeartbeatRequest{Lat: f64(1)})
	if status.Lat == nil || *status.Lat != 37.77 {
		t.Errorf("lat = %v, want previous 37.77 kept", status.Lat)
	}
}

func TestOnlineWindowBoundary(t *testing.T) {
	tracker := NewTracker()
	now := time.Now()

	tracker.Upsert("fresh", now.Add(-time.Second), models.HeartbeatRequest{})
	tracker.Upsert("stale", now.Add(-11*time.Minute), models.HeartbeatRequest{})

	online := tracker.Online(now)
	if len(online) != 1 {
		t.Fatalf("online = %d nodes, want 1", len(online))
	}
	if online[0].NodeID != "fresh" {
		t.Errorf("online node = %q, want fresh", online[0].NodeID)
	}
	if tracker.CountOnline(now) != 1 {
		t.Errorf("CountOnline = %d, want 1", tracker.CountOnline(now))
	}
}

func TestNeverSeenNodesAbsent(t *testing.T) {
	tracker := NewTracker()
	if got := tracker.Online(time.Now()); len(got) != 0 {
		t.Errorf("online = %d nodes, want none", len(got))
	}
	if _, ok := tracker.Get("ghost"); ok {
		t.Error("never-seen node must be absent, not present as offline")
	}
}

func TestIncrementEventsDetected(t *testing.T) {
	tracker := NewTracker()

	tracker.IncrementEventsDetected("n1")
	tracker.IncrementEventsDetected("n1")

	status, ok := tracker.Get("n1")
	if !ok || status.EventsDetected == nil || *status.EventsDetected != 2 {
		t.Errorf("events_detected = %v, want 2", status.EventsDetected)
	}

	// Incrementing does not make the node online: it never heartbeat.
	if tracker.CountOnline(time.Now()) != 0 {
		t.Error("increment must not count as a heartbeat")
	}
}

func TestClear(t *testing.T) {
	tracker := NewTracker()
	tracker.Upsert("n1", time.Now(), models.HeartbeatRequest{})
	tracker.Clear()
	if _, ok := tracker.Get("n1"); ok {
		t.Error("expected empty tracker after Clear")
	}
}
