package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	hist, err := NewHistory(filepath.Join(t.TempDir(), "var", "licman.db"))
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })
	return hist
}

func TestNewHistory_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "var", "licman.db")

	hist, err := NewHistory(dbPath)
	if err != nil {
		t.Fatalf("NewHistory() error = %v", err)
	}
	defer hist.Close()

	if _, err := hist.RecordEvent(context.Background(), &Event{Action: "start", Target: "web", Status: StatusSuccess}); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("database not created: %v", err)
	}
	if info.Mode().Perm()&0004 != 0 {
		t.Errorf("database is world-readable: %04o", info.Mode().Perm())
	}
}

func TestHistory_RecordEvent(t *testing.T) {
	hist := newTestHistory(t)

	duration := 1.5
	id, err := hist.RecordEvent(context.Background(), &Event{
		Action:          "configure",
		Target:          "config",
		Status:          StatusSuccess,
		DurationSeconds: &duration,
	})
	if err != nil {
		t.Fatalf("Failed to record event: %v", err)
	}

	if id == 0 {
		t.Error("Expected non-zero event ID")
	}
}

func TestHistory_GetLatestEvent(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	if _, err := hist.RecordEvent(ctx, &Event{Action: "start", Target: "web", Status: StatusSuccess}); err != nil {
		t.Fatalf("Failed to record first event: %v", err)
	}

	msg := "command failed: exit status 2"
	if _, err := hist.RecordEvent(ctx, &Event{Action: "restart", Target: "web", Status: StatusFailed, ErrorMessage: &msg}); err != nil {
		t.Fatalf("Failed to record second event: %v", err)
	}

	latest, err := hist.GetLatestEvent(ctx, "web")
	if err != nil {
		t.Fatalf("Failed to get latest event: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected latest event to be non-nil")
	}
	if latest.Action != "restart" || latest.Status != StatusFailed {
		t.Errorf("latest = %s/%s, want restart/failed", latest.Action, latest.Status)
	}
	if latest.ErrorMessage == nil || *latest.ErrorMessage != msg {
		t.Errorf("ErrorMessage = %v, want %q", latest.ErrorMessage, msg)
	}
}

func TestHistory_GetLatestEvent_NoRecords(t *testing.T) {
	hist := newTestHistory(t)

	latest, err := hist.GetLatestEvent(context.Background(), "queue")
	if err != nil {
		t.Fatalf("Expected no error for unknown target, got: %v", err)
	}
	if latest != nil {
		t.Errorf("Expected nil for unknown target, got: %v", latest)
	}
}

func TestHistory_GetHistory(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		duration := float64(i)
		if _, err := hist.RecordEvent(ctx, &Event{Action: "start", Target: "queue", Status: StatusSuccess, DurationSeconds: &duration}); err != nil {
			t.Fatalf("Failed to record event %d: %v", i, err)
		}
	}
	if _, err := hist.RecordEvent(ctx, &Event{Action: "start", Target: "web", Status: StatusSuccess}); err != nil {
		t.Fatal(err)
	}

	events, err := hist.GetHistory(ctx, "queue", 3)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	// newest first
	if events[0].DurationSeconds == nil || *events[0].DurationSeconds != 4.0 {
		t.Errorf("first event duration = %v, want 4.0", events[0].DurationSeconds)
	}
	for _, e := range events {
		if e.Target != "queue" {
			t.Errorf("GetHistory() returned event for target %q", e.Target)
		}
	}
}

func TestHistory_GetRecent(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	for _, target := range []string{"web", "queue", "config"} {
		if _, err := hist.RecordEvent(ctx, &Event{Action: "start", Target: target, Status: StatusSuccess}); err != nil {
			t.Fatal(err)
		}
	}

	events, err := hist.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("GetRecent() returned %d events, want 2", len(events))
	}
	if events[0].Target != "config" || events[1].Target != "queue" {
		t.Errorf("GetRecent() targets = %s, %s; want config, queue", events[0].Target, events[1].Target)
	}
}

func TestHistory_GetLatestByTarget(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	hist.RecordEvent(ctx, &Event{Action: "start", Target: "web", Status: StatusSuccess})
	hist.RecordEvent(ctx, &Event{Action: "stop", Target: "web", Status: StatusSkipped})
	hist.RecordEvent(ctx, &Event{Action: "start", Target: "queue", Status: StatusFailed})

	status, err := hist.GetLatestByTarget(ctx)
	if err != nil {
		t.Fatalf("GetLatestByTarget() error = %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("Expected 2 targets, got %d", len(status))
	}
	if status["web"] == nil || status["web"].Status != StatusSkipped {
		t.Errorf("web latest = %+v, want skipped", status["web"])
	}
	if status["queue"] == nil || status["queue"].Status != StatusFailed {
		t.Errorf("queue latest = %+v, want failed", status["queue"])
	}
}

func TestHistory_TimestampsRoundTrip(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &Event{Action: "configure", Target: "config", StartedAt: started}
	e.Finish(nil)

	if _, err := hist.RecordEvent(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, err := hist.GetLatestEvent(ctx, "config")
	if err != nil {
		t.Fatal(err)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt = nil, want completion time")
	}
}

func TestEvent_Finish(t *testing.T) {
	e := &Event{StartedAt: time.Now().Add(-time.Second)}
	e.Finish(nil)
	if e.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", e.Status)
	}
	if e.DurationSeconds == nil || *e.DurationSeconds < 0.9 {
		t.Errorf("DurationSeconds = %v, want about 1", e.DurationSeconds)
	}

	skipped := &Event{Status: StatusSkipped}
	skipped.Finish(nil)
	if skipped.Status != StatusSkipped {
		t.Errorf("Status = %q, want skipped kept", skipped.Status)
	}

	failed := &Event{}
	failed.Finish(errors.New("boom"))
	if failed.Status != StatusFailed || failed.ErrorMessage == nil || *failed.ErrorMessage != "boom" {
		t.Errorf("failed event = %+v", failed)
	}
}
