package store

import (
	"context"
	"testing"
	"time"
)

func TestRuns_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-1", "run-2"} {
		r := Run{ID: id, Mode: "process", StartedAt: start.Add(time.Duration(i) * time.Hour)}
		if err := s.BeginRun(ctx, r); err != nil {
			t.Fatalf("BeginRun(%s) failed: %v", id, err)
		}
	}

	done := Run{
		ID: "run-1", FinishedAt: start.Add(time.Minute),
		Processed: 12, Found: 3, New: 1, Failures: 10,
		Status: RunFailed, Error: "too many consecutive fetch failures",
	}
	if err := s.FinishRun(ctx, done); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	runs, err := s.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-2" || runs[0].Status != RunRunning {
		t.Errorf("latest run = %+v", runs[0])
	}
	got := runs[1]
	if got.Processed != 12 || got.Found != 3 || got.New != 1 || got.Failures != 10 {
		t.Errorf("counters = %+v", got)
	}
	if !got.StartedAt.Equal(start) || !got.FinishedAt.Equal(start.Add(time.Minute)) {
		t.Errorf("times = %v .. %v", got.StartedAt, got.FinishedAt)
	}
	if got.Error == "" || got.Mode != "process" {
		t.Errorf("run = %+v", got)
	}
}
