package jobs

import (
	"log/slog"
	"os"
	"sync"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestLifecycle(t *testing.T) {
	tr := NewTracker(testLogger)

	if got := tr.Get(JobCrawl); got.Status != StatusIdle {
		t.Fatalf("fresh job should be idle, got %q", got.Status)
	}

	if !tr.Start(JobCrawl, "Fetching sources") {
		t.Fatal("Start should succeed on an idle job")
	}
	if tr.Start(JobCrawl, "again") {
		t.Error("Start should refuse a running job")
	}
	if !tr.Running(JobCrawl) || !tr.AnyRunning() {
		t.Error("job should report running")
	}

	tr.Step(JobCrawl, "Extracting articles")
	if got := tr.Get(JobCrawl).CurrentStep; got != "Extracting articles" {
		t.Errorf("step not recorded, got %q", got)
	}

	tr.Complete(JobCrawl, map[string]int{"new_articles": 4})
	state := tr.Get(JobCrawl)
	if state.Status != StatusCompleted || state.CurrentStep != "Completed" {
		t.Errorf("unexpected terminal state %+v", state)
	}
	if state.CompletedAt.IsZero() {
		t.Error("completed_at not set")
	}
	if tr.AnyRunning() {
		t.Error("no job should be running after completion")
	}
}

func TestFailRecordsError(t *testing.T) {
	tr := NewTracker(testLogger)
	tr.Start(JobResearch, "Listing companies")
	tr.Fail(JobResearch, "database unreachable")

	state := tr.Get(JobResearch)
	if state.Status != StatusError {
		t.Errorf("expected error status, got %q", state.Status)
	}
	if state.Error != "database unreachable" {
		t.Errorf("unexpected error %q", state.Error)
	}
	if state.CurrentStep != "Failed: database unreachable" {
		t.Errorf("unexpected step %q", state.CurrentStep)
	}
}

func TestStartAutoRegistersAndResetClears(t *testing.T) {
	tr := NewTracker(testLogger)

	if !tr.Start("backfill", "Scanning") {
		t.Fatal("unknown job should be auto-registered")
	}
	tr.Complete("backfill", nil)

	tr.Reset("backfill")
	state := tr.Get("backfill")
	if state.Status != StatusIdle || state.CurrentStep != "" || !state.CompletedAt.IsZero() {
		t.Errorf("reset should clear state, got %+v", state)
	}
}

func TestStepIgnoredWhenNotRunning(t *testing.T) {
	tr := NewTracker(testLogger)
	tr.Step(JobTrending, "should not stick")
	if got := tr.Get(JobTrending).CurrentStep; got != "" {
		t.Errorf("step applied to idle job: %q", got)
	}
}

func TestAllReturnsSnapshot(t *testing.T) {
	tr := NewTracker(testLogger)
	tr.Start(JobCrawl, "x")

	all := tr.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}
	all[JobCrawl] = State{Status: StatusError}
	if tr.Get(JobCrawl).Status != StatusRunning {
		t.Error("mutating the snapshot must not affect the tracker")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(testLogger)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Start(JobCrawl, "racing")
			tr.Step(JobCrawl, "racing")
			tr.Get(JobCrawl)
			tr.All()
		}()
	}
	wg.Wait()
	if !tr.Running(JobCrawl) {
		t.Error("exactly one Start should have won")
	}
}
