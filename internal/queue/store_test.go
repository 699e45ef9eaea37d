package queue

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestNewRunDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "deep sea creatures")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.Status != StatusPending {
		t.Errorf("status = %s, want %s", run.Status, StatusPending)
	}
	if run.Topic != "deep sea creatures" {
		t.Errorf("topic = %q", run.Topic)
	}
	if run.UUID == "" {
		t.Error("expected uuid to be assigned")
	}
	if run.CreatedAt.IsZero() || run.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestUpdateRoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "volcanoes")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	run.Status = StatusComposing
	run.StagingDir = "/tmp/staging/volcanoes"
	run.SetProgress("composing", "rendering scenes", 40)
	manifest := &Manifest{
		Topic: "volcanoes",
		Title: "Volcanoes That Changed History",
		Scenes: []SceneAsset{
			{Index: 0, Narration: "Beneath the crust, pressure builds.", VisualKeywords: []string{"lava", "eruption"}},
		},
	}
	if err := run.SetManifest(manifest); err != nil {
		t.Fatalf("SetManifest: %v", err)
	}
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusComposing {
		t.Errorf("status = %s, want %s", got.Status, StatusComposing)
	}
	if got.ProgressPercent != 40 || got.ProgressStage != "composing" {
		t.Errorf("progress = %s/%.0f", got.ProgressStage, got.ProgressPercent)
	}
	decoded, err := got.Manifest()
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if decoded.Title != manifest.Title {
		t.Errorf("title = %q, want %q", decoded.Title, manifest.Title)
	}
	if len(decoded.Scenes) != 1 || decoded.Scenes[0].Narration != manifest.Scenes[0].Narration {
		t.Errorf("scenes did not round trip: %+v", decoded.Scenes)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)

	run, err := store.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

func TestNextForStatusesOrdersByCreation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.NewRun(ctx, "first")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	second, err := store.NewRun(ctx, "second")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	second.Status = StatusVoiced
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update: %v", err)
	}

	next, err := store.NextForStatuses(ctx, StatusPending, StatusVoiced)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want run %d", next, first.ID)
	}

	next, err = store.NextForStatuses(ctx, StatusVoiced)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("next = %+v, want run %d", next, second.ID)
	}

	next, err = store.NextForStatuses(ctx, StatusPublishing)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next != nil {
		t.Errorf("expected no publishing run, got %+v", next)
	}
}

func TestRetryResetsFailedRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "retry me")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	run.SetFailed("ffmpeg exploded")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	retried, err := store.Retry(ctx, run.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != StatusPending {
		t.Errorf("status = %s, want %s", retried.Status, StatusPending)
	}
	if retried.ErrorMessage != "" {
		t.Errorf("error message not cleared: %q", retried.ErrorMessage)
	}

	if _, err := store.Retry(ctx, run.ID); err == nil {
		t.Error("expected retry of pending run to fail")
	}
}

func TestClearTerminalKeepsActiveRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	active, err := store.NewRun(ctx, "active")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	done, err := store.NewRun(ctx, "done")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	done.Status = StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	removed, err := store.Clear(ctx, true)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != active.ID {
		t.Fatalf("remaining = %+v, want only run %d", remaining, active.ID)
	}
}

func TestHealthCountsStatuses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	statuses := []Status{StatusPending, StatusComposing, StatusCompleted, StatusFailed, StatusReview}
	for _, status := range statuses {
		run, err := store.NewRun(ctx, string(status))
		if err != nil {
			t.Fatalf("NewRun: %v", err)
		}
		run.Status = status
		if err := store.Update(ctx, run); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 5 {
		t.Errorf("total = %d, want 5", health.Total)
	}
	if health.Pending != 1 || health.Processing != 1 || health.Completed != 1 ||
		health.Failed != 1 || health.Review != 1 {
		t.Errorf("unexpected counts: %+v", health)
	}
}
