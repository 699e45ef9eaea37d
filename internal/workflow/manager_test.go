package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Run)
	executeHook func(*queue.Run)
	prepareErr  error
	executeErr  error
	health      stage.Health
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, run *queue.Run) error {
	if s.prepareHook != nil {
		s.prepareHook(run)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, run *queue.Run) error {
	if s.executeHook != nil {
		s.executeHook(run)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

type recordingNotifier struct {
	mu        sync.Mutex
	runStarts []string
	errors    []string
}

func (n *recordingNotifier) NotifyRunStarted(_ context.Context, topic string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runStarts = append(n.runStarts, topic)
	return nil
}

func (n *recordingNotifier) NotifyScriptReady(context.Context, string, int) error { return nil }

func (n *recordingNotifier) NotifyVideoComposed(context.Context, string, string) error { return nil }

func (n *recordingNotifier) NotifyVideoPublished(context.Context, string, string) error { return nil }

func (n *recordingNotifier) NotifyError(_ context.Context, _ error, contextLabel string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, contextLabel)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Run {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		run, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if run != nil && run.Status == want {
			return run
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesRunThroughAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var order []string
	var orderMu sync.Mutex
	record := func(name string) func(*queue.Run) {
		return func(*queue.Run) {
			orderMu.Lock()
			order = append(order, name)
			orderMu.Unlock()
		}
	}

	scripter := newStubStage("scripter")
	scripter.executeHook = record("scripter")
	voicer := newStubStage("voicer")
	voicer.executeHook = record("voicer")
	gatherer := newStubStage("gatherer")
	gatherer.executeHook = record("gatherer")
	composer := newStubStage("composer")
	composer.executeHook = record("composer")
	publisher := newStubStage("publisher")
	publisher.executeHook = record("publisher")

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Scripter:  scripter,
		Voicer:    voicer,
		Gatherer:  gatherer,
		Composer:  composer,
		Publisher: publisher,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run := testsupport.NewRun(t, store, "ancient rome")

	waitForStatus(t, store, run.ID, queue.StatusCompleted)

	orderMu.Lock()
	got := append([]string(nil), order...)
	orderMu.Unlock()
	want := []string{"scripter", "voicer", "gatherer", "composer", "publisher"}
	if len(got) != len(want) {
		t.Fatalf("stage order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", got, want)
		}
	}

	notifier.mu.Lock()
	starts := len(notifier.runStarts)
	notifier.mu.Unlock()
	if starts != 1 {
		t.Fatalf("expected one run start notification, got %d", starts)
	}
}

func TestManagerWithoutPublisherCompletesAfterCompose(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(workflow.StageSet{
		Scripter: newStubStage("scripter"),
		Voicer:   newStubStage("voicer"),
		Gatherer: newStubStage("gatherer"),
		Composer: newStubStage("composer"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run := testsupport.NewRun(t, store, "volcanoes")

	final := waitForStatus(t, store, run.ID, queue.StatusCompleted)
	if final.ProgressPercent != 100 {
		t.Fatalf("progress = %.0f, want 100", final.ProgressPercent)
	}
}

func TestManagerMarksRunFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	scripter := newStubStage("scripter")
	scripter.executeErr = services.Wrap(
		services.ErrExternalTool, "scripter", "generate script",
		"Script service unavailable", nil)

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Scripter: scripter})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run := testsupport.NewRun(t, store, "doomed topic")

	failed := waitForStatus(t, store, run.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message on failed run")
	}

	notifier.mu.Lock()
	errCount := len(notifier.errors)
	notifier.mu.Unlock()
	if errCount == 0 {
		t.Fatal("expected failure notification")
	}
}

func TestManagerRoutesValidationFailureToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	composer := newStubStage("composer")
	composer.executeErr = services.Wrap(
		services.ErrValidation, "composer", "check scenes",
		"Scene count below minimum", nil)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(workflow.StageSet{
		Scripter: newStubStage("scripter"),
		Voicer:   newStubStage("voicer"),
		Gatherer: newStubStage("gatherer"),
		Composer: composer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run := testsupport.NewRun(t, store, "short script")

	review := waitForStatus(t, store, run.ID, queue.StatusReview)
	if !review.NeedsReview {
		t.Fatal("expected needs_review flag")
	}
	if review.ReviewReason == "" {
		t.Fatal("expected review reason")
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error when no stages configured")
	}
}

func TestManagerStatusReportsStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	scripter := newStubStage("scripter")
	scripter.health = stage.Unhealthy("scripter", "api key missing")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(workflow.StageSet{Scripter: scripter})

	summary := mgr.Status(context.Background())
	if summary.Running {
		t.Fatal("expected not running before Start")
	}
	health, ok := summary.StageHealth["scripter"]
	if !ok {
		t.Fatal("expected scripter health entry")
	}
	if health.Ready {
		t.Fatal("expected unready scripter health")
	}
	if health.Detail != "api key missing" {
		t.Fatalf("detail = %q", health.Detail)
	}
}

func TestManagerRunOnceProcessesSingleRunSynchronously(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var order []string
	record := func(name string) func(*queue.Run) {
		return func(*queue.Run) { order = append(order, name) }
	}
	scripter := newStubStage("scripter")
	scripter.executeHook = record("scripter")
	voicer := newStubStage("voicer")
	voicer.executeHook = record("voicer")
	gatherer := newStubStage("gatherer")
	gatherer.executeHook = record("gatherer")
	composer := newStubStage("composer")
	composer.executeHook = record("composer")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(workflow.StageSet{
		Scripter: scripter,
		Voicer:   voicer,
		Gatherer: gatherer,
		Composer: composer,
	})

	run := testsupport.NewRun(t, store, "tidal bores")
	if err := mgr.RunOnce(context.Background(), run); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	want := []string{"scripter", "voicer", "gatherer", "composer"}
	if len(order) != len(want) {
		t.Fatalf("stage order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", order, want)
		}
	}
	if run.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want %s", run.Status, queue.StatusCompleted)
	}

	stored, err := store.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("stored status = %s, want %s", stored.Status, queue.StatusCompleted)
	}
}

func TestManagerRunOnceStopsAtStageFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	voicer := newStubStage("voicer")
	voicer.executeErr = services.Wrap(
		services.ErrExternalTool, "voicer", "synthesize",
		"Voice service unavailable", nil)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(workflow.StageSet{
		Scripter: newStubStage("scripter"),
		Voicer:   voicer,
		Gatherer: newStubStage("gatherer"),
		Composer: newStubStage("composer"),
	})

	run := testsupport.NewRun(t, store, "mute topic")
	if err := mgr.RunOnce(context.Background(), run); err == nil {
		t.Fatal("expected stage failure from RunOnce")
	}

	stored, err := store.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("stored status = %s, want %s", stored.Status, queue.StatusFailed)
	}
}
