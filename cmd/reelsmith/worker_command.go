package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/preflight"
	"reelsmith/internal/queue"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/services/script"
	"reelsmith/internal/services/voice"
	"reelsmith/internal/services/youtube"
	"reelsmith/internal/workflow"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the pipeline worker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config) error {
	// One worker per queue database.
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "reelsmith-worker.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another worker already holds %s", lock.Path())
	}
	defer lock.Unlock()

	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		if !result.Passed {
			return fmt.Errorf("preflight check %q failed: %s", result.Name, result.Detail)
		}
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := buildManager(cfg, store, logger, true)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(runCtx); err != nil {
		return err
	}
	logger.Info("worker started", logging.String("queue", store.Path()))

	<-runCtx.Done()
	logger.Info("worker shutting down")
	manager.Stop()
	return nil
}

func buildManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, publish bool) (*workflow.Manager, error) {
	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)

	stages := workflow.StageSet{
		Scripter: script.NewStage(cfg, notifier, logger),
		Voicer:   voice.NewStage(cfg, logger),
		Gatherer: pexels.NewStage(cfg, logger),
		Composer: compose.NewStage(cfg, notifier, logger),
	}
	if publish && cfg.YouTube.Enabled {
		stages.Publisher = youtube.NewStage(cfg, notifier, logger)
	}
	manager.ConfigureStages(stages)
	return manager, nil
}
