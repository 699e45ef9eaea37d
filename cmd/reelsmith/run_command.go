package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/preflight"
	"reelsmith/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [topic...]",
		Short: "Render one short end to end without the worker loop",
		Long: `Processes a single run through every pipeline stage synchronously and
prints the delivered file. With --manifest the script, voice, and footage
stages are skipped and composition starts from the prepared manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			if topic == "" && manifestPath == "" {
				return fmt.Errorf("a topic or --manifest is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
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

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := prepareOneShot(runCtx, store, topic, manifestPath)
			if err != nil {
				return err
			}

			manager, err := buildManager(cfg, store, logger, !dryRun)
			if err != nil {
				return err
			}
			if err := manager.RunOnce(runCtx, run); err != nil {
				return fmt.Errorf("run %d failed: %w", run.ID, err)
			}

			switch run.Status {
			case queue.StatusCompleted:
				fmt.Fprintf(cmd.OutOrStdout(), "Run %d completed: %s\n", run.ID, run.FinalFile)
			case queue.StatusReview:
				fmt.Fprintf(cmd.OutOrStdout(), "Run %d needs review: %s\n", run.ID, run.ReviewReason)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Run %d stopped at status %s\n", run.ID, run.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "",
		"Compose from a prepared manifest JSON instead of generating a script")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Stop after composing; never publish")
	return cmd
}

// prepareOneShot enqueues the run the one-shot path will process. A
// manifest file skips straight to composition by entering the queue in the
// gathered state.
func prepareOneShot(ctx context.Context, store *queue.Store, topic, manifestPath string) (*queue.Run, error) {
	if manifestPath == "" {
		return store.NewRun(ctx, topic)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest queue.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", manifestPath, err)
	}
	if topic == "" {
		topic = strings.TrimSpace(manifest.Topic)
	}
	if topic == "" {
		return nil, fmt.Errorf("manifest %s names no topic and none was given", manifestPath)
	}
	manifest.Topic = topic

	run, err := store.NewRun(ctx, topic)
	if err != nil {
		return nil, err
	}
	if err := run.SetManifest(&manifest); err != nil {
		return nil, err
	}
	run.Status = queue.StatusGathered
	if err := store.Update(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}
