package voice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Synthesizer turns narration text into an on-disk audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// Stage adapts voice synthesis to the workflow pipeline: every scripted
// scene gets a narration clip in the run's staging directory.
type Stage struct {
	cfg    *config.Config
	client Synthesizer
	logger *slog.Logger
}

// NewStage builds the voicing stage with the configured TTS client.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return NewStageWithSynthesizer(cfg, NewClient(cfg), logger)
}

// NewStageWithSynthesizer is a constructor seam for tests.
func NewStageWithSynthesizer(cfg *config.Config, client Synthesizer, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "voice-stage"),
	}
}

// SetLogger swaps in a run-scoped logger before Execute.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "voice-stage")
}

// Prepare checks the script output and assigns the staging directory.
func (s *Stage) Prepare(ctx context.Context, run *queue.Run) error {
	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}
	if len(manifest.Scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "voice", "prepare",
			"run manifest has no scenes; rerun the scripting stage", nil)
	}
	if strings.TrimSpace(s.cfg.Voice.BaseURL) == "" {
		return services.Wrap(
			services.ErrConfiguration, "voice", "prepare",
			"voice base_url is not configured", nil)
	}
	if run.StagingDir == "" {
		run.StagingDir = filepath.Join(s.cfg.Paths.WorkDir, run.UUID)
	}
	return nil
}

// Execute synthesizes one narration clip per scene, sequentially in scene
// order. The remote endpoint throttles aggressively, so scenes are never
// voiced in parallel.
func (s *Stage) Execute(ctx context.Context, run *queue.Run) error {
	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}

	for i := range manifest.Scenes {
		if err := ctx.Err(); err != nil {
			return err
		}
		scene := &manifest.Scenes[i]
		outputPath := filepath.Join(run.StagingDir, fmt.Sprintf("voice_%d.wav", scene.Index))
		if err := s.client.Synthesize(services.WithSceneIndex(ctx, scene.Index), scene.Narration, outputPath); err != nil {
			return err
		}
		scene.AudioPath = outputPath

		done := i + 1
		run.SetProgress("voicing",
			fmt.Sprintf("voiced %d/%d scenes", done, len(manifest.Scenes)),
			float64(done)/float64(len(manifest.Scenes))*100)
		s.logger.Debug("scene voiced",
			logging.Int("scene", scene.Index),
			logging.String("path", outputPath))
	}

	if err := run.SetManifest(manifest); err != nil {
		return services.Wrap(services.ErrValidation, "voice", "manifest", "could not persist manifest", err)
	}
	s.logger.Info("narration synthesized", logging.Int("scenes", len(manifest.Scenes)))
	return nil
}

// HealthCheck reports whether the TTS endpoint is configured.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.Voice.BaseURL) == "" {
		return stage.Unhealthy("voice", "voice base_url is not configured")
	}
	return stage.Healthy("voice")
}
