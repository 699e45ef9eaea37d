package script

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Source produces a script for a topic. The production implementation is
// *Generator; tests substitute a canned source.
type Source interface {
	Generate(ctx context.Context, topic string) (*Script, error)
}

// Stage adapts script generation to the workflow pipeline.
type Stage struct {
	cfg      *config.Config
	source   Source
	notifier notifications.Service
	logger   *slog.Logger
}

// NewStage builds the scripting stage with the configured generator.
func NewStage(cfg *config.Config, notifier notifications.Service, logger *slog.Logger) *Stage {
	return NewStageWithSource(cfg, NewGenerator(cfg), notifier, logger)
}

// NewStageWithSource is a constructor seam for tests.
func NewStageWithSource(cfg *config.Config, source Source, notifier notifications.Service, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:      cfg,
		source:   source,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "script-stage"),
	}
}

// SetLogger swaps in a run-scoped logger before Execute.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "script-stage")
}

// Prepare verifies the run has a topic and the generator is configured.
func (s *Stage) Prepare(ctx context.Context, run *queue.Run) error {
	if strings.TrimSpace(run.Topic) == "" {
		return services.Wrap(
			services.ErrValidation, "script", "prepare",
			"run has no topic", nil)
	}
	if strings.TrimSpace(s.cfg.Script.APIKey) == "" {
		return services.Wrap(
			services.ErrConfiguration, "script", "prepare",
			"script api_key is not configured", nil)
	}
	return nil
}

// Execute generates the scene script and stores it on the run manifest.
func (s *Stage) Execute(ctx context.Context, run *queue.Run) error {
	script, err := s.source.Generate(ctx, run.Topic)
	if err != nil {
		return err
	}

	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}
	manifest.Title = script.Title
	manifest.Description = script.Description
	manifest.Tags = script.Tags
	manifest.Scenes = manifest.Scenes[:0]
	for i, scene := range script.Scenes {
		keywords := []string{scene.Visual1}
		if strings.TrimSpace(scene.Visual2) != "" {
			keywords = append(keywords, scene.Visual2)
		}
		manifest.Scenes = append(manifest.Scenes, queue.SceneAsset{
			Index:          i,
			Narration:      scene.Narration,
			VisualKeywords: keywords,
		})
	}
	if err := run.SetManifest(manifest); err != nil {
		return services.Wrap(services.ErrValidation, "script", "manifest", "could not persist manifest", err)
	}
	run.SetProgress("scripting", "script generated", 100)

	s.logger.Info("script generated",
		logging.String("title", script.Title),
		logging.Int("scenes", len(script.Scenes)))

	if s.notifier != nil {
		if err := s.notifier.NotifyScriptReady(ctx, script.Title, len(script.Scenes)); err != nil {
			s.logger.Warn("script notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether the generator credentials are present.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.Script.APIKey) == "" {
		return stage.Unhealthy("script", "script api_key is not configured")
	}
	return stage.Healthy("script")
}
