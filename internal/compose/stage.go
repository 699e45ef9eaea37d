package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/textutil"
)

// Stage adapts the composition engine to the workflow pipeline.
type Stage struct {
	cfg      *config.Config
	composer *Composer
	notifier notifications.Service
	logger   *slog.Logger
}

// NewStage builds the composing stage with the default ffmpeg CLI runner.
func NewStage(cfg *config.Config, notifier notifications.Service, logger *slog.Logger) *Stage {
	runner := ffmpeg.NewCLI(cfg.FFmpegBinary())
	return &Stage{
		cfg:      cfg,
		composer: NewComposer(cfg, runner, nil, logger, nil),
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "compose-stage"),
	}
}

// NewStageWithComposer is a constructor seam for tests that inject a
// composer with fake ffmpeg and probe implementations.
func NewStageWithComposer(cfg *config.Config, composer *Composer, notifier notifications.Service, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:      cfg,
		composer: composer,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "compose-stage"),
	}
}

// SetLogger swaps in a run-scoped logger before Execute.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "compose-stage")
	s.composer.logger = logging.NewComponentLogger(logger, "composer")
}

// Prepare validates the gathered manifest and assigns the staging
// directory the render workers write into.
func (s *Stage) Prepare(ctx context.Context, run *queue.Run) error {
	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}
	if len(manifest.Scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "compose", "prepare",
			"run manifest has no scenes; rerun the gathering stage", nil)
	}
	for _, scene := range manifest.Scenes {
		if scene.AudioPath == "" {
			return services.Wrap(
				services.ErrMissingAsset, "compose", "prepare",
				fmt.Sprintf("scene %d has no voice track", scene.Index), nil)
		}
		if scene.VideoPathA == "" {
			return services.Wrap(
				services.ErrMissingAsset, "compose", "prepare",
				fmt.Sprintf("scene %d has no stock footage", scene.Index), nil)
		}
	}
	if run.StagingDir == "" {
		run.StagingDir = filepath.Join(s.cfg.Paths.WorkDir, run.UUID)
	}
	return nil
}

// Execute renders every scene and stitches the final vertical video.
func (s *Stage) Execute(ctx context.Context, run *queue.Run) error {
	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}

	scenes := make([]SceneInput, 0, len(manifest.Scenes))
	for _, asset := range manifest.Scenes {
		scenes = append(scenes, SceneInput{
			Index:        asset.Index,
			Caption:      asset.Narration,
			RawAudioPath: asset.AudioPath,
			Primary:      asset.VideoPathA,
			Secondary:    asset.VideoPathB,
		})
	}

	stagedOutput := filepath.Join(run.StagingDir, "final.mp4")
	s.composer.Progress = func(done, total int) {
		percent := float64(done) / float64(total) * 90
		run.SetProgress("composing", fmt.Sprintf("rendered %d/%d scenes", done, total), percent)
	}
	defer func() { s.composer.Progress = nil }()

	result, err := s.composer.Compose(ctx, scenes, run.StagingDir, stagedOutput)
	if err != nil {
		return err
	}

	name := manifest.Title
	if name == "" {
		name = manifest.Topic
	}
	outputPath := filepath.Join(s.cfg.Paths.OutputDir,
		fmt.Sprintf("%s-%s.mp4", textutil.SanitizeToken(name), run.UUID))
	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrExportFailed, "compose", "deliver",
			"could not create output directory", err)
	}
	if err := fileutil.CopyFileVerified(result.OutputPath, outputPath); err != nil {
		return services.Wrap(services.ErrExportFailed, "compose", "deliver",
			fmt.Sprintf("could not deliver final video to %s", outputPath), err)
	}

	for i := range manifest.Scenes {
		manifest.Scenes[i].RenderedPath = filepath.Join(run.StagingDir, fmt.Sprintf("scene_%d.mp4", i))
		manifest.Scenes[i].AvatarSlot = i == result.AvatarSlot
	}
	manifest.OutputPath = outputPath
	if err := run.SetManifest(manifest); err != nil {
		return services.Wrap(services.ErrValidation, "compose", "manifest", "could not persist manifest", err)
	}
	run.FinalFile = outputPath
	run.SetProgress("composing", "final video exported", 95)

	s.logger.Info("composition complete",
		logging.String("output", outputPath),
		logging.Duration("duration", result.Plan.TotalDuration()))

	if s.notifier != nil {
		if err := s.notifier.NotifyVideoComposed(ctx, name, outputPath); err != nil {
			s.logger.Warn("composed notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies the external encoders are on PATH.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	statuses := deps.CheckBinaries(deps.Required(s.cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return stage.Unhealthy("compose", fmt.Sprintf("missing binaries: %v", missing))
	}
	return stage.Healthy("compose")
}
