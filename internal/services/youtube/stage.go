package youtube

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

// Uploader pushes a finished video and returns its published ID.
type Uploader interface {
	Upload(ctx context.Context, videoPath string, meta Metadata) (string, error)
}

// Stage adapts publishing to the workflow pipeline.
type Stage struct {
	cfg      *config.Config
	uploader Uploader
	notifier notifications.Service
	logger   *slog.Logger
}

// NewStage builds the publishing stage with the configured uploader.
func NewStage(cfg *config.Config, notifier notifications.Service, logger *slog.Logger) *Stage {
	return NewStageWithUploader(cfg, NewPublisher(context.Background(), cfg), notifier, logger)
}

// NewStageWithUploader is a constructor seam for tests.
func NewStageWithUploader(cfg *config.Config, uploader Uploader, notifier notifications.Service, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:      cfg,
		uploader: uploader,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "publish-stage"),
	}
}

// SetLogger swaps in a run-scoped logger before Execute.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "publish-stage")
}

// Prepare verifies the composed output and the upload credentials.
func (s *Stage) Prepare(ctx context.Context, run *queue.Run) error {
	if strings.TrimSpace(run.FinalFile) == "" {
		return services.Wrap(
			services.ErrValidation, "publish", "prepare",
			"run has no final video; rerun the composing stage", nil)
	}
	if strings.TrimSpace(s.cfg.YouTube.ClientID) == "" ||
		strings.TrimSpace(s.cfg.YouTube.RefreshToken) == "" {
		return services.Wrap(
			services.ErrConfiguration, "publish", "prepare",
			"youtube credentials are not configured", nil)
	}
	return nil
}

// Execute uploads the final video and records the published ID.
func (s *Stage) Execute(ctx context.Context, run *queue.Run) error {
	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}

	title := manifest.Title
	if title == "" {
		title = manifest.Topic
	}
	meta := Metadata{
		Title:       BuildTitle(title),
		Description: manifest.Description,
		Tags:        manifest.Tags,
		Privacy:     s.cfg.YouTube.PrivacyState,
	}

	videoID, err := s.uploader.Upload(ctx, run.FinalFile, meta)
	if err != nil {
		return err
	}

	manifest.VideoID = videoID
	if err := run.SetManifest(manifest); err != nil {
		return services.Wrap(services.ErrValidation, "publish", "manifest", "could not persist manifest", err)
	}
	run.SetProgress("publishing", "video published", 100)

	s.logger.Info("video published",
		logging.String("video_id", videoID),
		logging.String("title", meta.Title))

	if s.notifier != nil {
		if err := s.notifier.NotifyVideoPublished(ctx, meta.Title, videoID); err != nil {
			s.logger.Warn("publish notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether upload credentials are present.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.YouTube.ClientID) == "" ||
		strings.TrimSpace(s.cfg.YouTube.RefreshToken) == "" {
		return stage.Unhealthy("publish", "youtube credentials are not configured")
	}
	return stage.Healthy("publish")
}
