package pexels

import (
	"context"
	"errors"
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

// Fetcher resolves a search query to a local footage file.
type Fetcher interface {
	Search(ctx context.Context, query string) (string, error)
	Download(ctx context.Context, rawURL, savePath string) error
}

// Stage adapts footage gathering to the workflow pipeline: every voiced
// scene gets two stock clips, with the surviving clip substituted for a
// failed one.
type Stage struct {
	cfg    *config.Config
	client Fetcher
	logger *slog.Logger
}

// NewStage builds the gathering stage with the configured Pexels client.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return NewStageWithFetcher(cfg, NewClient(cfg, nil), logger)
}

// NewStageWithFetcher is a constructor seam for tests.
func NewStageWithFetcher(cfg *config.Config, client Fetcher, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "gather-stage"),
	}
}

// SetLogger swaps in a run-scoped logger before Execute.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "gather-stage")
}

// Prepare checks the voiced manifest and provider credentials.
func (s *Stage) Prepare(ctx context.Context, run *queue.Run) error {
	manifest, err := stage.RunManifest(run)
	if err != nil {
		return err
	}
	if len(manifest.Scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "gather", "prepare",
			"run manifest has no scenes; rerun the scripting stage", nil)
	}
	if strings.TrimSpace(s.cfg.Pexels.APIKey) == "" {
		return services.Wrap(
			services.ErrConfiguration, "gather", "prepare",
			"pexels api_key is not configured", nil)
	}
	if run.StagingDir == "" {
		run.StagingDir = filepath.Join(s.cfg.Paths.WorkDir, run.UUID)
	}
	return nil
}

// Execute downloads the A and B clips for every scene. When one of the
// pair cannot be fetched the surviving clip stands in for both halves; a
// scene with no footage at all fails the run.
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
		sceneCtx := services.WithSceneIndex(ctx, scene.Index)
		logger := logging.WithContext(sceneCtx, s.logger)

		queryA, queryB := sceneQueries(scene)
		pathA := s.fetch(sceneCtx, logger, queryA, filepath.Join(run.StagingDir, fmt.Sprintf("stock_%d_a.mp4", scene.Index)))
		pathB := s.fetch(sceneCtx, logger, queryB, filepath.Join(run.StagingDir, fmt.Sprintf("stock_%d_b.mp4", scene.Index)))
		if err := ctx.Err(); err != nil {
			return err
		}

		if pathA == "" && pathB != "" {
			logger.Warn("first clip missing, substituting second", logging.String("query", queryA))
			pathA = pathB
		}
		if pathB == "" && pathA != "" {
			logger.Warn("second clip missing, substituting first", logging.String("query", queryB))
			pathB = pathA
		}
		if pathA == "" {
			return services.Wrap(
				services.ErrMissingAsset, "gather", "fetch footage",
				fmt.Sprintf("no footage found for scene %d (%q, %q)", scene.Index, queryA, queryB), nil)
		}
		scene.VideoPathA = pathA
		scene.VideoPathB = pathB

		done := i + 1
		run.SetProgress("gathering",
			fmt.Sprintf("gathered footage for %d/%d scenes", done, len(manifest.Scenes)),
			float64(done)/float64(len(manifest.Scenes))*100)
	}

	if err := run.SetManifest(manifest); err != nil {
		return services.Wrap(services.ErrValidation, "gather", "manifest", "could not persist manifest", err)
	}
	s.logger.Info("footage gathered", logging.Int("scenes", len(manifest.Scenes)))
	return nil
}

// fetch resolves one query to a local file, returning "" on any
// recoverable failure so the pair substitution logic can take over.
func (s *Stage) fetch(ctx context.Context, logger *slog.Logger, query, savePath string) string {
	if query == "" {
		return ""
	}
	rawURL, err := s.client.Search(ctx, query)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			logger.Warn("footage search failed", logging.String("query", query), logging.Error(err))
		}
		return ""
	}
	if err := s.client.Download(ctx, rawURL, savePath); err != nil {
		logger.Warn("footage download failed", logging.String("query", query), logging.Error(err))
		return ""
	}
	return savePath
}

func sceneQueries(scene *queue.SceneAsset) (string, string) {
	var queryA, queryB string
	if len(scene.VisualKeywords) > 0 {
		queryA = strings.TrimSpace(scene.VisualKeywords[0])
	}
	if len(scene.VisualKeywords) > 1 {
		queryB = strings.TrimSpace(scene.VisualKeywords[1])
	}
	if queryB == "" {
		queryB = queryA
	}
	return queryA, queryB
}

// HealthCheck reports whether the footage provider is configured.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.Pexels.APIKey) == "" {
		return stage.Unhealthy("gather", "pexels api_key is not configured")
	}
	return stage.Healthy("gather")
}
