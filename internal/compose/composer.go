package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"reelsmith/internal/audio"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/stitch"
	"reelsmith/internal/timeline"
)

// SceneInput is everything the pipeline gathered for one scene before
// composition starts.
type SceneInput struct {
	Index        int
	Caption      string
	RawAudioPath string
	Primary      string
	Secondary    string
}

// Result reports a finished composition.
type Result struct {
	OutputPath string
	Plan       timeline.Plan
	AvatarSlot int // -1 when no avatar scene was injected
}

// Composer drives the per-scene pipeline (normalize, split, render) on a
// bounded worker pool, then stitches and exports sequentially.
type Composer struct {
	cfg        *config.Config
	normalizer *audio.Normalizer
	renderer   *render.Renderer
	exporter   *stitch.Exporter
	logger     *slog.Logger
	rng        *rand.Rand

	// Progress, when set, receives completed/total scene counts.
	Progress func(done, total int)
}

// NewComposer wires the composition engine. A nil rng gets a time-seeded
// source; tests pass a fixed seed for reproducible avatar and transition
// picks.
func NewComposer(cfg *config.Config, runner ffmpeg.Runner, probe audio.Prober, logger *slog.Logger, rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Composer{
		cfg:        cfg,
		normalizer: audio.NewNormalizer(cfg, runner, probe),
		renderer:   render.NewRenderer(cfg, runner, render.Prober(probe)),
		exporter:   stitch.NewExporter(runner, cfg.Video.Preset),
		logger:     logging.NewComponentLogger(logger, "composer"),
		rng:        rng,
	}
}

// Compose runs the full engine: every scene is normalized, split, and
// rendered in parallel; the rendered clips are stitched in scene order and
// exported to outputPath. Any scene failure aborts the whole run.
func (c *Composer) Compose(ctx context.Context, scenes []SceneInput, stagingDir, outputPath string) (Result, error) {
	if err := validateScenes(scenes); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return Result{}, services.Wrap(
			services.ErrValidation, "composer", "prepare staging",
			fmt.Sprintf("could not create staging dir %s", stagingDir), err)
	}

	avatarSlot, err := c.pickAvatarSlot(ctx, len(scenes))
	if err != nil {
		return Result{}, err
	}

	clips, err := c.renderScenes(ctx, scenes, stagingDir, avatarSlot)
	if err != nil {
		return Result{}, err
	}

	kinds := c.transitionKinds()
	overlap := time.Duration(c.cfg.Transitions.OverlapMS) * time.Millisecond
	plan, err := timeline.NewPlan(clips, kinds, overlap, c.rng)
	if err != nil {
		return Result{}, err
	}

	c.logger.Info("stitching final video",
		logging.Int("scenes", len(plan.Clips)),
		logging.Int("transitions", len(plan.Transitions)),
		logging.Duration("total_duration", plan.TotalDuration()))

	if err := c.exporter.Export(ctx, plan, outputPath); err != nil {
		return Result{}, err
	}
	return Result{OutputPath: outputPath, Plan: plan, AvatarSlot: avatarSlot}, nil
}

// renderScenes fans scene work out to a bounded pool. Results arrive in
// completion order; ordering is restored when the join plan sorts by scene
// index.
func (c *Composer) renderScenes(ctx context.Context, scenes []SceneInput, stagingDir string, avatarSlot int) ([]timeline.Clip, error) {
	workers := c.cfg.Compose.SceneWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(scenes) {
		workers = len(scenes)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		clips    []timeline.Clip
		firstErr error
		done     int
	)
	sem := make(chan struct{}, workers)

	for _, scene := range scenes {
		scene := scene
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				return
			}

			clip, err := c.composeScene(runCtx, scene, stagingDir, scene.Index == avatarSlot)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil && runCtx.Err() == nil {
					firstErr = err
				}
				cancel()
				return
			}
			clips = append(clips, clip)
			done++
			if c.Progress != nil {
				c.Progress(done, len(scenes))
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(clips) != len(scenes) {
		return nil, services.Wrap(
			services.ErrValidation, "composer", "render scenes",
			fmt.Sprintf("rendered %d of %d scenes", len(clips), len(scenes)), nil)
	}
	return clips, nil
}

// composeScene runs the per-scene leg: silence trim, split computation,
// render.
func (c *Composer) composeScene(ctx context.Context, scene SceneInput, stagingDir string, avatar bool) (timeline.Clip, error) {
	sceneCtx := services.WithSceneIndex(ctx, scene.Index)
	logger := logging.WithContext(sceneCtx, c.logger)

	trimmed := filepath.Join(stagingDir, fmt.Sprintf("voice_%d_trimmed.wav", scene.Index))
	normalized, err := c.normalizer.Normalize(sceneCtx, scene.RawAudioPath, trimmed)
	if err != nil {
		return timeline.Clip{}, err
	}

	tl, err := timeline.Build(scene.Index, normalized.Duration)
	if err != nil {
		return timeline.Clip{}, err
	}

	req := render.Request{
		SceneIndex: scene.Index,
		Caption:    scene.Caption,
		AudioPath:  normalized.Path,
		Primary:    scene.Primary,
		Secondary:  scene.Secondary,
		Timeline:   tl,
		OutputPath: filepath.Join(stagingDir, fmt.Sprintf("scene_%d.mp4", scene.Index)),
	}
	if avatar {
		req.AvatarPath = c.cfg.Paths.AvatarPath
		logger.Info("rendering avatar scene", logging.Duration("duration", tl.Total))
	} else {
		logger.Debug("rendering scene", logging.Duration("duration", tl.Total))
	}

	clip, err := c.renderer.RenderScene(sceneCtx, req)
	if err != nil {
		return timeline.Clip{}, err
	}
	return timeline.Clip{
		SceneIndex: clip.SceneIndex,
		Path:       clip.Path,
		Duration:   clip.Duration,
		HasAvatar:  clip.HasAvatar,
	}, nil
}

// pickAvatarSlot resolves avatar policy: disabled yields no slot, a
// missing asset fails only when the config marks the avatar required.
func (c *Composer) pickAvatarSlot(ctx context.Context, sceneCount int) (int, error) {
	if !c.cfg.Avatar.Enabled {
		return -1, nil
	}
	if _, err := os.Stat(c.cfg.Paths.AvatarPath); err != nil {
		if c.cfg.Avatar.Required {
			return -1, services.Wrap(
				services.ErrMissingAsset, "composer", "avatar",
				fmt.Sprintf("avatar clip %s is required but unreadable", c.cfg.Paths.AvatarPath), err)
		}
		logging.WithContext(ctx, c.logger).Warn("avatar clip unavailable, continuing without injection",
			logging.String("path", c.cfg.Paths.AvatarPath))
		return -1, nil
	}
	slot, ok := timeline.PickAvatarSlot(c.rng, sceneCount)
	if !ok {
		return -1, nil
	}
	return slot, nil
}

func (c *Composer) transitionKinds() []timeline.TransitionKind {
	kinds := make([]timeline.TransitionKind, 0, len(c.cfg.Transitions.Kinds))
	for _, name := range c.cfg.Transitions.Kinds {
		if kind, ok := timeline.ParseTransitionKind(name); ok {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		kinds = timeline.DefaultTransitionKinds()
	}
	return kinds
}

func validateScenes(scenes []SceneInput) error {
	if len(scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "composer", "validate",
			"no scenes to compose", nil)
	}
	for i, scene := range scenes {
		if scene.Index != i {
			return services.Wrap(
				services.ErrTimingViolation, "composer", "validate",
				fmt.Sprintf("scene indexes are not contiguous: expected %d, got %d", i, scene.Index), nil)
		}
		if scene.Primary == "" {
			return services.Wrap(
				services.ErrMissingAsset, "composer", "validate",
				fmt.Sprintf("scene %d has no primary source", i), nil)
		}
		if scene.RawAudioPath == "" {
			return services.Wrap(
				services.ErrMissingAsset, "composer", "validate",
				fmt.Sprintf("scene %d has no audio clip", i), nil)
		}
	}
	return nil
}
