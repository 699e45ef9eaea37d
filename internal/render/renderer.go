package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

// Request describes one scene render.
type Request struct {
	SceneIndex int
	Caption    string
	AudioPath  string
	Primary    string
	Secondary  string // empty reuses Primary for the second half
	AvatarPath string // non-empty switches to avatar mode
	Timeline   timeline.SceneTimeline
	OutputPath string
}

// RenderedClip is the fixed-duration output of one scene render.
type RenderedClip struct {
	SceneIndex int
	Path       string
	Duration   time.Duration
	HasAvatar  bool
}

// Prober reports the duration of a rendered file. The default
// implementation shells out to ffprobe; tests substitute a fake.
type Prober func(ctx context.Context, path string) (time.Duration, error)

// Renderer turns a scene's sources into one portrait clip whose duration
// matches the normalized audio exactly.
type Renderer struct {
	runner       ffmpeg.Runner
	probe        Prober
	width        int
	height       int
	fps          int
	fontPath     string
	burnCaptions bool
	captionChars int
}

// NewRenderer builds a Renderer from configuration. A nil probe falls back
// to ffprobe.
func NewRenderer(cfg *config.Config, runner ffmpeg.Runner, probe Prober) *Renderer {
	if probe == nil {
		binary := cfg.FFprobeBinary()
		probe = func(ctx context.Context, path string) (time.Duration, error) {
			result, err := ffprobe.Inspect(ctx, binary, path)
			if err != nil {
				return 0, err
			}
			return result.Duration(), nil
		}
	}
	return &Renderer{
		runner:       runner,
		probe:        probe,
		width:        cfg.Video.Width,
		height:       cfg.Video.Height,
		fps:          cfg.Video.FPS,
		fontPath:     cfg.Paths.FontPath,
		burnCaptions: cfg.Video.BurnCaptions,
		captionChars: cfg.Video.CaptionLineChars,
	}
}

// RenderScene renders one scene clip and verifies its duration against the
// scene timeline. In A/B mode a decode failure is retried with the
// surviving source feeding both halves, so one corrupt stock clip cannot
// fail a scene that still has a readable source.
func (r *Renderer) RenderScene(ctx context.Context, req Request) (RenderedClip, error) {
	if err := r.validate(&req); err != nil {
		return RenderedClip{}, err
	}

	if req.AvatarPath != "" {
		if err := r.runner.Run(ctx, r.avatarArgs(req)); err != nil {
			return RenderedClip{}, services.Wrap(
				services.ErrDecode, "renderer", "render avatar scene",
				fmt.Sprintf("scene %d avatar render failed", req.SceneIndex), err)
		}
		return r.verifiedClip(ctx, req, true)
	}

	err := r.runner.Run(ctx, r.splitArgs(req, req.Primary, req.Secondary))
	if err != nil && ctx.Err() == nil && req.Secondary != req.Primary {
		for _, source := range []string{req.Primary, req.Secondary} {
			if ctx.Err() != nil {
				break
			}
			if retryErr := r.runner.Run(ctx, r.splitArgs(req, source, source)); retryErr == nil {
				err = nil
				break
			}
		}
	}
	if err != nil {
		return RenderedClip{}, services.Wrap(
			services.ErrDecode, "renderer", "render scene",
			fmt.Sprintf("scene %d render failed with every source", req.SceneIndex), err)
	}
	return r.verifiedClip(ctx, req, false)
}

func (r *Renderer) validate(req *Request) error {
	if strings.TrimSpace(req.AudioPath) == "" {
		return services.Wrap(
			services.ErrMissingAsset, "renderer", "validate",
			fmt.Sprintf("scene %d has no audio clip", req.SceneIndex), nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(
			services.ErrValidation, "renderer", "validate",
			fmt.Sprintf("scene %d has no output path", req.SceneIndex), nil)
	}
	if err := req.Timeline.Validate(); err != nil {
		return err
	}
	if req.AvatarPath != "" {
		if _, err := os.Stat(req.AvatarPath); err != nil {
			return services.Wrap(
				services.ErrMissingAsset, "renderer", "validate",
				fmt.Sprintf("avatar clip %s is not readable", req.AvatarPath), err)
		}
		return nil
	}
	if strings.TrimSpace(req.Primary) == "" {
		return services.Wrap(
			services.ErrMissingAsset, "renderer", "validate",
			fmt.Sprintf("scene %d has no primary source", req.SceneIndex), nil)
	}
	if strings.TrimSpace(req.Secondary) == "" {
		req.Secondary = req.Primary
	}
	return nil
}

// verifiedClip probes the rendered file and rejects it when its duration
// drifts from the scene audio by more than one frame interval. The clip
// reports the quantized timeline total, which the join plan offsets assume.
func (r *Renderer) verifiedClip(ctx context.Context, req Request, avatar bool) (RenderedClip, error) {
	rendered, err := r.probe(ctx, req.OutputPath)
	if err != nil {
		return RenderedClip{}, services.Wrap(
			services.ErrDecode, "renderer", "probe output",
			fmt.Sprintf("could not read duration of %s", req.OutputPath), err)
	}
	frame := time.Second / time.Duration(r.fps)
	if delta := rendered - req.Timeline.Total; delta > frame || delta < -frame {
		return RenderedClip{}, services.Wrap(
			services.ErrTimingViolation, "renderer", "verify duration",
			fmt.Sprintf("scene %d rendered %s, audio is %s", req.SceneIndex, rendered, req.Timeline.Total), nil)
	}
	return RenderedClip{
		SceneIndex: req.SceneIndex,
		Path:       req.OutputPath,
		Duration:   req.Timeline.Total,
		HasAvatar:  avatar,
	}, nil
}

// splitArgs builds the A/B render: each half loops or trims its source to
// the exact span length, both halves are normalized to the portrait frame,
// then hard-cut together and muxed with the scene audio.
func (r *Renderer) splitArgs(req Request, firstSource, secondSource string) []string {
	fitA := r.fitChain(req.Timeline.HalfA.Length(), "")
	fitB := r.fitChain(req.Timeline.HalfB.Length(), "")

	filters := []string{
		fmt.Sprintf("[0:v]%s[va]", fitA),
		fmt.Sprintf("[1:v]%s[vb]", fitB),
		"[va][vb]concat=n=2:v=1:a=0[vcat]",
	}
	outLabel := "[vcat]"
	if chain := r.captionChain(req.Caption); chain != "" {
		filters = append(filters, fmt.Sprintf("[vcat]%s[vout]", chain))
		outLabel = "[vout]"
	}

	return []string{
		"-stream_loop", "-1", "-i", firstSource,
		"-stream_loop", "-1", "-i", secondSource,
		"-i", req.AudioPath,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", outLabel, "-map", "2:a:0",
		"-c:v", "libx264", "-c:a", "aac", "-pix_fmt", "yuv420p",
		"-t", formatSeconds(req.Timeline.Total),
		"-shortest",
		req.OutputPath,
	}
}

// avatarArgs loops the brand clip across the whole scene. The bottom strip
// of the source is cropped away before scaling to hide the recording UI.
func (r *Renderer) avatarArgs(req Request) []string {
	fit := r.fitChain(req.Timeline.Total, "crop=iw:ih-150:0:0,")

	filters := []string{fmt.Sprintf("[0:v]%s[vfit]", fit)}
	outLabel := "[vfit]"
	if chain := r.captionChain(req.Caption); chain != "" {
		filters = append(filters, fmt.Sprintf("[vfit]%s[vout]", chain))
		outLabel = "[vout]"
	}

	return []string{
		"-stream_loop", "-1", "-i", req.AvatarPath,
		"-i", req.AudioPath,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", outLabel, "-map", "1:a:0",
		"-c:v", "libx264", "-c:a", "aac", "-pix_fmt", "yuv420p",
		"-t", formatSeconds(req.Timeline.Total),
		"-shortest",
		req.OutputPath,
	}
}

// fitChain trims a looped source to the target length and normalizes it to
// the portrait frame with center framing.
func (r *Renderer) fitChain(length time.Duration, prefix string) string {
	return fmt.Sprintf(
		"trim=duration=%s,setpts=PTS-STARTPTS,%sscale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
		formatSeconds(length), prefix, r.width, r.height, r.width, r.height, r.fps)
}

func (r *Renderer) captionChain(caption string) string {
	if !r.burnCaptions {
		return ""
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return ""
	}
	return strings.Join(captionFilters(caption, r.captionChars, r.fontPath), ",")
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
