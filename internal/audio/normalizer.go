package audio

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

// Prober reports the duration of a media file. The default implementation
// shells out to ffprobe; tests substitute a fake.
type Prober func(ctx context.Context, path string) (time.Duration, error)

// NormalizedAudio is the trimmed, gain-adjusted clip every downstream
// stage times itself against.
type NormalizedAudio struct {
	Path        string
	Duration    time.Duration
	GainApplied float64
}

// Normalizer trims leading/trailing silence from narration clips and
// applies a fixed gain. The resulting duration is ground truth for the
// scene timeline.
type Normalizer struct {
	runner             ffmpeg.Runner
	probe              Prober
	gain               float64
	silenceThresholdDB float64
	minSilence         float64
}

// NewNormalizer builds a Normalizer from configuration.
func NewNormalizer(cfg *config.Config, runner ffmpeg.Runner, probe Prober) *Normalizer {
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
	return &Normalizer{
		runner:             runner,
		probe:              probe,
		gain:               cfg.Audio.Gain,
		silenceThresholdDB: cfg.Audio.SilenceThresholdDB,
		minSilence:         cfg.Audio.MinSilenceSeconds,
	}
}

// Filter returns the audio filter chain: silenceremove strips the leading
// silence, then the clip is reversed so a second pass strips what was
// originally the trailing silence, reversed back, and boosted. The volume
// filter clamps at full scale rather than wrapping.
func (n *Normalizer) Filter() string {
	trim := fmt.Sprintf(
		"silenceremove=start_periods=1:start_silence=%s:start_threshold=%sdB",
		trimFloat(n.minSilence), trimFloat(n.silenceThresholdDB))
	return fmt.Sprintf("%s,areverse,%s,areverse,volume=%s", trim, trim, trimFloat(n.gain))
}

// Normalize writes the trimmed clip to outputPath and probes its final
// duration. Trimming never lengthens a clip, so the result is bounded by
// the input duration.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) (NormalizedAudio, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return NormalizedAudio{}, services.Wrap(
			services.ErrMissingAsset, "normalizer", "normalize",
			"no audio clip supplied", nil)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return NormalizedAudio{}, services.Wrap(
			services.ErrMissingAsset, "normalizer", "normalize",
			fmt.Sprintf("audio clip %s is not readable", inputPath), err)
	}

	args := []string{"-i", inputPath, "-af", n.Filter(), outputPath}
	if err := n.runner.Run(ctx, args); err != nil {
		return NormalizedAudio{}, services.Wrap(
			services.ErrDecode, "normalizer", "trim silence",
			fmt.Sprintf("could not decode audio clip %s", inputPath), err)
	}

	duration, err := n.probe(ctx, outputPath)
	if err != nil {
		return NormalizedAudio{}, services.Wrap(
			services.ErrDecode, "normalizer", "probe duration",
			fmt.Sprintf("could not read duration of %s", outputPath), err)
	}
	duration = timeline.Quantize(duration)
	if duration <= 0 {
		return NormalizedAudio{}, services.Wrap(
			services.ErrDecode, "normalizer", "probe duration",
			fmt.Sprintf("normalized clip %s has no audible content", outputPath), nil)
	}

	return NormalizedAudio{
		Path:        outputPath,
		Duration:    duration,
		GainApplied: n.gain,
	}, nil
}

func trimFloat(value float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", value), "0"), ".")
}
