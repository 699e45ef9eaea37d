package stitch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

// Exporter writes the final container file. Only one exporter may target
// a given output path at a time; concurrent runs against the same path
// serialize on a sidecar lock file.
type Exporter struct {
	runner ffmpeg.Runner
	preset string
}

// NewExporter builds an Exporter that encodes with the given x264 preset.
func NewExporter(runner ffmpeg.Runner, preset string) *Exporter {
	return &Exporter{runner: runner, preset: preset}
}

// Export encodes the join plan to outputPath in a single pass. Encoder
// failures are fatal and carry the tool's exit status; nothing is retried.
func (e *Exporter) Export(ctx context.Context, plan timeline.Plan, outputPath string) error {
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return services.Wrap(
			services.ErrValidation, "exporter", "export",
			"no output path configured", nil)
	}
	if len(plan.Clips) == 0 {
		return services.Wrap(
			services.ErrValidation, "exporter", "export",
			"join plan has no clips", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(
			services.ErrExportFailed, "exporter", "export",
			fmt.Sprintf("could not create output directory for %s", outputPath), err)
	}

	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return services.Wrap(
			services.ErrExportFailed, "exporter", "acquire lock",
			fmt.Sprintf("could not lock output path %s", outputPath), err)
	}
	if !locked {
		return services.Wrap(
			services.ErrExportFailed, "exporter", "acquire lock",
			fmt.Sprintf("output path %s is held by another export", outputPath), nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	// A stale partial file must never survive a failed export.
	_ = os.Remove(outputPath)

	if err := e.runner.Run(ctx, Args(plan, e.preset, outputPath)); err != nil {
		_ = os.Remove(outputPath)
		return services.Wrap(
			services.ErrExportFailed, "exporter", "encode",
			fmt.Sprintf("final encode to %s failed", outputPath), err)
	}
	return nil
}
