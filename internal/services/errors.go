package services

import (
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/queue"
)

// Sentinel markers for failure classification. Domain errors follow the render
// pipeline's taxonomy: decode failures, missing assets, and timing violations
// are all fatal for the run; only the renderer's documented single retry with
// the alternate source recovers locally.
var (
	// ErrDecode marks an unreadable or corrupt audio/video source.
	ErrDecode = errors.New("decode error")
	// ErrMissingAsset marks a required source or avatar clip that is absent.
	ErrMissingAsset = errors.New("missing asset")
	// ErrTimingViolation marks computed spans that break the exactness
	// invariant. It indicates a logic bug and is never silently corrected.
	ErrTimingViolation = errors.New("timing violation")
	// ErrTransitionOverlap marks a join overlap that meets or exceeds the
	// shortest clip duration, which would desynchronize scene audio.
	ErrTransitionOverlap = errors.New("transition overlap too long")
	// ErrExportFailed marks a fatal, non-retryable final encode failure.
	ErrExportFailed = errors.New("export failed")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage fails. Configuration and missing-asset
// failures are user-fixable and land in review; everything else is terminal.
// Either way no partial output survives: the design favors a complete render
// or no output at all.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrMissingAsset), errors.Is(err, ErrValidation):
		return queue.StatusReview
	default:
		return queue.StatusFailed
	}
}

// IsFatal reports whether an error admits no local recovery. All sentinel
// markers except ErrTransient are fatal for the run.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrTransient)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
