package stage

import (
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// RunManifest decodes a run's manifest and wraps decode failures so stage
// Execute methods can return them directly.
func RunManifest(run *queue.Run) (*queue.Manifest, error) {
	manifest, err := run.Manifest()
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "decode manifest",
			"Run manifest missing or invalid; rerun the previous stage", err)
	}
	return manifest, nil
}
