package timeline

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"reelsmith/internal/services"
)

// Clip is one rendered scene ready for stitching.
type Clip struct {
	SceneIndex int
	Path       string
	Duration   time.Duration
	HasAvatar  bool
}

// Transition joins two adjacent clips with a fixed-overlap effect.
type Transition struct {
	Between [2]int
	Kind    TransitionKind
	Overlap time.Duration
}

// Plan is the final join descriptor the exporter consumes: clips in
// scene order plus one transition per adjacent pair.
type Plan struct {
	Clips       []Clip
	Transitions []Transition
}

// NewPlan orders clips by scene index and assigns a random transition to
// each boundary. Clip indexes must be contiguous from zero. The overlap
// must be strictly shorter than every clip, otherwise a join would
// consume a whole scene and desynchronize its audio.
func NewPlan(clips []Clip, kinds []TransitionKind, overlap time.Duration, rng *rand.Rand) (Plan, error) {
	if len(clips) == 0 {
		return Plan{}, services.Wrap(
			services.ErrValidation, "timeline", "plan",
			"no rendered clips to stitch", nil)
	}

	ordered := make([]Clip, len(clips))
	copy(ordered, clips)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SceneIndex < ordered[j].SceneIndex
	})

	for i, clip := range ordered {
		if clip.SceneIndex != i {
			return Plan{}, services.Wrap(
				services.ErrTimingViolation, "timeline", "plan",
				fmt.Sprintf("clip indexes are not contiguous: expected %d, got %d", i, clip.SceneIndex), nil)
		}
		if clip.Duration <= 0 {
			return Plan{}, services.Wrap(
				services.ErrTimingViolation, "timeline", "plan",
				fmt.Sprintf("clip %d has non-positive duration %s", clip.SceneIndex, clip.Duration), nil)
		}
	}

	plan := Plan{Clips: ordered}
	if len(ordered) == 1 {
		return plan, nil
	}

	overlap = Quantize(overlap)
	if overlap <= 0 {
		return Plan{}, services.Wrap(
			services.ErrValidation, "timeline", "plan",
			fmt.Sprintf("transition overlap %s must be positive", overlap), nil)
	}
	for _, clip := range ordered {
		if overlap >= clip.Duration {
			return Plan{}, services.Wrap(
				services.ErrTransitionOverlap, "timeline", "plan",
				fmt.Sprintf("overlap %s is not shorter than clip %d (%s)", overlap, clip.SceneIndex, clip.Duration), nil)
		}
	}

	plan.Transitions = make([]Transition, 0, len(ordered)-1)
	for i := 0; i < len(ordered)-1; i++ {
		plan.Transitions = append(plan.Transitions, Transition{
			Between: [2]int{ordered[i].SceneIndex, ordered[i+1].SceneIndex},
			Kind:    PickTransition(rng, kinds),
			Overlap: overlap,
		})
	}
	return plan, nil
}

// TotalDuration returns the stitched length: the clip sum minus one
// overlap per boundary.
func (p Plan) TotalDuration() time.Duration {
	var total time.Duration
	for _, clip := range p.Clips {
		total += clip.Duration
	}
	for _, tr := range p.Transitions {
		total -= tr.Overlap
	}
	return total
}
