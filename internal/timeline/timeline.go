package timeline

import (
	"fmt"
	"math/rand"
	"time"

	"reelsmith/internal/services"
)

// Span is a half-open interval [Start, End) on a scene's local clock.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// Length returns the span duration.
func (s Span) Length() time.Duration {
	return s.End - s.Start
}

// SceneTimeline fixes the A/B split for one scene. HalfA covers
// [0, split) and HalfB covers [split, Total); together they tile the
// scene exactly.
type SceneTimeline struct {
	SceneIndex int
	HalfA      Span
	HalfB      Span
	Total      time.Duration
}

// Quantize rounds a duration to the nearest millisecond. All timeline
// arithmetic happens on quantized values so halves always sum back to
// the total.
func Quantize(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

// Build computes the split point for a scene of the given audio duration.
// The split rounds half up, so for odd totals HalfA carries the extra
// millisecond and HalfB takes the remainder.
func Build(sceneIndex int, total time.Duration) (SceneTimeline, error) {
	if sceneIndex < 0 {
		return SceneTimeline{}, services.Wrap(
			services.ErrValidation, "timeline", "build",
			fmt.Sprintf("scene index %d must not be negative", sceneIndex), nil)
	}
	total = Quantize(total)
	if total <= 0 {
		return SceneTimeline{}, services.Wrap(
			services.ErrValidation, "timeline", "build",
			fmt.Sprintf("scene %d has non-positive duration %s", sceneIndex, total), nil)
	}

	totalMS := total.Milliseconds()
	halfAMS := (totalMS + 1) / 2

	split := time.Duration(halfAMS) * time.Millisecond
	tl := SceneTimeline{
		SceneIndex: sceneIndex,
		HalfA:      Span{Start: 0, End: split},
		HalfB:      Span{Start: split, End: total},
		Total:      total,
	}
	if err := tl.Validate(); err != nil {
		return SceneTimeline{}, err
	}
	return tl, nil
}

// Validate checks the tiling invariant: the two halves are adjacent,
// non-overlapping, and sum to the total exactly.
func (t SceneTimeline) Validate() error {
	if t.HalfA.Start != 0 {
		return timingViolation(t.SceneIndex, "half A does not start at zero")
	}
	if t.HalfA.End != t.HalfB.Start {
		return timingViolation(t.SceneIndex, "halves are not adjacent")
	}
	if t.HalfB.End != t.Total {
		return timingViolation(t.SceneIndex, "half B does not end at total")
	}
	if t.HalfA.Length()+t.HalfB.Length() != t.Total {
		return timingViolation(t.SceneIndex, "halves do not sum to total")
	}
	diff := t.HalfA.Length() - t.HalfB.Length()
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Millisecond {
		return timingViolation(t.SceneIndex, "halves differ by more than one millisecond")
	}
	return nil
}

func timingViolation(sceneIndex int, detail string) error {
	return services.Wrap(
		services.ErrTimingViolation, "timeline", "validate",
		fmt.Sprintf("scene %d: %s", sceneIndex, detail), nil)
}

// PickAvatarSlot chooses one interior scene index uniformly at random.
// The first scene (hook) and last scene (outro) are never eligible, so
// at least three scenes are required; otherwise no slot is returned.
func PickAvatarSlot(rng *rand.Rand, sceneCount int) (int, bool) {
	if rng == nil || sceneCount < 3 {
		return 0, false
	}
	return 1 + rng.Intn(sceneCount-2), true
}
