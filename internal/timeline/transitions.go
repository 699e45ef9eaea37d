package timeline

import (
	"math/rand"
	"strings"
)

// TransitionKind identifies one of the supported scene join effects.
type TransitionKind string

const (
	TransitionCrossfade TransitionKind = "crossfade"
	TransitionWipe      TransitionKind = "wipe"
	TransitionSlide     TransitionKind = "slide"
)

// DefaultTransitionKinds returns the full effect set.
func DefaultTransitionKinds() []TransitionKind {
	return []TransitionKind{TransitionCrossfade, TransitionWipe, TransitionSlide}
}

// ParseTransitionKind normalizes a configured kind name.
func ParseTransitionKind(value string) (TransitionKind, bool) {
	switch TransitionKind(strings.ToLower(strings.TrimSpace(value))) {
	case TransitionCrossfade:
		return TransitionCrossfade, true
	case TransitionWipe:
		return TransitionWipe, true
	case TransitionSlide:
		return TransitionSlide, true
	}
	return "", false
}

// XFadeName maps the kind onto the ffmpeg xfade transition name.
func (k TransitionKind) XFadeName() string {
	switch k {
	case TransitionWipe:
		return "wipeleft"
	case TransitionSlide:
		return "slideleft"
	default:
		return "fade"
	}
}

// PickTransition selects one kind uniformly at random from the given set.
// An empty set falls back to crossfade.
func PickTransition(rng *rand.Rand, kinds []TransitionKind) TransitionKind {
	if len(kinds) == 0 {
		return TransitionCrossfade
	}
	if rng == nil || len(kinds) == 1 {
		return kinds[0]
	}
	return kinds[rng.Intn(len(kinds))]
}
