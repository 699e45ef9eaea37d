// Package timeline computes the timing skeleton of a composed video: the
// per-scene A/B split, the avatar slot selection, and the final join plan
// with per-boundary transitions.
//
// All durations are quantized to milliseconds before any arithmetic so the
// tiling invariants hold exactly rather than within floating-point noise.
package timeline
