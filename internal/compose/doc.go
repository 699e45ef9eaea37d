// Package compose orchestrates the scene composition engine: narration
// clips are trimmed and measured, stock footage is rendered into timed
// scene clips on a bounded worker pool, and the results are stitched
// with crossfade transitions into the final vertical video.
package compose
