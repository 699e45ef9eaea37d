// Package audio trims silence from synthesized narration clips and applies
// a fixed gain. The trimmed duration anchors all downstream video timing.
package audio
