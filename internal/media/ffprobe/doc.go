// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no reelsmith-specific dependencies and could be extracted
// as a standalone library. Inspect executes ffprobe and returns a parsed
// Result; helper methods expose duration, resolution, and stream metadata.
package ffprobe
