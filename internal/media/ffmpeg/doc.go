// Package ffmpeg runs ffmpeg subprocesses behind a small Runner interface so
// rendering code can be exercised in tests without the real binary.
package ffmpeg
