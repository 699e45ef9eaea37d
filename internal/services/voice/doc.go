// Package voice synthesizes per-scene narration audio through a remote
// text-to-speech endpoint with per-scene retry.
package voice
