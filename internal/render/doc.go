// Package render produces one fixed-duration portrait clip per scene:
// either an A/B split of two stock sources or a loop of the brand avatar,
// muxed with the scene's normalized narration and optionally burned with
// styled captions.
package render
