// Package config loads, validates, and defaults reelsmith configuration.
//
// Configuration lives in a TOML file resolved from an explicit --config flag,
// ~/.config/reelsmith/config.toml, or a project-local reelsmith.toml, in that
// order. Every previously implicit constant of the render pipeline (gain
// factor, silence threshold, transition set, overlap duration, avatar
// eligibility) is a named field here so components never reach for hidden
// globals.
package config
