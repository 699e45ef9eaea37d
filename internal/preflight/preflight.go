package preflight

import (
	"context"

	"reelsmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Working directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFreeSpace("Working disk space", cfg.Paths.WorkDir))

	results = append(results, CheckConfigValue("Script service", cfg.Script.APIKey, "api key missing"))
	results = append(results, CheckConfigValue("Voice service", cfg.Voice.BaseURL, "base url missing"))
	results = append(results, CheckConfigValue("Footage provider", cfg.Pexels.APIKey, "api key missing"))

	if cfg.Avatar.Enabled && cfg.Avatar.Required {
		results = append(results, CheckFileAccess("Avatar clip", cfg.Paths.AvatarPath))
	}
	if cfg.Video.BurnCaptions {
		results = append(results, CheckFileAccess("Caption font", cfg.Paths.FontPath))
	}
	if cfg.YouTube.Enabled {
		results = append(results, CheckConfigValue("YouTube credentials", cfg.YouTube.RefreshToken, "refresh token missing"))
	}

	return results
}

// Passed reports whether every result succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
