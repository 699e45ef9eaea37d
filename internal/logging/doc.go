// Package logging configures slog handlers for console and JSON output and
// standardizes the structured field names used across the pipeline.
package logging
