// Package script generates structured scene scripts for a topic through
// an OpenAI-compatible chat completion with JSON-schema enforcement.
package script
