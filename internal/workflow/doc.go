// Package workflow advances queue runs through the configured processing
// stages.
//
// The Manager polls the queue and feeds runs into registered stage handlers
// (scripter, voicer, gatherer, composer, publisher) while capturing progress
// and failure metadata. It also aggregates queue health, calls stage health
// checks, and emits notifications when a run starts or fails.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition runs; this package is the
// authoritative home for that coordination logic.
package workflow
