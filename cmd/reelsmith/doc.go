// Command reelsmith drives the short-video pipeline: queueing topics,
// running the stage worker, and inspecting queue and service health.
package main
