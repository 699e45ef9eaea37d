package workflow

import (
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Scripter  stage.Handler
	Voicer    stage.Handler
	Gatherer  stage.Handler
	Composer  stage.Handler
	Publisher stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}
