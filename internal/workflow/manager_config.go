package workflow

import "reelsmith/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// The publisher is optional; when absent, composition finishes the run.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage

	if set.Scripter != nil {
		stages = append(stages, pipelineStage{
			name:             "scripter",
			handler:          set.Scripter,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusScripting,
			doneStatus:       queue.StatusScripted,
		})
	}
	if set.Voicer != nil {
		stages = append(stages, pipelineStage{
			name:             "voicer",
			handler:          set.Voicer,
			startStatus:      queue.StatusScripted,
			processingStatus: queue.StatusVoicing,
			doneStatus:       queue.StatusVoiced,
		})
	}
	if set.Gatherer != nil {
		stages = append(stages, pipelineStage{
			name:             "gatherer",
			handler:          set.Gatherer,
			startStatus:      queue.StatusVoiced,
			processingStatus: queue.StatusGathering,
			doneStatus:       queue.StatusGathered,
		})
	}
	if set.Composer != nil {
		composerDone := queue.StatusComposed
		if set.Publisher == nil {
			composerDone = queue.StatusCompleted
		}
		stages = append(stages, pipelineStage{
			name:             "composer",
			handler:          set.Composer,
			startStatus:      queue.StatusGathered,
			processingStatus: queue.StatusComposing,
			doneStatus:       composerDone,
		})
	}
	if set.Publisher != nil {
		stages = append(stages, pipelineStage{
			name:             "publisher",
			handler:          set.Publisher,
			startStatus:      queue.StatusComposed,
			processingStatus: queue.StatusPublishing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	stageByStart := make(map[queue.Status]pipelineStage, len(stages))
	statusOrder := make([]queue.Status, 0, len(stages))
	processing := make([]queue.Status, 0, len(stages))
	for _, stg := range stages {
		stageByStart[stg.startStatus] = stg
		statusOrder = append(statusOrder, stg.startStatus)
		processing = append(processing, stg.processingStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = stageByStart
	m.statusOrder = statusOrder
	m.processingStatuses = processing
	m.mu.Unlock()
}
