package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, run *queue.Run, stageErr error) {
	logger := logging.WithContext(ctx, m.runnerLogger())

	message := classifyStageFailure(stageName, stageErr)
	resolved := services.FailureStatus(stageErr)
	run.Status = resolved
	run.ErrorMessage = message
	if resolved == queue.StatusReview {
		run.NeedsReview = true
		run.ReviewReason = message
	}

	logger.Error("stage failed",
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, run); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastRun(run)
	if err := m.notifier.NotifyError(ctx, stageErr, stageName); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return fmt.Sprintf("%s failed without error detail", stageName)
		}
		return "workflow failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}
