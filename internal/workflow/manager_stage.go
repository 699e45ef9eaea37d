package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

type loggerAware interface {
	SetLogger(*slog.Logger)
}

func (m *Manager) processRun(ctx context.Context, runnerLogger *slog.Logger, run *queue.Run) error {
	m.mu.RLock()
	stg, ok := m.stageByStart[run.Status]
	m.mu.RUnlock()
	if !ok {
		runnerLogger.Warn("no stage configured for status", logging.String("status", string(run.Status)))
		m.waitForRunOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stg.name, run, requestID)
	stageLogger := logging.WithContext(stageCtx, runnerLogger)
	if aware, ok := stg.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, run); err != nil {
		stageLogger.Error("failed to transition run to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, run)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, run *queue.Run) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("topic", strings.TrimSpace(run.Topic)),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		run.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.Update(ctx, run); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		m.setLastError(errors.New("stage handler unavailable"))
		return errors.New("stage handler unavailable")
	}

	if err := handler.Prepare(ctx, run); err != nil {
		m.handleStageFailure(ctx, stg.name, run, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, run); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	if err := handler.Execute(ctx, run); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(ctx, stg.name, run, err)
		m.setLastError(err)
		return err
	}

	if run.Status == stg.processingStatus || run.Status == "" {
		run.Status = stg.doneStatus
	}
	if run.Status == queue.StatusCompleted {
		if run.ProgressPercent < 100 {
			run.ProgressPercent = 100
		}
		if strings.TrimSpace(run.ProgressMessage) == "" {
			run.ProgressMessage = "Completed"
		}
	}
	if err := m.store.Update(ctx, run); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String("next_status", string(run.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastRun(run)
	return nil
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing queue.Status, run *queue.Run) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	run.Status = processing
	run.SetProgress(deriveStageLabel(processing), fmt.Sprintf("%s started", deriveStageLabel(processing)), 0)
	run.ErrorMessage = ""
	if err := m.store.Update(ctx, run); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastRun(run)
	if run.Status == queue.StatusScripting {
		if err := m.notifier.NotifyRunStarted(ctx, run.Topic); err != nil {
			m.runnerLogger().Debug("run start notification failed", logging.Error(err))
		}
	}
	return nil
}
