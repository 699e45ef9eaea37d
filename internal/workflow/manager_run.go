package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// RunOnce drives a single run through every stage it still needs,
// synchronously, stopping at the first stage failure or when no stage
// accepts the run's status. The queue record is updated exactly as the
// polling loop would update it.
func (m *Manager) RunOnce(ctx context.Context, run *queue.Run) error {
	logger := m.runnerLogger()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.RLock()
		_, ok := m.stageByStart[run.Status]
		m.mu.RUnlock()
		if !ok {
			return nil
		}
		if err := m.processRun(ctx, logger, run); err != nil {
			return err
		}
	}
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	logger := m.runnerLogger()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		run, err := m.nextRun(ctx)
		if err != nil {
			m.handleNextRunError(ctx, logger, err)
			continue
		}
		if run == nil {
			m.waitForRunOrShutdown(ctx)
			continue
		}

		if err := m.processRun(ctx, logger, run); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) nextRun(ctx context.Context) (*queue.Run, error) {
	m.mu.RLock()
	order := m.statusOrder
	m.mu.RUnlock()
	if len(order) == 0 {
		return nil, nil
	}
	return m.store.NextForStatuses(ctx, order...)
}

func (m *Manager) handleNextRunError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next queue run", logging.Error(err))
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForRunOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
