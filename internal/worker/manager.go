package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Manager hosts a Worker's consume loop on its own goroutine, decoupled from
// the hosting application's request path. Construct one at startup and hand it
// to whatever owns the process lifecycle; there is no package-level instance.
type Manager struct {
	worker  *Worker
	logger  *slog.Logger
	running atomic.Bool
}

func NewManager(worker *Worker, logger *slog.Logger) *Manager {
	return &Manager{
		worker: worker,
		logger: logger,
	}
}

// StartIfNotRunning launches the consume loop in the background. It is
// idempotent: calls after the first successful start are no-ops. If the loop
// exits with an error it is logged and the worker stays down; restarting is a
// supervision concern outside this process.
func (m *Manager) StartIfNotRunning(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer m.running.Store(false)
		if err := m.worker.Run(ctx); err != nil {
			m.logger.Error("worker loop terminated", slog.Any("error", err))
		}
	}()
	m.logger.Info("background worker started")
}

// IsRunning reports whether the consume loop is active.
func (m *Manager) IsRunning() bool {
	return m.running.Load()
}
