package coordinator

import (
	"context"
	"log/slog"
	"sync"
)

// task tracks one running phase handler: its cancel function and a channel
// closed when the handler goroutine has fully returned.
type task struct {
	phase  Phase
	cancel context.CancelFunc
	done   chan struct{}
}

// Machine enforces the single-flight rule: at most one phase handler runs at
// any instant. Dispatching a new handler first cancels the running one and
// waits for it to return, so a slow handler can never interleave its side
// effects with its successor's.
type Machine struct {
	logger *slog.Logger

	mu      sync.Mutex
	current *task
}

func NewMachine(logger *slog.Logger) *Machine {
	return &Machine{logger: logger}
}

// Dispatch starts fn as the handler for phase, after cancelling and awaiting
// any handler still running. fn receives a context derived from ctx that is
// cancelled when the next dispatch or a reset arrives. Handler errors and
// panics are logged at this boundary, never propagated: the machine must
// survive any single phase going wrong.
func (m *Machine) Dispatch(ctx context.Context, phase Phase, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelCurrentLocked()

	hctx, cancel := context.WithCancel(ctx)
	t := &task{phase: phase, cancel: cancel, done: make(chan struct{})}
	m.current = t

	go func() {
		defer close(t.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("MACHINE: handler panicked", "phase", phase, "panic", r)
			}
		}()

		err := fn(hctx)
		switch {
		case err == nil:
			m.logger.Info("MACHINE: handler finished", "phase", phase)
		case context.Cause(hctx) != nil:
			m.logger.Info("MACHINE: handler cancelled", "phase", phase, "error", err)
		default:
			m.logger.Error("MACHINE: handler failed", "phase", phase, "error", err)
		}
	}()
}

// CancelRunning cancels the running handler, if any, and waits for it to
// return. Used by reset handling and at shutdown.
func (m *Machine) CancelRunning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCurrentLocked()
}

func (m *Machine) cancelCurrentLocked() {
	if m.current == nil {
		return
	}
	m.logger.Info("MACHINE: cancelling running handler", "phase", m.current.phase)
	m.current.cancel()
	<-m.current.done
	m.current = nil
}

// Wait blocks until the currently running handler, if any, has returned. It
// does not cancel anything.
func (m *Machine) Wait() {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	if t != nil {
		<-t.done
	}
}
