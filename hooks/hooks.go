// Package hooks provides the turn-hook boundary between a host agent
// loop and the budget engine. Hook failures are isolated: an error or
// panic inside a hook is logged and the transcript continues unchanged,
// so a bug here never blocks a model call.
package hooks

import (
	"context"
	"sync"

	"github.com/youssefsiam38/contextpg/types"
)

// Logger interface for hook logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// TurnHook is called once per model turn with the full ordered
// transcript. It returns a replacement transcript, or the input itself
// (same identity) to signal "unchanged".
type TurnHook func(ctx context.Context, sessionID string, transcript []*types.Turn) ([]*types.Turn, error)

// FlushSignalHook is called when the engine signals that a memory flush
// should run for a session.
type FlushSignalHook func(ctx context.Context, sessionID string) error

// Registry holds all registered hooks.
type Registry struct {
	mu     sync.RWMutex
	logger Logger
	turn   []TurnHook
	flush  []FlushSignalHook
}

// NewRegistry creates a new hook registry. A nil logger is replaced with
// a no-op logger.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{logger: logger}
}

// OnTurn registers a hook to be called once per model turn.
func (r *Registry) OnTurn(hook TurnHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turn = append(r.turn, hook)
}

// OnFlushSignal registers a hook to be called when a memory flush is
// signaled.
func (r *Registry) OnFlushSignal(hook FlushSignalHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush = append(r.flush, hook)
}

// TriggerTurn calls all registered turn hooks in order, feeding each the
// previous hook's output. A hook that errors or panics is skipped and
// the transcript from before it is carried forward.
func (r *Registry) TriggerTurn(ctx context.Context, sessionID string, transcript []*types.Turn) []*types.Turn {
	r.mu.RLock()
	hooks := make([]TurnHook, len(r.turn))
	copy(hooks, r.turn)
	r.mu.RUnlock()

	current := transcript
	for _, hook := range hooks {
		next, err := callTurnHook(ctx, hook, sessionID, current)
		if err != nil {
			r.logger.Warn("turn hook failed, continuing with unmodified transcript",
				"session_id", sessionID, "error", err)
			continue
		}
		if next != nil {
			current = next
		}
	}
	return current
}

// TriggerFlushSignal calls all registered flush hooks. Failures are
// logged and do not stop the remaining hooks.
func (r *Registry) TriggerFlushSignal(ctx context.Context, sessionID string) {
	r.mu.RLock()
	hooks := make([]FlushSignalHook, len(r.flush))
	copy(hooks, r.flush)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID); err != nil {
			r.logger.Warn("flush hook failed",
				"session_id", sessionID, "error", err)
		}
	}
}

// callTurnHook invokes one hook with panic isolation.
func callTurnHook(ctx context.Context, hook TurnHook, sessionID string, transcript []*types.Turn) (out []*types.Turn, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &panicError{value: r}
		}
	}()
	return hook(ctx, sessionID, transcript)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return "hook panicked: " + err.Error()
	}
	return "hook panicked"
}
