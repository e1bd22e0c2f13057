package contextpg

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/youssefsiam38/contextpg/flush"
	"github.com/youssefsiam38/contextpg/prune"
	"github.com/youssefsiam38/contextpg/snapshot"
	"github.com/youssefsiam38/contextpg/storage"
	"github.com/youssefsiam38/contextpg/types"
)

// Logger interface for engine logging.
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

// Engine is the transcript budget engine. One Engine serves many
// sessions; per-session state lives in an internal registry keyed by the
// stable session id string. The registry map is guarded by mu; each
// session carries its own lock so report reads (the ui package serves
// them from arbitrary HTTP goroutines) can run beside turn processing
// without racing it.
type Engine struct {
	settings   *Settings
	store      storage.Store
	logger     Logger
	classifier *prune.Classifier
	pruner     *prune.Pruner

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// sessionState is the engine's per-session runtime state. Its mutex
// serializes turn processing against ledger calls and report reads; the
// host already serializes turns within a session.
type sessionState struct {
	mu        sync.Mutex
	snapshots *snapshot.State
	ledger    flush.LedgerEntry
	loaded    bool
}

// New creates an Engine. A nil store disables persistence (expired-id
// sets then live only for the process lifetime); a nil logger is
// replaced with a no-op logger; a nil settings uses defaults.
func New(store storage.Store, settings *Settings, logger Logger) *Engine {
	if settings == nil {
		settings = DefaultSettings()
	} else {
		settings.ApplyDefaults()
	}
	if logger == nil {
		logger = noopLogger{}
	}

	classifier := &prune.Classifier{
		AllowTools:     settings.AllowTools,
		DenyTools:      settings.DenyTools,
		AllowHeuristic: settings.SnapshotHeuristic,
	}
	pruner := prune.NewPruner(prune.Budget{
		SoftTrimRatio:     settings.SoftTrimRatio,
		HardClearRatio:    settings.HardClearRatio,
		HardClearEnabled:  settings.hardClearEnabled(),
		SoftTrimMaxChars:  settings.SoftTrimMaxChars,
		SoftTrimHeadChars: settings.SoftTrimHeadChars,
		SoftTrimTailChars: settings.SoftTrimTailChars,
		MinPrunableChars:  settings.MinPrunableToolChars,
		ProtectedTurns:    settings.ProtectedAssistantTurns,
		CharsPerToken:     settings.CharsPerToken,
	}, classifier)

	return &Engine{
		settings:   settings,
		store:      store,
		logger:     logger,
		classifier: classifier,
		pruner:     pruner,
		sessions:   make(map[string]*sessionState),
	}
}

// Settings returns the engine's configuration.
func (e *Engine) Settings() *Settings {
	return e.settings
}

// ProcessTurn runs one engine pass over the transcript: snapshot expiry
// first, then tiered pruning when the cache-TTL policy is active.
//
// The input transcript is returned with its original identity when
// nothing changed, so callers can use pointer equality as a cheap "did
// anything happen" check. Any panic inside the pass is caught and logged
// and the original transcript is returned; a bug here must never block
// the model call.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID string, transcript []*types.Turn, windowTokens int) (out []*types.Turn) {
	out = transcript
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn processing panicked, transcript left unchanged",
				"session_id", sessionID, "panic", r)
			out = transcript
		}
	}()

	if !e.settings.enabled() {
		return transcript
	}

	st := e.session(sessionID)
	next, expired, expiredIDs := e.tick(ctx, sessionID, st, transcript)
	if len(expired) > 0 {
		e.logger.Info("snapshots expired",
			"session_id", sessionID, "count", len(expired))
		e.persistState(ctx, sessionID, expiredIDs)
	}
	out = next

	if e.settings.Mode == ModeCacheTTL {
		out = e.pruner.Prune(out, windowTokens)
	}
	return out
}

// tick runs the snapshot expiry pass under the session lock. It returns
// the (possibly replaced) transcript, the ids expired on this pass, and
// a copy of the full expired set for persistence.
func (e *Engine) tick(ctx context.Context, sessionID string, st *sessionState, transcript []*types.Turn) ([]*types.Turn, []string, []string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e.loadLocked(ctx, sessionID, st)
	next, expired := snapshot.Tick(transcript, snapshot.Settings{
		Enabled:   e.settings.snapshotExpiryEnabled(),
		MaxChecks: e.settings.SnapshotMaxChecks,
	}, st.snapshots, e.classifier.IsSnapshot)
	if len(expired) == 0 {
		return next, nil, nil
	}
	return next, expired, st.snapshots.ExpiredIDs()
}

// ProcessTurnForModel is ProcessTurn with the window size looked up from
// the model id.
func (e *Engine) ProcessTurnForModel(ctx context.Context, sessionID, model string, transcript []*types.Turn) []*types.Turn {
	return e.ProcessTurn(ctx, sessionID, transcript, GetModelInfo(model).ContextWindowTokens)
}

// RecordUsage updates the session's token ledger with a measured total.
// fresh=false records a total that is already known to be stale (it will
// never trigger a flush).
func (e *Engine) RecordUsage(sessionID string, totalTokens int, fresh bool) {
	st := e.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.ledger.TotalTokens = totalTokens
	st.ledger.TotalTokensFresh = boolPtr(fresh)
}

// RecordCompaction notes that a compaction (summarization) pass rewrote
// the session's transcript: the generation counter advances and the
// cached token total becomes stale until the next measurement.
func (e *Engine) RecordCompaction(sessionID string) {
	st := e.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.ledger.CompactionCount++
	st.ledger.TotalTokensFresh = boolPtr(false)
}

// ShouldFlushMemory reports whether an external memory-flush pass should
// run for the session, based on the cached ledger and the engine's
// reserve floor and soft threshold.
func (e *Engine) ShouldFlushMemory(sessionID string, windowTokens int) bool {
	if !e.settings.enabled() {
		return false
	}

	st := e.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	return flush.ShouldFlush(&st.ledger, windowTokens,
		e.settings.ReserveFloorTokens, e.settings.SoftThresholdTokens)
}

// MarkFlushed records that a flush ran for the session's current
// compaction generation, debouncing further signals until the next
// compaction.
func (e *Engine) MarkFlushed(sessionID string) {
	st := e.session(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	generation := st.ledger.CompactionCount
	st.ledger.MemoryFlushCompactionCount = &generation
}

// ReleaseSession drops the session's runtime state. Persisted expired-id
// records survive and are reloaded if the session returns.
func (e *Engine) ReleaseSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, sessionID)
}

// SessionIDs returns the ids of sessions with live runtime state, sorted.
func (e *Engine) SessionIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SessionReport is a read-only view of a session's engine state.
type SessionReport struct {
	SessionID        string
	TrackedSnapshots []snapshot.Entry
	ExpiredSnapshots []string
	Ledger           flush.LedgerEntry
}

// SessionReport returns the current state of a session, or false when the
// session has no live runtime state. The returned report is a copy taken
// under the session lock, safe to read from any goroutine.
func (e *Engine) SessionReport(sessionID string) (*SessionReport, bool) {
	e.mu.Lock()
	st, ok := e.sessions[sessionID]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return &SessionReport{
		SessionID:        sessionID,
		TrackedSnapshots: st.snapshots.Tracked(),
		ExpiredSnapshots: st.snapshots.ExpiredIDs(),
		Ledger:           st.ledger,
	}, true
}

// session returns the session's state, creating it if needed. Only the
// registry map access happens under the engine lock.
func (e *Engine) session(sessionID string) *sessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionLocked(sessionID)
}

// sessionLocked returns the session's state, creating it if needed.
// Caller must hold e.mu.
func (e *Engine) sessionLocked(sessionID string) *sessionState {
	st, ok := e.sessions[sessionID]
	if !ok {
		st = &sessionState{snapshots: snapshot.NewState()}
		e.sessions[sessionID] = st
	}
	return st
}

// loadLocked loads the session's persisted expired-id set on first
// touch. Caller must hold st.mu. The store round-trip runs outside the
// registry lock, so one slow load never stalls other sessions. Load
// failures degrade to an empty set.
func (e *Engine) loadLocked(ctx context.Context, sessionID string, st *sessionState) {
	if st.loaded {
		return
	}
	st.loaded = true
	if e.store == nil {
		return
	}

	record, err := e.store.LatestSessionState(ctx, sessionID)
	if err != nil {
		e.logger.Warn("failed to load session state, starting empty",
			"error", storageError("LoadState", sessionID, err))
		return
	}
	if record != nil {
		st.snapshots.LoadExpired(record.ExpiredIDs)
		e.logger.Debug("loaded persisted session state",
			"session_id", sessionID, "expired_ids", len(record.ExpiredIDs))
	}
}

// persistState appends the expired-id set to the store. Best-effort:
// failures are logged and dropped.
func (e *Engine) persistState(ctx context.Context, sessionID string, expiredIDs []string) {
	if e.store == nil {
		return
	}
	record := &storage.SessionStateRecord{
		Type:       storage.RecordTypeBudgetState,
		Timestamp:  time.Now(),
		ExpiredIDs: expiredIDs,
	}
	if err := e.store.AppendSessionState(ctx, sessionID, record); err != nil {
		e.logger.Warn("failed to persist session state",
			"error", storageError("PersistState", sessionID, err))
	}
}

// storageError tags a store failure with operation and session context.
func storageError(op, sessionID string, err error) error {
	return WrapError(op, sessionID, fmt.Errorf("%w: %v", ErrStorageError, err))
}
