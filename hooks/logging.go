package hooks

import (
	"context"
	"log"

	"github.com/youssefsiam38/contextpg/estimate"
	"github.com/youssefsiam38/contextpg/types"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// Turn logs the transcript shape before it is sent to the model.
func (h *LoggingHooks) Turn(ctx context.Context, sessionID string, transcript []*types.Turn) ([]*types.Turn, error) {
	h.logger.Printf("[ContextPG] Session %s: %d turns, ~%d chars",
		sessionID, len(transcript), estimate.TranscriptSize(transcript))
	return transcript, nil
}

// FlushSignal logs that a memory flush was signaled.
func (h *LoggingHooks) FlushSignal(ctx context.Context, sessionID string) error {
	h.logger.Printf("[ContextPG] Session %s: memory flush signaled", sessionID)
	return nil
}
