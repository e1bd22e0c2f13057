// Package flush decides when an external memory-flush (summarization)
// pass should run, based on a cached token-usage ledger rather than the
// transcript itself.
package flush

// LedgerEntry is the last-known token usage snapshot for a session.
//
// TotalTokensFresh is pointer-optional: nil means fresh (the default), an
// explicit false means the cached total predates a transcript change and
// must never trigger action. MemoryFlushCompactionCount is nil until the
// first flush.
type LedgerEntry struct {
	TotalTokens                int   `json:"total_tokens"`
	TotalTokensFresh           *bool `json:"total_tokens_fresh,omitempty"`
	CompactionCount            int   `json:"compaction_count"`
	MemoryFlushCompactionCount *int  `json:"memory_flush_compaction_count,omitempty"`
}

// Fresh reports whether the cached total can be trusted.
func (e *LedgerEntry) Fresh() bool {
	return e.TotalTokensFresh == nil || *e.TotalTokensFresh
}

// ShouldFlush reports whether a memory flush should be signaled.
//
// The trigger point is windowTokens - reserveFloorTokens -
// softThresholdTokens: the flush must fire while enough window remains
// for the summarization pass itself. Each guard below is independent and
// any failure short-circuits to false:
//
//  1. no ledger entry, or no known window
//  2. token total not yet measured
//  3. cached total marked stale
//  4. total below the trigger point
//  5. already flushed for this compaction generation (debounce)
func ShouldFlush(entry *LedgerEntry, windowTokens, reserveFloorTokens, softThresholdTokens int) bool {
	if entry == nil || windowTokens <= 0 {
		return false
	}
	if entry.TotalTokens <= 0 {
		return false
	}
	if !entry.Fresh() {
		return false
	}
	trigger := windowTokens - reserveFloorTokens - softThresholdTokens
	if entry.TotalTokens < trigger {
		return false
	}
	if entry.MemoryFlushCompactionCount != nil && *entry.MemoryFlushCompactionCount == entry.CompactionCount {
		return false
	}
	return true
}
