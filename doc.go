// Package contextpg manages the token budget of a growing conversational
// transcript fed to Claude. Once per turn it decides what to keep,
// compress, permanently discard, or signal for external summarization.
//
// The engine has three cooperating parts:
//
//   - Tiered pruning: once the transcript approaches the model's context
//     window, oversized stale tool results are soft-trimmed to head/tail
//     excerpts; if usage is still too high, the oldest eligible results
//     are hard-cleared to a fixed placeholder.
//
//   - Snapshot expiry: large browser snapshot artifacts are retired after
//     a bounded number of subsequent turns, or immediately when a fresher
//     snapshot appears. Expired artifact ids are persisted so a snapshot
//     never comes back after a restart.
//
//   - Flush trigger: a pure threshold/debounce decision over a cached
//     token-usage ledger that signals when an external memory-flush
//     (summarization) pass should run.
//
// Costs are approximated in characters (about 4 per token); the engine
// never calls a tokenizer. Every operation degrades to "do less" on
// failure: nothing in this package can corrupt a transcript or fail a
// model call.
//
// # Quick start
//
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	engine := contextpg.New(pgxv5.New(pool).GetStore(), nil, logger)
//
//	// Once per model turn, before sending the transcript:
//	transcript = engine.ProcessTurnForModel(ctx, sessionID, model, transcript)
//
//	// In the usage accounting path:
//	engine.RecordUsage(sessionID, usage.TotalTokens, true)
//	if engine.ShouldFlushMemory(sessionID, windowTokens) {
//	    runMemoryFlush(ctx, sessionID)
//	    engine.MarkFlushed(sessionID)
//	}
//
// Hosts that hold transcripts as Anthropic SDK message params can convert
// with FromMessageParams and ToMessageParams.
package contextpg
