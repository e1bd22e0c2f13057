package contextpg

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/contextpg/internal/convert"
	"github.com/youssefsiam38/contextpg/types"
)

// FromMessageParams converts Anthropic SDK message params into engine
// turns. User messages carrying tool_result blocks are split into
// individual tool-result turns with their tool names resolved from the
// originating calls.
func FromMessageParams(params []anthropic.MessageParam) []*types.Turn {
	return convert.FromMessageParams(params)
}

// ToMessageParams converts engine turns back into Anthropic SDK message
// params, merging consecutive non-assistant turns to keep the API's role
// alternation.
func ToMessageParams(transcript []*types.Turn) []anthropic.MessageParam {
	return convert.ToMessageParams(transcript)
}

// ProcessMessageParams is the SDK-typed variant of ProcessTurn: it
// converts, runs one engine pass, and converts back. The input slice is
// returned unchanged (same identity) when the engine was a no-op.
func (e *Engine) ProcessMessageParams(ctx context.Context, sessionID string, params []anthropic.MessageParam, windowTokens int) []anthropic.MessageParam {
	transcript := convert.FromMessageParams(params)
	out := e.ProcessTurn(ctx, sessionID, transcript, windowTokens)
	if sameTranscript(transcript, out) {
		return params
	}
	return convert.ToMessageParams(out)
}

func sameTranscript(a, b []*types.Turn) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
