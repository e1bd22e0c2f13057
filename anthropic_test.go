package contextpg

import (
	"context"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/contextpg/snapshot"
)

func snapshotParams() []anthropic.MessageParam {
	return []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("open example.com")),
		anthropic.NewAssistantMessage(
			anthropic.NewToolUseBlock("tu_1", map[string]any{"action": "snapshot"}, "browser"),
		),
		anthropic.NewUserMessage(
			anthropic.NewToolResultBlock("tu_1", "url: https://example.com\n- button [ref=e1]", false),
		),
	}
}

func TestProcessMessageParams_NoOpKeepsIdentity(t *testing.T) {
	e := New(nil, testSettings(), nil)
	params := snapshotParams()

	out := e.ProcessMessageParams(context.Background(), "sess", params, 100000)
	if len(out) != len(params) || &out[0] != &params[0] {
		t.Error("no-op pass did not return the input params")
	}
}

func TestProcessMessageParams_ExpiresSnapshot(t *testing.T) {
	e := New(nil, testSettings(), nil)
	ctx := context.Background()

	e.ProcessMessageParams(ctx, "sess", snapshotParams(), 100000)

	params := append(snapshotParams(),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock("I see a button")),
		anthropic.NewUserMessage(anthropic.NewTextBlock("click it")),
	)
	out := e.ProcessMessageParams(ctx, "sess", params, 100000)

	var found bool
	for _, msg := range out {
		for _, block := range msg.Content {
			if tr := block.OfToolResult; tr != nil {
				found = true
				if len(tr.Content) != 1 || tr.Content[0].OfText == nil {
					t.Fatalf("expired result content = %+v", tr.Content)
				}
				if got := tr.Content[0].OfText.Text; !strings.Contains(got, snapshot.ExpiredText) {
					t.Errorf("tool result = %q, want expiry placeholder", got)
				}
			}
		}
	}
	if !found {
		t.Fatal("tool result block missing from output params")
	}
}
