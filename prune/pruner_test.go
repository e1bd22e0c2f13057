package prune

import (
	"strings"
	"testing"

	"github.com/youssefsiam38/contextpg/internal/testutil"
	"github.com/youssefsiam38/contextpg/types"
)

// testBudget uses a 1:1 char/token ratio so window sizes in tests are
// plain character counts.
func testBudget() Budget {
	return Budget{
		SoftTrimRatio:     0.5,
		HardClearRatio:    0.8,
		HardClearEnabled:  true,
		SoftTrimMaxChars:  100,
		SoftTrimHeadChars: 20,
		SoftTrimTailChars: 20,
		MinPrunableChars:  0,
		ProtectedTurns:    1,
		CharsPerToken:     1,
	}
}

// testTranscript builds:
//
//	0 user (4 chars)
//	1 assistant tool call (11 chars)
//	2 tool result, 200 chars
//	3 assistant tool call (11 chars)
//	4 tool result, 200 chars
//	5 assistant (4 chars)
//
// for a 430 char total.
func testTranscript() []*types.Turn {
	big1 := strings.Repeat("a", 200)
	big2 := strings.Repeat("b", 200)
	return []*types.Turn{
		testutil.UserTurn("task"),
		testutil.AssistantToolCall("tu_1", "fetch", map[string]any{"url": "https://x"}),
		testutil.ToolResultTurn("tu_1", "fetch", big1),
		testutil.AssistantToolCall("tu_2", "fetch", map[string]any{"url": "https://y"}),
		testutil.ToolResultTurn("tu_2", "fetch", big2),
		testutil.AssistantTurn("done"),
	}
}

func sameIdentity(a, b []*types.Turn) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func TestPrune_NoOpCases(t *testing.T) {
	p := NewPruner(testBudget(), nil)
	transcript := testTranscript()

	tests := []struct {
		name         string
		transcript   []*types.Turn
		windowTokens int
	}{
		{name: "unknown window", transcript: transcript, windowTokens: 0},
		{name: "negative window", transcript: transcript, windowTokens: -1},
		{name: "empty transcript", transcript: nil, windowTokens: 1000},
		{name: "usage under soft threshold", transcript: transcript, windowTokens: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Prune(tt.transcript, tt.windowTokens)
			if !sameIdentity(tt.transcript, out) {
				t.Error("Prune() changed identity on a no-op case")
			}
		})
	}
}

func TestPrune_SoftTrim(t *testing.T) {
	p := NewPruner(testBudget(), nil)
	transcript := testTranscript()

	// 430/800 = 54% usage: above soft, and well below hard after trims.
	out := p.Prune(transcript, 800)
	if sameIdentity(transcript, out) {
		t.Fatal("Prune() did not trim")
	}

	for _, idx := range []int{2, 4} {
		text := out[idx].Text()
		if !strings.HasPrefix(text, transcript[idx].Text()[:20]) {
			t.Errorf("turn %d lost its head excerpt: %q", idx, text)
		}
		if !strings.Contains(text, "kept 40 of 200 characters") {
			t.Errorf("turn %d missing trim note: %q", idx, text)
		}
		if out[idx].ToolUseID != transcript[idx].ToolUseID {
			t.Errorf("turn %d lost tool correlation", idx)
		}
	}

	// Untouched turns are shared with the input.
	for _, idx := range []int{0, 1, 3, 5} {
		if out[idx] != transcript[idx] {
			t.Errorf("turn %d was copied needlessly", idx)
		}
	}
	// Input transcript is never mutated.
	if transcript[2].Text() != strings.Repeat("a", 200) {
		t.Error("Prune() mutated the input transcript")
	}
}

func TestPrune_CharsPerTokenConversion(t *testing.T) {
	budget := testBudget()
	budget.CharsPerToken = 4
	p := NewPruner(budget, nil)
	transcript := testTranscript()

	// 200 tokens * 4 = 800 chars, same as the soft trim case above.
	out := p.Prune(transcript, 200)
	if sameIdentity(transcript, out) {
		t.Error("Prune() ignored the chars-per-token conversion")
	}
}

func TestPrune_HardClearOldestFirst(t *testing.T) {
	p := NewPruner(testBudget(), nil)
	transcript := testTranscript()

	// After soft trims usage is 220/250 = 88%: hard clearing starts and
	// clearing the oldest result alone drops usage under 80%.
	out := p.Prune(transcript, 250)

	if got := out[2].Text(); got != ClearedText {
		t.Errorf("oldest result not cleared: %q", got)
	}
	if got := out[4].Text(); !strings.Contains(got, "kept 40 of 200 characters") {
		t.Errorf("newer result should stay soft-trimmed: %q", got)
	}
}

func TestPrune_HardClearAll(t *testing.T) {
	p := NewPruner(testBudget(), nil)
	transcript := testTranscript()

	// Window so small that clearing one result is not enough.
	out := p.Prune(transcript, 160)

	if out[2].Text() != ClearedText || out[4].Text() != ClearedText {
		t.Errorf("both results should be cleared: %q / %q", out[2].Text(), out[4].Text())
	}
}

func TestPrune_MinPrunableGate(t *testing.T) {
	budget := testBudget()
	budget.MinPrunableChars = 1000
	p := NewPruner(budget, nil)
	transcript := testTranscript()

	// Not enough prunable bulk to justify breaking the cache prefix:
	// soft trims still apply, hard clearing does not.
	out := p.Prune(transcript, 250)

	for _, idx := range []int{2, 4} {
		if out[idx].Text() == ClearedText {
			t.Errorf("turn %d hard-cleared below the prunable minimum", idx)
		}
		if !strings.Contains(out[idx].Text(), "kept 40 of 200 characters") {
			t.Errorf("turn %d not soft-trimmed: %q", idx, out[idx].Text())
		}
	}
}

func TestPrune_HardClearDisabled(t *testing.T) {
	budget := testBudget()
	budget.HardClearEnabled = false
	p := NewPruner(budget, nil)
	transcript := testTranscript()

	out := p.Prune(transcript, 160)
	for _, idx := range []int{2, 4} {
		if out[idx].Text() == ClearedText {
			t.Errorf("turn %d hard-cleared while disabled", idx)
		}
	}
}

func TestPrune_ProtectedTail(t *testing.T) {
	budget := testBudget()
	budget.ProtectedTurns = 2
	p := NewPruner(budget, nil)
	transcript := testTranscript()

	// Second-to-last assistant turn is index 3: the result at 4 sits in
	// the protected tail and must survive even under heavy pressure.
	out := p.Prune(transcript, 160)

	if out[4] != transcript[4] {
		t.Error("protected tool result was modified")
	}
	if out[2].Text() != ClearedText {
		t.Errorf("unprotected result not cleared: %q", out[2].Text())
	}
}

func TestPrune_FewAssistantTurnsProtectsEverything(t *testing.T) {
	budget := testBudget()
	budget.ProtectedTurns = 4 // more than the transcript has
	p := NewPruner(budget, nil)
	transcript := testTranscript()

	out := p.Prune(transcript, 100)
	if !sameIdentity(transcript, out) {
		t.Error("short conversation was pruned")
	}
}

func TestPrune_NothingBeforeFirstUserTurn(t *testing.T) {
	p := NewPruner(testBudget(), nil)
	transcript := []*types.Turn{
		testutil.ToolResultTurn("tu_0", "fetch", strings.Repeat("x", 200)),
		testutil.UserTurn("task"),
		testutil.AssistantToolCall("tu_1", "fetch", nil),
		testutil.ToolResultTurn("tu_1", "fetch", strings.Repeat("y", 200)),
		testutil.AssistantTurn("done"),
	}

	out := p.Prune(transcript, 160)
	if out[0] != transcript[0] {
		t.Error("turn before the first user turn was pruned")
	}
	if out[3] == transcript[3] {
		t.Error("eligible result after the first user turn was not pruned")
	}
}

func TestPrune_MediaResultsNeverPruned(t *testing.T) {
	p := NewPruner(testBudget(), nil)
	screenshot := &types.Turn{
		Role:      types.RoleToolResult,
		ToolUseID: "tu_img",
		ToolName:  "browser",
		Blocks: []types.Block{
			{Type: types.BlockTypeText, Text: strings.Repeat("z", 200)},
			{Type: types.BlockTypeMedia, MediaType: "image/png", MediaData: "..."},
		},
	}
	transcript := []*types.Turn{
		testutil.UserTurn("task"),
		testutil.AssistantToolCall("tu_img", "browser", nil),
		screenshot,
		testutil.AssistantTurn("done"),
	}

	out := p.Prune(transcript, 1000)
	if out[2] != screenshot {
		t.Error("media-bearing tool result was pruned")
	}
}

func TestPrune_DeniedToolsUntouched(t *testing.T) {
	p := NewPruner(testBudget(), &Classifier{DenyTools: []string{"fetch"}})
	transcript := testTranscript()

	out := p.Prune(transcript, 160)
	if !sameIdentity(transcript, out) {
		t.Error("denied tool results were pruned")
	}
}
