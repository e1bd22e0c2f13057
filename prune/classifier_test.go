package prune

import (
	"testing"

	"github.com/youssefsiam38/contextpg/internal/testutil"
	"github.com/youssefsiam38/contextpg/types"
)

func TestPrunable(t *testing.T) {
	tests := []struct {
		name     string
		allow    []string
		deny     []string
		toolName string
		want     bool
	}{
		{name: "empty lists admit everything", toolName: "fetch", want: true},
		{name: "empty tool name never prunable", toolName: "", want: false},
		{name: "whitespace tool name never prunable", toolName: "  ", want: false},
		{name: "deny exact", deny: []string{"memory"}, toolName: "memory", want: false},
		{name: "deny is case-insensitive", deny: []string{"Memory"}, toolName: "MEMORY", want: false},
		{name: "deny wins over allow", allow: []string{"*"}, deny: []string{"fetch"}, toolName: "fetch", want: false},
		{name: "allow restricts", allow: []string{"fetch", "search"}, toolName: "browser", want: false},
		{name: "allow match", allow: []string{"fetch", "search"}, toolName: "search", want: true},
		{name: "bare wildcard", allow: []string{"*"}, toolName: "anything", want: true},
		{name: "prefix wildcard", allow: []string{"mcp__*"}, toolName: "mcp__github__search", want: true},
		{name: "prefix wildcard miss", allow: []string{"mcp__*"}, toolName: "fetch", want: false},
		{name: "infix wildcard", deny: []string{"*search*"}, toolName: "web_search_tool", want: false},
		{name: "suffix wildcard", allow: []string{"*_tool"}, toolName: "fetch_tool", want: true},
		{name: "multi wildcard", allow: []string{"mcp__*__read*"}, toolName: "mcp__fs__read_file", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{AllowTools: tt.allow, DenyTools: tt.deny}
			if got := c.Prunable(tt.toolName); got != tt.want {
				t.Errorf("Prunable(%q) = %v, want %v", tt.toolName, got, tt.want)
			}
		})
	}
}

func TestIsSnapshot_CallSite(t *testing.T) {
	transcript := []*types.Turn{
		testutil.UserTurn("open the page"),
		testutil.SnapshotCall("tu_snap"),
		testutil.SnapshotResult("tu_snap", "url: https://example.com\n- button [ref=e1]"),
		testutil.AssistantToolCall("tu_nav", "browser", map[string]any{"action": "navigate"}),
		testutil.ToolResultTurn("tu_nav", "browser", "navigated"),
		testutil.AssistantToolCall("tu_f", "fetch", map[string]any{"url": "https://example.com"}),
		testutil.ToolResultTurn("tu_f", "fetch", "url: https://example.com\ntitle: Example"),
	}

	c := &Classifier{}
	if !c.IsSnapshot(transcript, transcript[2]) {
		t.Error("snapshot capture result not classified as snapshot")
	}
	if c.IsSnapshot(transcript, transcript[4]) {
		t.Error("navigate result classified as snapshot")
	}
	// Snapshot-looking text from a non-browser tool is never a snapshot.
	if c.IsSnapshot(transcript, transcript[6]) {
		t.Error("fetch result classified as snapshot")
	}
	if c.IsSnapshot(transcript, transcript[0]) {
		t.Error("user turn classified as snapshot")
	}
}

func TestIsSnapshot_UnresolvableCallSite(t *testing.T) {
	// Result turn whose originating call is not in the transcript.
	orphan := testutil.SnapshotResult("tu_gone", "Page snapshot\nurl: https://example.com\n- link [ref=e2]")
	transcript := []*types.Turn{testutil.UserTurn("hi"), orphan}

	strict := &Classifier{}
	if strict.IsSnapshot(transcript, orphan) {
		t.Error("unresolvable call site classified as snapshot without heuristic opt-in")
	}

	loose := &Classifier{AllowHeuristic: true}
	if !loose.IsSnapshot(transcript, orphan) {
		t.Error("heuristic opt-in did not classify snapshot-shaped text")
	}

	plain := testutil.ToolResultTurn("tu_gone2", "browser", "clicked the button")
	if loose.IsSnapshot([]*types.Turn{plain}, plain) {
		t.Error("heuristic misfired on plain tool output")
	}
}

func TestLooksLikeSnapshot(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "ref marker", text: "- button \"Submit\" [ref=e15]", want: true},
		{name: "url header line", text: "url: https://example.com\nbody", want: true},
		{name: "title header line", text: "Title: Example Domain", want: true},
		{name: "snapshot tags", text: "<snapshot>\n...\n</snapshot>", want: true},
		{name: "url mid-line does not count", text: "see url: in the docs for details", want: false},
		{name: "plain output", text: "operation completed", want: false},
		{name: "empty", text: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeSnapshot(tt.text); got != tt.want {
				t.Errorf("LooksLikeSnapshot(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
