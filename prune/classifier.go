package prune

import (
	"strings"

	"github.com/youssefsiam38/contextpg/types"
)

const (
	// SnapshotToolName is the tool whose results can be snapshot artifacts.
	SnapshotToolName = "browser"

	// SnapshotActionField is the tool call argument inspected for the
	// snapshot sentinel.
	SnapshotActionField = "action"

	// SnapshotActionValue marks a browser call as a snapshot capture.
	SnapshotActionValue = "snapshot"
)

// Classifier decides which tool results are prunable and which are
// snapshot artifacts.
//
// Prunability is a name-pattern decision: the deny list overrides the
// allow list, and an empty allow list admits every name not denied.
//
// Snapshot classification resolves the originating tool call from the
// transcript and checks its arguments. When the call site cannot be
// located the result is never classified as a snapshot, so status and
// listing responses are never misread as page captures. The textual
// heuristic is an opt-in fallback for hosts that cannot preserve
// call-site correlation; the call-site lookup stays authoritative.
type Classifier struct {
	// AllowTools lists tool name patterns eligible for pruning.
	// Empty means all tools not denied.
	AllowTools []string

	// DenyTools lists tool name patterns excluded from pruning.
	// Deny wins over allow.
	DenyTools []string

	// AllowHeuristic enables the textual snapshot detector for tool
	// results whose originating call cannot be resolved.
	AllowHeuristic bool
}

// Prunable reports whether a tool result with the given name may be
// trimmed or cleared. Matching is case-insensitive and whitespace-trimmed.
func (c *Classifier) Prunable(toolName string) bool {
	name := strings.ToLower(strings.TrimSpace(toolName))
	if name == "" {
		return false
	}
	for _, p := range c.DenyTools {
		if matchPattern(p, name) {
			return false
		}
	}
	if len(c.AllowTools) == 0 {
		return true
	}
	for _, p := range c.AllowTools {
		if matchPattern(p, name) {
			return true
		}
	}
	return false
}

// IsSnapshot reports whether the tool result turn is a snapshot artifact.
func (c *Classifier) IsSnapshot(transcript []*types.Turn, turn *types.Turn) bool {
	if turn.Role != types.RoleToolResult {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(turn.ToolName), SnapshotToolName) {
		return false
	}

	if call := types.FindToolUse(transcript, turn.ToolUseID); call != nil {
		action, _ := call.ToolInput[SnapshotActionField].(string)
		return action == SnapshotActionValue
	}

	// Call site unresolvable. Conservative default is "not a snapshot";
	// the heuristic only applies when the host opted in.
	if c.AllowHeuristic {
		return LooksLikeSnapshot(turn.Text())
	}
	return false
}

// LooksLikeSnapshot applies the best-effort textual detector: element
// reference markers, a url:/title: header line, or snapshot structure
// tags. It is weaker than call-site resolution and can misfire on tool
// output that quotes a page capture.
func LooksLikeSnapshot(text string) bool {
	if strings.Contains(text, "[ref=") {
		return true
	}
	if strings.Contains(text, "<snapshot>") || strings.Contains(text, "</snapshot>") {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(trimmed, "url:") || strings.HasPrefix(trimmed, "title:") {
			return true
		}
	}
	return false
}

// matchPattern matches a tool name against a single pattern. Patterns
// support exact names, a bare "*" wildcard matching everything, and "*"
// wildcards inside the pattern. Both sides are lowercased and trimmed.
func matchPattern(pattern, name string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(name, parts[i])
		if idx < 0 {
			return false
		}
		name = name[idx+len(parts[i]):]
	}
	return strings.HasSuffix(name, parts[len(parts)-1])
}
