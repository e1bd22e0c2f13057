package prune

import (
	"fmt"

	"github.com/youssefsiam38/contextpg/estimate"
	"github.com/youssefsiam38/contextpg/types"
)

// ClearedText is the fixed placeholder written over a hard-cleared tool
// result. It must stay constant so prompt caches remain stable across
// turns; never interpolate counts or timestamps into it.
const ClearedText = "[old tool result content cleared]"

// Budget holds the pruning thresholds, all expressed against the model's
// context window converted to the character domain.
type Budget struct {
	// SoftTrimRatio is the usage ratio at which soft trimming starts.
	SoftTrimRatio float64

	// HardClearRatio is the usage ratio at which whole tool results are
	// cleared. Must be at least SoftTrimRatio.
	HardClearRatio float64

	// HardClearEnabled turns the hard-clear pass on. When false the
	// pruner stops after soft trimming.
	HardClearEnabled bool

	// SoftTrimMaxChars is the joined text length above which a tool
	// result is soft-trimmed.
	SoftTrimMaxChars int

	// SoftTrimHeadChars and SoftTrimTailChars are the excerpt sizes kept
	// at either end of a soft-trimmed result.
	SoftTrimHeadChars int
	SoftTrimTailChars int

	// MinPrunableChars is the minimum cumulative size of eligible tool
	// results required before hard clearing activates. Below it there is
	// not enough to gain from destroying cache prefixes.
	MinPrunableChars int

	// ProtectedTurns is the number of trailing assistant turns that are
	// never pruned, along with everything after them.
	ProtectedTurns int

	// CharsPerToken converts the token window into characters.
	CharsPerToken int
}

// Pruner applies the two-tier pruning pass: soft-trim oversized tool
// results first, then hard-clear the oldest eligible ones until usage
// drops under the hard threshold.
type Pruner struct {
	budget     Budget
	classifier *Classifier
}

// NewPruner creates a Pruner. A nil classifier admits every tool name.
func NewPruner(budget Budget, classifier *Classifier) *Pruner {
	if classifier == nil {
		classifier = &Classifier{}
	}
	return &Pruner{budget: budget, classifier: classifier}
}

// Prune returns the transcript with stale tool results trimmed or cleared.
// The input slice is returned unchanged (same identity) when nothing needs
// to happen: unknown window, protected transcript, or usage under the soft
// threshold. Unmodified turns are always shared with the input.
func (p *Pruner) Prune(transcript []*types.Turn, windowTokens int) []*types.Turn {
	if windowTokens <= 0 || len(transcript) == 0 {
		return transcript
	}

	tail := p.protectedTailIndex(transcript)
	if tail < 0 {
		// Fewer protected assistant turns than required: everything is
		// recent enough to keep.
		return transcript
	}
	head := firstUserIndex(transcript)
	if head < 0 || head >= tail {
		return transcript
	}

	windowChars := estimate.TokensToChars(windowTokens, p.budget.CharsPerToken)
	if windowChars <= 0 {
		return transcript
	}
	total := estimate.TranscriptSize(transcript)
	if ratio(total, windowChars) < p.budget.SoftTrimRatio {
		return transcript
	}

	eligible := p.eligibleIndexes(transcript, head, tail)
	out := transcript

	// Soft trim pass: excerpt oversized results in transcript order.
	for _, idx := range eligible {
		turn := out[idx]
		text := turn.Text()
		if p.budget.SoftTrimMaxChars <= 0 || len(text) <= p.budget.SoftTrimMaxChars {
			continue
		}
		trimmed := p.softTrim(text)
		out = types.ReplaceTurn(transcript, out, idx, turn.WithText(trimmed))
		total += len(trimmed) - estimate.TurnSize(turn)
	}

	if !p.budget.HardClearEnabled || ratio(total, windowChars) < p.budget.HardClearRatio {
		return out
	}

	// Gate: hard clearing invalidates cached prefixes, so only proceed
	// when there is enough prunable bulk to make that worthwhile.
	prunable := 0
	for _, idx := range eligible {
		prunable += estimate.TurnSize(out[idx])
	}
	if prunable < p.budget.MinPrunableChars {
		return out
	}

	// Hard clear pass: oldest first, stop as soon as usage drops under
	// the hard threshold.
	for _, idx := range eligible {
		turn := out[idx]
		size := estimate.TurnSize(turn)
		out = types.ReplaceTurn(transcript, out, idx, turn.WithText(ClearedText))
		total += len(ClearedText) - size
		if ratio(total, windowChars) < p.budget.HardClearRatio {
			break
		}
	}

	return out
}

// softTrim keeps a head and tail excerpt of the text plus a note about
// what was dropped.
func (p *Pruner) softTrim(text string) string {
	headN := p.budget.SoftTrimHeadChars
	tailN := p.budget.SoftTrimTailChars
	if headN+tailN >= len(text) {
		return text
	}
	kept := headN + tailN
	return fmt.Sprintf("%s\n...\n%s\n\n[tool result trimmed: kept %d of %d characters]",
		text[:headN], text[len(text)-tailN:], kept, len(text))
}

// protectedTailIndex returns the index of the ProtectedTurns-th assistant
// turn counted from the end; turns at or after it are never pruned.
// Returns -1 when the transcript has fewer assistant turns than that.
func (p *Pruner) protectedTailIndex(transcript []*types.Turn) int {
	k := p.budget.ProtectedTurns
	if k <= 0 {
		return len(transcript)
	}
	seen := 0
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == types.RoleAssistant {
			seen++
			if seen == k {
				return i
			}
		}
	}
	return -1
}

// eligibleIndexes collects prunable tool result turns in [head, tail).
func (p *Pruner) eligibleIndexes(transcript []*types.Turn, head, tail int) []int {
	var idxs []int
	for i := head; i < tail; i++ {
		t := transcript[i]
		if t.Role != types.RoleToolResult || t.HasMedia() {
			continue
		}
		if !p.classifier.Prunable(t.ToolName) {
			continue
		}
		idxs = append(idxs, i)
	}
	return idxs
}

func firstUserIndex(transcript []*types.Turn) int {
	for i, t := range transcript {
		if t.Role == types.RoleUser {
			return i
		}
	}
	return -1
}

func ratio(chars, windowChars int) float64 {
	return float64(chars) / float64(windowChars)
}
