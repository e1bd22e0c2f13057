// Package estimate provides the cheap size proxy used for all budget
// decisions. Costs are measured in characters, not model tokens: the
// engine only needs a monotone approximation that is free to compute.
package estimate

import "github.com/youssefsiam38/contextpg/types"

const (
	// MediaBlockChars is the flat surrogate cost of an opaque media block.
	// The true rendered cost of an image or document is not cheaply
	// knowable, so every media block is charged this constant.
	MediaBlockChars = 8000

	// DefaultCharsPerToken converts a token budget into the character
	// domain. Claude tokenizes at roughly 4 characters per token for
	// English text.
	DefaultCharsPerToken = 4
)

// TurnSize returns the approximate cost of a single turn in characters:
// the lengths of its text segments (joined with one separator character
// between segments) plus the media surrogate for each opaque block.
func TurnSize(t *types.Turn) int {
	size := 0
	texts := 0
	for _, b := range t.Blocks {
		switch b.Type {
		case types.BlockTypeText:
			size += len(b.Text)
			texts++
		case types.BlockTypeMedia:
			size += MediaBlockChars
		}
	}
	if texts > 1 {
		size += texts - 1
	}
	return size
}

// TranscriptSize returns the summed TurnSize of every turn.
func TranscriptSize(transcript []*types.Turn) int {
	total := 0
	for _, t := range transcript {
		total += TurnSize(t)
	}
	return total
}

// TokensToChars converts a token budget into the character domain.
// A non-positive charsPerToken falls back to DefaultCharsPerToken.
func TokensToChars(tokens, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return tokens * charsPerToken
}
