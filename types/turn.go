package types

import "strings"

// Role represents the transcript role of a turn
type Role string

const (
	// RoleUser represents a user turn
	RoleUser Role = "user"

	// RoleAssistant represents an assistant turn
	RoleAssistant Role = "assistant"

	// RoleToolResult represents a tool result turn
	RoleToolResult Role = "tool_result"
)

// BlockType represents the type of content block
type BlockType string

const (
	// BlockTypeText represents text content
	BlockTypeText BlockType = "text"

	// BlockTypeToolUse represents a tool call issued by the assistant
	BlockTypeToolUse BlockType = "tool_use"

	// BlockTypeMedia represents an opaque media block (image, document, audio).
	// The engine never inspects media payloads; it only accounts for them.
	BlockTypeMedia BlockType = "media"
)

// Block represents a piece of content in a turn
type Block struct {
	Type BlockType `json:"type"`

	// Text content
	Text string `json:"text,omitempty"`

	// Tool use content
	ToolUseID string         `json:"id,omitempty"`
	ToolName  string         `json:"name,omitempty"`
	ToolInput map[string]any `json:"input,omitempty"`

	// Media content. The engine never inspects these; they are carried
	// so hosts can round-trip transcripts losslessly.
	MediaType string `json:"media_type,omitempty"`
	MediaData string `json:"media_data,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
}

// Turn represents a single entry in a conversation transcript.
//
// Turns are immutable once produced by the model or tool layer. The engine
// never mutates a turn in place; when it needs to shrink one it builds a
// replacement with WithText and splices it into a copied transcript slice.
type Turn struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"blocks"`

	// Correlation for tool result turns: the id and name of the
	// originating tool call.
	ToolUseID string `json:"tool_use_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`

	// IsError marks a failed tool result.
	IsError bool `json:"is_error,omitempty"`
}

// Text returns the turn's text segments joined with a newline separator.
func (t *Turn) Text() string {
	var parts []string
	for _, b := range t.Blocks {
		if b.Type == BlockTypeText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasMedia reports whether the turn contains any opaque media blocks.
func (t *Turn) HasMedia() bool {
	for _, b := range t.Blocks {
		if b.Type == BlockTypeMedia {
			return true
		}
	}
	return false
}

// WithText returns a copy of the turn whose content is replaced by a single
// text block. Role and tool correlation are preserved so the replacement
// still pairs with its originating tool call.
func (t *Turn) WithText(text string) *Turn {
	return &Turn{
		Role:      t.Role,
		Blocks:    []Block{{Type: BlockTypeText, Text: text}},
		ToolUseID: t.ToolUseID,
		ToolName:  t.ToolName,
	}
}

// Count returns the number of turns with the given role.
func Count(transcript []*Turn, role Role) int {
	n := 0
	for _, t := range transcript {
		if t.Role == role {
			n++
		}
	}
	return n
}

// FindToolUse scans assistant turns for the tool call with the given id.
// Returns nil if no assistant turn carries a matching tool_use block.
func FindToolUse(transcript []*Turn, toolUseID string) *Block {
	if toolUseID == "" {
		return nil
	}
	for _, t := range transcript {
		if t.Role != RoleAssistant {
			continue
		}
		for i := range t.Blocks {
			b := &t.Blocks[i]
			if b.Type == BlockTypeToolUse && b.ToolUseID == toolUseID {
				return b
			}
		}
	}
	return nil
}

// ReplaceTurn returns a transcript with the turn at idx replaced. The input
// slice is never modified: if out already diverges from transcript it is
// updated in place, otherwise a fresh copy sharing all other turns is made.
//
// Callers thread the same slice through repeated replacements so that an
// unchanged transcript keeps its original identity (the no-op contract).
func ReplaceTurn(transcript, out []*Turn, idx int, replacement *Turn) []*Turn {
	if idx < 0 || idx >= len(transcript) {
		return out
	}
	if sameSlice(transcript, out) {
		out = make([]*Turn, len(transcript))
		copy(out, transcript)
	}
	out[idx] = replacement
	return out
}

// sameSlice reports whether a and b are the identical slice header.
func sameSlice(a, b []*Turn) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
