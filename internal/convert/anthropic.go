// Package convert translates between Anthropic SDK message parameters
// and the engine's transcript model.
package convert

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/contextpg/types"
)

// FromMessageParams converts SDK message params into engine turns.
//
// User messages carrying tool_result blocks are split: each tool result
// becomes its own tool-result turn, and any remaining text or media
// blocks form a trailing user turn. Tool names are resolved from the
// originating tool_use blocks after the split, since the wire format
// does not repeat the name on the result.
func FromMessageParams(params []anthropic.MessageParam) []*types.Turn {
	var out []*types.Turn

	for _, param := range params {
		if param.Role == anthropic.MessageParamRoleAssistant {
			out = append(out, &types.Turn{
				Role:   types.RoleAssistant,
				Blocks: fromContentBlocks(param.Content),
			})
			continue
		}

		var rest []types.Block
		for _, block := range param.Content {
			if tr := block.OfToolResult; tr != nil {
				out = append(out, &types.Turn{
					Role:      types.RoleToolResult,
					Blocks:    fromToolResultContent(tr.Content),
					ToolUseID: tr.ToolUseID,
					IsError:   tr.IsError.Or(false),
				})
				continue
			}
			if b, ok := fromContentBlock(block); ok {
				rest = append(rest, b)
			}
		}
		if len(rest) > 0 {
			out = append(out, &types.Turn{Role: types.RoleUser, Blocks: rest})
		}
	}

	// Second pass: fill in tool names from the resolved call sites.
	for _, t := range out {
		if t.Role != types.RoleToolResult || t.ToolName != "" {
			continue
		}
		if call := types.FindToolUse(out, t.ToolUseID); call != nil {
			t.ToolName = call.ToolName
		}
	}
	return out
}

// ToMessageParams converts engine turns back into SDK message params.
// Consecutive non-assistant turns are merged into a single user message
// so the result keeps the API's role alternation.
func ToMessageParams(transcript []*types.Turn) []anthropic.MessageParam {
	var params []anthropic.MessageParam
	var pending []anthropic.ContentBlockParamUnion

	flushPending := func() {
		if len(pending) == 0 {
			return
		}
		params = append(params, anthropic.MessageParam{
			Role:    anthropic.MessageParamRoleUser,
			Content: pending,
		})
		pending = nil
	}

	for _, t := range transcript {
		switch t.Role {
		case types.RoleAssistant:
			flushPending()
			params = append(params, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: toContentBlocks(t.Blocks),
			})
		case types.RoleToolResult:
			pending = append(pending, anthropic.NewToolResultBlock(t.ToolUseID, t.Text(), t.IsError))
		default:
			pending = append(pending, toContentBlocks(t.Blocks)...)
		}
	}
	flushPending()
	return params
}

func fromContentBlocks(blocks []anthropic.ContentBlockParamUnion) []types.Block {
	var out []types.Block
	for _, block := range blocks {
		if b, ok := fromContentBlock(block); ok {
			out = append(out, b)
		}
	}
	return out
}

func fromContentBlock(block anthropic.ContentBlockParamUnion) (types.Block, bool) {
	switch {
	case block.OfText != nil:
		return types.Block{Type: types.BlockTypeText, Text: block.OfText.Text}, true

	case block.OfToolUse != nil:
		return types.Block{
			Type:      types.BlockTypeToolUse,
			ToolUseID: block.OfToolUse.ID,
			ToolName:  block.OfToolUse.Name,
			ToolInput: inputMap(block.OfToolUse.Input),
		}, true

	case block.OfImage != nil:
		b := types.Block{Type: types.BlockTypeMedia}
		if src := block.OfImage.Source.OfBase64; src != nil {
			b.MediaType = string(src.MediaType)
			b.MediaData = src.Data
		} else if src := block.OfImage.Source.OfURL; src != nil {
			b.MediaURL = src.URL
		}
		return b, true

	case block.OfDocument != nil:
		b := types.Block{Type: types.BlockTypeMedia, MediaType: "application/pdf"}
		if src := block.OfDocument.Source.OfBase64; src != nil {
			b.MediaData = src.Data
		}
		return b, true
	}
	return types.Block{}, false
}

func fromToolResultContent(content []anthropic.ToolResultBlockParamContentUnion) []types.Block {
	var out []types.Block
	for _, item := range content {
		switch {
		case item.OfText != nil:
			out = append(out, types.Block{Type: types.BlockTypeText, Text: item.OfText.Text})
		case item.OfImage != nil:
			b := types.Block{Type: types.BlockTypeMedia}
			if src := item.OfImage.Source.OfBase64; src != nil {
				b.MediaType = string(src.MediaType)
				b.MediaData = src.Data
			}
			out = append(out, b)
		}
	}
	return out
}

func toContentBlocks(blocks []types.Block) []anthropic.ContentBlockParamUnion {
	var out []anthropic.ContentBlockParamUnion
	for _, b := range blocks {
		switch b.Type {
		case types.BlockTypeText:
			out = append(out, anthropic.NewTextBlock(b.Text))
		case types.BlockTypeToolUse:
			input := b.ToolInput
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, anthropic.NewToolUseBlock(b.ToolUseID, input, b.ToolName))
		case types.BlockTypeMedia:
			switch {
			case b.MediaType == "application/pdf":
				out = append(out, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
					Data: b.MediaData,
				}))
			case b.MediaURL != "":
				out = append(out, anthropic.NewImageBlock(anthropic.URLImageSourceParam{
					URL: b.MediaURL,
				}))
			default:
				out = append(out, anthropic.NewImageBlockBase64(b.MediaType, b.MediaData))
			}
		}
	}
	return out
}

// inputMap coerces a tool_use input into an argument map. Hosts hand the
// SDK either decoded maps or raw JSON depending on where the param came
// from.
func inputMap(input any) map[string]any {
	switch v := input.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err == nil {
			return m
		}
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err == nil {
			return m
		}
	}
	return nil
}
