package core

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// FormatOutput turns a pipeline's output into one display string. A string
// is returned unchanged; a list of content blocks contributes the text of
// every block whose type is "text" (and any bare strings), in order.
func FormatOutput(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		return out
	case []string:
		return strings.Join(out, "")
	case []map[string]any:
		items := make([]any, len(out))
		for i := range out {
			items[i] = out[i]
		}
		return FormatOutput(items)
	case []any:
		var sb strings.Builder
		for _, item := range out {
			switch block := item.(type) {
			case map[string]any:
				if block["type"] != "text" {
					continue
				}
				if text, ok := block["text"].(string); ok {
					sb.WriteString(text)
				}
			case string:
				sb.WriteString(block)
			}
		}
		return sb.String()
	default:
		return fmt.Sprint(out)
	}
}

// textFromParts reduces Gemini content to blocks and formats them like any
// other pipeline output, so only text parts reach the user.
func textFromParts(parts []genai.Part) string {
	blocks := make([]any, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case genai.Text:
			blocks = append(blocks, map[string]any{"type": "text", "text": string(p)})
		case genai.FunctionCall:
			blocks = append(blocks, map[string]any{"type": "function_call", "name": p.Name})
		default:
			blocks = append(blocks, map[string]any{"type": fmt.Sprintf("%T", p)})
		}
	}
	return FormatOutput(blocks)
}
