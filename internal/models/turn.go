package models

// Content block types. The upstream API and the narrative share this shape.
const (
	ContentTypeText = "text"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentBlock is one typed unit inside a turn. Only text blocks exist
// today; the tag keeps the wire format open for more.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Turn is a single conversation entry in the narrative.
type Turn struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextTurn builds a single-block text turn.
func TextTurn(role, text string) Turn {
	return Turn{
		Role:    role,
		Content: []ContentBlock{{Type: ContentTypeText, Text: text}},
	}
}

// PlainText renders the turn's content for export. Matching is exhaustive
// over the known block types; unknown tags render as nothing rather than
// guessing at their payload.
func (t Turn) PlainText() string {
	var out string
	for _, block := range t.Content {
		switch block.Type {
		case ContentTypeText:
			if out != "" {
				out += "\n"
			}
			out += block.Text
		default:
			// unrecognized block type: skip
		}
	}
	return out
}
