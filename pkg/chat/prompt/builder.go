package prompt

import (
	"strings"

	"notechat-be/internal/constant"
	"notechat-be/internal/entity"
)

// Builder assembles the model-facing prompt from a note and a bounded
// window of prior turns. It is a pure function of its inputs.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// IsFirstTurn reports whether the window holds no MODEL turn yet. While
// that is the case the note body is included in the prompt; once the model
// has replied the note is assumed known and is not re-sent, even if the
// turn that carried it later ages out of the window.
func (b *Builder) IsFirstTurn(window []*entity.ChatMessage) bool {
	for _, turn := range window {
		if turn.Role == constant.ChatMessageRoleModel {
			return false
		}
	}
	return true
}

// Build renders the rules header, the one-time note block, the window
// oldest-first as "ROLE: text" lines, and the closing instruction.
func (b *Builder) Build(note *entity.Note, window []*entity.ChatMessage) string {
	var sb strings.Builder

	sb.WriteString(constant.ChatPromptRulesV1)

	if b.IsFirstTurn(window) {
		sb.WriteString("--- NOTE START ---\n")
		sb.WriteString("Title: ")
		sb.WriteString(note.Title)
		sb.WriteString("\n")
		sb.WriteString("Content: ")
		sb.WriteString(note.Content)
		sb.WriteString("\n")
		sb.WriteString("--- NOTE END ---\n")
	}

	for _, turn := range window {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Chat)
		sb.WriteString("\n")
	}

	sb.WriteString(constant.ChatPromptClosingV1)

	return sb.String()
}
