package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeChatReplyCreated = "CHAT_REPLY_CREATED"
	TypeUserRegistered   = "USER_REGISTERED"
	TypeNoteShared       = "NOTE_SHARED"
)

// NewChatReplyCreated is emitted after a MODEL turn has been durably
// persisted for a note.
func NewChatReplyCreated(noteId, messageId, authorId uuid.UUID, noteTitle string) Event {
	return BaseEvent{
		Type: TypeChatReplyCreated,
		Data: map[string]interface{}{
			"note_id":    noteId.String(),
			"message_id": messageId.String(),
			"author_id":  authorId.String(),
			"note_title": noteTitle,
		},
		OccurredAt: time.Now(),
	}
}

func NewUserRegistered(userId uuid.UUID, email string) Event {
	return BaseEvent{
		Type: TypeUserRegistered,
		Data: map[string]interface{}{
			"user_id": userId.String(),
			"email":   email,
		},
		OccurredAt: time.Now(),
	}
}
