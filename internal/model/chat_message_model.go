package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are append-only; there is no UpdatedAt or soft delete.
// Rows are removed only by cascade when their note is deleted.
type ChatMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NoteId    uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_note_created,priority:1"`
	Role      string    `gorm:"type:varchar(50);not null"`
	Chat      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_chat_messages_note_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
