package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a single turn of a note's AI conversation. Turns are
// append-only: once created they are never updated, and the ordered
// sequence per note is the canonical history.
type ChatMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	NoteId    uuid.UUID `gorm:"type:uuid;index"`
	Role      string
	Chat      string
	CreatedAt time.Time
}
