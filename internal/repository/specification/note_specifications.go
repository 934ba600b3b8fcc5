package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByNoteID filters rows scoped to a single note (chat turns, collaborators).
type ByNoteID struct {
	NoteID uuid.UUID
}

func (s ByNoteID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("note_id = ?", s.NoteID)
}

// OwnedBy filters notes by their owning user.
type OwnedBy struct {
	UserID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
