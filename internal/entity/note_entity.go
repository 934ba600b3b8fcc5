package entity

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title          string
	Content        string
	UserId         uuid.UUID `gorm:"type:uuid;index"`
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// NoteCollaborator links a note to a user who may read and chat on it
// without owning it.
type NoteCollaborator struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	NoteId    uuid.UUID `gorm:"type:uuid;index"`
	UserId    uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
}
