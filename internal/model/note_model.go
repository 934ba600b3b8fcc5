package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Note struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title          string         `gorm:"type:varchar(255);not null"`
	Content        string         `gorm:"type:text"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	LastActivityAt time.Time      `gorm:"index"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Note) TableName() string {
	return "notes"
}

type NoteCollaborator struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NoteId    uuid.UUID `gorm:"type:uuid;not null;index:idx_note_collaborators_note_user,priority:1"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index:idx_note_collaborators_note_user,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (NoteCollaborator) TableName() string {
	return "note_collaborators"
}
