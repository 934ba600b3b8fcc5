package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateNoteRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

type CreateNoteResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowNoteResponse struct {
	Id             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	Content        string      `json:"content"`
	OwnerId        uuid.UUID   `json:"owner_id"`
	Collaborators  []uuid.UUID `json:"collaborators"`
	LastActivityAt time.Time   `json:"last_activity_at"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      *time.Time  `json:"updated_at"`
}

type UpdateNoteRequest struct {
	Id      uuid.UUID
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

type UpdateNoteResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShareNoteRequest struct {
	Id    uuid.UUID
	Email string `json:"email" validate:"required,email"`
}

type RecentNoteResponse struct {
	Id             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// PublishNoteTouchedMessage travels over the in-process activity topic.
type PublishNoteTouchedMessage struct {
	NoteId uuid.UUID `json:"note_id"`
}
