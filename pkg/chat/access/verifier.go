package access

import (
	"context"

	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Verifier resolves a note and checks that the caller may read or chat on
// it. It must run before any read or write of conversation state.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Authorize returns the note when userId is its owner or one of its
// collaborators. It is side-effect free.
func (v *Verifier) Authorize(ctx context.Context, uow unitofwork.UnitOfWork, noteId, userId uuid.UUID) (*entity.Note, error) {
	note, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: noteId})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperror.NewNotFound("note not found with id %s", noteId)
	}

	if note.UserId == userId {
		return note, nil
	}

	collaboratorIds, err := uow.NoteRepository().FindCollaboratorIds(ctx, noteId)
	if err != nil {
		return nil, err
	}
	for _, id := range collaboratorIds {
		if id == userId {
			return note, nil
		}
	}

	return nil, apperror.NewForbidden("user does not have access to this note")
}
