package contract

import (
	"context"
	"time"

	"notechat-be/internal/entity"
	"notechat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, note *entity.Note) error
	Update(ctx context.Context, note *entity.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Note, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// TouchLastActivity bumps the note's last-activity timestamp without
	// rewriting the rest of the row.
	TouchLastActivity(ctx context.Context, id uuid.UUID, at time.Time) error

	AddCollaborator(ctx context.Context, collaborator *entity.NoteCollaborator) error
	FindCollaboratorIds(ctx context.Context, noteId uuid.UUID) ([]uuid.UUID, error)
}
