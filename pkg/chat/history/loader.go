package history

import (
	"context"

	"notechat-be/internal/entity"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Loader reads a note's conversation log. The log is append-only, so both
// accessors only ever see turns in creation order.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewLoader(uowFactory unitofwork.RepositoryFactory) *Loader {
	return &Loader{
		uowFactory: uowFactory,
	}
}

// FullHistory returns every turn of the note's conversation, oldest first.
func (l *Loader) FullHistory(ctx context.Context, noteId uuid.UUID) ([]*entity.ChatMessage, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	return uow.ChatMessageRepository().FindAll(ctx,
		specification.ByNoteID{NoteID: noteId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
}

// RecentWindow returns the n most recently created turns, re-ordered oldest
// first. The retrieval is newest-first for the LIMIT to bite; consumers must
// never see that reversed order, so the slice is flipped before returning.
func (l *Loader) RecentWindow(ctx context.Context, noteId uuid.UUID, n int) ([]*entity.ChatMessage, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	turns, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByNoteID{NoteID: noteId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{N: n},
	)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
