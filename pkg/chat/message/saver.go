package message

import (
	"context"
	"time"

	"notechat-be/internal/constant"
	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Saver persists a single chat turn as an independent unit of work. Every
// call opens and commits its own transaction, so a turn's durability is
// never tied to whatever transaction (if any) the caller holds — the
// detached worker has none, and a request-scoped caller must not be able to
// roll a saved turn back through an unrelated later failure.
type Saver struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSaver(uowFactory unitofwork.RepositoryFactory) *Saver {
	return &Saver{
		uowFactory: uowFactory,
	}
}

// SaveTurn appends one turn to the note's conversation. The note is
// re-resolved inside the transaction: it may have been deleted since the
// caller last saw it, in which case NotFound is returned and nothing is
// written. A MODEL turn also bumps the note's last-activity timestamp.
func (s *Saver) SaveTurn(ctx context.Context, noteId uuid.UUID, role, text string) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	note, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: noteId})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperror.NewNotFound("note not found with id %s", noteId)
	}

	now := time.Now()
	turn := &entity.ChatMessage{
		Id:        uuid.New(),
		NoteId:    noteId,
		Role:      role,
		Chat:      text,
		CreatedAt: now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, turn); err != nil {
		return nil, err
	}

	if role == constant.ChatMessageRoleModel {
		if err := uow.NoteRepository().TouchLastActivity(ctx, noteId, now); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return turn, nil
}
