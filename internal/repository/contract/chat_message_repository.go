package contract

import (
	"context"

	"notechat-be/internal/entity"
	"notechat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
