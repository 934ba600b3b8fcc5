package contract

import (
	"context"

	"notechat-be/internal/entity"
	"notechat-be/internal/repository/specification"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
