package repository

import (
	"context"

	"app/internal/domain/model"
)

// 見つからないときは (nil, nil) を返す約束
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
