package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// updated_atだけ更新
	Touch(ctx context.Context, cartID int64) error
	Clear(ctx context.Context, cartID int64) error
}
