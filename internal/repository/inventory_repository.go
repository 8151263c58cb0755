package repository

import (
	"app/internal/domain/model"
	"context"
)

type InventoryRepository interface {
	// 在庫を現在値に設定し、調整履歴も残す（newStock=nilは「在庫管理なし」）
	SetStockWithAdjustment(ctx context.Context, adminUserID int64, productID int64, newStock *int64, reason string) error

	// 在庫が足りるときだけ減算（NULL在庫の商品は対象外）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・注文削除）。NULL在庫はNULLのまま。
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
