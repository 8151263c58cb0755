package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockQuantityはNULL許容。NULLは「在庫管理しない商品」で、購入を妨げない。
type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID    *int64          `gorm:"index" json:"category_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	ImageURL      string          `gorm:"type:varchar(1024)" json:"image_url"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity *int64          `gorm:"column:stock_quantity" json:"stock_quantity"`
	IsActive      bool            `gorm:"not null;default:false" json:"is_active"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
