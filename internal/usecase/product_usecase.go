package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewBadRequest("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewBadRequest("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewBadRequest("q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewBadRequest("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewBadRequest("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewBadRequest("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewBadRequest("invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewInternal("db error")
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewBadRequest("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewNotFound("product not found")
	}
	if err != nil {
		return model.Product{}, NewInternal("db error")
	}

	//非公開商品は存在しない扱い
	if !p.IsActive {
		return model.Product{}, NewNotFound("product not found")
	}

	return p, nil
}

type AdminUpsertProductInput struct {
	CategoryID    *int64
	Name          string
	Description   string
	ImageURL      string
	Price         decimal.Decimal
	StockQuantity *int64
	IsActive      bool
}

func validateProductInput(in AdminUpsertProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewBadRequest("name is required")
	}
	if len(in.Name) > 255 {
		return NewBadRequest("name too long")
	}
	if in.Price.IsNegative() {
		return NewBadRequest("price must be >= 0")
	}
	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		return NewBadRequest("stock_quantity must be >= 0")
	}
	return nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminUpsertProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewUnauthorized("unauthorized")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		CategoryID:    in.CategoryID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		ImageURL:      in.ImageURL,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		IsActive:      in.IsActive,
	})
	if err != nil {
		return model.Product{}, NewInternal("db error")
	}

	afterJSON := `{"name":"` + created.Name + `","price":"` + created.Price.StringFixed(2) + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionCreateProduct,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   created.ID,
		BeforeJSON:   `{}`,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return model.Product{}, NewInternal("db error")
	}

	return created, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminUpsertProductInput) error {
	if adminUserID <= 0 {
		return NewUnauthorized("unauthorized")
	}
	if productID <= 0 {
		return NewBadRequest("invalid id")
	}
	if err := validateProductInput(in); err != nil {
		return err
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("product not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	err = u.productRepo.Update(ctx, model.Product{
		ID:          productID,
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		IsActive:    in.IsActive,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("product not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	beforeJSON := `{"name":"` + before.Name + `","price":"` + before.Price.StringFixed(2) + `"}`
	afterJSON := `{"name":"` + strings.TrimSpace(in.Name) + `","price":"` + in.Price.StringFixed(2) + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateProduct,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewInternal("db error")
	}

	return nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewUnauthorized("unauthorized")
	}
	if productID <= 0 {
		return NewBadRequest("invalid id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("product not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionDeleteProduct,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   `{}`,
		AfterJSON:    `{}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewInternal("db error")
	}

	return nil
}

// 在庫の現在値を設定する。stock=nilで在庫管理を外す（無制限）。
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, productID int64, stock *int64, reason string) error {
	if adminUserID <= 0 {
		return NewUnauthorized("unauthorized")
	}
	if productID <= 0 {
		return NewBadRequest("invalid product_id")
	}
	if stock != nil && *stock < 0 {
		return NewBadRequest("stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return NewBadRequest("reason is required")
	}

	err := u.inventoryRepo.SetStockWithAdjustment(ctx, adminUserID, productID, stock, strings.TrimSpace(reason))
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("product not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	afterJSON := `{"stock":null}`
	if stock != nil {
		afterJSON = `{"stock":` + strconv.FormatInt(*stock, 10) + `}`
	}
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   `{}`,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewInternal("db error")
	}

	return nil
}
