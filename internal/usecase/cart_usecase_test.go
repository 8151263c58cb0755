package usecase

import (
	"context"
	"errors"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCartUsecaseForTest() (*CartUsecase, *CartRepoMock, *CartItemRepoMock, *ProductRepoMock, *UserRepoMock) {
	cartRepo := &CartRepoMock{}
	itemRepo := &CartItemRepoMock{}
	productRepo := &ProductRepoMock{}
	userRepo := &UserRepoMock{}
	uc := NewCartUsecase(cartRepo, itemRepo, productRepo, userRepo)
	return uc, cartRepo, itemRepo, productRepo, userRepo
}

func TestGetCart_CreatesEmptyCartForNewUser(t *testing.T) {
	uc, cartRepo, itemRepo, _, userRepo := newCartUsecaseForTest()
	ctx := context.Background()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	out, err := uc.GetCart(ctx, 1)

	assert.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, "0.00", out.Total)
}

func TestGetCart_UserNotFound(t *testing.T) {
	uc, _, _, _, userRepo := newCartUsecaseForTest()

	userRepo.On("FindByID", mock.Anything, int64(999)).Return(nil, nil)

	_, err := uc.GetCart(context.Background(), 999)

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, ae.Code)
}

// 商品読みの失敗は行を黙って落とさずINTERNALで返す
func TestGetCart_ProductReadFailureSurfaces(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo, userRepo := newCartUsecaseForTest()
	ctx := context.Background()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(model.Product{}, errors.New("db down"))

	_, err := uc.GetCart(ctx, 1)

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInternal, ae.Code)
}

// 消えた商品の行だけ表示から外れる（他の行と合計は生きる）
func TestGetCart_MissingProductLineIsSkipped(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo, userRepo := newCartUsecaseForTest()
	ctx := context.Background()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ID: 2, CartID: 10, ProductID: 8, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: "Widget", IsActive: true,
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(8)).Return(model.Product{}, repo.ErrNotFound)

	out, err := uc.GetCart(ctx, 1)

	assert.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Widget", out.Items[0].Name)
	assert.Equal(t, "20.00", out.Total)
}

func TestAddToCart_RejectsWhenAccumulatedQtyExceedsStock(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo, userRepo := newCartUsecaseForTest()
	ctx := context.Background()

	price := decimal.RequireFromString("10.00")
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: "Widget", Price: price, StockQuantity: ptrInt64(5), IsActive: true,
	}, nil)
	// 既に4個入っている
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 4, UnitPrice: price},
	}, nil)

	// 4 + 2 > 5 なのでBAD_REQUEST
	_, err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 7, Quantity: 2})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, ae.Code)
	assert.Contains(t, ae.Message, "Widget")
	itemRepo.AssertNotCalled(t, "UpsertByCartAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToCart_NullStockNeverBlocks(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo, userRepo := newCartUsecaseForTest()
	ctx := context.Background()

	price := decimal.RequireFromString("3.50")
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	// StockQuantity=nil は在庫管理なし
	productRepo.On("FindByID", mock.Anything, int64(8)).Return(model.Product{
		ID: 8, Name: "Download", Price: price, StockQuantity: nil, IsActive: true,
	}, nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 2, CartID: 10, ProductID: 8, Quantity: 1000, UnitPrice: price},
	}, nil).Once()
	itemRepo.On("UpsertByCartAndProduct", mock.Anything, int64(10), int64(8), int64(1000), price).Return(nil)
	cartRepo.On("Touch", mock.Anything, int64(10)).Return(nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 2, CartID: 10, ProductID: 8, Quantity: 2000, UnitPrice: price},
	}, nil)

	out, err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 8, Quantity: 1000})

	assert.NoError(t, err)
	assert.Equal(t, "7000.00", out.Total)
}

func TestAddToCart_InactiveProductLooksMissing(t *testing.T) {
	uc, cartRepo, _, productRepo, userRepo := newCartUsecaseForTest()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Product{
		ID: 9, Name: "Hidden", IsActive: false,
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{ProductID: 9, Quantity: 1})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, ae.Code)
}

func TestAddToCart_ProductNotFound(t *testing.T) {
	uc, cartRepo, _, productRepo, userRepo := newCartUsecaseForTest()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(404)).Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{ProductID: 404, Quantity: 1})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, ae.Code)
}

func TestClearCart_IdempotentOnEmptyCart(t *testing.T) {
	uc, cartRepo, itemRepo, _, userRepo := newCartUsecaseForTest()
	ctx := context.Background()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	cartRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	cartRepo.On("Clear", mock.Anything, int64(10)).Return(nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	// 2回連続で呼んでも両方成功する
	out1, err1 := uc.ClearCart(ctx, 1)
	out2, err2 := uc.ClearCart(ctx, 1)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Empty(t, out1.Items)
	assert.Empty(t, out2.Items)
	assert.Equal(t, "0.00", out2.Total)
}

func TestUpdateCartItem_RejectsForeignItem(t *testing.T) {
	uc, _, itemRepo, _, _ := newCartUsecaseForTest()

	itemRepo.On("IsOwnedByUser", mock.Anything, int64(55), int64(1)).Return(false, nil)

	_, err := uc.UpdateCartItem(context.Background(), 1, 55, UpdateCartItemInput{Quantity: 2})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, ae.Code)
}

func TestLineTotal_RoundsPerLine(t *testing.T) {
	// 19.99 × 3 = 59.97
	a := LineTotal(decimal.RequireFromString("19.99"), 3)
	assert.Equal(t, "59.97", a.StringFixed(2))

	// 5.005 × 2 = 10.01（行単位で2桁へ丸め）
	b := LineTotal(decimal.RequireFromString("5.005"), 2)
	assert.Equal(t, "10.01", b.StringFixed(2))

	// 合算は丸め後
	assert.Equal(t, "69.98", a.Add(b).StringFixed(2))
}

func TestBuildCartResponse_TotalSumsRoundedLines(t *testing.T) {
	uc, _, itemRepo, productRepo, _ := newCartUsecaseForTest()

	p1 := decimal.RequireFromString("19.99")
	p2 := decimal.RequireFromString("5.005")

	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 1, Quantity: 3, UnitPrice: p1},
		{ID: 2, CartID: 10, ProductID: 2, Quantity: 2, UnitPrice: p2},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "A", Price: p1, IsActive: true}, nil)
	productRepo.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, Name: "B", Price: p2, IsActive: true}, nil)

	out, err := uc.buildCartResponse(context.Background(), 10)

	assert.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, "69.98", out.Total)
}
