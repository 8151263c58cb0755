package usecase

import (
	"context"
	"errors"
	"fmt"

	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// Cart と CartItem はRepositoryを分離して受け取ります。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	userRepo     repo.UserRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	userRepo repo.UserRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		userRepo:     userRepo,
	}
}

// price は unit_price（追加時点のスナップショット）を返します。
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

// Totalは保存せず読むたびに計算する。
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total string             `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得（無ければ作って空を返す）。
// ユーザー自体が存在しないときだけNOT_FOUND。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewUnauthorized("unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if user == nil {
		return CartResponse{}, NewNotFound("user not found")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// AddToCart はカートに追加（同一商品は数量加算）。
// 在庫チェックは「既存数量＋追加数量」に対して行う。NULL在庫は素通し。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewUnauthorized("unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewBadRequest("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewBadRequest("invalid quantity")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if user == nil {
		return CartResponse{}, NewNotFound("user not found")
	}

	// カート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	// 商品チェック（公開のみ。非公開は存在しない扱い）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewNotFound(fmt.Sprintf("product %d not found", in.ProductID))
	}
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewNotFound(fmt.Sprintf("product %d not found", in.ProductID))
	}

	// 既存数量を調べる（加算後の数量で在庫判定する）
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	var existingQty int64 = 0
	for _, it := range items {
		if it.ProductID == in.ProductID {
			existingQty = it.Quantity
			break
		}
	}

	newQty := existingQty + in.Quantity
	if p.StockQuantity != nil && newQty > *p.StockQuantity {
		return CartResponse{}, NewBadRequest(fmt.Sprintf("insufficient stock for %s", p.Name))
	}

	// Upsert（同一商品は加算）。unit_priceは「追加時点の価格」を渡す。
	if err := u.cartItemRepo.UpsertByCartAndProduct(ctx, cart.ID, in.ProductID, in.Quantity, p.Price); err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	if err := u.cartRepo.Touch(ctx, cart.ID); err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更（所有チェック＋在庫チェック）。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewUnauthorized("unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewBadRequest("invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewBadRequest("invalid quantity")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if !owned {
		return CartResponse{}, NewNotFound("cart item not found")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewNotFound("cart item not found")
	}
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	//商品の在庫チェック
	p, err := u.productRepo.FindByID(ctx, item.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewNotFound(fmt.Sprintf("product %d not found", item.ProductID))
	}
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if p.StockQuantity != nil && in.Quantity > *p.StockQuantity {
		return CartResponse{}, NewBadRequest(fmt.Sprintf("insufficient stock for %s", p.Name))
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewNotFound("cart item not found")
		}
		return CartResponse{}, NewInternal("db error")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewUnauthorized("unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewBadRequest("invalid id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if !owned {
		return CartResponse{}, NewNotFound("cart item not found")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewNotFound("cart item not found")
		}
		return CartResponse{}, NewInternal("db error")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// ClearCart はカートを空にする。すでに空でも成功（no-op）。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewUnauthorized("unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}
	if user == nil {
		return CartResponse{}, NewNotFound("user not found")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細をまとめてCartResponseを作る。
// 合計は行ごとに unit_price×qty を小数2桁へ丸めてから足す。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewInternal("db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		// 消えた・非公開になった商品の行は表示しない。DBエラーはそのまま上へ。
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return CartResponse{}, NewInternal("db error")
		}
		if !p.IsActive {
			continue
		}

		line := LineTotal(it.UnitPrice, it.Quantity)

		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
		})

		total = total.Add(line)
	}

	return CartResponse{Items: respItems, Total: total.StringFixed(2)}, nil
}

// LineTotal は1明細の金額。2桁丸めを行単位で行い、浮動小数のドリフトを避ける。
func LineTotal(unitPrice decimal.Decimal, qty int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(qty)).Round(2)
}
