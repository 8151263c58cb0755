package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	Status      string            `json:"status"`
	TotalAmount string            `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderItemOutput `json:"items"`
}

// PlaceOrder はカートを注文に変換する。入力は認証済みユーザーIDだけ。
// 在庫チェック・在庫減算・注文作成・カートクリアは1トランザクション。
// 途中でエラーになったら何も残らない（注文なし、在庫そのまま、カートそのまま）。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewUnauthorized("unauthorized")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//カート取得。無い＝空と同じ扱い。
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewBadRequest("cart empty")
		}
		if err != nil {
			return NewInternal("db error")
		}

		//カート明細取得
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewInternal("db error")
		}
		if len(cartItems) == 0 {
			return NewBadRequest("cart empty")
		}

		//検証パス。書き込みを始める前に全明細を見る。
		//NULL在庫は「在庫管理なし」で素通し。
		products := make(map[int64]model.Product, len(cartItems))
		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFound(fmt.Sprintf("product %d not found", ci.ProductID))
			}
			if err != nil {
				return NewInternal("db error")
			}
			// 非公開はカート追加時と同じく「存在しない」扱い
			if !p.IsActive {
				return NewNotFound(fmt.Sprintf("product %d not found", ci.ProductID))
			}
			if p.StockQuantity != nil && *p.StockQuantity < ci.Quantity {
				return NewBadRequest(fmt.Sprintf("insufficient stock for %s", p.Name))
			}
			products[ci.ProductID] = p
		}

		//合計はカート明細のスナップショット価格から。行ごとに2桁へ丸めてから合算。
		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		now := time.Now()

		for _, ci := range cartItems {
			total = total.Add(LineTotal(ci.UnitPrice, ci.Quantity))

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: products[ci.ProductID].Name,
				UnitPrice:           ci.UnitPrice,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})
		}

		// 注文作成
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:      userID,
			Status:      model.OrderStatusPending,
			TotalAmount: total,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return NewInternal("db error")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewInternal("db error")
		}

		//在庫減算。検証パスと減算の間に並行トランザクションが入っても、
		//相対更新＋条件付きUPDATEが0件なら失敗させてロールバックする。
		for _, ci := range cartItems {
			if products[ci.ProductID].StockQuantity == nil {
				continue
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewInternal("db error")
			}
			if !ok {
				return NewBadRequest(fmt.Sprintf("insufficient stock for %s", products[ci.ProductID].Name))
			}
		}

		//カート明細をクリア（カート行自体は残す）
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewInternal("db error")
		}

		created := model.Order{
			ID:          orderID,
			UserID:      userID,
			Status:      model.OrderStatusPending,
			TotalAmount: total,
			CreatedAt:   now,
		}
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewUnauthorized("unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewInternal("db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewInternal("db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewUnauthorized("unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewBadRequest("invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFound("order not found")
		}
		if err != nil {
			return NewInternal("db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewNotFound("order not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewInternal("db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		Items:       outItems,
	}
}
