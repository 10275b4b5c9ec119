package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/config"
	"grocery/internal/models"
	"grocery/internal/pricing"
	"grocery/internal/reports"
	"grocery/internal/store"
)

type OrderService struct {
	products store.ProductStore
	carts    store.CartStore
	orders   store.OrderStore
	tx       store.TxManager
	catalog  *CatalogService
	logger   *slog.Logger
	now      Clock

	shippingPrice float64
	pageSize      int64
}

func NewOrderService(stores store.Stores, catalog *CatalogService, cfg config.Orders, logger *slog.Logger) *OrderService {
	pageSize := cfg.AdminPageSize
	if pageSize < 1 {
		pageSize = 50
	}
	return &OrderService{
		products:      stores.Products,
		carts:         stores.Carts,
		orders:        stores.Orders,
		tx:            stores.Tx,
		catalog:       catalog,
		logger:        logger.With(slog.String("component", "orders")),
		now:           utcNow,
		shippingPrice: cfg.ShippingPrice,
		pageSize:      pageSize,
	}
}

type PlaceOrderInput struct {
	ShippingAddress models.ShippingAddress
	PaymentMethod   models.PaymentMethod
	IdempotencyKey  string
}

// PlaceOrder turns the caller's cart into an order. The second result is false
// when an earlier order with the same idempotency key is returned instead.
func (s *OrderService) PlaceOrder(ctx context.Context, caller models.Identity, in PlaceOrderInput) (*models.Order, bool, error) {
	if !in.PaymentMethod.Valid() {
		return nil, false, apperr.InvalidState("invalid payment method")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.byKey(ctx, caller.ID, key)
		if err != nil || existing != nil {
			return existing, false, err
		}
	}

	var (
		order   *models.Order
		touched []primitive.ObjectID
	)
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, touched, err = s.checkout(ctx, caller.ID, in, key)
		return err
	})
	if err != nil {
		if key != "" && errors.Is(err, store.ErrDuplicateKey) {
			existing, lookupErr := s.byKey(ctx, caller.ID, key)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, classify(err, "order not found")
	}

	s.catalog.Invalidate(ctx, touched...)
	s.logger.Info("order placed",
		slog.String("order_id", order.ID.Hex()),
		slog.String("user_id", caller.ID.Hex()),
		slog.Int("items", len(order.Items)),
		slog.Float64("total", order.TotalPrice),
	)
	return order, true, nil
}

func (s *OrderService) byKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	order, err := s.orders.FindByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "order not found")
	}
	return order, nil
}

// checkout runs inside the transaction. It returns the ids whose stock changed.
func (s *OrderService) checkout(ctx context.Context, userID primitive.ObjectID, in PlaceOrderInput, key string) (*models.Order, []primitive.ObjectID, error) {
	cart, err := s.carts.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.InvalidState("cart is empty")
	}
	if err != nil {
		return nil, nil, err
	}
	if cart.Empty() {
		return nil, nil, apperr.InvalidState("cart is empty")
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	lines := make([]pricing.Line, 0, len(cart.Items))
	touched := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, line := range cart.Items {
		details := map[string]string{"productId": line.Product.Hex()}
		if line.Quantity < 1 || line.Quantity > models.MaxLineQuantity {
			return nil, nil, apperr.InvalidState("invalid cart quantity").WithDetails(details)
		}

		p, err := s.products.Get(ctx, line.Product)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("product not found").WithDetails(details)
		}
		if err != nil {
			return nil, nil, err
		}
		if !p.Available() {
			return nil, nil, apperr.InvalidState("product unavailable").WithDetails(details)
		}

		if err := s.products.DecrementStock(ctx, p.ID, line.Quantity); err != nil {
			if errors.Is(err, store.ErrInsufficientStock) {
				return nil, nil, apperr.InsufficientStock(apperr.StockShortage{
					ProductID: p.ID.Hex(),
					Available: p.Stock,
					Requested: line.Quantity,
				})
			}
			return nil, nil, classify(err, "product not found")
		}
		touched = append(touched, p.ID)

		items = append(items, models.OrderItem{
			Product:  p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: line.Quantity,
			Category: p.Category,
			Seller:   p.Seller,
		})
		lines = append(lines, pricing.Line{Price: p.Price, Quantity: line.Quantity})
	}

	totals := pricing.OrderTotals(lines, s.shippingPrice)
	now := s.now()
	order := &models.Order{
		User:            userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   models.PaymentPending,
		ItemsPrice:      totals.ItemsPrice,
		ShippingPrice:   totals.ShippingPrice,
		TotalPrice:      totals.TotalPrice,
		Status:          models.StatusPending,
		IdempotencyKey:  key,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, nil, err
	}

	cart.Clear()
	if err := s.carts.Save(ctx, cart); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, nil, apperr.Conflict("cart changed during checkout, please retry")
		}
		return nil, nil, err
	}
	return order, touched, nil
}

// Get returns an order to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, caller models.Identity, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, classify(err, "order not found")
	}
	if order.User != caller.ID && !caller.IsAdmin() {
		return nil, apperr.Forbidden("not authorized to view this order")
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	orders, _, err := s.orders.List(ctx, store.OrderQuery{User: &caller.ID})
	if err != nil {
		return nil, classify(err, "order not found")
	}
	return orders, nil
}

type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int64          `json:"page"`
	Pages  int64          `json:"pages"`
}

// ListAll pages through every order, newest first. Limit zero uses the configured page size.
func (s *OrderService) ListAll(ctx context.Context, status models.OrderStatus, page, limit int64) (*OrderPage, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidState("invalid status")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.pageSize
	}
	if page > math.MaxInt64/limit {
		return nil, apperr.InvalidState("invalid page")
	}

	orders, total, err := s.orders.List(ctx, store.OrderQuery{Status: status, Page: page, Limit: limit})
	if err != nil {
		return nil, classify(err, "order not found")
	}
	return &OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page,
		Pages:  (total + limit - 1) / limit,
	}, nil
}

// Cancel lets a customer cancel their own order before it ships.
func (s *OrderService) Cancel(ctx context.Context, caller models.Identity, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, classify(err, "order not found")
	}
	if order.User != caller.ID {
		return nil, apperr.Forbidden("not authorized to cancel this order")
	}
	if order.Status == models.StatusCancelled {
		return nil, apperr.InvalidState("order is already cancelled")
	}
	if !order.Status.Cancellable() {
		return nil, apperr.Forbidden("cannot cancel shipped or delivered orders")
	}
	return s.transition(ctx, order, models.StatusCancelled)
}

// UpdateStatus moves an order forward. Admins may update any order; sellers
// only orders holding at least one of their products.
func (s *OrderService) UpdateStatus(ctx context.Context, caller models.Identity, id primitive.ObjectID, target models.OrderStatus) (*models.Order, error) {
	if !target.Valid() {
		return nil, apperr.InvalidState("invalid status").WithDetails(map[string]any{"allowed": models.OrderStatuses})
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, classify(err, "order not found")
	}

	switch {
	case caller.IsAdmin():
	case caller.IsSeller():
		owns, err := s.sellerOwns(ctx, order, caller.ID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, apperr.Forbidden("not authorized to update this order")
		}
	default:
		return nil, apperr.Forbidden("not authorized to update order status")
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, apperr.InvalidState(fmt.Sprintf("cannot change status from %s to %s", order.Status, target))
	}
	return s.transition(ctx, order, target)
}

func (s *OrderService) sellerOwns(ctx context.Context, order *models.Order, seller primitive.ObjectID) (bool, error) {
	ids := make([]primitive.ObjectID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.Product)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return false, classify(err, "product not found")
	}
	return len(reports.SellerItems(*order, seller, products)) > 0, nil
}

// transition applies order.Status → target as a compare-and-set, restocking
// in the same transaction when the target is Cancelled.
func (s *OrderService) transition(ctx context.Context, order *models.Order, target models.OrderStatus) (*models.Order, error) {
	now := s.now()
	change := models.StatusChange{From: order.Status, To: target, At: now}
	switch target {
	case models.StatusDelivered:
		change.DeliveredAt = &now
		change.PaymentStatus = models.PaymentPaid
	case models.StatusCancelled:
		change.CancelledAt = &now
	}

	var (
		updated   *models.Order
		restocked []primitive.ObjectID
	)
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.orders.UpdateStatus(ctx, order.ID, change)
		if errors.Is(err, store.ErrConflict) {
			return apperr.Conflict("order status changed concurrently, please retry")
		}
		if err != nil {
			return err
		}
		if target == models.StatusCancelled {
			restocked, err = s.restock(ctx, updated.Items)
		}
		return err
	})
	if err != nil {
		return nil, classify(err, "order not found")
	}

	s.catalog.Invalidate(ctx, restocked...)
	s.logger.Info("order status changed",
		slog.String("order_id", order.ID.Hex()),
		slog.String("from", string(change.From)),
		slog.String("to", string(target)),
	)
	return updated, nil
}

// restock returns quantities to products that still exist.
func (s *OrderService) restock(ctx context.Context, items []models.OrderItem) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		err := s.products.IncrementStock(ctx, item.Product, item.Quantity)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, item.Product)
	}
	return ids, nil
}
