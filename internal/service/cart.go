package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/models"
	"grocery/internal/pricing"
	"grocery/internal/store"
)

// saveAttempts bounds the optimistic retry loop on cart writes.
const saveAttempts = 3

type CartService struct {
	carts   store.CartStore
	catalog *CatalogService
	logger  *slog.Logger
}

func NewCartService(carts store.CartStore, catalog *CatalogService, logger *slog.Logger) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "cart")),
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*models.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, classify(err, "cart not found")
	}
	return s.view(ctx, cart)
}

// AddItem merges quantity into the cart. A quantity below one counts as one.
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.CartView, error) {
	if quantity <= 0 {
		quantity = 1
	}
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return nil, err
	}
	if quantity > models.MaxLineQuantity {
		return nil, quantityError()
	}
	return s.mutate(ctx, userID, true, func(cart *models.Cart) (bool, error) {
		if err := cart.Add(productID, quantity); err != nil {
			return false, quantityError()
		}
		return true, nil
	})
}

// UpdateItem sets a line's quantity. Zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.CartView, error) {
	if quantity > models.MaxLineQuantity {
		return nil, quantityError()
	}
	return s.mutate(ctx, userID, false, func(cart *models.Cart) (bool, error) {
		if !cart.Set(productID, quantity) {
			return false, apperr.NotFound("item not found in cart")
		}
		return true, nil
	})
}

// RemoveItem drops a line. Removing a product that is not in the cart is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.CartView, error) {
	return s.mutate(ctx, userID, false, func(cart *models.Cart) (bool, error) {
		if !cart.Has(productID) {
			return false, nil
		}
		cart.Remove(productID)
		return true, nil
	})
}

func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) (*models.CartView, error) {
	return s.mutate(ctx, userID, false, func(cart *models.Cart) (bool, error) {
		if cart.Empty() {
			return false, nil
		}
		cart.Clear()
		return true, nil
	})
}

func quantityError() error {
	return apperr.InvalidState(fmt.Sprintf("quantity per product must not exceed %d", models.MaxLineQuantity))
}

// mutate loads the cart, applies fn and saves it, reloading on a version
// conflict. fn reports whether it changed anything.
func (s *CartService) mutate(ctx context.Context, userID primitive.ObjectID, create bool, fn func(*models.Cart) (bool, error)) (*models.CartView, error) {
	for attempt := 1; ; attempt++ {
		var (
			cart *models.Cart
			err  error
		)
		if create {
			cart, err = s.carts.GetOrCreate(ctx, userID)
		} else {
			cart, err = s.carts.Get(ctx, userID)
		}
		if err != nil {
			return nil, classify(err, "cart not found")
		}

		changed, err := fn(cart)
		if err != nil {
			return nil, err
		}
		if !changed {
			return s.view(ctx, cart)
		}

		err = s.carts.Save(ctx, cart)
		if err == nil {
			return s.view(ctx, cart)
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, classify(err, "cart not found")
		}
		if attempt == saveAttempts {
			s.logger.Warn("cart save kept conflicting", slog.String("user_id", userID.Hex()), slog.Int("attempts", attempt))
			return nil, apperr.Conflict("cart was modified concurrently, please retry")
		}
	}
}

// view resolves every line against the catalog. Lines whose product is gone
// stay in the cart with a nil product and count toward itemCount only.
func (s *CartService) view(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.Product)
	}
	products, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	v := &models.CartView{
		ID:        cart.ID,
		User:      cart.User,
		Items:     make([]models.CartLine, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := models.CartLine{ProductID: item.Product.Hex(), Quantity: item.Quantity}
		if p, ok := products[item.Product]; ok {
			line.Product = &p
			line.LineTotal = pricing.LineTotal(p.Price, item.Quantity)
			lines = append(lines, pricing.Line{Price: p.Price, Quantity: item.Quantity})
		}
		v.ItemCount += item.Quantity
		v.Items = append(v.Items, line)
	}
	v.Subtotal = pricing.Subtotal(lines)
	return v, nil
}
