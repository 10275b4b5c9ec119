// Package store defines the persistence contracts the services depend on.
// Implementations live in mongostore and memstore.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrInsufficientStock = errors.New("store: insufficient stock")
	ErrConflict          = errors.New("store: conflict")
	ErrDuplicateKey      = errors.New("store: duplicate key")
	ErrInvalidQuantity   = errors.New("store: quantity must be positive")
)

// Product sort orders.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortName      = "name"
	SortStockAsc  = "stock-asc"
)

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	Category models.Category
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Seller   *primitive.ObjectID

	ActiveOnly   bool
	ApprovedOnly bool

	// StockAtMost and StockAtLeast bound stock inclusively when set.
	StockAtMost  *int
	StockAtLeast *int

	Sort  string
	Limit int64
}

// ProductPatch is a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *float64
	OriginalPrice *float64
	Category      *models.Category
	Stock         *int
	Unit          *models.Unit
	UnitValue     *float64
	Brand         *string
	Tags          *[]string
	IsFeatured    *bool
	Discount      *float64
	IsActive      *bool
	IsApproved    *bool
	UpdatedAt     time.Time
}

type ProductStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int64, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, patch ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// DecrementStock lowers stock by quantity only if at least quantity is
	// available. It returns ErrInsufficientStock otherwise and ErrNotFound when
	// the product does not exist.
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
}

type CartStore interface {
	// GetOrCreate returns the user's cart, inserting an empty one first if needed.
	GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)

	// Save replaces the items if the stored version still equals cart.Version,
	// then bumps the version on cart. It returns ErrConflict on a mismatch.
	Save(ctx context.Context, cart *models.Cart) error
}

// OrderQuery selects orders. Zero values do not filter.
type OrderQuery struct {
	User     *primitive.ObjectID
	Status   models.OrderStatus
	Since    *time.Time

	// Products and Seller together match orders with a line for any of
	// Products or a line whose seller snapshot is Seller.
	Products []primitive.ObjectID
	Seller   *primitive.ObjectID

	// Page is 1-based. Limit of zero returns everything.
	Page  int64
	Limit int64
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error)

	// List returns matching orders newest first together with the total match count.
	List(ctx context.Context, query OrderQuery) ([]models.Order, int64, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error)
	DistinctCustomers(ctx context.Context) (int64, error)

	// UpdateStatus applies change only while the order is still in change.From.
	// It returns ErrConflict when the status moved in between.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Order, error)

	// UpdatePayment applies change when change.Allows the current payment
	// status. Otherwise the stored order is returned unchanged.
	UpdatePayment(ctx context.Context, id primitive.ObjectID, change models.PaymentChange) (*models.Order, error)
}

// TxManager runs fn atomically. Store calls made with the ctx passed to fn
// take part in the transaction.
type TxManager interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles one backend's implementations.
type Stores struct {
	Products ProductStore
	Carts    CartStore
	Orders   OrderStore
	Tx       TxManager
}

// Apply writes the non-nil fields of p onto product.
func (p ProductPatch) Apply(product *models.Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.OriginalPrice != nil {
		product.OriginalPrice = *p.OriginalPrice
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Unit != nil {
		product.Unit = *p.Unit
	}
	if p.UnitValue != nil {
		product.UnitValue = *p.UnitValue
	}
	if p.Brand != nil {
		product.Brand = *p.Brand
	}
	if p.Tags != nil {
		product.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.IsFeatured != nil {
		product.IsFeatured = *p.IsFeatured
	}
	if p.Discount != nil {
		product.Discount = *p.Discount
	}
	if p.IsActive != nil {
		product.IsActive = *p.IsActive
	}
	if p.IsApproved != nil {
		product.IsApproved = *p.IsApproved
	}
	if !p.UpdatedAt.IsZero() {
		product.UpdatedAt = p.UpdatedAt
	}
}
