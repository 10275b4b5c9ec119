// Package memstore keeps every collection in process memory. It backs the
// memory store driver and the service tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
	"grocery/internal/store"
)

type txKey struct{}

// DB is shared by the three stores. A transaction holds mu for its whole
// duration and restores a snapshot when fn fails.
type DB struct {
	mu sync.Mutex

	products   map[primitive.ObjectID]models.Product
	carts      map[primitive.ObjectID]models.Cart
	orders     map[primitive.ObjectID]models.Order
	orderOrder []primitive.ObjectID

	now func() time.Time
}

func New() *DB {
	return &DB{
		products: make(map[primitive.ObjectID]models.Product),
		carts:    make(map[primitive.ObjectID]models.Cart),
		orders:   make(map[primitive.ObjectID]models.Order),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Stores returns the store bundle backed by db.
func (db *DB) Stores() store.Stores {
	return store.Stores{
		Products: &ProductStore{db: db},
		Carts:    &CartStore{db: db},
		Orders:   &OrderStore{db: db},
		Tx:       &TxManager{db: db},
	}
}

// lock takes the mutex unless ctx already belongs to a running transaction.
func (db *DB) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type snapshot struct {
	products   map[primitive.ObjectID]models.Product
	carts      map[primitive.ObjectID]models.Cart
	orders     map[primitive.ObjectID]models.Order
	orderOrder []primitive.ObjectID
}

func (db *DB) snapshot() snapshot {
	s := snapshot{
		products:   make(map[primitive.ObjectID]models.Product, len(db.products)),
		carts:      make(map[primitive.ObjectID]models.Cart, len(db.carts)),
		orders:     make(map[primitive.ObjectID]models.Order, len(db.orders)),
		orderOrder: append([]primitive.ObjectID(nil), db.orderOrder...),
	}
	for k, v := range db.products {
		s.products[k] = cloneProduct(v)
	}
	for k, v := range db.carts {
		s.carts[k] = cloneCart(v)
	}
	for k, v := range db.orders {
		s.orders[k] = cloneOrder(v)
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.products = s.products
	db.carts = s.carts
	db.orders = s.orders
	db.orderOrder = s.orderOrder
}

type TxManager struct {
	db *DB
}

func (m *TxManager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	saved := m.db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.db.restore(saved)
		return err
	}
	return nil
}

func cloneProduct(p models.Product) models.Product {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	if p.Seller != nil {
		seller := *p.Seller
		p.Seller = &seller
	}
	return p.WithDerived()
}

func cloneCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return c
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}
