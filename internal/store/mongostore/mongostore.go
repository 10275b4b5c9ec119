// Package mongostore implements the store contracts on MongoDB. Transactions
// need a replica set or sharded cluster.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"grocery/internal/store"
)

const (
	ProductsCollection = "products"
	CartsCollection    = "carts"
	OrdersCollection   = "orders"

	defaultOpTimeout = 5 * time.Second
)

// New returns the store bundle backed by db. Each store call runs under its
// own opTimeout derived from the caller's context.
func New(db *mongo.Database, opTimeout time.Duration) store.Stores {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	b := base{timeout: opTimeout}
	return store.Stores{
		Products: &ProductStore{base: b, coll: db.Collection(ProductsCollection)},
		Carts:    &CartStore{base: b, coll: db.Collection(CartsCollection)},
		Orders:   &OrderStore{base: b, coll: db.Collection(OrdersCollection)},
		Tx:       &TxManager{client: db.Client()},
	}
}

type base struct {
	timeout time.Duration
}

func (b base) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

func now() time.Time {
	return time.Now().UTC()
}

type TxManager struct {
	client *mongo.Client
}

// Execute runs fn inside a session transaction. The driver retries fn on
// transient transaction errors, so fn must not have side effects outside the store.
func (m *TxManager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// exists tells a missed conditional update apart from a missing document.
func exists(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, errors.Wrapf(err, "count %s", coll.Name())
	}
	return n > 0, nil
}
