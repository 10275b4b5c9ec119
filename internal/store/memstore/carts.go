package memstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
	"grocery/internal/store"
)

type CartStore struct {
	db *DB
}

func (s *CartStore) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	defer s.db.lock(ctx)()

	c, ok := s.db.carts[userID]
	if !ok {
		now := s.db.now()
		c = models.Cart{
			ID:        primitive.NewObjectID(),
			User:      userID,
			Items:     []models.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.db.carts[userID] = c
	}
	out := cloneCart(c)
	return &out, nil
}

func (s *CartStore) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	defer s.db.lock(ctx)()

	c, ok := s.db.carts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneCart(c)
	return &out, nil
}

func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	defer s.db.lock(ctx)()

	stored, ok := s.db.carts[cart.User]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != cart.Version {
		return store.ErrConflict
	}

	stored.Items = append([]models.CartItem{}, cart.Items...)
	stored.Version++
	stored.UpdatedAt = s.db.now()
	s.db.carts[cart.User] = stored

	cart.Version = stored.Version
	cart.UpdatedAt = stored.UpdatedAt
	return nil
}
