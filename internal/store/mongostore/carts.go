package mongostore

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grocery/internal/models"
	"grocery/internal/store"
)

type CartStore struct {
	base
	coll *mongo.Collection
}

func (s *CartStore) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ts := now()
	update := bson.M{"$setOnInsert": bson.M{
		"user":      userID,
		"items":     bson.A{},
		"version":   int64(0),
		"createdAt": ts,
		"updatedAt": ts,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart models.Cart
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"user": userID}, update, opts).Decode(&cart)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert won the unique index on user; read its row.
		err = s.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	}
	if err != nil {
		return nil, errors.Wrap(err, "upsert cart")
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func (s *CartStore) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var cart models.Cart
	err := s.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find cart")
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	ts := now()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"user": cart.User, "version": cart.Version},
		bson.M{
			"$set": bson.M{"items": items, "updatedAt": ts},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return errors.Wrap(err, "save cart")
	}
	if res.MatchedCount == 0 {
		found, err := exists(ctx, s.coll, bson.M{"user": cart.User})
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}

	cart.Version++
	cart.UpdatedAt = ts
	return nil
}
