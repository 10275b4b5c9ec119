package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grocery/internal/store/mongostore"
)

const indexTimeout = 5 * time.Second

// EnsureIndexes creates every index the stores rely on. Existing indexes with
// the same name and keys are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) error {
	for _, ensure := range []func(context.Context, *mongo.Database, *slog.Logger) error{
		EnsureProductIndexes,
		EnsureCartIndexes,
		EnsureOrderIndexes,
	} {
		if err := ensure(ctx, db, logger); err != nil {
			return err
		}
	}
	return nil
}

func EnsureProductIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) error {
	return createIndexes(ctx, db.Collection(mongostore.ProductsCollection), logger, ProductIndexes())
}

func EnsureCartIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) error {
	return createIndexes(ctx, db.Collection(mongostore.CartsCollection), logger, CartIndexes())
}

func EnsureOrderIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) error {
	return createIndexes(ctx, db.Collection(mongostore.OrdersCollection), logger, OrderIndexes())
}

func ProductIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category_index"),
		},
		{
			Keys:    bson.D{{Key: "seller", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("seller_createdAt_index"),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "isApproved", Value: 1}},
			Options: options.Index().SetName("isActive_isApproved_index"),
		},
	}
}

func CartIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user", Value: 1}},
			Options: options.Index().
				SetName("user_unique").
				SetUnique(true),
		},
	}
}

func OrderIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_createdAt_index"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_index"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_index"),
		},
		{
			Keys:    bson.D{{Key: "items.product", Value: 1}},
			Options: options.Index().SetName("items_product_index"),
		},
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetName("user_idempotencyKey_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"idempotencyKey": bson.M{
						"$exists": true,
					},
				}),
		},
	}
}

func createIndexes(ctx context.Context, coll *mongo.Collection, logger *slog.Logger, models []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	logger.Info("creating indexes", slog.String("collection", coll.Name()), slog.Int("count", len(models)))
	names, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		logger.Error("index creation failed", slog.String("collection", coll.Name()), slog.Any("error", err))
		return fmt.Errorf("create %s indexes: %w", coll.Name(), err)
	}
	logger.Info("indexes ready", slog.String("collection", coll.Name()), slog.Any("names", names))
	return nil
}
