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

type OrderStore struct {
	base
	coll *mongo.Collection
}

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateKey
		}
		return errors.Wrap(err, "insert order")
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *OrderStore) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"user": userID, "idempotencyKey": key})
}

func (s *OrderStore) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var order models.Order
	err := s.coll.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}
	return &order, nil
}

func orderQuery(q store.OrderQuery) bson.M {
	filter := bson.M{}
	if q.User != nil {
		filter["user"] = *q.User
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	var owned bson.A
	if len(q.Products) > 0 {
		owned = append(owned, bson.M{"items.product": bson.M{"$in": q.Products}})
	}
	if q.Seller != nil {
		owned = append(owned, bson.M{"items.seller": *q.Seller})
	}
	if len(owned) == 1 {
		for k, v := range owned[0].(bson.M) {
			filter[k] = v
		}
	} else if len(owned) > 1 {
		filter["$or"] = owned
	}
	if q.Since != nil {
		filter["createdAt"] = bson.M{"$gte": *q.Since}
	}
	return filter
}

func (s *OrderStore) List(ctx context.Context, q store.OrderQuery) ([]models.Order, int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	filter := orderQuery(q)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		if total == 0 || page-1 > (total-1)/q.Limit {
			return []models.Order{}, total, nil
		}
		opts.SetSkip((page - 1) * q.Limit).SetLimit(q.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, errors.Wrap(err, "decode orders")
	}
	return orders, total, nil
}

func (s *OrderStore) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate order status")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode order status")
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *OrderStore) DistinctCustomers(ctx context.Context) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	users, err := s.coll.Distinct(ctx, "user", bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "distinct order users")
	}
	return int64(len(users)), nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Order, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	set := bson.M{"status": change.To, "updatedAt": change.At}
	if change.DeliveredAt != nil {
		set["deliveredAt"] = *change.DeliveredAt
	}
	if change.CancelledAt != nil {
		set["cancelledAt"] = *change.CancelledAt
	}
	if change.PaymentStatus != "" {
		set["paymentStatus"] = change.PaymentStatus
	}

	var order models.Order
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": change.From},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		found, err := exists(ctx, s.coll, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrConflict
	}
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	return &order, nil
}

func (s *OrderStore) UpdatePayment(ctx context.Context, id primitive.ObjectID, change models.PaymentChange) (*models.Order, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	filter := bson.M{"_id": id}
	if len(change.OnlyIf) > 0 {
		filter["paymentStatus"] = bson.M{"$in": change.OnlyIf}
	}
	set := bson.M{"paymentStatus": change.Status, "updatedAt": change.At}
	if change.PaidAt != nil {
		set["paidAt"] = *change.PaidAt
	}

	var order models.Order
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.Get(ctx, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "update order payment")
	}
	return &order, nil
}
