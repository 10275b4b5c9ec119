package mongostore

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grocery/internal/models"
	"grocery/internal/store"
)

type ProductStore struct {
	base
	coll *mongo.Collection
}

func (s *ProductStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	p, err := decodeProduct(s.coll.FindOne(ctx, bson.M{"_id": id}))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}
	return &p, nil
}

func (s *ProductStore) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (s *ProductStore) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(productSort(filter.Sort))
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := s.coll.Find(ctx, productQuery(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func (s *ProductStore) Count(ctx context.Context, filter store.ProductFilter) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, productQuery(filter))
	if err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}

func productQuery(f store.ProductFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}

	if f.Seller != nil {
		q["seller"] = *f.Seller
	}
	if f.ActiveOnly {
		q["isActive"] = bson.M{"$ne": false}
	}
	if f.ApprovedOnly {
		q["isApproved"] = true
	}

	stock := bson.M{}
	if f.StockAtLeast != nil {
		stock["$gte"] = *f.StockAtLeast
	}
	if f.StockAtMost != nil {
		stock["$lte"] = *f.StockAtMost
	}
	if len(stock) > 0 {
		q["stock"] = stock
	}
	return q
}

func productSort(order string) bson.D {
	switch order {
	case store.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case store.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case store.SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	case store.SortStockAsc:
		return bson.D{{Key: "stock", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	}
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now()
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}

	if _, err := s.coll.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateKey
		}
		return errors.Wrap(err, "insert product")
	}
	return nil
}

func (s *ProductStore) Update(ctx context.Context, id primitive.ObjectID, patch store.ProductPatch) (*models.Product, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	set := patchSet(patch)
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	p, err := decodeProduct(res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return &p, nil
}

func patchSet(p store.ProductPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.OriginalPrice != nil {
		set["originalPrice"] = *p.OriginalPrice
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Stock != nil {
		set["stock"] = *p.Stock
	}
	if p.Unit != nil {
		set["unit"] = *p.Unit
	}
	if p.UnitValue != nil {
		set["unitValue"] = *p.UnitValue
	}
	if p.Brand != nil {
		set["brand"] = *p.Brand
	}
	if p.Tags != nil {
		set["tags"] = *p.Tags
	}
	if p.IsFeatured != nil {
		set["isFeatured"] = *p.IsFeatured
	}
	if p.Discount != nil {
		set["discount"] = *p.Discount
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	if p.IsApproved != nil {
		set["isApproved"] = *p.IsApproved
	}
	if len(set) > 0 {
		updatedAt := p.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now()
		}
		set["updatedAt"] = updatedAt
	}
	return set
}

func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *ProductStore) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return store.ErrInvalidQuantity
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updatedAt": now()},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	found, err := exists(ctx, s.coll, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return store.ErrInsufficientStock
}

func (s *ProductStore) IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return store.ErrInvalidQuantity
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": quantity},
			"$set": bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "increment stock")
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
