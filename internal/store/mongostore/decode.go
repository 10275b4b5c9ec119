package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"grocery/internal/models"
)

// normalizeProductDocument coerces legacy product documents before decoding:
// numeric stock of any width, missing isActive/unit/unitValue defaults and
// string booleans written by older imports.
func normalizeProductDocument(raw bson.M) (models.Product, error) {
	raw["stock"] = toInt(raw["stock"])

	if val, ok := raw["isActive"]; ok {
		raw["isActive"] = toBool(val, true)
	} else {
		raw["isActive"] = true
	}
	raw["isApproved"] = toBool(raw["isApproved"], false)
	raw["isFeatured"] = toBool(raw["isFeatured"], false)

	if _, ok := raw["unit"]; !ok {
		raw["unit"] = string(models.UnitPiece)
	}
	if _, ok := raw["unitValue"]; !ok {
		raw["unitValue"] = 1.0
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if err := bson.Unmarshal(data, &p); err != nil {
		return models.Product{}, err
	}
	return p.WithDerived(), nil
}

func toInt(val interface{}) int {
	switch typed := val.(type) {
	case int32:
		return int(typed)
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case int:
		return typed
	default:
		return 0
	}
}

func toBool(val interface{}, fallback bool) bool {
	switch typed := val.(type) {
	case bool:
		return typed
	case string:
		return typed == "true"
	default:
		return fallback
	}
}

func decodeProduct(res *mongo.SingleResult) (models.Product, error) {
	var raw bson.M
	if err := res.Decode(&raw); err != nil {
		return models.Product{}, err
	}
	return normalizeProductDocument(raw)
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}
