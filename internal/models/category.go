package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type Category string

const (
	CategoryVegetables Category = "Vegetables"
	CategoryFruits     Category = "Fruits"
	CategoryDairy      Category = "Dairy"
	CategoryBakery     Category = "Bakery"
	CategoryBeverages  Category = "Beverages"
	CategorySnacks     Category = "Snacks"
	CategoryMeat       Category = "Meat"
	CategorySeafood    Category = "Seafood"
	CategoryFrozen     Category = "Frozen"
	CategoryOther      Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryVegetables,
	CategoryFruits,
	CategoryDairy,
	CategoryBakery,
	CategoryBeverages,
	CategorySnacks,
	CategoryMeat,
	CategorySeafood,
	CategoryFrozen,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches name case-insensitively against the known categories.
func ParseCategory(name string) (Category, bool) {
	trimmed := strings.TrimSpace(name)
	for _, known := range Categories {
		if strings.EqualFold(trimmed, string(known)) {
			return known, true
		}
	}
	return "", false
}

func normalizeCategory(name string) Category {
	if c, ok := ParseCategory(name); ok {
		return c
	}
	return CategoryOther
}

// UnmarshalBSONValue accepts a string or, for legacy documents, an array of
// strings where the first non-empty entry wins. Unknown names decode to Other.
func (c *Category) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*c = CategoryOther
		return nil
	case bsontype.Array:
		var values []string
		if err := bson.UnmarshalValue(t, data, &values); err != nil {
			return err
		}
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				*c = normalizeCategory(v)
				return nil
			}
		}
		*c = CategoryOther
		return nil
	case bsontype.String:
		var value string
		if err := bson.UnmarshalValue(t, data, &value); err != nil {
			return err
		}
		*c = normalizeCategory(value)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into Category", t)
	}
}

// MarshalBSONValue always writes a plain string.
func (c Category) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(c))
}
