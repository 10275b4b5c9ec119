package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/pricing"
)

type Unit string

const (
	UnitKg    Unit = "kg"
	UnitGram  Unit = "g"
	UnitLitre Unit = "l"
	UnitMl    Unit = "ml"
	UnitPiece Unit = "piece"
	UnitDozen Unit = "dozen"
	UnitPack  Unit = "pack"
)

var Units = []Unit{UnitKg, UnitGram, UnitLitre, UnitMl, UnitPiece, UnitDozen, UnitPack}

func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// Product is a catalog entry. Seller is nil for admin-owned products.
type Product struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name          string              `bson:"name" json:"name"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	Price         float64             `bson:"price" json:"price"`
	OriginalPrice float64             `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Category      Category            `bson:"category" json:"category"`
	Seller        *primitive.ObjectID `bson:"seller,omitempty" json:"seller,omitempty"`
	IsApproved    bool                `bson:"isApproved" json:"isApproved"`
	Stock         int                 `bson:"stock" json:"stock"`
	Unit          Unit                `bson:"unit" json:"unit"`
	UnitValue     float64             `bson:"unitValue" json:"unitValue"`
	Brand         string              `bson:"brand,omitempty" json:"brand,omitempty"`
	Tags          []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	IsFeatured    bool                `bson:"isFeatured" json:"isFeatured"`
	Discount      float64             `bson:"discount" json:"discount"`
	IsActive      bool                `bson:"isActive" json:"isActive"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`

	DiscountedPrice float64 `bson:"-" json:"discountedPrice"`
	InStock         bool    `bson:"-" json:"inStock"`
}

// OwnedBy reports whether sellerID owns the product.
func (p Product) OwnedBy(sellerID primitive.ObjectID) bool {
	return p.Seller != nil && *p.Seller == sellerID
}

// Available reports whether the product may be ordered.
func (p Product) Available() bool {
	return p.IsActive && p.IsApproved
}

// WithDerived returns p with the computed fields filled in.
func (p Product) WithDerived() Product {
	p.DiscountedPrice = pricing.DiscountedPrice(p.Price, p.Discount)
	p.InStock = p.Stock > 0
	return p
}

// ApplyDefaults fills the values a new product gets when the caller leaves them empty.
func (p *Product) ApplyDefaults() {
	if p.Unit == "" {
		p.Unit = UnitPiece
	}
	if p.UnitValue == 0 {
		p.UnitValue = 1
	}
	if p.Category == "" {
		p.Category = CategoryOther
	}
}
