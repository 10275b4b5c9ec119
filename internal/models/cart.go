package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 1000

var ErrQuantityLimit = errors.New("cart line quantity out of range")

type CartItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// Cart holds at most one line per product. Version increases on every write.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Items     []CartItem         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Cart) indexOf(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.Product == productID {
			return i
		}
	}
	return -1
}

// Has reports whether the cart has a line for productID.
func (c *Cart) Has(productID primitive.ObjectID) bool {
	return c.indexOf(productID) >= 0
}

// Add merges quantity into the existing line or appends a new one. The
// resulting line must stay within 1..MaxLineQuantity.
func (c *Cart) Add(productID primitive.ObjectID, quantity int) error {
	if quantity < 1 || quantity > MaxLineQuantity {
		return ErrQuantityLimit
	}
	if i := c.indexOf(productID); i >= 0 {
		if c.Items[i].Quantity > MaxLineQuantity-quantity {
			return ErrQuantityLimit
		}
		c.Items[i].Quantity += quantity
		return nil
	}
	c.Items = append(c.Items, CartItem{Product: productID, Quantity: quantity})
	return nil
}

// Set replaces the quantity of an existing line. A quantity of zero or less
// removes it. It returns false when there is no such line.
func (c *Cart) Set(productID primitive.ObjectID, quantity int) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	}
	c.Items[i].Quantity = quantity
	return true
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID primitive.ObjectID) {
	if i := c.indexOf(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// CartLine is a cart item resolved against the current catalog. Product is nil
// when the product has been deleted since it was added.
type CartLine struct {
	Product   *Product `json:"product"`
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	LineTotal float64  `json:"lineTotal"`
}

// CartView is the hydrated cart returned by every cart operation.
type CartView struct {
	ID        primitive.ObjectID `json:"id"`
	User      primitive.ObjectID `json:"user"`
	Items     []CartLine         `json:"items"`
	ItemCount int                `json:"itemCount"`
	Subtotal  float64            `json:"subtotal"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
