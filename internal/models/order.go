package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// transitions holds the allowed (from, to) pairs. Anything absent is rejected,
// so Delivered and Cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Cancellable reports whether a customer may still cancel.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "COD"
	PaymentCard PaymentMethod = "Card"
	PaymentUPI  PaymentMethod = "UPI"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentCard || m == PaymentUPI
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// OrderItem is the frozen copy of a cart line taken at checkout.
type OrderItem struct {
	Product  primitive.ObjectID  `bson:"product" json:"product"`
	Name     string              `bson:"name" json:"name"`
	Price    float64             `bson:"price" json:"price"`
	Quantity int                 `bson:"quantity" json:"quantity"`
	Category Category            `bson:"category,omitempty" json:"category,omitempty"`
	Seller   *primitive.ObjectID `bson:"seller,omitempty" json:"seller,omitempty"`
}

type ShippingAddress struct {
	FullName string `bson:"fullName" json:"fullName" binding:"required"`
	Phone    string `bson:"phone" json:"phone" binding:"required"`
	Street   string `bson:"street" json:"street" binding:"required"`
	City     string `bson:"city" json:"city" binding:"required"`
	State    string `bson:"state" json:"state" binding:"required"`
	ZipCode  string `bson:"zipCode" json:"zipCode" binding:"required"`
}

// Order is immutable after creation except for status and payment fields.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	ItemsPrice      float64            `bson:"itemsPrice" json:"itemsPrice"`
	ShippingPrice   float64            `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	Status          OrderStatus        `bson:"status" json:"status"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	CancelledAt     *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	IdempotencyKey  string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Contains reports whether any line references productID.
func (o Order) Contains(productID primitive.ObjectID) bool {
	for _, item := range o.Items {
		if item.Product == productID {
			return true
		}
	}
	return false
}

// StatusChange is a compare-and-set on an order's status. Fields left nil are not written.
type StatusChange struct {
	From          OrderStatus
	To            OrderStatus
	At            time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
	PaymentStatus PaymentStatus
}

// PaymentChange records a settlement. When OnlyIf is set the change applies only
// if the current payment status matches one of the listed values.
type PaymentChange struct {
	Status PaymentStatus
	PaidAt *time.Time
	At     time.Time
	OnlyIf []PaymentStatus
}

// Apply writes the change onto o. Stores call it after their precondition holds.
func (c StatusChange) Apply(o *Order) {
	o.Status = c.To
	o.UpdatedAt = c.At
	if c.DeliveredAt != nil {
		o.DeliveredAt = c.DeliveredAt
	}
	if c.CancelledAt != nil {
		o.CancelledAt = c.CancelledAt
	}
	if c.PaymentStatus != "" {
		o.PaymentStatus = c.PaymentStatus
	}
}

func (c PaymentChange) Allows(current PaymentStatus) bool {
	if len(c.OnlyIf) == 0 {
		return true
	}
	for _, s := range c.OnlyIf {
		if s == current {
			return true
		}
	}
	return false
}

func (c PaymentChange) Apply(o *Order) {
	o.PaymentStatus = c.Status
	o.UpdatedAt = c.At
	if c.PaidAt != nil {
		o.PaidAt = c.PaidAt
	}
}
