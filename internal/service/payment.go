package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/models"
	"grocery/internal/payments"
	"grocery/internal/pricing"
	"grocery/internal/store"
)

// Webhook event outcomes.
const (
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
)

// PaymentEvent is the body of a payment provider webhook.
type PaymentEvent struct {
	EventID string `json:"eventId" binding:"required"`
	OrderID string `json:"orderId" binding:"required,objectid"`
	Status  string `json:"status" binding:"required,oneof=succeeded failed"`
}

// DefaultCurrency is charged when WithProcessor is given no currency.
const DefaultCurrency = "inr"

type PaymentService struct {
	orders    store.OrderStore
	secret    []byte
	processor payments.Processor
	currency  string
	logger    *slog.Logger
	now       Clock
}

type PaymentOption func(*PaymentService)

// WithProcessor enables payment intents charged in currency.
func WithProcessor(p payments.Processor, currency string) PaymentOption {
	return func(s *PaymentService) {
		s.processor = p
		if currency != "" {
			s.currency = strings.ToLower(currency)
		}
	}
}

func NewPaymentService(orders store.OrderStore, secret string, logger *slog.Logger, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		orders:   orders,
		secret:   []byte(secret),
		currency: DefaultCurrency,
		logger:   logger.With(slog.String("component", "payments")),
		now:      utcNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether a webhook secret is configured.
func (s *PaymentService) Enabled() bool {
	return len(s.secret) > 0
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the raw request body.
func (s *PaymentService) Verify(body []byte, signature string) error {
	if !s.Enabled() {
		return apperr.Unauthorized("payment webhook is not configured")
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(given) == 0 {
		return apperr.Unauthorized("invalid signature")
	}
	expected, _ := hex.DecodeString(Sign(s.secret, body))
	if !hmac.Equal(given, expected) {
		return apperr.Unauthorized("invalid signature")
	}
	return nil
}

// Settle records the outcome of a payment. Replaying an event leaves the
// order as it is; a failure never overrides a completed payment.
func (s *PaymentService) Settle(ctx context.Context, event PaymentEvent) (*models.Order, error) {
	id, err := primitive.ObjectIDFromHex(event.OrderID)
	if err != nil {
		return nil, apperr.InvalidState("invalid order id")
	}

	now := s.now()
	var change models.PaymentChange
	switch event.Status {
	case EventSucceeded:
		change = models.PaymentChange{
			Status: models.PaymentPaid,
			PaidAt: &now,
			At:     now,
			OnlyIf: []models.PaymentStatus{models.PaymentPending, models.PaymentFailed},
		}
	case EventFailed:
		change = models.PaymentChange{
			Status: models.PaymentFailed,
			At:     now,
			OnlyIf: []models.PaymentStatus{models.PaymentPending},
		}
	default:
		return nil, apperr.InvalidState("invalid payment status")
	}

	order, err := s.orders.UpdatePayment(ctx, id, change)
	if err != nil {
		return nil, classify(err, "order not found")
	}

	s.logger.Info("payment event processed",
		slog.String("event_id", event.EventID),
		slog.String("order_id", id.Hex()),
		slog.String("event_status", event.Status),
		slog.String("payment_status", string(order.PaymentStatus)),
	)
	return order, nil
}

// IntentsEnabled reports whether a payment processor is configured.
func (s *PaymentService) IntentsEnabled() bool {
	return s.processor != nil
}

// CreateIntent starts a card payment for the caller's order. The amount is
// the order total; retries for the same order reuse one intent.
func (s *PaymentService) CreateIntent(ctx context.Context, caller models.Identity, orderID primitive.ObjectID) (*payments.Intent, error) {
	if !s.IntentsEnabled() {
		return nil, apperr.InvalidState("online payments are not configured")
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, classify(err, "order not found")
	}
	if order.User != caller.ID {
		return nil, apperr.Forbidden("not authorized to pay for this order")
	}
	switch {
	case order.Status == models.StatusCancelled:
		return nil, apperr.InvalidState("order is cancelled")
	case order.PaymentMethod == models.PaymentCOD:
		return nil, apperr.InvalidState("order is cash on delivery")
	case order.PaymentStatus == models.PaymentPaid:
		return nil, apperr.InvalidState("order is already paid")
	}
	amount := pricing.MinorUnits(order.TotalPrice)
	if amount < 1 {
		return nil, apperr.InvalidState("invalid order amount")
	}

	intent, err := s.processor.CreateIntent(ctx, payments.IntentRequest{
		Amount:   amount,
		Currency: s.currency,
		Metadata: map[string]string{
			"orderId": order.ID.Hex(),
			"userId":  caller.ID.Hex(),
		},
		IdempotencyKey: "order-" + order.ID.Hex(),
	})
	if err != nil {
		s.logger.Error("create payment intent failed",
			slog.String("order_id", order.ID.Hex()),
			slog.Any("error", err),
		)
		return nil, apperr.ServerFault(err)
	}

	s.logger.Info("payment intent created",
		slog.String("order_id", order.ID.Hex()),
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", amount),
	)
	return intent, nil
}

// IntentStatus returns an intent created for one of the caller's orders.
// Intents of other users read as missing, except to admins.
func (s *PaymentService) IntentStatus(ctx context.Context, caller models.Identity, intentID string) (*IntentSummary, error) {
	if !s.IntentsEnabled() {
		return nil, apperr.InvalidState("online payments are not configured")
	}
	intent, err := s.processor.GetIntent(ctx, intentID)
	if errors.Is(err, payments.ErrIntentNotFound) {
		return nil, apperr.NotFound("payment intent not found")
	}
	if err != nil {
		return nil, apperr.ServerFault(err)
	}
	if intent.Metadata["userId"] != caller.ID.Hex() && !caller.IsAdmin() {
		return nil, apperr.NotFound("payment intent not found")
	}
	return &IntentSummary{
		Status:   intent.Status,
		Amount:   pricing.FromMinorUnits(intent.Amount),
		Currency: intent.Currency,
	}, nil
}

// IntentSummary is what a client may see of a payment intent.
type IntentSummary struct {
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}
