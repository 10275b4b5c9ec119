// Package payments talks to the card payment provider.
package payments

import (
	"context"
	"errors"
)

// ErrIntentNotFound is returned when the provider has no intent with the given id.
var ErrIntentNotFound = errors.New("payments: intent not found")

// IntentRequest asks the provider to collect Amount, in minor units, of Currency.
type IntentRequest struct {
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the provider's view of one collection attempt.
type Intent struct {
	ID           string            `json:"paymentIntentId"`
	ClientSecret string            `json:"clientSecret,omitempty"`
	Status       string            `json:"status"`
	Amount       int64             `json:"-"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"-"`
}

type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}
