package payments

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

type StripeProcessor struct {
	api *client.API
}

type stripeOptions struct {
	baseURL string
	retries int64
}

type StripeOption func(*stripeOptions)

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) StripeOption {
	return func(o *stripeOptions) { o.baseURL = url }
}

func WithMaxRetries(n int64) StripeOption {
	return func(o *stripeOptions) { o.retries = n }
}

func NewStripeProcessor(secretKey string, opts ...StripeOption) *StripeProcessor {
	o := stripeOptions{retries: 2}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(o.retries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if o.baseURL != "" {
		cfg.URL = stripe.String(o.baseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	return &StripeProcessor{
		api: client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
	}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}
	return fromStripe(pi), nil
}

func (p *StripeProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrIntentNotFound
		}
		return nil, errors.Wrap(err, "get payment intent")
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}
