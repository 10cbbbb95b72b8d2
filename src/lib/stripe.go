package lib

import (
	"context"
	"errors"

	"bre/src/config"
	"bre/src/types"

	"github.com/stripe/stripe-go/v82"
)

var stripeService *StripeService

// StripeService wraps the provider client. Credentials come in through the
// constructor, not ambient package state.
type StripeService struct {
	client *stripe.Client
	cfg    config.StripeConfig
}

func NewStripeService(cfg config.StripeConfig) *StripeService {
	sc := stripe.NewClient(cfg.SecretKey)
	return &StripeService{client: sc, cfg: cfg}
}

func GetStripeService() *StripeService {
	if stripeService != nil {
		return stripeService
	}
	svc := NewStripeService(config.GetStripeConfig())
	stripeService = svc
	return svc
}

// SetStripeService replaces the singleton with a custom instance
func SetStripeService(s *StripeService) {
	stripeService = s
}

func (s *StripeService) WebhookSecret() string {
	return s.cfg.WebhookSecret
}

// ProviderErrorFrom converts a provider failure into the engine's error
// taxonomy, surfacing the provider's own error code when it supplied one.
func ProviderErrorFrom(err error) *types.ProviderError {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return &types.ProviderError{Code: string(serr.Code), Err: err}
	}
	return &types.ProviderError{Err: err}
}

func (s *StripeService) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string, idempotencyKey string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Metadata: metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if idempotencyKey != "" {
		params.Params = stripe.Params{IdempotencyKey: stripe.String(idempotencyKey)}
	}
	return s.client.V1PaymentIntents.Create(ctx, params)
}

func (s *StripeService) CreateCustomer(ctx context.Context, userId string) (*stripe.Customer, error) {
	params := &stripe.CustomerCreateParams{
		Metadata: map[string]string{"user_id": userId},
	}
	return s.client.V1Customers.Create(ctx, params)
}

// FindActivePriceByLookupKey returns the first active price carrying the
// lookup key, or nil when the provider knows no such price.
func (s *StripeService) FindActivePriceByLookupKey(ctx context.Context, key string) (*stripe.Price, error) {
	list := s.client.V1Prices.List(ctx, &stripe.PriceListParams{
		LookupKeys: []*string{stripe.String(key)},
		Active:     stripe.Bool(true),
	})
	for price, err := range list {
		if err != nil {
			return nil, err
		}
		return price, nil
	}
	return nil, nil
}

func (s *StripeService) CreateRecurringPrice(ctx context.Context, productName, currency string, amount int64, interval, lookupKey string, metadata map[string]string) (*stripe.Price, error) {
	params := &stripe.PriceCreateParams{
		Currency:   stripe.String(currency),
		UnitAmount: stripe.Int64(amount),
		LookupKey:  stripe.String(lookupKey),
		Recurring: &stripe.PriceCreateRecurringParams{
			Interval: stripe.String(interval),
		},
		ProductData: &stripe.PriceCreateProductDataParams{
			Name: stripe.String(productName),
		},
		Metadata: metadata,
		// The lookup key doubles as the creation idempotency token so a
		// retried create cannot mint a second price.
		Params: stripe.Params{IdempotencyKey: stripe.String(lookupKey)},
	}
	return s.client.V1Prices.Create(ctx, params)
}

func (s *StripeService) CreateIncompleteSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionCreatePaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
		Metadata: metadata,
		Params: stripe.Params{
			Expand: []*string{
				stripe.String("latest_invoice.confirmation_secret"),
				stripe.String("latest_invoice.payments"),
			},
		},
	}
	return s.client.V1Subscriptions.Create(ctx, params)
}

func (s *StripeService) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := s.client.V1Subscriptions.Cancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{
		Prorate:    stripe.Bool(false),
		InvoiceNow: stripe.Bool(false),
	})
	return err
}

func (s *StripeService) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	return s.client.V1Invoices.Retrieve(ctx, id, &stripe.InvoiceRetrieveParams{
		Params: stripe.Params{
			Expand: []*string{
				stripe.String("confirmation_secret"),
				stripe.String("payments"),
			},
		},
	})
}

func (s *StripeService) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return s.client.V1PaymentIntents.Retrieve(ctx, id, nil)
}
