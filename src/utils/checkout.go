package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"bre/src/lib"
	"bre/src/models"
	"bre/src/types"

	"github.com/stripe/stripe-go/v82"
)

const subscriptionStatusCacheTTL = time.Minute

type CheckoutInput struct {
	UserID   string
	Scope    types.Scope
	Mode     types.CheckoutMode
	AppID    string
	PlanID   string
	Amount   int64
	Currency string
}

type CheckoutResult struct {
	SessionID    string                  `json:"session_id"`
	ClientSecret string                  `json:"client_secret,omitempty"`
	Mode         types.CheckoutMode      `json:"mode"`
	Status       types.TransactionStatus `json:"status"`
}

// StartCheckout drives a full checkout: one-time payments mint a payment
// intent and a single pending transaction, subscriptions mint an incomplete
// provider subscription plus a contract row and a first-invoice payment row.
// The client confirms the returned secret; webhooks move state from there.
func StartCheckout(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	if in.UserID == "" {
		return nil, &types.ValidationError{Reason: "missing caller identity"}
	}
	if in.Scope == types.SCOPE_APP && in.AppID == "" {
		return nil, &types.ValidationError{Reason: "app_id is required for app scope"}
	}
	if in.PlanID == "" {
		return nil, &types.ValidationError{Reason: "plan_id is required"}
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}
	in.Currency = currency

	switch in.Mode {
	case types.MODE_PAYMENT:
		return startOneTimePayment(ctx, in)
	case types.MODE_SUBSCRIPTION:
		return startSubscription(ctx, in)
	default:
		return nil, &types.ValidationError{Reason: fmt.Sprintf("unsupported mode: %s", in.Mode)}
	}
}

// paymentIdempotencyKey is derived from the request itself so a retried
// checkout reuses the provider-side intent instead of minting a second one.
func paymentIdempotencyKey(in *CheckoutInput) string {
	parts := []string{"checkout", in.UserID, string(in.Scope), in.AppID, in.PlanID, fmt.Sprint(in.Amount), in.Currency}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func startOneTimePayment(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	if in.Amount <= 0 {
		return nil, &types.ValidationError{Reason: "amount must be positive"}
	}

	svc := lib.GetStripeService()
	pi, err := svc.CreatePaymentIntent(ctx, in.Amount, in.Currency, map[string]string{
		"user_id": in.UserID,
		"scope":   string(in.Scope),
		"app_id":  in.AppID,
		"plan_id": in.PlanID,
	}, paymentIdempotencyKey(in))
	if err != nil {
		return nil, lib.ProviderErrorFrom(err)
	}

	txn := models.Transaction{
		Type:            types.OneTimeTypeForScope(in.Scope),
		Amount:          in.Amount,
		Currency:        in.Currency,
		AppID:           in.AppID,
		PaymentIntentId: &pi.ID,
		Status:          types.TRANSACTION_PENDING,
		Metadata: types.TransactionMetadata{
			UserID: in.UserID,
			Scope:  in.Scope,
			PlanID: in.PlanID,
		},
	}
	if err := CreateTransaction(&txn); err != nil {
		return nil, err
	}
	created, err := GetTransactionByPaymentIntentID(pi.ID)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		SessionID:    created.ID.String(),
		ClientSecret: pi.ClientSecret,
		Mode:         types.MODE_PAYMENT,
		Status:       created.Status,
	}, nil
}

func startSubscription(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	amount := in.Amount
	planName := in.PlanID
	if in.Scope == types.SCOPE_PLATFORM && amount == 0 {
		plan, err := lib.GetPlan(ctx, in.PlanID)
		if err != nil {
			return nil, &types.ValidationError{Reason: fmt.Sprintf("unknown plan: %s", in.PlanID)}
		}
		if plan.Price <= 0 {
			return nil, &types.ValidationError{Reason: fmt.Sprintf("plan %s has no billable price", in.PlanID)}
		}
		amount = plan.Price
		planName = plan.Name
	}
	if amount <= 0 {
		return nil, &types.ValidationError{Reason: "amount must be positive"}
	}

	contractType := types.ContractTypeForScope(in.Scope)
	existing, err := GetLatestTransactionByType(contractType, in.UserID, in.AppID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == types.TRANSACTION_ACTIVE {
		return &CheckoutResult{
			SessionID: existing.ID.String(),
			Mode:      types.MODE_SUBSCRIPTION,
			Status:    types.TRANSACTION_ALREADY_ACTIVE,
		}, nil
	}

	svc := lib.GetStripeService()
	customer, err := svc.CreateCustomer(ctx, in.UserID)
	if err != nil {
		return nil, lib.ProviderErrorFrom(err)
	}
	priceID, err := ResolvePrice(ctx, in.Scope, in.AppID, in.PlanID, amount, in.Currency, "month")
	if err != nil {
		return nil, err
	}
	sub, err := svc.CreateIncompleteSubscription(ctx, customer.ID, priceID, map[string]string{
		"user_id":   in.UserID,
		"scope":     string(in.Scope),
		"app_id":    in.AppID,
		"plan_id":   in.PlanID,
		"plan_name": planName,
	})
	if err != nil {
		return nil, lib.ProviderErrorFrom(err)
	}

	secret, intentID := confirmableSecret(ctx, svc, sub)
	if secret == "" {
		return nil, &types.SetupError{Reason: "subscription has no confirmable payment", SubscriptionID: sub.ID}
	}

	metadata := types.TransactionMetadata{
		UserID:           in.UserID,
		SubscriptionID:   sub.ID,
		Scope:            in.Scope,
		PlanID:           in.PlanID,
		CustomerID:       customer.ID,
		CurrentPeriodEnd: periodEndFromSubscription(sub),
	}
	contract := models.Transaction{
		Type:     contractType,
		Amount:   amount,
		Currency: in.Currency,
		AppID:    in.AppID,
		Status:   types.TRANSACTION_INCOMPLETE,
		Metadata: metadata,
	}
	if err := CreateTransaction(&contract); err != nil {
		return nil, err
	}
	// Second insert is independent of the first. A crash in between leaves an
	// orphan contract for SweepOrphanContracts to flag.
	payment := models.Transaction{
		Type:            types.SubscriptionPaymentTypeForScope(in.Scope),
		Amount:          amount,
		Currency:        in.Currency,
		AppID:           in.AppID,
		PaymentIntentId: intentID,
		Status:          types.TRANSACTION_PENDING,
		Metadata:        metadata,
	}
	if err := CreateTransaction(&payment); err != nil {
		return nil, err
	}

	invalidateSubscriptionStatusCache(ctx, in.UserID, in.Scope, in.AppID)
	return &CheckoutResult{
		SessionID:    contract.ID.String(),
		ClientSecret: secret,
		Mode:         types.MODE_SUBSCRIPTION,
		Status:       contract.Status,
	}, nil
}

// confirmableSecret walks the fallback chain for the first invoice's client
// secret: the expanded confirmation secret, a re-fetched invoice, then the
// invoice's payment intent fetched directly.
func confirmableSecret(ctx context.Context, svc *lib.StripeService, sub *stripe.Subscription) (string, *string) {
	inv := sub.LatestInvoice
	if inv == nil {
		return "", nil
	}
	if inv.ConfirmationSecret != nil && inv.ConfirmationSecret.ClientSecret != "" {
		return inv.ConfirmationSecret.ClientSecret, paymentIntentIDFromInvoice(inv)
	}
	full, err := svc.GetInvoice(ctx, inv.ID)
	if err != nil {
		log.Printf("Error refetching invoice %s: %s\n", inv.ID, err.Error())
		return "", nil
	}
	if full.ConfirmationSecret != nil && full.ConfirmationSecret.ClientSecret != "" {
		return full.ConfirmationSecret.ClientSecret, paymentIntentIDFromInvoice(full)
	}
	if pid := paymentIntentIDFromInvoice(full); pid != nil {
		pi, err := svc.GetPaymentIntent(ctx, *pid)
		if err != nil {
			log.Printf("Error retrieving payment intent %s: %s\n", *pid, err.Error())
			return "", nil
		}
		if pi.ClientSecret != "" {
			return pi.ClientSecret, &pi.ID
		}
	}
	return "", nil
}

func paymentIntentIDFromInvoice(inv *stripe.Invoice) *string {
	if inv.Payments == nil {
		return nil
	}
	for _, p := range inv.Payments.Data {
		if p.Payment != nil && p.Payment.PaymentIntent != nil && p.Payment.PaymentIntent.ID != "" {
			return &p.Payment.PaymentIntent.ID
		}
	}
	return nil
}

func periodEndFromSubscription(sub *stripe.Subscription) *time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	if end := sub.Items.Data[0].CurrentPeriodEnd; end > 0 {
		t := time.Unix(end, 0).UTC()
		return &t
	}
	return nil
}

type SubscriptionStatusResult struct {
	IsActive       bool                    `json:"is_active"`
	Status         types.TransactionStatus `json:"status,omitempty"`
	PlanID         string                  `json:"plan_id,omitempty"`
	SubscriptionID string                  `json:"subscription_id,omitempty"`
	ExpiresAt      *time.Time              `json:"expires_at,omitempty"`
	PeriodEnd      *time.Time              `json:"period_end,omitempty"`
}

func subscriptionStatusCacheKey(userID string, scope types.Scope, appID string) string {
	return fmt.Sprintf("substatus:%s:%s:%s", userID, scope, appID)
}

func invalidateSubscriptionStatusCache(ctx context.Context, userID string, scope types.Scope, appID string) {
	if rd := lib.GetRedisClient(); rd != nil {
		rd.Del(ctx, subscriptionStatusCacheKey(userID, scope, appID))
	}
}

// GetSubscriptionStatus reports whether the caller holds an active contract
// for the scope. Results are cached briefly; any write path invalidates.
func GetSubscriptionStatus(ctx context.Context, userID string, scope types.Scope, appID string) (*SubscriptionStatusResult, error) {
	if scope == types.SCOPE_APP && appID == "" {
		return nil, &types.ValidationError{Reason: "app_id is required for app scope"}
	}

	cacheKey := subscriptionStatusCacheKey(userID, scope, appID)
	rd := lib.GetRedisClient()
	if rd != nil {
		if val := rd.Get(ctx, cacheKey).Val(); val != "" {
			var cached SubscriptionStatusResult
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	contract, err := GetLatestTransactionByType(types.ContractTypeForScope(scope), userID, appID)
	if err != nil {
		return nil, err
	}
	result := &SubscriptionStatusResult{}
	if contract != nil {
		result.IsActive = contract.Status == types.TRANSACTION_ACTIVE
		result.Status = contract.Status
		result.PlanID = contract.Metadata.PlanID
		result.SubscriptionID = contract.Metadata.SubscriptionID
		result.ExpiresAt = contract.Metadata.CurrentPeriodEnd
		result.PeriodEnd = contract.Metadata.CurrentPeriodEnd
	}

	if rd != nil {
		if b, err := json.Marshal(result); err == nil {
			rd.SetEx(ctx, cacheKey, string(b), subscriptionStatusCacheTTL)
		}
	}
	return result, nil
}

// CancelSubscription cancels the caller's contract immediately with no
// proration and no final invoice. Missing or already-terminated contracts
// are a silent no-op.
func CancelSubscription(ctx context.Context, userID string, scope types.Scope, appID string) error {
	if scope == types.SCOPE_APP && appID == "" {
		return &types.ValidationError{Reason: "app_id is required for app scope"}
	}

	contract, err := GetLatestTransactionByType(types.ContractTypeForScope(scope), userID, appID)
	if err != nil {
		return err
	}
	if contract == nil || contract.Metadata.SubscriptionID == "" {
		return nil
	}
	if contract.Status != types.TRANSACTION_ACTIVE && contract.Status != types.TRANSACTION_PAST_DUE {
		return nil
	}

	svc := lib.GetStripeService()
	if err := svc.CancelSubscription(ctx, contract.Metadata.SubscriptionID); err != nil {
		return lib.ProviderErrorFrom(err)
	}
	if err := UpdateContractStatus(contract.ID, types.TRANSACTION_CANCELLED, nil); err != nil {
		return err
	}
	invalidateSubscriptionStatusCache(ctx, userID, scope, appID)
	return nil
}
