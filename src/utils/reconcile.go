package utils

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bre/src/types"

	"github.com/stripe/stripe-go/v82"
)

type ProviderEventKind int

const (
	EVENT_UNKNOWN ProviderEventKind = iota
	EVENT_INVOICE_PAYMENT_SUCCEEDED
	EVENT_INVOICE_PAYMENT_FAILED
	EVENT_SUBSCRIPTION_UPDATED
	EVENT_SUBSCRIPTION_DELETED
)

// ProviderEvent is the narrowed form of a verified provider webhook. Exactly
// one of Invoice or Subscription is set for known kinds.
type ProviderEvent struct {
	Kind         ProviderEventKind
	Invoice      *stripe.Invoice
	Subscription *stripe.Subscription
}

// ParseProviderEvent narrows a verified event to the kinds this engine
// reconciles. Anything else comes back as EVENT_UNKNOWN, which the caller
// acknowledges without processing so the provider stops redelivering.
func ParseProviderEvent(event stripe.Event) (*ProviderEvent, error) {
	switch event.Type {
	case "invoice.payment_succeeded", "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, err
		}
		kind := EVENT_INVOICE_PAYMENT_SUCCEEDED
		if event.Type == "invoice.payment_failed" {
			kind = EVENT_INVOICE_PAYMENT_FAILED
		}
		return &ProviderEvent{Kind: kind, Invoice: &invoice}, nil
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, err
		}
		kind := EVENT_SUBSCRIPTION_UPDATED
		if event.Type == "customer.subscription.deleted" {
			kind = EVENT_SUBSCRIPTION_DELETED
		}
		return &ProviderEvent{Kind: kind, Subscription: &sub}, nil
	default:
		return &ProviderEvent{Kind: EVENT_UNKNOWN}, nil
	}
}

// ProcessProviderEvent applies a parsed event to local state. Handlers run on
// a background context: once the provider delivered an event, stopping midway
// on a caller deadline would leave local state out of step with the
// provider's view. Every handler is an idempotent overwrite, so redelivery
// converges to the same state.
func ProcessProviderEvent(ev *ProviderEvent) {
	ctx := context.Background()
	switch ev.Kind {
	case EVENT_INVOICE_PAYMENT_SUCCEEDED:
		applyInvoicePaid(ctx, ev.Invoice)
	case EVENT_INVOICE_PAYMENT_FAILED:
		applyInvoiceFailed(ctx, ev.Invoice)
	case EVENT_SUBSCRIPTION_UPDATED:
		applySubscriptionUpdated(ctx, ev.Subscription)
	case EVENT_SUBSCRIPTION_DELETED:
		applySubscriptionDeleted(ctx, ev.Subscription)
	case EVENT_UNKNOWN:
	}
}

// SubscriptionRefFromInvoice extracts the subscription reference from an
// invoice, checking the invoice parent first and falling back to the line
// items.
func SubscriptionRefFromInvoice(inv *stripe.Invoice) string {
	if inv == nil {
		return ""
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil && inv.Parent.SubscriptionDetails.Subscription != nil {
		return inv.Parent.SubscriptionDetails.Subscription.ID
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Parent != nil && line.Parent.SubscriptionItemDetails != nil && line.Parent.SubscriptionItemDetails.Subscription != "" {
				return line.Parent.SubscriptionItemDetails.Subscription
			}
		}
	}
	return ""
}

// MapProviderSubscriptionStatus translates the provider's subscription status
// vocabulary into the contract lifecycle. Statuses with no local meaning
// report ok=false and leave the contract unchanged.
func MapProviderSubscriptionStatus(s stripe.SubscriptionStatus) (types.TransactionStatus, bool) {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return types.TRANSACTION_ACTIVE, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return types.TRANSACTION_PAST_DUE, true
	case stripe.SubscriptionStatusCanceled:
		return types.TRANSACTION_CANCELLED, true
	default:
		return "", false
	}
}

func applyInvoicePaid(ctx context.Context, inv *stripe.Invoice) {
	subRef := SubscriptionRefFromInvoice(inv)
	if subRef == "" {
		log.Printf("[Reconcile] Invoice %s carries no subscription reference\n", inv.ID)
		return
	}
	contract, err := GetContractBySubscriptionID(subRef)
	if err != nil {
		log.Printf("[Reconcile] Error loading contract for subscription %s: %s\n", subRef, err.Error())
		return
	}
	if contract == nil {
		log.Printf("[Reconcile] No contract for subscription %s, skipping\n", subRef)
		return
	}

	var periodEnd *time.Time
	if inv.PeriodEnd > 0 {
		t := time.Unix(inv.PeriodEnd, 0).UTC()
		periodEnd = &t
	}
	if err := UpdateContractStatus(contract.ID, types.TRANSACTION_ACTIVE, periodEnd); err != nil {
		log.Printf("[Reconcile] Error activating contract %s: %s\n", contract.ID, err.Error())
		return
	}
	invalidateSubscriptionStatusCache(ctx, contract.Metadata.UserID, contract.Metadata.Scope, contract.AppID)

	if err := RecordFromStatusChange(contract, types.TRANSACTION_ACTIVE, inv.AmountPaid); err != nil {
		log.Printf("[Reconcile] Error recording ledger entry for contract %s: %s\n", contract.ID, err.Error())
	}
	if err := EmitRevenueInvoicePaid(contract, inv); err != nil {
		log.Printf("[Reconcile] Error emitting revenue event for invoice %s: %s\n", inv.ID, err.Error())
	}
}

func applyInvoiceFailed(ctx context.Context, inv *stripe.Invoice) {
	subRef := SubscriptionRefFromInvoice(inv)
	if subRef == "" {
		log.Printf("[Reconcile] Invoice %s carries no subscription reference\n", inv.ID)
		return
	}
	contract, err := GetContractBySubscriptionID(subRef)
	if err != nil {
		log.Printf("[Reconcile] Error loading contract for subscription %s: %s\n", subRef, err.Error())
		return
	}
	if contract == nil {
		log.Printf("[Reconcile] No contract for subscription %s, skipping\n", subRef)
		return
	}

	if err := UpdateContractStatus(contract.ID, types.TRANSACTION_PAST_DUE, nil); err != nil {
		log.Printf("[Reconcile] Error marking contract %s past due: %s\n", contract.ID, err.Error())
		return
	}
	invalidateSubscriptionStatusCache(ctx, contract.Metadata.UserID, contract.Metadata.Scope, contract.AppID)

	if err := RecordFailure(contract); err != nil {
		log.Printf("[Reconcile] Error recording failure entry for contract %s: %s\n", contract.ID, err.Error())
	}
}

func applySubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) {
	status, ok := MapProviderSubscriptionStatus(sub.Status)
	if !ok {
		log.Printf("[Reconcile] Subscription %s status %s has no local mapping, skipping\n", sub.ID, sub.Status)
		return
	}
	contract, err := GetContractBySubscriptionID(sub.ID)
	if err != nil {
		log.Printf("[Reconcile] Error loading contract for subscription %s: %s\n", sub.ID, err.Error())
		return
	}
	if contract == nil {
		log.Printf("[Reconcile] No contract for subscription %s, skipping\n", sub.ID)
		return
	}

	if err := UpdateContractStatus(contract.ID, status, periodEndFromSubscription(sub)); err != nil {
		log.Printf("[Reconcile] Error updating contract %s: %s\n", contract.ID, err.Error())
		return
	}
	invalidateSubscriptionStatusCache(ctx, contract.Metadata.UserID, contract.Metadata.Scope, contract.AppID)
}

func applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) {
	contract, err := GetContractBySubscriptionID(sub.ID)
	if err != nil {
		log.Printf("[Reconcile] Error loading contract for subscription %s: %s\n", sub.ID, err.Error())
		return
	}
	if contract == nil {
		log.Printf("[Reconcile] No contract for subscription %s, skipping\n", sub.ID)
		return
	}

	if err := UpdateContractStatus(contract.ID, types.TRANSACTION_CANCELLED, nil); err != nil {
		log.Printf("[Reconcile] Error cancelling contract %s: %s\n", contract.ID, err.Error())
		return
	}
	invalidateSubscriptionStatusCache(ctx, contract.Metadata.UserID, contract.Metadata.Scope, contract.AppID)
}
