package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"bre/src/lib"
	"bre/src/types"

	"github.com/gosimple/slug"
)

const lookupKeyNamespace = "bre"

var repeatedSeparators = regexp.MustCompile(`_+`)

func normalizeKeyPart(part string) string {
	s := slug.Make(strings.TrimSpace(part))
	return strings.ReplaceAll(s, "-", "_")
}

// BuildPriceLookupKey produces the deterministic provider-side dedup key for
// a price. Equal logical inputs always yield the same key: every part is
// lowercased, reduced to alphanumerics and repeated separators collapse to a
// single underscore.
func BuildPriceLookupKey(scope types.Scope, appID, planID, currency string, amount int64, interval string) string {
	app := appID
	if app == "" {
		app = "none"
	}
	parts := []string{
		lookupKeyNamespace,
		string(scope),
		app,
		planID,
		currency,
		fmt.Sprint(amount),
		interval,
	}
	for i, p := range parts {
		parts[i] = normalizeKeyPart(p)
	}
	key := strings.Join(parts, "_")
	key = repeatedSeparators.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// BuildMonetizationLookupKey extends the base key with the spec version and
// hash so that re-provisioning an unchanged spec is a no-op while any field
// change mints a new price instead of mutating one in place.
func BuildMonetizationLookupKey(appID, planID, currency string, amountCents int64, interval, specHash string, specVersion int) string {
	base := BuildPriceLookupKey(types.SCOPE_APP, appID, planID, currency, amountCents, interval)
	hash := specHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	key := fmt.Sprintf("%s_v%d_%s", base, specVersion, normalizeKeyPart(hash))
	return strings.Trim(repeatedSeparators.ReplaceAllString(key, "_"), "_")
}

// ResolvePrice returns the provider price for the given tuple, creating it at
// most once. The read-before-write check keeps the common path cheap; the
// lookup key doubling as the creation idempotency token covers the race where
// two callers pass the check together.
func ResolvePrice(ctx context.Context, scope types.Scope, appID, planID string, amount int64, currency, interval string) (string, error) {
	key := BuildPriceLookupKey(scope, appID, planID, currency, amount, interval)
	svc := lib.GetStripeService()
	price, err := svc.FindActivePriceByLookupKey(ctx, key)
	if err != nil {
		return "", lib.ProviderErrorFrom(err)
	}
	if price != nil {
		return price.ID, nil
	}

	productName := fmt.Sprintf("%s (%s)", planID, scope)
	created, err := svc.CreateRecurringPrice(ctx, productName, currency, amount, interval, key, map[string]string{
		"scope":   string(scope),
		"app_id":  appID,
		"plan_id": planID,
	})
	if err != nil {
		return "", &types.PriceCreateError{LookupKey: key, Err: err}
	}
	if created == nil || created.ID == "" {
		return "", &types.PriceCreateError{LookupKey: key}
	}
	return created.ID, nil
}

type MonetizationPriceResult struct {
	Succeeded bool   `json:"succeeded"`
	PriceID   string `json:"price_id"`
	ProductID string `json:"product_id"`
	LookupKey string `json:"lookup_key"`
}

// ProvisionMonetizationPrice applies the same idempotency pattern for
// app-level monetization catalog entries. Prices are immutable once created.
func ProvisionMonetizationPrice(ctx context.Context, params *types.ProvisionPriceRequestBody) (*MonetizationPriceResult, error) {
	if params.AmountCents <= 0 {
		return nil, &types.ValidationError{Reason: "amount_cents must be positive"}
	}
	key := BuildMonetizationLookupKey(params.AppID, params.PlanID, params.Currency, params.AmountCents, params.Interval, params.SpecHash, params.SpecVersion)
	svc := lib.GetStripeService()
	price, err := svc.FindActivePriceByLookupKey(ctx, key)
	if err != nil {
		return nil, lib.ProviderErrorFrom(err)
	}
	if price != nil {
		result := &MonetizationPriceResult{Succeeded: true, PriceID: price.ID, LookupKey: key}
		if price.Product != nil {
			result.ProductID = price.Product.ID
		}
		return result, nil
	}

	metadata := map[string]string{
		"app_id":       params.AppID,
		"plan_id":      params.PlanID,
		"spec_hash":    params.SpecHash,
		"spec_version": fmt.Sprint(params.SpecVersion),
	}
	if params.ProposalID != "" {
		metadata["proposal_id"] = params.ProposalID
	}
	created, err := svc.CreateRecurringPrice(ctx, params.PlanName, params.Currency, params.AmountCents, params.Interval, key, metadata)
	if err != nil {
		return nil, &types.PriceCreateError{LookupKey: key, Err: err}
	}
	if created == nil || created.ID == "" {
		return nil, &types.PriceCreateError{LookupKey: key}
	}
	result := &MonetizationPriceResult{Succeeded: true, PriceID: created.ID, LookupKey: key}
	if created.Product != nil {
		result.ProductID = created.Product.ID
	}
	return result, nil
}
