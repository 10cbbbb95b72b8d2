package types

import "fmt"

// ValidationError means the caller input is malformed. Always surfaced,
// never retried internally.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ProviderError wraps a rejection from the payment provider. Code carries the
// provider's own error code when it supplied one.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider rejected call [%s]: %s", e.Code, e.Err.Error())
	}
	return fmt.Sprintf("provider rejected call: %s", e.Err.Error())
}
func (e *ProviderError) Unwrap() error { return e.Err }

// SetupError means a multi-step provider interaction partially succeeded.
// The provider may already hold side effects (e.g. a created subscription),
// so callers must not blindly retry.
type SetupError struct {
	Reason         string
	SubscriptionID string
}

func (e *SetupError) Error() string {
	if e.SubscriptionID != "" {
		return fmt.Sprintf("setup incomplete for subscription %s: %s", e.SubscriptionID, e.Reason)
	}
	return fmt.Sprintf("setup incomplete: %s", e.Reason)
}

// PriceCreateError means the idempotent price creation did not yield a usable
// price identifier.
type PriceCreateError struct {
	LookupKey string
	Err       error
}

func (e *PriceCreateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price creation failed for key [%s]: %s", e.LookupKey, e.Err.Error())
	}
	return fmt.Sprintf("price creation failed for key [%s]: empty price id", e.LookupKey)
}
func (e *PriceCreateError) Unwrap() error { return e.Err }
