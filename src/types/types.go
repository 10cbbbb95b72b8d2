package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Env string

const (
	Local      Env = "local"
	Test       Env = "test"
	Production Env = "production"
)

type Scope string

const (
	SCOPE_PLATFORM Scope = "platform"
	SCOPE_APP      Scope = "app"
)

type CheckoutMode string

const (
	MODE_PAYMENT      CheckoutMode = "payment"
	MODE_SUBSCRIPTION CheckoutMode = "subscription"
)

type TransactionType string

const (
	TXN_PLATFORM_PAYMENT               TransactionType = "platform_payment"
	TXN_APP_PAYMENT                    TransactionType = "app_payment"
	TXN_PLATFORM_SUBSCRIPTION_CONTRACT TransactionType = "platform_subscription_contract"
	TXN_APP_SUBSCRIPTION_CONTRACT      TransactionType = "app_subscription_contract"
	TXN_PLATFORM_SUBSCRIPTION_PAYMENT  TransactionType = "platform_subscription_payment"
	TXN_APP_SUBSCRIPTION_PAYMENT       TransactionType = "app_subscription_payment"
)

func OneTimeTypeForScope(scope Scope) TransactionType {
	if scope == SCOPE_APP {
		return TXN_APP_PAYMENT
	}
	return TXN_PLATFORM_PAYMENT
}

func ContractTypeForScope(scope Scope) TransactionType {
	if scope == SCOPE_APP {
		return TXN_APP_SUBSCRIPTION_CONTRACT
	}
	return TXN_PLATFORM_SUBSCRIPTION_CONTRACT
}

func SubscriptionPaymentTypeForScope(scope Scope) TransactionType {
	if scope == SCOPE_APP {
		return TXN_APP_SUBSCRIPTION_PAYMENT
	}
	return TXN_PLATFORM_SUBSCRIPTION_PAYMENT
}

type TransactionStatus string

const (
	TRANSACTION_INCOMPLETE TransactionStatus = "incomplete"
	TRANSACTION_PENDING    TransactionStatus = "pending"
	TRANSACTION_ACTIVE     TransactionStatus = "active"
	TRANSACTION_PAST_DUE   TransactionStatus = "past_due"
	TRANSACTION_CANCELLED  TransactionStatus = "cancelled"
	TRANSACTION_FAILED     TransactionStatus = "failed"
	// Checkout short-circuit only. Never persisted to a transaction row.
	TRANSACTION_ALREADY_ACTIVE TransactionStatus = "already_active"
)

type InvestorShare struct {
	InvestorID string  `json:"investor_id"`
	Share      float64 `json:"share"`
}

// TransactionMetadata is stored as a JSONB column so the store can filter on
// individual fields with `metadata ->> '...'` expressions.
type TransactionMetadata struct {
	UserID           string          `json:"user_id,omitempty"`
	AppCreatorID     string          `json:"app_creator_id,omitempty"`
	SubscriptionID   string          `json:"subscription_id,omitempty"`
	Scope            Scope           `json:"scope,omitempty"`
	PlanID           string          `json:"plan_id,omitempty"`
	CustomerID       string          `json:"customer_id,omitempty"`
	CurrentPeriodEnd *time.Time      `json:"current_period_end,omitempty"`
	InvestorShares   []InvestorShare `json:"investor_shares,omitempty"`
}

func (a TransactionMetadata) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *TransactionMetadata) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type LedgerEntryType string

const (
	LEDGER_CREDIT LedgerEntryType = "Credit"
	LEDGER_DEBIT  LedgerEntryType = "Debit"
	LEDGER_ERROR  LedgerEntryType = "Error"
)

type LedgerSource string

const (
	LEDGER_SOURCE_SYSTEM    LedgerSource = "System"
	LEDGER_SOURCE_PROCESSOR LedgerSource = "PaymentProcessor"
)

type CreateCheckoutRequestBody struct {
	Scope    string `json:"scope" binding:"required,oneof=platform app"`
	Mode     string `json:"mode" binding:"required,oneof=payment subscription"`
	AppID    string `json:"app_id,omitempty"`
	PlanID   string `json:"plan_id" binding:"required"`
	Amount   int64  `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty" binding:"omitempty,currencycode"`
}

type CancelSubscriptionRequestBody struct {
	Scope string `json:"scope" binding:"required,oneof=platform app"`
	AppID string `json:"app_id,omitempty"`
}

type SubscriptionStatusQuery struct {
	Scope string `form:"scope" binding:"required,oneof=platform app"`
	AppID string `form:"app_id,omitempty"`
}

type ProvisionPriceRequestBody struct {
	AppID       string `json:"app_id" binding:"required"`
	PlanID      string `json:"plan_id" binding:"required"`
	PlanName    string `json:"plan_name" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,currencycode"`
	Interval    string `json:"interval" binding:"required,oneof=day week month year"`
	SpecHash    string `json:"spec_hash" binding:"required"`
	SpecVersion int    `json:"spec_version" binding:"required,gte=1"`
	ProposalID  string `json:"proposal_id,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
