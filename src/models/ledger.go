package models

import (
	"time"

	"bre/src/types"

	"github.com/google/uuid"
)

// LedgerEntry is append-only. There is deliberately no update or delete path
// and no UpdatedAt/DeletedAt column: once written a row never changes.
type LedgerEntry struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	WalletID        uuid.UUID             `gorm:"type:uuid;index" json:"wallet_id"`
	TransactionID   uuid.UUID             `gorm:"type:uuid;index" json:"transaction_id"`
	PaymentIntentId *string               `json:"payment_intent_id,omitempty"`
	Type            types.LedgerEntryType `json:"type"`
	Source          types.LedgerSource    `json:"source"`
	Reason          string                `json:"reason"`
	// Always non-negative. Direction is carried by Type.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at"`
}
