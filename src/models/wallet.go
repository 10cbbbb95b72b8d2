package models

import (
	"bre/src/types"

	"github.com/google/uuid"
)

// Wallet groups ledger entries per payer and currency.
type Wallet struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	UserID   string `gorm:"index:idx_wallet_owner,unique" json:"user_id"`
	Currency string `gorm:"index:idx_wallet_owner,unique" json:"currency"`

	types.Timestamps
}
