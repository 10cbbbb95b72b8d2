package models

import (
	"bre/src/types"

	"github.com/google/uuid"
)

type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	Type            types.TransactionType `gorm:"index" json:"type"`
	Amount          int64                 `json:"amount"`
	Currency        string                `json:"currency"`
	AppID           string                `gorm:"index" json:"app_id,omitempty"`
	PaymentIntentId *string               `gorm:"index" json:"payment_intent_id,omitempty"`
	Status          types.TransactionStatus   `gorm:"default:pending" json:"status"`
	Metadata        types.TransactionMetadata `gorm:"type:jsonb" json:"metadata"`

	types.Timestamps
}
