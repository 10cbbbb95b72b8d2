package utils

import (
	"errors"
	"log"
	"time"

	"bre/src/db"
	"bre/src/models"
	"bre/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func CreateTransaction(txn *models.Transaction) error {
	tx := db.GetDb()
	if err := tx.Create(txn).Error; err != nil {
		log.Printf("Error creating transaction: %s\n", err.Error())
		return err
	}
	return nil
}

func GetTransactionByID(id uuid.UUID) (*models.Transaction, error) {
	tx := db.GetDb()
	var txn models.Transaction
	err := tx.Where(&models.Transaction{ID: id}).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetLatestTransactionByType returns the caller's most recent transaction of
// the given type, or nil when none exists. The appID filter only applies for
// app-scoped lookups.
func GetLatestTransactionByType(txnType types.TransactionType, userID, appID string) (*models.Transaction, error) {
	tx := db.GetDb()
	q := tx.
		Model(&models.Transaction{}).
		Where("type = ?", txnType).
		Where("metadata ->> 'user_id' = ?", userID)
	if appID != "" {
		q = q.Where("app_id = ?", appID)
	}
	var txn models.Transaction
	err := q.Order("created_at desc").First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetContractBySubscriptionID maps a provider subscription reference back to
// the local contract row. Payment rows share the reference, so the type
// filter keeps them out.
func GetContractBySubscriptionID(subscriptionID string) (*models.Transaction, error) {
	tx := db.GetDb()
	var txn models.Transaction
	err := tx.
		Where("type IN ?", []types.TransactionType{types.TXN_PLATFORM_SUBSCRIPTION_CONTRACT, types.TXN_APP_SUBSCRIPTION_CONTRACT}).
		Where("metadata ->> 'subscription_id' = ?", subscriptionID).
		Order("created_at desc").
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func GetTransactionByPaymentIntentID(paymentIntentID string) (*models.Transaction, error) {
	tx := db.GetDb()
	var txn models.Transaction
	err := tx.
		Where("payment_intent_id = ?", paymentIntentID).
		Order("created_at desc").
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateContractStatus moves a contract to the given status and, when the
// provider reported one, records the new paid-through timestamp. Amount,
// currency and identity fields are never touched after insert. Re-applying
// the same status is a harmless overwrite.
func UpdateContractStatus(id uuid.UUID, status types.TransactionStatus, periodEnd *time.Time) error {
	tx := db.GetDb()
	return tx.Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.Where(&models.Transaction{ID: id}).First(&txn).Error; err != nil {
			return err
		}
		metadata := txn.Metadata
		if periodEnd != nil {
			metadata.CurrentPeriodEnd = periodEnd
		}
		return tx.
			Model(&txn).
			Updates(map[string]any{
				"status":   status,
				"metadata": metadata,
			}).Error
	})
}
