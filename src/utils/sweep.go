package utils

import (
	"log"
	"time"

	"bre/src/db"
	"bre/src/models"
	"bre/src/types"
)

// SweepOrphanContracts reports contract rows that never got their paired
// payment row. The pair is written as two independent inserts at checkout, so
// a crash in between leaves the contract alone. Flagged rows are logged for
// operator follow-up, not mutated.
func SweepOrphanContracts(olderThan time.Duration) ([]models.Transaction, error) {
	conn := db.GetDb()
	cutoff := time.Now().Add(-olderThan)

	contractTypes := []types.TransactionType{types.TXN_PLATFORM_SUBSCRIPTION_CONTRACT, types.TXN_APP_SUBSCRIPTION_CONTRACT}
	paymentTypes := []types.TransactionType{types.TXN_PLATFORM_SUBSCRIPTION_PAYMENT, types.TXN_APP_SUBSCRIPTION_PAYMENT}

	var orphans []models.Transaction
	err := conn.
		Model(&models.Transaction{}).
		Where("type IN ?", contractTypes).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM transactions p WHERE p.type IN (?) AND p.metadata ->> 'subscription_id' = transactions.metadata ->> 'subscription_id')", paymentTypes).
		Find(&orphans).Error
	if err != nil {
		log.Printf("[Sweep] Error scanning for orphan contracts: %s\n", err.Error())
		return nil, err
	}
	for _, orphan := range orphans {
		log.Printf("[Sweep] Contract %s (subscription %s) has no paired payment row\n", orphan.ID, orphan.Metadata.SubscriptionID)
	}
	return orphans, nil
}
