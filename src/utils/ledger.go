package utils

import (
	"log"

	"bre/src/db"
	"bre/src/models"
	"bre/src/types"

	"gorm.io/gorm"
)

func getOrCreateWallet(tx *gorm.DB, userID, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.
		Where(&models.Wallet{UserID: userID, Currency: currency}).
		FirstOrCreate(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// RecordFromStatusChange appends a ledger entry for a reconciled status
// change. A positive delta credits the payer's wallet, a negative one debits
// it. Entry amounts are stored as absolute values with direction on the type.
func RecordFromStatusChange(txn *models.Transaction, newStatus types.TransactionStatus, amountDelta int64) error {
	conn := db.GetDb()
	return conn.Transaction(func(tx *gorm.DB) error {
		wallet, err := getOrCreateWallet(tx, txn.Metadata.UserID, txn.Currency)
		if err != nil {
			return err
		}
		entryType := types.LEDGER_CREDIT
		amount := amountDelta
		if amountDelta < 0 {
			entryType = types.LEDGER_DEBIT
			amount = -amountDelta
		}
		entry := models.LedgerEntry{
			WalletID:        wallet.ID,
			TransactionID:   txn.ID,
			PaymentIntentId: txn.PaymentIntentId,
			Type:            entryType,
			Source:          types.LEDGER_SOURCE_SYSTEM,
			Reason:          string(newStatus),
			Amount:          amount,
			Currency:        txn.Currency,
		}
		if err := tx.Create(&entry).Error; err != nil {
			log.Printf("Error recording ledger entry for transaction %s: %s\n", txn.ID, err.Error())
			return err
		}
		return nil
	})
}

// RecordFailure appends an Error entry for a failed provider payment. The
// transaction's own amount is left untouched; the entry is an audit mark.
func RecordFailure(txn *models.Transaction) error {
	conn := db.GetDb()
	return conn.Transaction(func(tx *gorm.DB) error {
		wallet, err := getOrCreateWallet(tx, txn.Metadata.UserID, txn.Currency)
		if err != nil {
			return err
		}
		entry := models.LedgerEntry{
			WalletID:        wallet.ID,
			TransactionID:   txn.ID,
			PaymentIntentId: txn.PaymentIntentId,
			Type:            types.LEDGER_ERROR,
			Source:          types.LEDGER_SOURCE_PROCESSOR,
			Reason:          "PaymentFailed",
			Amount:          txn.Amount,
			Currency:        txn.Currency,
		}
		if err := tx.Create(&entry).Error; err != nil {
			log.Printf("Error recording failure entry for transaction %s: %s\n", txn.ID, err.Error())
			return err
		}
		return nil
	})
}
