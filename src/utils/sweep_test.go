package utils

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSweepOrphanContractsFlagsUnpaired(t *testing.T) {
	mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE type IN (.+) AND created_at < (.+) AND \(?NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(id, "platform_subscription_contract", 1500, "usd", "", nil, "incomplete", []byte(`{"user_id":"user-1","subscription_id":"sub_orphan","scope":"platform"}`), time.Now().Add(-2*time.Hour), time.Now()))

	orphans, err := SweepOrphanContracts(time.Hour)
	assert.Nil(t, err)
	assert.Len(t, orphans, 1)
	assert.Equal(t, "sub_orphan", orphans[0].Metadata.SubscriptionID)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestSweepOrphanContractsEmptyWhenPaired(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE type IN (.+) AND created_at < (.+) AND \(?NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows(transactionColumns()))

	orphans, err := SweepOrphanContracts(time.Hour)
	assert.Nil(t, err)
	assert.Len(t, orphans, 0)
	assert.Nil(t, mock.ExpectationsWereMet())
}
