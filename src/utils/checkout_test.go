package utils

import (
	"context"
	"testing"
	"time"

	"bre/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStartCheckoutAlreadyActiveShortCircuit(t *testing.T) {
	mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE type = (.+) AND metadata ->> 'user_id' = (.+)`).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(id, "platform_subscription_contract", 1500, "usd", "", nil, "active", []byte(`{"user_id":"user-1","subscription_id":"sub_1","scope":"platform","plan_id":"gold"}`), time.Now(), time.Now()))

	result, err := StartCheckout(context.Background(), &CheckoutInput{
		UserID: "user-1",
		Scope:  types.SCOPE_PLATFORM,
		Mode:   types.MODE_SUBSCRIPTION,
		PlanID: "gold",
		Amount: 1500,
	})

	assert.Nil(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, types.TRANSACTION_ALREADY_ACTIVE, result.Status)
	assert.Equal(t, id.String(), result.SessionID)
	assert.Empty(t, result.ClientSecret)
	// The contract lookup is the only statement; nothing past the
	// short-circuit runs.
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestGetSubscriptionStatusReportsPeriodEnd(t *testing.T) {
	mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE type = (.+) AND metadata ->> 'user_id' = (.+)`).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(id, "platform_subscription_contract", 1500, "usd", "", nil, "active", []byte(`{"user_id":"user-1","subscription_id":"sub_1","scope":"platform","plan_id":"gold","current_period_end":"2026-09-01T00:00:00Z"}`), time.Now(), time.Now()))

	result, err := GetSubscriptionStatus(context.Background(), "user-1", types.SCOPE_PLATFORM, "")
	assert.Nil(t, err)
	assert.True(t, result.IsActive)
	assert.Equal(t, "gold", result.PlanID)
	assert.Equal(t, "sub_1", result.SubscriptionID)
	assert.NotNil(t, result.PeriodEnd)
	assert.Equal(t, result.ExpiresAt, result.PeriodEnd)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestGetSubscriptionStatusRequiresAppID(t *testing.T) {
	_, err := GetSubscriptionStatus(context.Background(), "user-1", types.SCOPE_APP, "")
	assert.NotNil(t, err)
	var validation *types.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestPaymentIdempotencyKeyDeterministic(t *testing.T) {
	a := paymentIdempotencyKey(&CheckoutInput{UserID: "user-1", Scope: types.SCOPE_PLATFORM, PlanID: "gold", Amount: 500, Currency: "usd"})
	b := paymentIdempotencyKey(&CheckoutInput{UserID: "user-1", Scope: types.SCOPE_PLATFORM, PlanID: "gold", Amount: 500, Currency: "usd"})
	assert.Equal(t, a, b)

	c := paymentIdempotencyKey(&CheckoutInput{UserID: "user-1", Scope: types.SCOPE_PLATFORM, PlanID: "gold", Amount: 501, Currency: "usd"})
	assert.NotEqual(t, a, c)

	d := paymentIdempotencyKey(&CheckoutInput{UserID: "user-2", Scope: types.SCOPE_PLATFORM, PlanID: "gold", Amount: 500, Currency: "usd"})
	assert.NotEqual(t, a, d)
}
