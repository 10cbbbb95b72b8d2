package utils

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bre/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func makeEvent(eventType string, payload string) stripe.Event {
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestParseProviderEventKinds(t *testing.T) {
	cases := []struct {
		eventType string
		payload   string
		kind      ProviderEventKind
	}{
		{"invoice.payment_succeeded", `{"id":"in_1"}`, EVENT_INVOICE_PAYMENT_SUCCEEDED},
		{"invoice.payment_failed", `{"id":"in_2"}`, EVENT_INVOICE_PAYMENT_FAILED},
		{"customer.subscription.updated", `{"id":"sub_1","status":"active"}`, EVENT_SUBSCRIPTION_UPDATED},
		{"customer.subscription.deleted", `{"id":"sub_2"}`, EVENT_SUBSCRIPTION_DELETED},
		{"customer.created", `{"id":"cus_1"}`, EVENT_UNKNOWN},
		{"charge.refunded", `{"id":"ch_1"}`, EVENT_UNKNOWN},
	}
	for _, tc := range cases {
		parsed, err := ParseProviderEvent(makeEvent(tc.eventType, tc.payload))
		assert.Nil(t, err, tc.eventType)
		assert.Equal(t, tc.kind, parsed.Kind, tc.eventType)
	}
}

func TestParseProviderEventCarriesPayload(t *testing.T) {
	parsed, err := ParseProviderEvent(makeEvent("invoice.payment_succeeded", `{"id":"in_1","amount_paid":1500}`))
	assert.Nil(t, err)
	assert.NotNil(t, parsed.Invoice)
	assert.Equal(t, "in_1", parsed.Invoice.ID)
	assert.Equal(t, int64(1500), parsed.Invoice.AmountPaid)

	parsed, err = ParseProviderEvent(makeEvent("customer.subscription.deleted", `{"id":"sub_2"}`))
	assert.Nil(t, err)
	assert.NotNil(t, parsed.Subscription)
	assert.Equal(t, "sub_2", parsed.Subscription.ID)
}

func TestMapProviderSubscriptionStatus(t *testing.T) {
	cases := []struct {
		provider stripe.SubscriptionStatus
		status   types.TransactionStatus
		ok       bool
	}{
		{stripe.SubscriptionStatusActive, types.TRANSACTION_ACTIVE, true},
		{stripe.SubscriptionStatusTrialing, types.TRANSACTION_ACTIVE, true},
		{stripe.SubscriptionStatusPastDue, types.TRANSACTION_PAST_DUE, true},
		{stripe.SubscriptionStatusUnpaid, types.TRANSACTION_PAST_DUE, true},
		{stripe.SubscriptionStatusCanceled, types.TRANSACTION_CANCELLED, true},
		{stripe.SubscriptionStatusIncomplete, "", false},
		{stripe.SubscriptionStatusPaused, "", false},
	}
	for _, tc := range cases {
		status, ok := MapProviderSubscriptionStatus(tc.provider)
		assert.Equal(t, tc.ok, ok, string(tc.provider))
		assert.Equal(t, tc.status, status, string(tc.provider))
	}
}

func TestMapProviderSubscriptionStatusIdempotent(t *testing.T) {
	first, ok := MapProviderSubscriptionStatus(stripe.SubscriptionStatusActive)
	assert.True(t, ok)
	second, ok := MapProviderSubscriptionStatus(stripe.SubscriptionStatusActive)
	assert.True(t, ok)
	assert.Equal(t, first, second)
}

func TestSubscriptionRefFromInvoiceParent(t *testing.T) {
	inv := &stripe.Invoice{
		Parent: &stripe.InvoiceParent{
			SubscriptionDetails: &stripe.InvoiceParentSubscriptionDetails{
				Subscription: &stripe.Subscription{ID: "sub_parent"},
			},
		},
	}
	assert.Equal(t, "sub_parent", SubscriptionRefFromInvoice(inv))
}

func TestSubscriptionRefFromInvoiceLines(t *testing.T) {
	inv := &stripe.Invoice{
		Lines: &stripe.InvoiceLineItemList{
			Data: []*stripe.InvoiceLineItem{
				{},
				{
					Parent: &stripe.InvoiceLineItemParent{
						SubscriptionItemDetails: &stripe.InvoiceLineItemParentSubscriptionItemDetails{
							Subscription: "sub_line",
						},
					},
				},
			},
		},
	}
	assert.Equal(t, "sub_line", SubscriptionRefFromInvoice(inv))
}

func TestSubscriptionRefFromInvoiceMissing(t *testing.T) {
	assert.Equal(t, "", SubscriptionRefFromInvoice(&stripe.Invoice{ID: "in_1"}))
	assert.Equal(t, "", SubscriptionRefFromInvoice(nil))
}

func contractRowWithStatus(contractID uuid.UUID, status, metadata string) *sqlmock.Rows {
	return sqlmock.NewRows(transactionColumns()).
		AddRow(contractID, "platform_subscription_contract", 1500, "usd", "", nil, status, []byte(metadata), time.Now(), time.Now())
}

func expectInvoicePaidApplication(mock sqlmock.Sqlmock, contractID, walletID uuid.UUID, status, metadata string) {
	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE type IN (.+) AND metadata ->> 'subscription_id' = (.+)`).
		WillReturnRows(contractRowWithStatus(contractID, status, metadata))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE "transactions"."id" = (.+)`).
		WillReturnRows(contractRowWithStatus(contractID, status, metadata))
	mock.ExpectExec(`UPDATE "transactions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "wallets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "currency", "created_at", "updated_at"}).
			AddRow(walletID, "user-1", "usd", time.Now(), time.Now()))
	mock.ExpectQuery(`INSERT INTO "ledger_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()
}

func TestApplyInvoicePaidRedeliveryConverges(t *testing.T) {
	mock := newMockDB(t)
	contractID := uuid.New()
	walletID := uuid.New()

	inv := &stripe.Invoice{
		ID:         "in_1",
		AmountPaid: 1500,
		Currency:   stripe.CurrencyUSD,
		PeriodEnd:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Unix(),
		Parent: &stripe.InvoiceParent{
			SubscriptionDetails: &stripe.InvoiceParentSubscriptionDetails{
				Subscription: &stripe.Subscription{ID: "sub_1"},
			},
		},
	}

	expectInvoicePaidApplication(mock, contractID, walletID, "incomplete",
		`{"user_id":"user-1","subscription_id":"sub_1","scope":"platform","plan_id":"gold"}`)
	applyInvoicePaid(context.Background(), inv)

	// Redelivery finds the contract already active with the period end in
	// place and overwrites with the same values.
	expectInvoicePaidApplication(mock, contractID, walletID, "active",
		`{"user_id":"user-1","subscription_id":"sub_1","scope":"platform","plan_id":"gold","current_period_end":"2026-09-01T00:00:00Z"}`)
	applyInvoicePaid(context.Background(), inv)

	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestApplyInvoicePaidMissingContractIsNoOp(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "transactions" WHERE type IN (.+) AND metadata ->> 'subscription_id' = (.+)`).
		WillReturnRows(sqlmock.NewRows(transactionColumns()))

	inv := &stripe.Invoice{
		ID: "in_2",
		Parent: &stripe.InvoiceParent{
			SubscriptionDetails: &stripe.InvoiceParentSubscriptionDetails{
				Subscription: &stripe.Subscription{ID: "sub_untracked"},
			},
		},
	}
	applyInvoicePaid(context.Background(), inv)

	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestRevenueEventID(t *testing.T) {
	assert.Equal(t, "rev_in_123", RevenueEventID("in_123", "sub_1"))

	fallback := RevenueEventID("", "sub_1")
	assert.Contains(t, fallback, "rev_")
	assert.Equal(t, fallback, RevenueEventID("", "sub_1"))
	assert.NotEqual(t, fallback, RevenueEventID("", "sub_2"))
}
