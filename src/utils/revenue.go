package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"bre/src/config"
	"bre/src/lib"
	"bre/src/models"
	"bre/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

const RevenueEventsTopic = "RevenueEvents"

type RevenueEventSource struct {
	Producer      string `json:"producer"`
	Service       string `json:"service"`
	App           string `json:"app,omitempty"`
	Environment   string `json:"environment"`
	CorrelationID string `json:"correlation_id"`
}

type RevenueEventActor struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type RevenueEventCorrelation struct {
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
}

type RevenueEventPayload struct {
	RevenueKind             string `json:"revenue_kind"`
	GrossAmountCents        int64  `json:"gross_amount_cents"`
	Currency                string `json:"currency"`
	Provider                string `json:"provider"`
	ProviderInvoiceID       string `json:"provider_invoice_id,omitempty"`
	ProviderSubscriptionID  string `json:"provider_subscription_id,omitempty"`
	ProviderPaymentIntentID string `json:"provider_payment_intent_id,omitempty"`
	Scope                   string `json:"scope"`
	PlanID                  string `json:"plan_id,omitempty"`
}

type RevenueEvent struct {
	EventID     string                  `json:"event_id"`
	EventType   string                  `json:"event_type"`
	EmittedAt   time.Time               `json:"emitted_at"`
	Source      RevenueEventSource      `json:"source"`
	Actor       RevenueEventActor       `json:"actor"`
	Correlation RevenueEventCorrelation `json:"correlation"`
	Payload     RevenueEventPayload     `json:"payload"`
}

// RevenueEventID derives a deterministic identifier so redelivered webhooks
// emit the same event id and downstream consumers can dedup.
func RevenueEventID(invoiceID, subscriptionRef string) string {
	if invoiceID != "" {
		return fmt.Sprintf("rev_%s", invoiceID)
	}
	sum := sha256.Sum256([]byte(subscriptionRef))
	return fmt.Sprintf("rev_%s", hex.EncodeToString(sum[:16]))
}

func buildRevenueInvoicePaid(txn *models.Transaction, inv *stripe.Invoice) *RevenueEvent {
	subRef := SubscriptionRefFromInvoice(inv)
	payload := RevenueEventPayload{
		RevenueKind:            "subscription",
		GrossAmountCents:       inv.AmountPaid,
		Currency:               string(inv.Currency),
		Provider:               "stripe",
		ProviderInvoiceID:      inv.ID,
		ProviderSubscriptionID: subRef,
		Scope:                  string(txn.Metadata.Scope),
		PlanID:                 txn.Metadata.PlanID,
	}
	if pid := paymentIntentIDFromInvoice(inv); pid != nil {
		payload.ProviderPaymentIntentID = *pid
	}
	return &RevenueEvent{
		EventID:   RevenueEventID(inv.ID, subRef),
		EventType: "RevenueInvoicePaid",
		EmittedAt: time.Now().UTC(),
		Source: RevenueEventSource{
			Producer:      "billing-engine",
			Service:       "bre-api",
			App:           txn.AppID,
			Environment:   config.GetAPIEnv(),
			CorrelationID: uuid.NewString(),
		},
		Actor: RevenueEventActor{Type: "system"},
		Correlation: RevenueEventCorrelation{
			UserID:        txn.Metadata.UserID,
			TransactionID: txn.ID.String(),
		},
		Payload: payload,
	}
}

// EmitRevenueInvoicePaid publishes a revenue-recognition event for a paid
// invoice. Deployed environments go through SQS, local development through
// the Kafka broker. Emission is best-effort; callers log and move on.
func EmitRevenueInvoicePaid(txn *models.Transaction, inv *stripe.Invoice) error {
	event := buildRevenueInvoicePaid(txn, inv)
	apiEnv := config.GetAPIEnv()
	if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
		return sendRevenueEventSQS(event)
	}
	return lib.KafkaProduceMessage("bre-revenue", RevenueEventsTopic, event)
}

func sendRevenueEventSQS(event *RevenueEvent) error {
	client := lib.AWSGetSQSClient()
	if client == nil {
		return fmt.Errorf("sqs client unavailable")
	}
	ctx := context.Background()
	queue, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(RevenueEventsTopic),
	})
	if err != nil {
		log.Printf("Error resolving queue %s: %s\n", RevenueEventsTopic, err.Error())
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    queue.QueueUrl,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		log.Printf("Error sending revenue event %s: %s\n", event.EventID, err.Error())
		return err
	}
	return nil
}
