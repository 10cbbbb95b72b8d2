package main

import (
	"io"
	"log"
	"net/http"

	"bre/src/lib"
	"bre/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeWebhookRoute receives provider webhooks. Signature failures are the
// only rejection path; business-logic misses (unknown event type, missing
// contract) are acknowledged so the provider does not redeliver.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := lib.GetStripeService().WebhookSecret()
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)

		parsed, err := utils.ParseProviderEvent(event)
		if err != nil {
			log.Printf("[Stripe] Error parsing %s payload: %s\n", event.Type, err.Error())
			ctx.Status(http.StatusNoContent)
			return
		}
		utils.ProcessProviderEvent(parsed)
		ctx.Status(http.StatusNoContent)
	})
	return apiv1
}
