package main

import (
	"errors"
	"log"
	"net/http"

	"bre/src/types"
	"bre/src/utils"

	"github.com/gin-gonic/gin"
)

// errorStatus maps the engine's error taxonomy onto HTTP status codes.
// SetupError stays 500: the provider may hold partial state, so the caller
// must not blindly retry.
func errorStatus(err error) int {
	var validation *types.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	var provider *types.ProviderError
	if errors.As(err, &provider) {
		return http.StatusBadGateway
	}
	var priceCreate *types.PriceCreateError
	if errors.As(err, &priceCreate) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func billingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/billing/checkout", func(ctx *gin.Context) {
			var body types.CreateCheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetString("id")
			result, err := utils.StartCheckout(ctx, &utils.CheckoutInput{
				UserID:   userId,
				Scope:    types.Scope(body.Scope),
				Mode:     types.CheckoutMode(body.Mode),
				AppID:    body.AppID,
				PlanID:   body.PlanID,
				Amount:   body.Amount,
				Currency: body.Currency,
			})
			if err != nil {
				log.Printf("Error on checkout: %s\n", err.Error())
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, result)
		}).
		GET("/billing/subscription", func(ctx *gin.Context) {
			var query types.SubscriptionStatusQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetString("id")
			result, err := utils.GetSubscriptionStatus(ctx, userId, types.Scope(query.Scope), query.AppID)
			if err != nil {
				log.Printf("Error retrieving subscription status: %s\n", err.Error())
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, result)
		}).
		POST("/billing/cancel", func(ctx *gin.Context) {
			var body types.CancelSubscriptionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetString("id")
			if err := utils.CancelSubscription(ctx, userId, types.Scope(body.Scope), body.AppID); err != nil {
				log.Printf("Error cancelling subscription: %s\n", err.Error())
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/billing/monetization/prices", func(ctx *gin.Context) {
			var body types.ProvisionPriceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			result, err := utils.ProvisionMonetizationPrice(ctx, &body)
			if err != nil {
				log.Printf("Error provisioning price: %s\n", err.Error())
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, result)
		})
	return g
}
