package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/service"
)

const signatureHeader = "X-Signature"

// maxWebhookBody caps the signed payload read into memory.
const maxWebhookBody = 64 << 10

// PaymentWebhook verifies the HMAC over the raw body before decoding it.
func PaymentWebhook(payments *service.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/webhook"
		defer handlePanic(c, route)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
		body, err := c.GetRawData()
		if err != nil {
			respondError(c, route, apperr.InvalidState("invalid request body"))
			return
		}
		if err := payments.Verify(body, c.GetHeader(signatureHeader)); err != nil {
			respondError(c, route, err)
			return
		}

		var event service.PaymentEvent
		if err := json.Unmarshal(body, &event); err != nil {
			respondError(c, route, apperr.InvalidState("invalid request body"))
			return
		}
		if err := binding.Validator.ValidateStruct(&event); err != nil {
			respondValidationError(c, route, err)
			return
		}

		order, err := payments.Settle(c.Request.Context(), event)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"received":      true,
			"orderId":       order.ID.Hex(),
			"paymentStatus": order.PaymentStatus,
		})
	}
}

type createIntentRequest struct {
	OrderID string `json:"orderId" binding:"required,objectid"`
}

// CreatePaymentIntent starts a card payment for one of the caller's orders.
// The amount always comes from the stored order total.
func CreatePaymentIntent(payments *service.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/create-payment-intent"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		var req createIntentRequest
		if !bindJSON(c, route, &req) {
			return
		}
		orderID, _ := primitive.ObjectIDFromHex(req.OrderID)

		intent, err := payments.CreateIntent(c.Request.Context(), identity, orderID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"clientSecret":    intent.ClientSecret,
			"paymentIntentId": intent.ID,
		})
	}
}

func GetPaymentStatus(payments *service.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /payments/status/:paymentIntentId"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		status, err := payments.IntentStatus(c.Request.Context(), identity, c.Param("paymentIntentId"))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
