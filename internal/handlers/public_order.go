package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grocery/internal/models"
	"grocery/internal/service"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required,oneof=COD Card UPI"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

const idempotencyHeader = "Idempotency-Key"

/* =========================
   CREATE ORDER
========================= */

// CreateOrder checks out the caller's cart. A replay of an earlier
// Idempotency-Key returns that order with 200 instead of 201.
func CreateOrder(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		var req createOrderRequest
		if !bindJSON(c, route, &req) {
			return
		}

		order, created, err := orders.PlaceOrder(c.Request.Context(), identity, service.PlaceOrderInput{
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
			IdempotencyKey:  strings.TrimSpace(c.GetHeader(idempotencyHeader)),
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		c.JSON(status, order)
	}
}

/* =========================
   READ ORDERS
========================= */

func GetMyOrders(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		list, err := orders.ListMine(c.Request.Context(), identity)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetOrder(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		order, err := orders.Get(c.Request.Context(), identity, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

/* =========================
   LIFECYCLE
========================= */

func CancelOrder(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/cancel"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		order, err := orders.Cancel(c.Request.Context(), identity, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func UpdateOrderStatus(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/status"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		var req updateOrderStatusRequest
		if !bindJSON(c, route, &req) {
			return
		}

		order, err := orders.UpdateStatus(c.Request.Context(), identity, id, models.OrderStatus(strings.TrimSpace(req.Status)))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
