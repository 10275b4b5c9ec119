package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/service"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required,objectid"`
	Quantity  int    `json:"quantity" binding:"max=1000"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=1000"`
}

func GetCart(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		view, err := carts.Get(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func AddToCart(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		var req addToCartRequest
		if !bindJSON(c, route, &req) {
			return
		}
		productID, _ := primitive.ObjectIDFromHex(req.ProductID)

		view, err := carts.AddItem(c.Request.Context(), identity.ID, productID, req.Quantity)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func UpdateCartItem(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/:productId"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		productID, ok := objectIDParam(c, route, "productId")
		if !ok {
			return
		}
		var req updateCartItemRequest
		if !bindJSON(c, route, &req) {
			return
		}

		view, err := carts.UpdateItem(c.Request.Context(), identity.ID, productID, *req.Quantity)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func RemoveCartItem(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/:productId"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		productID, ok := objectIDParam(c, route, "productId")
		if !ok {
			return
		}

		view, err := carts.RemoveItem(c.Request.Context(), identity.ID, productID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func ClearCart(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		view, err := carts.Clear(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
