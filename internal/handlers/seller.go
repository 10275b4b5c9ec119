package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grocery/internal/service"
)

func GetSellerDashboard(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/dashboard"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		dash, err := dashboard.SellerDashboard(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, dash)
	}
}

func GetSellerAnalytics(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/analytics"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		daily, err := dashboard.SellerAnalytics(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"salesData": daily})
	}
}

func GetSellerOrders(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/orders"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		orders, err := dashboard.SellerOrders(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func GetSellerProducts(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/products"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		products, err := catalog.SellerProducts(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GetSellerProduct returns one of the caller's products, active or not.
// Products of other sellers read as missing.
func GetSellerProduct(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/products/:id"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		product, err := catalog.Owned(c.Request.Context(), identity, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GetLowStock lists seller products at or below ?threshold. A missing or
// unusable threshold falls back to the default.
func GetLowStock(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/inventory/low-stock"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		threshold := service.DefaultLowStockThreshold
		if v, err := strconv.Atoi(c.Query("threshold")); err == nil && v > 0 {
			threshold = v
		}

		products, err := catalog.LowStock(c.Request.Context(), identity.ID, threshold)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func GetOutOfStock(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /seller/inventory/out-of-stock"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		products, err := catalog.OutOfStock(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}
