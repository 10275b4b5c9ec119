package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grocery/internal/service"
)

// Product writes are shared by the seller and admin groups. The service
// decides ownership and approval from the caller's role.

func CreateProduct(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		var req service.ProductInput
		if !bindJSON(c, route, &req) {
			return
		}

		product, err := catalog.Create(c.Request.Context(), identity, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProduct(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		var req service.ProductUpdate
		if !bindJSON(c, route, &req) {
			return
		}

		product, err := catalog.Update(c.Request.Context(), identity, id, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func ApproveProduct(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/products/:id/approve"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		product, err := catalog.Approve(c.Request.Context(), identity, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func DeleteProduct(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /products/:id"
		defer handlePanic(c, route)

		identity, ok := caller(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		if err := catalog.Delete(c.Request.Context(), identity, id); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

func GetAdminStats(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/stats"
		defer handlePanic(c, route)

		stats, err := dashboard.AdminStats(c.Request.Context())
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func GetAdminReports(dashboard *service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/reports"
		defer handlePanic(c, route)

		reports, err := dashboard.AdminReports(c.Request.Context())
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, reports)
	}
}
