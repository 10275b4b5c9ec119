package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grocery/internal/models"
	"grocery/internal/service"
)

// GetAllOrders pages through every order for admins: ?status&page&limit.
func GetAllOrders(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/all"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, route, err)
			return
		}

		status := models.OrderStatus(strings.TrimSpace(c.Query("status")))
		if strings.EqualFold(string(status), "all") {
			status = ""
		}
		result, err := orders.ListAll(c.Request.Context(), status, page, limit)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
