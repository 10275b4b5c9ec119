package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grocery/internal/service"
)

func GetCategories(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		c.JSON(http.StatusOK, catalog.Categories())
	}
}
