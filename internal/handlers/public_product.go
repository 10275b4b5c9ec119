package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grocery/internal/models"
	"grocery/internal/service"
)

/*
GET /products
- category, search, minPrice, maxPrice, sort
- only active, approved products
*/
func GetProducts(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		minPrice, err := parseOptionalFloat(c.Query("minPrice"), "minPrice")
		if err != nil {
			respondError(c, route, err)
			return
		}
		maxPrice, err := parseOptionalFloat(c.Query("maxPrice"), "maxPrice")
		if err != nil {
			respondError(c, route, err)
			return
		}

		products, err := catalog.List(c.Request.Context(), service.ListInput{
			Category: strings.TrimSpace(c.Query("category")),
			Search:   c.Query("search"),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
			Sort:     strings.TrimSpace(c.Query("sort")),
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		requestLogger(c).Debug("products listed", slog.Int("count", len(products)))
		c.JSON(http.StatusOK, products)
	}
}

/*
GET /products/:id
- ETag from updatedAt, 304 on If-None-Match
*/
func GetProduct(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		product, err := catalog.GetPublic(c.Request.Context(), id)
		if err != nil {
			respondError(c, route, err)
			return
		}

		etag := productETag(product)
		c.Header("ETag", etag)
		if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, etag) {
			c.Status(http.StatusNotModified)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func productETag(p *models.Product) string {
	return fmt.Sprintf(`W/"%s-%d"`, p.ID.Hex(), p.UpdatedAt.UnixNano())
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag || "W/"+candidate == etag {
			return true
		}
	}
	return false
}
