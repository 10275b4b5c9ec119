package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"grocery/internal/middleware"
	"grocery/internal/service"
)

// Deps is everything the router needs.
type Deps struct {
	Catalog   *service.CatalogService
	Carts     *service.CartService
	Orders    *service.OrderService
	Payments  *service.PaymentService
	Dashboard *service.DashboardService

	Logger         *slog.Logger
	JWTSecret      string
	CORSOrigin     string
	RequestTimeout time.Duration
	Ping           PingFunc

	// DebugErrors adds the cause of server faults to error responses.
	DebugErrors bool
}

// NewRouter builds the engine with every route under /api.
func NewRouter(d Deps) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(
		middleware.RequestID(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.AccessLog(d.Logger),
		middleware.CORS(d.CORSOrigin),
		middleware.Timeout(d.RequestTimeout),
	)
	if d.DebugErrors {
		r.Use(func(c *gin.Context) {
			c.Set(debugKey, true)
			c.Next()
		})
	}

	api := r.Group("/api")
	api.GET("/health", Health(d.Ping, d.Catalog.CacheStats))

	api.GET("/products", GetProducts(d.Catalog))
	api.GET("/products/:id", GetProduct(d.Catalog))
	api.GET("/categories", GetCategories(d.Catalog))

	auth := middleware.AuthGuard(d.JWTSecret)

	cart := api.Group("/cart", auth)
	{
		cart.GET("", GetCart(d.Carts))
		cart.POST("", AddToCart(d.Carts))
		cart.PUT("/:productId", UpdateCartItem(d.Carts))
		cart.DELETE("/:productId", RemoveCartItem(d.Carts))
		cart.DELETE("", ClearCart(d.Carts))
	}

	orders := api.Group("/orders", auth)
	{
		orders.POST("", CreateOrder(d.Orders))
		orders.GET("", GetMyOrders(d.Orders))
		orders.GET("/admin/all", middleware.AdminAuth(d.JWTSecret), GetAllOrders(d.Orders))
		orders.GET("/:id", GetOrder(d.Orders))
		orders.PUT("/:id/cancel", CancelOrder(d.Orders))
		orders.PUT("/:id/status", middleware.SellerAuth(d.JWTSecret), UpdateOrderStatus(d.Orders))
	}

	seller := api.Group("/seller", middleware.SellerAuth(d.JWTSecret))
	{
		seller.GET("/dashboard", GetSellerDashboard(d.Dashboard))
		seller.GET("/analytics", GetSellerAnalytics(d.Dashboard))
		seller.GET("/orders", GetSellerOrders(d.Dashboard))
		seller.GET("/products", GetSellerProducts(d.Catalog))
		seller.GET("/products/:id", GetSellerProduct(d.Catalog))
		seller.GET("/inventory/low-stock", GetLowStock(d.Catalog))
		seller.GET("/inventory/out-of-stock", GetOutOfStock(d.Catalog))
		seller.POST("/products", CreateProduct(d.Catalog))
		seller.PUT("/products/:id", UpdateProduct(d.Catalog))
		seller.DELETE("/products/:id", DeleteProduct(d.Catalog))
	}

	admin := api.Group("/admin", middleware.AdminAuth(d.JWTSecret))
	{
		admin.GET("/stats", GetAdminStats(d.Dashboard))
		admin.GET("/reports", GetAdminReports(d.Dashboard))
		admin.POST("/products", CreateProduct(d.Catalog))
		admin.PUT("/products/:id", UpdateProduct(d.Catalog))
		admin.PUT("/products/:id/approve", ApproveProduct(d.Catalog))
		admin.DELETE("/products/:id", DeleteProduct(d.Catalog))
	}

	if d.Payments != nil && d.Payments.Enabled() {
		api.POST("/payments/webhook", PaymentWebhook(d.Payments))
	}
	if d.Payments != nil && d.Payments.IntentsEnabled() {
		payments := api.Group("/payments", auth)
		payments.POST("/create-payment-intent", CreatePaymentIntent(d.Payments))
		payments.GET("/status/:paymentIntentId", GetPaymentStatus(d.Payments))
	}

	return r
}
