package config

import "strings"

// envKeys maps the flat environment variable names used in deployments to
// koanf paths. Variables not listed here are ignored.
var envKeys = map[string]string{
	"APP_ENV":                "env",
	"PORT":                   "http.port",
	"CORS_ORIGIN":            "http.corsOrigin",
	"REQUEST_TIMEOUT":        "http.requestTimeout",
	"HTTP_READ_TIMEOUT":      "http.readTimeout",
	"HTTP_WRITE_TIMEOUT":     "http.writeTimeout",
	"HTTP_IDLE_TIMEOUT":      "http.idleTimeout",
	"LOG_LEVEL":              "log.level",
	"LOG_PRETTY":             "log.pretty",
	"STORE_DRIVER":           "store.driver",
	"MONGO_URI":              "mongo.uri",
	"DB_NAME":                "mongo.dbName",
	"REDIS_URL":              "redis.url",
	"CACHE_TTL":              "redis.ttl",
	"JWT_SECRET":             "jwtSecret",
	"SHIPPING_PRICE":         "orders.shippingPrice",
	"ADMIN_PAGE_SIZE":        "orders.adminPageSize",
	"PAYMENT_WEBHOOK_SECRET": "payment.webhookSecret",
	"STRIPE_SECRET_KEY":      "payment.stripeSecretKey",
	"PAYMENT_CURRENCY":       "payment.currency",
}

func transformEnv(key, value string) (string, any) {
	path, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	return path, value
}
