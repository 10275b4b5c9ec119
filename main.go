package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"grocery/internal/cache"
	"grocery/internal/config"
	"grocery/internal/database"
	"grocery/internal/handlers"
	"grocery/internal/logging"
	"grocery/internal/payments"
	"grocery/internal/service"
	"grocery/internal/store"
	"grocery/internal/store/memstore"
	"grocery/internal/store/mongostore"
)

const (
	storeOpTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newStores,
			newProductCache,
			newCatalog,
			newCarts,
			newOrders,
			newPayments,
			newDashboard,
			newRouter,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		fx.Invoke(startServer),
	).Run()
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

type storeResult struct {
	fx.Out

	Stores store.Stores
	Ping   handlers.PingFunc
}

// newStores opens the configured driver. The memory driver keeps nothing
// across restarts.
func newStores(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (storeResult, error) {
	if cfg.Store.Driver == config.DriverMemory {
		logger.Warn("using in-memory store")
		return storeResult{Stores: memstore.New().Stores()}, nil
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Mongo, logger)
	if err != nil {
		return storeResult{}, err
	}
	if err := database.EnsureIndexes(ctx, db, logger); err != nil {
		logger.Warn("index setup incomplete", slog.Any("error", err))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	})

	return storeResult{
		Stores: mongostore.New(db, storeOpTimeout),
		Ping:   func(ctx context.Context) error { return database.Ping(ctx, db) },
	}, nil
}

// newProductCache falls back to the no-op cache when Redis is unset or down.
func newProductCache(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) cache.ProductCache {
	if cfg.Redis.URL == "" {
		return cache.Noop{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn("redis unavailable, product cache disabled", slog.Any("error", err))
		return cache.Noop{}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	logger.Info("product cache enabled", slog.Duration("ttl", cfg.Redis.TTL))
	return cache.NewRedisProductCache(client, cache.WithTTL(cfg.Redis.TTL))
}

func newCatalog(stores store.Stores, productCache cache.ProductCache, logger *slog.Logger) *service.CatalogService {
	return service.NewCatalogService(stores.Products, productCache, logger)
}

func newCarts(stores store.Stores, catalog *service.CatalogService, logger *slog.Logger) *service.CartService {
	return service.NewCartService(stores.Carts, catalog, logger)
}

func newOrders(stores store.Stores, catalog *service.CatalogService, cfg *config.Config, logger *slog.Logger) *service.OrderService {
	return service.NewOrderService(stores, catalog, cfg.Orders, logger)
}

func newPayments(stores store.Stores, cfg *config.Config, logger *slog.Logger) *service.PaymentService {
	var opts []service.PaymentOption
	if cfg.Payment.StripeSecretKey != "" {
		opts = append(opts, service.WithProcessor(payments.NewStripeProcessor(cfg.Payment.StripeSecretKey), cfg.Payment.Currency))
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment intents disabled")
	}

	svc := service.NewPaymentService(stores.Orders, cfg.Payment.WebhookSecret, logger, opts...)
	if !svc.Enabled() {
		logger.Warn("PAYMENT_WEBHOOK_SECRET not set, payment webhook disabled")
	}
	return svc
}

func newDashboard(stores store.Stores, logger *slog.Logger) *service.DashboardService {
	return service.NewDashboardService(stores.Products, stores.Orders, logger)
}

type routerParams struct {
	fx.In

	Config    *config.Config
	Logger    *slog.Logger
	Ping      handlers.PingFunc `optional:"true"`
	Catalog   *service.CatalogService
	Carts     *service.CartService
	Orders    *service.OrderService
	Payments  *service.PaymentService
	Dashboard *service.DashboardService
}

func newRouter(p routerParams) *gin.Engine {
	if !p.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return handlers.NewRouter(handlers.Deps{
		Catalog:        p.Catalog,
		Carts:          p.Carts,
		Orders:         p.Orders,
		Payments:       p.Payments,
		Dashboard:      p.Dashboard,
		Logger:         p.Logger,
		JWTSecret:      p.Config.JWTSecret,
		CORSOrigin:     p.Config.HTTP.CORSOrigin,
		RequestTimeout: p.Config.HTTP.RequestTimeout,
		Ping:           p.Ping,
		DebugErrors:    p.Config.IsDevelopment(),
	})
}

func startServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, engine *gin.Engine, logger *slog.Logger) {
	srv := &http.Server{
		Addr:         net.JoinHostPort("", cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("http server listening", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			logger.Info("shutting down http server")
			return srv.Shutdown(shutdownCtx)
		},
	})
}
