package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/config"
	"grocery/internal/logging"
	"grocery/internal/models"
	"grocery/internal/store"
	"grocery/internal/store/memstore"
)

type fixture struct {
	stores    store.Stores
	catalog   *CatalogService
	carts     *CartService
	orders    *OrderService
	payments  *PaymentService
	dashboard *DashboardService
	now       time.Time
}

const webhookSecret = "whsec_test"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stores := memstore.New().Stores()
	logger := logging.Discard()
	f := &fixture{
		stores: stores,
		now:    time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.catalog = NewCatalogService(stores.Products, nil, logger)
	f.catalog.now = clock
	f.carts = NewCartService(stores.Carts, f.catalog, logger)
	f.orders = NewOrderService(stores, f.catalog, config.Orders{ShippingPrice: 50, AdminPageSize: 50}, logger)
	f.orders.now = clock
	f.payments = NewPaymentService(stores.Orders, webhookSecret, logger)
	f.payments.now = clock
	f.dashboard = NewDashboardService(stores.Products, stores.Orders, logger)
	f.dashboard.now = clock
	return f
}

func (f *fixture) product(t *testing.T, mutate func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       "Apples",
		Price:      2.5,
		Category:   models.CategoryFruits,
		Stock:      10,
		Unit:       models.UnitKg,
		UnitValue:  1,
		IsActive:   true,
		IsApproved: true,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, f.stores.Products.Create(context.Background(), p))
	return p
}

func (f *fixture) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.stores.Products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// placeOrder fills the user's cart with lines and checks out.
func (f *fixture) placeOrder(t *testing.T, user models.Identity, lines map[primitive.ObjectID]int) *models.Order {
	t.Helper()
	ctx := context.Background()
	for id, qty := range lines {
		_, err := f.carts.AddItem(ctx, user.ID, id, qty)
		require.NoError(t, err)
	}
	order, created, err := f.orders.PlaceOrder(ctx, user, PlaceOrderInput{
		ShippingAddress: testAddress,
		PaymentMethod:   models.PaymentCOD,
	})
	require.NoError(t, err)
	require.True(t, created)
	return order
}

var testAddress = models.ShippingAddress{
	FullName: "Asha Rao",
	Phone:    "5550100",
	Street:   "1 Market St",
	City:     "Pune",
	State:    "MH",
	ZipCode:  "411001",
}

func customer() models.Identity {
	return models.Identity{ID: primitive.NewObjectID(), Role: models.RoleUser}
}

func seller() models.Identity {
	return models.Identity{ID: primitive.NewObjectID(), Role: models.RoleSeller}
}

func admin() models.Identity {
	return models.Identity{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperr.IsKind(err, kind), "want %s, got %v", kind, err)
}
