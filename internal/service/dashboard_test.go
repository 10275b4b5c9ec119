package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
)

func TestSellerViewsCountOnlyOwnedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sellerA, sellerB := seller(), seller()
	pa := f.product(t, func(p *models.Product) { p.Name, p.Price, p.Seller = "A", 10, &sellerA.ID })
	pb := f.product(t, func(p *models.Product) { p.Name, p.Price, p.Seller = "B", 5, &sellerB.ID })
	f.product(t, func(p *models.Product) { p.Name, p.Seller, p.IsApproved = "A2", &sellerA.ID, false })

	f.placeOrder(t, customer(), map[primitive.ObjectID]int{pa.ID: 2, pb.ID: 1})
	f.now = f.now.Add(24 * time.Hour)
	f.placeOrder(t, customer(), map[primitive.ObjectID]int{pb.ID: 3})

	dash, err := f.dashboard.SellerDashboard(ctx, sellerA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dash.TotalProducts)
	assert.Equal(t, int64(1), dash.ApprovedProducts)
	assert.Equal(t, int64(1), dash.PendingProducts)
	assert.Equal(t, 1, dash.TotalOrders)
	assert.Equal(t, 20.0, dash.TotalRevenue)
	assert.Len(t, dash.RecentProducts, 2)

	orders, err := f.dashboard.SellerOrders(ctx, sellerB.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 15.0, orders[0].SellerTotal, "newest first")
	assert.Equal(t, 5.0, orders[1].SellerTotal)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, pb.ID, orders[1].Items[0].Product)

	daily, err := f.dashboard.SellerAnalytics(ctx, sellerB.ID)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "2026-03-15", daily[0].Date)
	assert.Equal(t, 5.0, daily[0].Revenue)
	assert.Equal(t, 15.0, daily[1].Revenue)
}

func TestSellerOrdersSurviveProductDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seller()
	p := f.product(t, func(p *models.Product) { p.Price, p.Seller = 4, &owner.ID })
	f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 1})

	require.NoError(t, f.stores.Products.Delete(ctx, p.ID))

	orders, err := f.dashboard.SellerOrders(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 4.0, orders[0].SellerTotal)
}

func TestSellerAnalyticsCoversLastThirtyDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seller()
	p := f.product(t, func(p *models.Product) { p.Seller, p.Stock = &owner.ID, 100 })

	f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 1})
	f.now = f.now.Add(40 * 24 * time.Hour)
	f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 1})

	daily, err := f.dashboard.SellerAnalytics(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "2026-04-24", daily[0].Date)
}

func TestAdminStatsAndReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := customer()
	milk := f.product(t, func(p *models.Product) { p.Name, p.Price, p.Category = "Milk", 1.2, models.CategoryDairy })
	bread := f.product(t, func(p *models.Product) { p.Name, p.Price, p.Category = "Bread", 3, models.CategoryBakery })

	first := f.placeOrder(t, buyer, map[primitive.ObjectID]int{milk.ID: 2})
	f.now = f.now.Add(time.Hour)
	f.placeOrder(t, buyer, map[primitive.ObjectID]int{bread.ID: 1})
	f.now = f.now.Add(time.Hour)
	f.placeOrder(t, customer(), map[primitive.ObjectID]int{bread.ID: 2})

	_, err := f.orders.Cancel(ctx, buyer, first.ID)
	require.NoError(t, err)

	stats, err := f.dashboard.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, int64(2), stats.TotalCustomers)
	assert.Equal(t, int64(2), stats.TotalProducts)
	assert.Equal(t, 161.4, stats.TotalSales)
	require.Len(t, stats.SalesData, 1)
	assert.Equal(t, 161.4, stats.SalesData[0].Sales)
	require.Len(t, stats.OrderStatusData, 5)
	assert.Equal(t, int64(2), stats.OrderStatusData[0].Count)
	assert.Equal(t, int64(1), stats.OrderStatusData[4].Count)
	require.Len(t, stats.RecentOrders, 3)

	rep, err := f.dashboard.AdminReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 161.0, rep.TotalSales)
	assert.Equal(t, 3, rep.TotalOrders)
	assert.Equal(t, 54.0, rep.AvgOrderValue)
	assert.Equal(t, int64(1), rep.CancelledOrders)
	require.Len(t, rep.OrdersPerDay, 1)
	assert.Equal(t, 3, rep.OrdersPerDay[0].Orders)
	require.Len(t, rep.SalesByCategory, 2)
	assert.Equal(t, models.CategoryBakery, rep.SalesByCategory[0].Category)
	assert.Equal(t, 9.0, rep.SalesByCategory[0].Revenue)
	assert.Equal(t, 2.0, rep.SalesByCategory[1].Revenue)
	require.Len(t, rep.TopProducts, 2)
	assert.Equal(t, "Bread", rep.TopProducts[0].Name)
	assert.Equal(t, 3, rep.TopProducts[0].UnitsSold)
}
