package service

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
	"grocery/internal/pricing"
	"grocery/internal/reports"
	"grocery/internal/store"
)

const (
	analyticsWindow  = 30 * 24 * time.Hour
	salesDataWindow  = 7 * 24 * time.Hour
	recentProducts   = 5
	recentOrders     = 10
	topProductsLimit = 5
)

type DashboardService struct {
	products store.ProductStore
	orders   store.OrderStore
	logger   *slog.Logger
	now      Clock
}

func NewDashboardService(products store.ProductStore, orders store.OrderStore, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		products: products,
		orders:   orders,
		logger:   logger.With(slog.String("component", "dashboard")),
		now:      utcNow,
	}
}

type SellerDashboard struct {
	TotalProducts    int64            `json:"totalProducts"`
	ApprovedProducts int64            `json:"approvedProducts"`
	PendingProducts  int64            `json:"pendingProducts"`
	TotalOrders      int              `json:"totalOrders"`
	TotalRevenue     float64          `json:"totalRevenue"`
	RecentProducts   []models.Product `json:"recentProducts"`
}

func (s *DashboardService) SellerDashboard(ctx context.Context, seller primitive.ObjectID) (*SellerDashboard, error) {
	total, err := s.products.Count(ctx, store.ProductFilter{Seller: &seller})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	approved, err := s.products.Count(ctx, store.ProductFilter{Seller: &seller, ApprovedOnly: true})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	recent, err := s.products.List(ctx, store.ProductFilter{Seller: &seller, Sort: store.SortNewest, Limit: recentProducts})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	slice, err := s.sellerOrders(ctx, seller, nil)
	if err != nil {
		return nil, err
	}

	return &SellerDashboard{
		TotalProducts:    total,
		ApprovedProducts: approved,
		PendingProducts:  total - approved,
		TotalOrders:      len(slice),
		TotalRevenue:     reports.SellerRevenue(slice),
		RecentProducts:   recent,
	}, nil
}

// SellerAnalytics returns seller revenue per day over the last 30 days.
func (s *DashboardService) SellerAnalytics(ctx context.Context, seller primitive.ObjectID) ([]reports.DayRevenue, error) {
	since := s.now().Add(-analyticsWindow)
	slice, err := s.sellerOrders(ctx, seller, &since)
	if err != nil {
		return nil, err
	}
	return reports.SellerDaily(slice), nil
}

// SellerOrders lists orders with seller lines, reduced to those lines, newest first.
func (s *DashboardService) SellerOrders(ctx context.Context, seller primitive.ObjectID) ([]reports.SellerOrder, error) {
	return s.sellerOrders(ctx, seller, nil)
}

func (s *DashboardService) sellerOrders(ctx context.Context, seller primitive.ObjectID, since *time.Time) ([]reports.SellerOrder, error) {
	owned, err := s.products.List(ctx, store.ProductFilter{Seller: &seller})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	ids := make([]primitive.ObjectID, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID)
	}

	orders, _, err := s.orders.List(ctx, store.OrderQuery{Products: ids, Seller: &seller, Since: since})
	if err != nil {
		return nil, classify(err, "order not found")
	}
	products, err := s.productsIn(ctx, orders)
	if err != nil {
		return nil, err
	}
	return reports.SellerSlice(orders, seller, products), nil
}

// productsIn loads the current record of every product the orders reference.
func (s *DashboardService) productsIn(ctx context.Context, orders []models.Order) (map[primitive.ObjectID]models.Product, error) {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0)
	for _, o := range orders {
		for _, item := range o.Items {
			if _, ok := seen[item.Product]; ok {
				continue
			}
			seen[item.Product] = struct{}{}
			ids = append(ids, item.Product)
		}
	}
	if len(ids) == 0 {
		return map[primitive.ObjectID]models.Product{}, nil
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, classify(err, "product not found")
	}
	return products, nil
}

type AdminStats struct {
	TotalSales      float64               `json:"totalSales"`
	TotalOrders     int                   `json:"totalOrders"`
	TotalCustomers  int64                 `json:"totalCustomers"`
	TotalProducts   int64                 `json:"totalProducts"`
	SalesData       []reports.DaySales    `json:"salesData"`
	OrderStatusData []reports.StatusCount `json:"orderStatusData"`
	RecentOrders    []models.Order        `json:"recentOrders"`
}

func (s *DashboardService) AdminStats(ctx context.Context) (*AdminStats, error) {
	orders, _, err := s.orders.List(ctx, store.OrderQuery{})
	if err != nil {
		return nil, classify(err, "order not found")
	}
	customers, err := s.orders.DistinctCustomers(ctx)
	if err != nil {
		return nil, classify(err, "order not found")
	}
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, classify(err, "order not found")
	}
	products, err := s.products.Count(ctx, store.ProductFilter{})
	if err != nil {
		return nil, classify(err, "product not found")
	}

	recent := orders
	if len(recent) > recentOrders {
		recent = recent[:recentOrders]
	}
	return &AdminStats{
		TotalSales:      reports.TotalSales(orders),
		TotalOrders:     len(orders),
		TotalCustomers:  customers,
		TotalProducts:   products,
		SalesData:       reports.DailySales(reports.Since(orders, s.now().Add(-salesDataWindow))),
		OrderStatusData: reports.StatusDistribution(counts),
		RecentOrders:    recent,
	}, nil
}

type AdminReports struct {
	TotalSales      float64                   `json:"totalSales"`
	TotalOrders     int                       `json:"totalOrders"`
	AvgOrderValue   float64                   `json:"avgOrderValue"`
	CancelledOrders int64                     `json:"cancelledOrders"`
	OrdersPerDay    []reports.DayOrders       `json:"ordersPerDay"`
	SalesPerDay     []reports.DaySales        `json:"salesPerDay"`
	SalesByCategory []reports.CategoryRevenue `json:"salesByCategory"`
	TopProducts     []reports.ProductRevenue  `json:"topProducts"`
	StatusCounts    []reports.StatusCount     `json:"statusCounts"`
}

func (s *DashboardService) AdminReports(ctx context.Context) (*AdminReports, error) {
	orders, _, err := s.orders.List(ctx, store.OrderQuery{})
	if err != nil {
		return nil, classify(err, "order not found")
	}
	products, err := s.productsIn(ctx, orders)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("building admin reports", slog.Int("orders", len(orders)), slog.Int("products", len(products)))

	total := reports.TotalSales(orders)
	counts := reports.CountStatuses(orders)
	recent := reports.Since(orders, s.now().Add(-analyticsWindow))
	return &AdminReports{
		TotalSales:      reports.WholeUnits(total),
		TotalOrders:     len(orders),
		AvgOrderValue:   reports.WholeUnits(pricing.Average(total, len(orders))),
		CancelledOrders: counts[models.StatusCancelled],
		OrdersPerDay:    reports.DailyOrders(recent),
		SalesPerDay:     reports.DailySales(recent),
		SalesByCategory: reports.SalesByCategory(orders, products),
		TopProducts:     reports.TopProducts(orders, topProductsLimit),
		StatusCounts:    reports.StatusDistribution(counts),
	}, nil
}
