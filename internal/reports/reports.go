// Package reports derives dashboard figures from orders and products. Nothing
// here touches storage; callers load the data and pass it in.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
	"grocery/internal/pricing"
)

const dateLayout = "2006-01-02"

// DayKey is the UTC calendar date an order falls on.
func DayKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Chronological returns orders sorted oldest first. Equal timestamps keep
// their relative input order.
func Chronological(orders []models.Order) []models.Order {
	out := append([]models.Order(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// OwnsItem decides whether seller owns a line. The current product record
// wins; the line's seller snapshot is used once the product is gone.
func OwnsItem(item models.OrderItem, seller primitive.ObjectID, products map[primitive.ObjectID]models.Product) bool {
	if p, ok := products[item.Product]; ok {
		return p.OwnedBy(seller)
	}
	return item.Seller != nil && *item.Seller == seller
}

// SellerItems keeps only the lines seller owns.
func SellerItems(order models.Order, seller primitive.ObjectID, products map[primitive.ObjectID]models.Product) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if OwnsItem(item, seller, products) {
			items = append(items, item)
		}
	}
	return items
}

func itemsTotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(lineValue(item))
	}
	return sum
}

// ItemsTotal is Σ price × quantity over items, rounded to cents.
func ItemsTotal(items []models.OrderItem) float64 {
	return itemsTotal(items).Round(2).InexactFloat64()
}

// SellerOrder is an order reduced to one seller's lines.
type SellerOrder struct {
	models.Order
	SellerTotal float64 `json:"sellerTotal"`
}

// SellerSlice filters every order down to seller's lines, dropping orders
// where nothing remains. Input order is preserved.
func SellerSlice(orders []models.Order, seller primitive.ObjectID, products map[primitive.ObjectID]models.Product) []SellerOrder {
	out := make([]SellerOrder, 0, len(orders))
	for _, o := range orders {
		items := SellerItems(o, seller, products)
		if len(items) == 0 {
			continue
		}
		o.Items = items
		out = append(out, SellerOrder{Order: o, SellerTotal: ItemsTotal(items)})
	}
	return out
}

// SellerRevenue sums the seller-owned lines across orders.
func SellerRevenue(slice []SellerOrder) float64 {
	sum := decimal.Zero
	for _, o := range slice {
		sum = sum.Add(decimal.NewFromFloat(o.SellerTotal))
	}
	return sum.Round(2).InexactFloat64()
}

type DayRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// SellerDaily buckets seller revenue by calendar date, ascending. Only dates
// with at least one order appear.
func SellerDaily(slice []SellerOrder) []DayRevenue {
	buckets := make(map[string]*DayRevenue)
	sums := make(map[string]decimal.Decimal)
	for _, o := range slice {
		key := DayKey(o.CreatedAt)
		b, ok := buckets[key]
		if !ok {
			b = &DayRevenue{Date: key}
			buckets[key] = b
		}
		sums[key] = sums[key].Add(decimal.NewFromFloat(o.SellerTotal))
		b.Orders++
	}

	out := make([]DayRevenue, 0, len(buckets))
	for key, b := range buckets {
		b.Revenue = sums[key].Round(2).InexactFloat64()
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type DaySales struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

type DayOrders struct {
	Date   string `json:"date"`
	Orders int    `json:"orders"`
}

// DailySales sums order totals per calendar date, ascending.
func DailySales(orders []models.Order) []DaySales {
	sums := make(map[string]decimal.Decimal)
	for _, o := range orders {
		key := DayKey(o.CreatedAt)
		sums[key] = sums[key].Add(decimal.NewFromFloat(o.TotalPrice))
	}

	out := make([]DaySales, 0, len(sums))
	for key, sum := range sums {
		out = append(out, DaySales{Date: key, Sales: sum.Round(2).InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DailyOrders counts orders per calendar date, ascending.
func DailyOrders(orders []models.Order) []DayOrders {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[DayKey(o.CreatedAt)]++
	}

	out := make([]DayOrders, 0, len(counts))
	for key, n := range counts {
		out = append(out, DayOrders{Date: key, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Since keeps the orders created at or after from.
func Since(orders []models.Order, from time.Time) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !o.CreatedAt.Before(from) {
			out = append(out, o)
		}
	}
	return out
}

type StatusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

// StatusDistribution lists every status in lifecycle order, zero counts included.
func StatusDistribution(counts map[models.OrderStatus]int64) []StatusCount {
	out := make([]StatusCount, 0, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// CountStatuses tallies orders by status.
func CountStatuses(orders []models.Order) map[models.OrderStatus]int64 {
	counts := make(map[models.OrderStatus]int64)
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}

type CategoryRevenue struct {
	Category models.Category `json:"category"`
	Revenue  float64         `json:"revenue"`
}

// ItemCategory is the category a line is reported under: the snapshot taken
// at checkout, else the product's current category, else Other.
func ItemCategory(item models.OrderItem, products map[primitive.ObjectID]models.Product) models.Category {
	if item.Category != "" {
		return item.Category
	}
	if p, ok := products[item.Product]; ok && p.Category != "" {
		return p.Category
	}
	return models.CategoryOther
}

// SalesByCategory sums line revenue per category, highest first, revenue
// rounded to whole units. Ties keep first-encounter order.
func SalesByCategory(orders []models.Order, products map[primitive.ObjectID]models.Product) []CategoryRevenue {
	var order []models.Category
	sums := make(map[models.Category]decimal.Decimal)
	for _, o := range Chronological(orders) {
		for _, item := range o.Items {
			cat := ItemCategory(item, products)
			if _, seen := sums[cat]; !seen {
				order = append(order, cat)
			}
			sums[cat] = sums[cat].Add(lineValue(item))
		}
	}

	out := make([]CategoryRevenue, 0, len(order))
	for _, cat := range order {
		out = append(out, CategoryRevenue{Category: cat, Revenue: wholeUnits(sums[cat])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out
}

type ProductRevenue struct {
	Product   primitive.ObjectID `json:"product"`
	Name      string             `json:"name"`
	Revenue   float64            `json:"revenue"`
	UnitsSold int                `json:"unitsSold"`
}

// TopProducts ranks products by revenue, highest first, keeping at most limit.
// The name is taken from the first line seen. Ties keep first-encounter order.
func TopProducts(orders []models.Order, limit int) []ProductRevenue {
	type acc struct {
		name  string
		sum   decimal.Decimal
		units int
	}
	var order []primitive.ObjectID
	byID := make(map[primitive.ObjectID]*acc)
	for _, o := range Chronological(orders) {
		for _, item := range o.Items {
			a, ok := byID[item.Product]
			if !ok {
				a = &acc{name: item.Name}
				byID[item.Product] = a
				order = append(order, item.Product)
			}
			a.sum = a.sum.Add(lineValue(item))
			a.units += item.Quantity
		}
	}

	type ranked struct {
		id primitive.ObjectID
		*acc
	}
	list := make([]ranked, 0, len(order))
	for _, id := range order {
		list = append(list, ranked{id: id, acc: byID[id]})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].sum.GreaterThan(list[j].sum) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	out := make([]ProductRevenue, 0, len(list))
	for _, r := range list {
		out = append(out, ProductRevenue{
			Product:   r.id,
			Name:      r.name,
			Revenue:   wholeUnits(r.sum),
			UnitsSold: r.units,
		})
	}
	return out
}

// TotalSales sums order totals to cents.
func TotalSales(orders []models.Order) float64 {
	amounts := make([]float64, len(orders))
	for i, o := range orders {
		amounts[i] = o.TotalPrice
	}
	return pricing.Sum(amounts...)
}

// WholeUnits rounds v half away from zero to an integer amount.
func WholeUnits(v float64) float64 {
	return wholeUnits(decimal.NewFromFloat(v))
}

func wholeUnits(d decimal.Decimal) float64 {
	return d.Round(0).InexactFloat64()
}

func lineValue(item models.OrderItem) decimal.Decimal {
	return decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
}
