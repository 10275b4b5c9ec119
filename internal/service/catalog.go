package service

import (
	"context"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/cache"
	"grocery/internal/models"
	"grocery/internal/pricing"
	"grocery/internal/store"
)

type CatalogService struct {
	products store.ProductStore
	cache    cache.ProductCache
	logger   *slog.Logger
	now      Clock
}

func NewCatalogService(products store.ProductStore, productCache cache.ProductCache, logger *slog.Logger) *CatalogService {
	if productCache == nil {
		productCache = cache.Noop{}
	}
	return &CatalogService{
		products: products,
		cache:    productCache,
		logger:   logger.With(slog.String("component", "catalog")),
		now:      utcNow,
	}
}

// ListInput is a public product listing query.
type ListInput struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

func productSort(sort string) (string, bool) {
	switch sort {
	case "":
		return store.SortNewest, true
	case store.SortNewest, store.SortPriceAsc, store.SortPriceDesc, store.SortName:
		return sort, true
	}
	return "", false
}

// List returns active, approved products matching in.
func (s *CatalogService) List(ctx context.Context, in ListInput) ([]models.Product, error) {
	filter := store.ProductFilter{
		Search:       strings.TrimSpace(in.Search),
		MinPrice:     in.MinPrice,
		MaxPrice:     in.MaxPrice,
		ActiveOnly:   true,
		ApprovedOnly: true,
	}
	if in.Category != "" && !strings.EqualFold(in.Category, "all") {
		cat, ok := models.ParseCategory(in.Category)
		if !ok {
			return nil, apperr.InvalidState("invalid category")
		}
		filter.Category = cat
	}
	sort, ok := productSort(in.Sort)
	if !ok {
		return nil, apperr.InvalidState("invalid sort")
	}
	filter.Sort = sort

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, classify(err, "product not found")
	}
	return products, nil
}

// Get reads through the cache.
func (s *CatalogService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		p = p.WithDerived()
		return &p, nil
	}

	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, classify(err, "product not found")
	}
	s.remember(ctx, *p)
	return p, nil
}

// GetPublic is Get restricted to products shoppers may see. Inactive and
// unapproved products read as missing.
func (s *CatalogService) GetPublic(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, apperr.NotFound("product not found")
	}
	return p, nil
}

// Lookup resolves ids through the cache, fetching misses in one store call.
// Ids that no longer exist are absent from the result.
func (s *CatalogService) Lookup(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	found := make(map[primitive.ObjectID]models.Product, len(ids))
	missing := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.cache.Get(ctx, id); ok {
			found[id] = p.WithDerived()
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return found, nil
	}

	fetched, err := s.products.GetMany(ctx, missing)
	if err != nil {
		return nil, classify(err, "product not found")
	}
	for id, p := range fetched {
		found[id] = p
		s.remember(ctx, p)
	}
	return found, nil
}

func (s *CatalogService) remember(ctx context.Context, p models.Product) {
	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.Warn("product cache write failed", slog.String("product_id", p.ID.Hex()), slog.Any("error", err))
	}
}

// Invalidate drops ids from the cache. Failures are logged; the entries expire on their own.
func (s *CatalogService) Invalidate(ctx context.Context, ids ...primitive.ObjectID) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.Warn("product cache invalidation failed", slog.Int("count", len(ids)), slog.Any("error", err))
	}
}

// CacheStats reports the product cache counters.
func (s *CatalogService) CacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *CatalogService) Categories() []models.Category {
	return append([]models.Category(nil), models.Categories...)
}

// ProductInput creates a product.
type ProductInput struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"min=0"`
	OriginalPrice float64  `json:"originalPrice" binding:"min=0"`
	Category      string   `json:"category" binding:"required"`
	Stock         int      `json:"stock" binding:"min=0"`
	Unit          string   `json:"unit"`
	UnitValue     float64  `json:"unitValue" binding:"min=0"`
	Brand         string   `json:"brand"`
	Tags          []string `json:"tags"`
	IsFeatured    bool     `json:"isFeatured"`
	Discount      float64  `json:"discount" binding:"min=0,max=100"`
	IsActive      *bool    `json:"isActive"`
}

// ProductUpdate changes the fields that are set.
type ProductUpdate struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Price         *float64  `json:"price"`
	OriginalPrice *float64  `json:"originalPrice"`
	Category      *string   `json:"category"`
	Stock         *int      `json:"stock"`
	Unit          *string   `json:"unit"`
	UnitValue     *float64  `json:"unitValue"`
	Brand         *string   `json:"brand"`
	Tags          *[]string `json:"tags"`
	IsFeatured    *bool     `json:"isFeatured"`
	Discount      *float64  `json:"discount"`
	IsActive      *bool     `json:"isActive"`
}

// Create adds a product. Admin products are approved immediately; seller
// products are owned by the seller and wait for approval.
func (s *CatalogService) Create(ctx context.Context, caller models.Identity, in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidState("name is required")
	}
	cat, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, apperr.InvalidState("invalid category")
	}
	if err := pricing.ValidatePricing(in.Price, in.OriginalPrice, in.Discount); err != nil {
		return nil, apperr.InvalidState(err.Error())
	}
	if in.Stock < 0 {
		return nil, apperr.InvalidState("stock must be zero or greater")
	}

	p := models.Product{
		Name:          name,
		Description:   strings.TrimSpace(in.Description),
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Category:      cat,
		Stock:         in.Stock,
		Unit:          models.Unit(in.Unit),
		UnitValue:     in.UnitValue,
		Brand:         strings.TrimSpace(in.Brand),
		Tags:          in.Tags,
		IsFeatured:    in.IsFeatured,
		Discount:      in.Discount,
		IsActive:      true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.ApplyDefaults()
	if !p.Unit.Valid() {
		return nil, apperr.InvalidState("invalid unit")
	}

	switch {
	case caller.IsAdmin():
		p.IsApproved = true
	case caller.IsSeller():
		seller := caller.ID
		p.Seller = &seller
		p.IsApproved = false
	default:
		return nil, apperr.Forbidden("not authorized to create products")
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.products.Create(ctx, &p); err != nil {
		return nil, classify(err, "product not found")
	}

	s.logger.Info("product created",
		slog.String("product_id", p.ID.Hex()),
		slog.String("role", string(caller.Role)),
		slog.Bool("approved", p.IsApproved),
	)
	out := p.WithDerived()
	return &out, nil
}

// owned loads id and checks caller may manage it. Sellers get NotFound for
// products they do not own.
func (s *CatalogService) owned(ctx context.Context, caller models.Identity, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, classify(err, "product not found")
	}
	switch {
	case caller.IsAdmin():
		return p, nil
	case caller.IsSeller() && p.OwnedBy(caller.ID):
		return p, nil
	case caller.IsSeller():
		return nil, apperr.NotFound("product not found")
	default:
		return nil, apperr.Forbidden("not authorized to manage products")
	}
}

// Owned returns a product caller may manage.
func (s *CatalogService) Owned(ctx context.Context, caller models.Identity, id primitive.ObjectID) (*models.Product, error) {
	return s.owned(ctx, caller, id)
}

func (s *CatalogService) Update(ctx context.Context, caller models.Identity, id primitive.ObjectID, in ProductUpdate) (*models.Product, error) {
	existing, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	prices, err := pricing.ResolvePriceUpdate(
		pricing.PriceFields{Price: existing.Price, OriginalPrice: existing.OriginalPrice, Discount: existing.Discount},
		pricing.PriceUpdate{Price: in.Price, OriginalPrice: in.OriginalPrice, Discount: in.Discount},
	)
	if err != nil {
		return nil, apperr.InvalidState(err.Error())
	}

	patch := store.ProductPatch{
		Description: in.Description,
		Brand:       in.Brand,
		Tags:        in.Tags,
		IsFeatured:  in.IsFeatured,
		IsActive:    in.IsActive,
		UnitValue:   in.UnitValue,
		UpdatedAt:   s.now(),
	}
	if in.Price != nil {
		patch.Price = &prices.Price
	}
	if in.OriginalPrice != nil {
		patch.OriginalPrice = &prices.OriginalPrice
	}
	if in.Discount != nil {
		patch.Discount = &prices.Discount
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.InvalidState("name is required")
		}
		patch.Name = &name
	}
	if in.Category != nil {
		cat, ok := models.ParseCategory(*in.Category)
		if !ok {
			return nil, apperr.InvalidState("invalid category")
		}
		patch.Category = &cat
	}
	if in.Unit != nil {
		unit := models.Unit(*in.Unit)
		if !unit.Valid() {
			return nil, apperr.InvalidState("invalid unit")
		}
		patch.Unit = &unit
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, apperr.InvalidState("stock must be zero or greater")
		}
		patch.Stock = in.Stock
	}
	if in.UnitValue != nil && *in.UnitValue < 0 {
		return nil, apperr.InvalidState("unitValue must be zero or greater")
	}

	updated, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, classify(err, "product not found")
	}
	s.Invalidate(ctx, id)
	return updated, nil
}

// Approve marks a seller product as approved. Admin only.
func (s *CatalogService) Approve(ctx context.Context, caller models.Identity, id primitive.ObjectID) (*models.Product, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("admin access required")
	}
	approved := true
	updated, err := s.products.Update(ctx, id, store.ProductPatch{IsApproved: &approved, UpdatedAt: s.now()})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	s.Invalidate(ctx, id)
	s.logger.Info("product approved", slog.String("product_id", id.Hex()))
	return updated, nil
}

// Delete removes a product for good. Orders keep their own snapshot of it.
func (s *CatalogService) Delete(ctx context.Context, caller models.Identity, id primitive.ObjectID) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return classify(err, "product not found")
	}
	s.Invalidate(ctx, id)
	s.logger.Info("product deleted", slog.String("product_id", id.Hex()))
	return nil
}

// SellerProducts lists everything seller owns, newest first.
func (s *CatalogService) SellerProducts(ctx context.Context, seller primitive.ObjectID) ([]models.Product, error) {
	products, err := s.products.List(ctx, store.ProductFilter{Seller: &seller, Sort: store.SortNewest})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	return products, nil
}

const DefaultLowStockThreshold = 10

// LowStock lists seller products with 0 < stock ≤ threshold, lowest first.
func (s *CatalogService) LowStock(ctx context.Context, seller primitive.ObjectID, threshold int) ([]models.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	least := 1
	products, err := s.products.List(ctx, store.ProductFilter{
		Seller:       &seller,
		StockAtLeast: &least,
		StockAtMost:  &threshold,
		Sort:         store.SortStockAsc,
	})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	return products, nil
}

func (s *CatalogService) OutOfStock(ctx context.Context, seller primitive.ObjectID) ([]models.Product, error) {
	none := 0
	products, err := s.products.List(ctx, store.ProductFilter{Seller: &seller, StockAtMost: &none})
	if err != nil {
		return nil, classify(err, "product not found")
	}
	return products, nil
}
