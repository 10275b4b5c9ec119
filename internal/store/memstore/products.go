package memstore

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
	"grocery/internal/store"
)

type ProductStore struct {
	db *DB
}

func (s *ProductStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer s.db.lock(ctx)()

	p, ok := s.db.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *ProductStore) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	defer s.db.lock(ctx)()

	out := make(map[primitive.ObjectID]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.db.products[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (s *ProductStore) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	defer s.db.lock(ctx)()

	out := s.matching(filter)
	sortProducts(out, filter.Sort)
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *ProductStore) Count(ctx context.Context, filter store.ProductFilter) (int64, error) {
	defer s.db.lock(ctx)()
	return int64(len(s.matching(filter))), nil
}

func (s *ProductStore) matching(filter store.ProductFilter) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range s.db.products {
		if matchProduct(p, filter) {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

func matchProduct(p models.Product, f store.ProductFilter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Seller != nil && !p.OwnedBy(*f.Seller) {
		return false
	}
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	if f.ApprovedOnly && !p.IsApproved {
		return false
	}
	if f.StockAtMost != nil && p.Stock > *f.StockAtMost {
		return false
	}
	if f.StockAtLeast != nil && p.Stock < *f.StockAtLeast {
		return false
	}
	return true
}

func sortProducts(products []models.Product, order string) {
	var less func(a, b models.Product) bool
	switch order {
	case store.SortPriceAsc:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case store.SortPriceDesc:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case store.SortName:
		less = func(a, b models.Product) bool { return a.Name < b.Name }
	case store.SortStockAsc:
		less = func(a, b models.Product) bool { return a.Stock < b.Stock }
	default:
		less = func(a, b models.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(products, func(i, j int) bool {
		if less(products[i], products[j]) {
			return true
		}
		if less(products[j], products[i]) {
			return false
		}
		return products[i].ID.Hex() < products[j].ID.Hex()
	})
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	defer s.db.lock(ctx)()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	if _, exists := s.db.products[product.ID]; exists {
		return store.ErrDuplicateKey
	}
	now := s.db.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}
	s.db.products[product.ID] = cloneProduct(*product)
	return nil
}

func (s *ProductStore) Update(ctx context.Context, id primitive.ObjectID, patch store.ProductPatch) (*models.Product, error) {
	defer s.db.lock(ctx)()

	p, ok := s.db.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	patch.Apply(&p)
	s.db.products[id] = p
	out := cloneProduct(p)
	return &out, nil
}

func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer s.db.lock(ctx)()

	if _, ok := s.db.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.products, id)
	return nil
}

func (s *ProductStore) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return store.ErrInvalidQuantity
	}
	defer s.db.lock(ctx)()

	p, ok := s.db.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Stock < quantity {
		return store.ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = s.db.now()
	s.db.products[id] = p
	return nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return store.ErrInvalidQuantity
	}
	defer s.db.lock(ctx)()

	p, ok := s.db.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock += quantity
	p.UpdatedAt = s.db.now()
	s.db.products[id] = p
	return nil
}
