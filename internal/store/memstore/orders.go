package memstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
	"grocery/internal/store"
)

type OrderStore struct {
	db *DB
}

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	defer s.db.lock(ctx)()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, exists := s.db.orders[order.ID]; exists {
		return store.ErrDuplicateKey
	}
	if order.IdempotencyKey != "" {
		if _, found := s.findByKey(order.User, order.IdempotencyKey); found {
			return store.ErrDuplicateKey
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.db.now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	s.db.orders[order.ID] = cloneOrder(*order)
	s.db.orderOrder = append(s.db.orderOrder, order.ID)
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	defer s.db.lock(ctx)()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *OrderStore) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	defer s.db.lock(ctx)()

	o, found := s.findByKey(userID, key)
	if !found {
		return nil, store.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *OrderStore) findByKey(userID primitive.ObjectID, key string) (models.Order, bool) {
	for _, o := range s.db.orders {
		if o.User == userID && o.IdempotencyKey == key {
			return o, true
		}
	}
	return models.Order{}, false
}

func (s *OrderStore) List(ctx context.Context, q store.OrderQuery) ([]models.Order, int64, error) {
	defer s.db.lock(ctx)()

	// Walk newest insertion first so equal timestamps keep that order after the stable sort.
	matched := make([]models.Order, 0)
	for i := len(s.db.orderOrder) - 1; i >= 0; i-- {
		o := s.db.orders[s.db.orderOrder[i]]
		if matchOrder(o, q) {
			matched = append(matched, o)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		// Compare page indexes so page*limit is never computed past the end.
		if total == 0 || page-1 > (total-1)/q.Limit {
			return []models.Order{}, total, nil
		}
		start := (page - 1) * q.Limit
		end := start + q.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}

	out := make([]models.Order, len(matched))
	for i, o := range matched {
		out[i] = cloneOrder(o)
	}
	return out, total, nil
}

func matchOrder(o models.Order, q store.OrderQuery) bool {
	if q.User != nil && o.User != *q.User {
		return false
	}
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	if q.Since != nil && o.CreatedAt.Before(*q.Since) {
		return false
	}
	if len(q.Products) == 0 && q.Seller == nil {
		return true
	}
	for _, id := range q.Products {
		if o.Contains(id) {
			return true
		}
	}
	if q.Seller != nil {
		for _, item := range o.Items {
			if item.Seller != nil && *item.Seller == *q.Seller {
				return true
			}
		}
	}
	return false
}

func (s *OrderStore) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	defer s.db.lock(ctx)()

	counts := make(map[models.OrderStatus]int64)
	for _, o := range s.db.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (s *OrderStore) DistinctCustomers(ctx context.Context) (int64, error) {
	defer s.db.lock(ctx)()

	seen := make(map[primitive.ObjectID]struct{})
	for _, o := range s.db.orders {
		seen[o.User] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Order, error) {
	defer s.db.lock(ctx)()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if o.Status != change.From {
		return nil, store.ErrConflict
	}
	change.Apply(&o)
	s.db.orders[id] = o

	out := cloneOrder(o)
	return &out, nil
}

func (s *OrderStore) UpdatePayment(ctx context.Context, id primitive.ObjectID, change models.PaymentChange) (*models.Order, error) {
	defer s.db.lock(ctx)()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if change.Allows(o.PaymentStatus) {
		change.Apply(&o)
		s.db.orders[id] = o
	}

	out := cloneOrder(o)
	return &out, nil
}
