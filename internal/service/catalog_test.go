package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/cache"
	"grocery/internal/logging"
	"grocery/internal/models"
)

func TestCreateApprovalDependsOnRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := ProductInput{Name: " Basil ", Price: 3, Category: "vegetables", Stock: 4}

	owner := seller()
	mine, err := f.catalog.Create(ctx, owner, in)
	require.NoError(t, err)
	assert.False(t, mine.IsApproved)
	require.NotNil(t, mine.Seller)
	assert.Equal(t, owner.ID, *mine.Seller)
	assert.Equal(t, "Basil", mine.Name)
	assert.Equal(t, models.CategoryVegetables, mine.Category)
	assert.Equal(t, models.UnitPiece, mine.Unit)
	assert.True(t, mine.IsActive)

	house, err := f.catalog.Create(ctx, admin(), in)
	require.NoError(t, err)
	assert.True(t, house.IsApproved)
	assert.Nil(t, house.Seller)

	_, err = f.catalog.Create(ctx, customer(), in)
	requireKind(t, err, apperr.KindForbidden)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]ProductInput{
		"blank name":       {Name: "  ", Price: 1, Category: "Dairy"},
		"unknown category": {Name: "Milk", Price: 1, Category: "Toys"},
		"negative price":   {Name: "Milk", Price: -1, Category: "Dairy"},
		"discount too big": {Name: "Milk", Price: 1, Category: "Dairy", Discount: 120},
		"negative stock":   {Name: "Milk", Price: 1, Category: "Dairy", Stock: -2},
		"unknown unit":     {Name: "Milk", Price: 1, Category: "Dairy", Unit: "barrel"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.catalog.Create(ctx, admin(), in)
			requireKind(t, err, apperr.KindInvalidState)
		})
	}
}

func TestSellerCannotManageOtherSellersProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, stranger := seller(), seller()
	p := f.product(t, func(p *models.Product) { p.Seller = &owner.ID })

	name := "Renamed"
	_, err := f.catalog.Update(ctx, stranger, p.ID, ProductUpdate{Name: &name})
	requireKind(t, err, apperr.KindNotFound)
	requireKind(t, f.catalog.Delete(ctx, stranger, p.ID), apperr.KindNotFound)

	updated, err := f.catalog.Update(ctx, owner, p.ID, ProductUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, f.catalog.Delete(ctx, owner, p.ID))
	_, err = f.catalog.Get(ctx, p.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestUpdateValidatesMergedPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, func(p *models.Product) { p.Price, p.Discount = 10, 20 })

	tooMuch := 150.0
	_, err := f.catalog.Update(ctx, admin(), p.ID, ProductUpdate{Discount: &tooMuch})
	requireKind(t, err, apperr.KindInvalidState)

	negative := -1
	_, err = f.catalog.Update(ctx, admin(), p.ID, ProductUpdate{Stock: &negative})
	requireKind(t, err, apperr.KindInvalidState)

	bogus := "Gadgets"
	_, err = f.catalog.Update(ctx, admin(), p.ID, ProductUpdate{Category: &bogus})
	requireKind(t, err, apperr.KindInvalidState)

	price := 20.0
	updated, err := f.catalog.Update(ctx, admin(), p.ID, ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Price)
	assert.Equal(t, 20.0, updated.Discount)
	assert.Equal(t, 16.0, updated.DiscountedPrice)
}

func TestApproveIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, func(p *models.Product) { p.IsApproved = false })

	_, err := f.catalog.Approve(ctx, seller(), p.ID)
	requireKind(t, err, apperr.KindForbidden)

	approved, err := f.catalog.Approve(ctx, admin(), p.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	_, err = f.catalog.Approve(ctx, admin(), primitive.NewObjectID())
	requireKind(t, err, apperr.KindNotFound)
}

func TestListShowsOnlyAvailableProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visible := f.product(t, func(p *models.Product) { p.Name, p.Category = "Green Tea", models.CategoryBeverages })
	f.product(t, func(p *models.Product) { p.Name, p.IsApproved = "Black Tea", false })
	f.product(t, func(p *models.Product) { p.Name, p.IsActive = "Herbal Tea", false })

	got, err := f.catalog.List(ctx, ListInput{Search: "tea"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, visible.ID, got[0].ID)

	got, err = f.catalog.List(ctx, ListInput{Category: "beverages"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.catalog.List(ctx, ListInput{Category: "All"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.catalog.List(ctx, ListInput{Category: "Toys"})
	requireKind(t, err, apperr.KindInvalidState)
	_, err = f.catalog.List(ctx, ListInput{Sort: "random"})
	requireKind(t, err, apperr.KindInvalidState)
}

func TestListSortsByPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, func(p *models.Product) { p.Name, p.Price = "B", 5 })
	f.product(t, func(p *models.Product) { p.Name, p.Price = "A", 1 })
	f.product(t, func(p *models.Product) { p.Name, p.Price = "C", 3 })

	got, err := f.catalog.List(ctx, ListInput{Sort: "price-asc"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "C", "B"}, []string{got[0].Name, got[1].Name, got[2].Name})

	ceiling := 4.0
	got, err = f.catalog.List(ctx, ListInput{MaxPrice: &ceiling, Sort: "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, []string{got[0].Name, got[1].Name})
}

func TestInventoryQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seller()
	mine := func(name string, stock int) {
		f.product(t, func(p *models.Product) { p.Name, p.Stock, p.Seller = name, stock, &owner.ID })
	}
	mine("empty", 0)
	mine("three", 3)
	mine("one", 1)
	mine("ten", 10)
	mine("plenty", 50)
	f.product(t, func(p *models.Product) { p.Stock = 2 })

	low, err := f.catalog.LowStock(ctx, owner.ID, 0)
	require.NoError(t, err)
	names := make([]string, len(low))
	for i, p := range low {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"one", "three", "ten"}, names)

	low, err = f.catalog.LowStock(ctx, owner.ID, 2)
	require.NoError(t, err)
	require.Len(t, low, 1)

	out, err := f.catalog.OutOfStock(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "empty", out[0].Name)

	all, err := f.catalog.SellerProducts(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestGetReadsThroughRedisAndUpdateInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	productCache := cache.NewRedisProductCache(client)
	catalog := NewCatalogService(f.stores.Products, productCache, logging.Discard())
	p := f.product(t, nil)

	_, err = catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	cached, err := catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, cached.Name)
	assert.Equal(t, int64(1), productCache.Stats()["hits"])

	name := "Red Apples"
	_, err = catalog.Update(ctx, admin(), p.ID, ProductUpdate{Name: &name})
	require.NoError(t, err)

	fresh, err := catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red Apples", fresh.Name)
}

func TestCategoriesListsEveryCategory(t *testing.T) {
	f := newFixture(t)
	got := f.catalog.Categories()
	assert.Equal(t, models.Categories, got)

	got[0] = "mutated"
	assert.NotEqual(t, models.Category("mutated"), models.Categories[0])
}
