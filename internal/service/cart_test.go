package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/models"
)

func TestCartGetCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := primitive.NewObjectID()

	first, err := f.carts.Get(ctx, user)
	require.NoError(t, err)
	second, err := f.carts.Get(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Empty(t, second.Items)
	assert.Zero(t, second.Subtotal)
}

func TestAddItemDefaultsQuantityAndMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := f.product(t, func(p *models.Product) { p.Price = 1.1 })

	view, err := f.carts.AddItem(ctx, user, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)

	view, err = f.carts.AddItem(ctx, user, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, 3.3, view.Items[0].LineTotal)
	assert.Equal(t, 3.3, view.Subtotal)
	require.NotNil(t, view.Items[0].Product)
	assert.Equal(t, p.Name, view.Items[0].Product.Name)
}

func TestAddItemAllowsMoreThanStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, func(p *models.Product) { p.Stock = 1 })

	view, err := f.carts.AddItem(context.Background(), primitive.NewObjectID(), p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, view.ItemCount)
}

func TestAddItemRejectsQuantityOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)

	_, err := f.carts.AddItem(ctx, user.ID, p.ID, math.MaxInt)
	requireKind(t, err, apperr.KindInvalidState)

	_, err = f.carts.AddItem(ctx, user.ID, p.ID, models.MaxLineQuantity)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, user.ID, p.ID, 2)
	requireKind(t, err, apperr.KindInvalidState)

	view, err := f.carts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, models.MaxLineQuantity, view.Items[0].Quantity)

	_, err = f.carts.UpdateItem(ctx, user.ID, p.ID, models.MaxLineQuantity+1)
	requireKind(t, err, apperr.KindInvalidState)
}

func TestPlaceOrderRejectsNonPositiveLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)

	cart, err := f.stores.Carts.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	cart.Items = []models.CartItem{{Product: p.ID, Quantity: -5}}
	require.NoError(t, f.stores.Carts.Save(ctx, cart))

	_, _, err = f.orders.PlaceOrder(ctx, user, PlaceOrderInput{
		ShippingAddress: testAddress,
		PaymentMethod:   models.PaymentCOD,
	})
	requireKind(t, err, apperr.KindInvalidState)
	assert.Equal(t, 10, f.stock(t, p.ID))

	orders, err := f.orders.ListMine(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestAddItemUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.carts.AddItem(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), 1)
	requireKind(t, err, apperr.KindNotFound)
}

func TestUpdateItemNeedsCartAndLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := f.product(t, nil)

	_, err := f.carts.UpdateItem(ctx, user, p.ID, 2)
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.carts.AddItem(ctx, user, p.ID, 1)
	require.NoError(t, err)

	_, err = f.carts.UpdateItem(ctx, user, primitive.NewObjectID(), 2)
	requireKind(t, err, apperr.KindNotFound)

	view, err := f.carts.UpdateItem(ctx, user, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.ItemCount)

	view, err = f.carts.UpdateItem(ctx, user, p.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := f.product(t, nil)

	_, err := f.carts.RemoveItem(ctx, user, p.ID)
	requireKind(t, err, apperr.KindNotFound)
	_, err = f.carts.Clear(ctx, user)
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.carts.AddItem(ctx, user, p.ID, 2)
	require.NoError(t, err)

	view, err := f.carts.RemoveItem(ctx, user, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	view, err = f.carts.Clear(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	again, err := f.carts.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, view.ID, again.ID)
}

func TestCartViewKeepsLinesOfDeletedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := f.product(t, nil)

	_, err := f.carts.AddItem(ctx, user, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.stores.Products.Delete(ctx, p.ID))

	view, err := f.carts.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Nil(t, view.Items[0].Product)
	assert.Equal(t, p.ID.Hex(), view.Items[0].ProductID)
	assert.Equal(t, 2, view.ItemCount)
	assert.Zero(t, view.Subtotal)
}
