package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/models"
	"grocery/internal/store"
)

func TestPlaceOrderSnapshotsCartAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	owner := seller()
	apples := f.product(t, nil)
	cheese := f.product(t, func(p *models.Product) {
		p.Name, p.Price, p.Stock, p.Category = "Cheese", 10, 3, models.CategoryDairy
		p.Seller = &owner.ID
	})

	order := f.placeOrder(t, user, map[primitive.ObjectID]int{apples.ID: 2, cheese.ID: 1})

	assert.Equal(t, 15.0, order.ItemsPrice)
	assert.Equal(t, 50.0, order.ShippingPrice)
	assert.Equal(t, 65.0, order.TotalPrice)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, f.now, order.CreatedAt)
	require.Len(t, order.Items, 2)

	var snapshot models.OrderItem
	for _, item := range order.Items {
		if item.Product == cheese.ID {
			snapshot = item
		}
	}
	assert.Equal(t, "Cheese", snapshot.Name)
	assert.Equal(t, 10.0, snapshot.Price)
	assert.Equal(t, models.CategoryDairy, snapshot.Category)
	require.NotNil(t, snapshot.Seller)
	assert.Equal(t, owner.ID, *snapshot.Seller)

	assert.Equal(t, 8, f.stock(t, apples.ID))
	assert.Equal(t, 2, f.stock(t, cheese.ID))

	cart, err := f.carts.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestPlaceOrderKeepsCheckoutPriceAfterProductChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)

	order := f.placeOrder(t, user, map[primitive.ObjectID]int{p.ID: 1})

	price := 99.0
	_, err := f.stores.Products.Update(ctx, p.ID, store.ProductPatch{Price: &price})
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Items[0].Price)
	assert.Equal(t, 52.5, got.TotalPrice)
}

func TestPlaceOrderIdempotencyKeyReturnsSameOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)

	_, err := f.carts.AddItem(ctx, user.ID, p.ID, 2)
	require.NoError(t, err)
	in := PlaceOrderInput{ShippingAddress: testAddress, PaymentMethod: models.PaymentCard, IdempotencyKey: "retry-1"}

	first, created, err := f.orders.PlaceOrder(ctx, user, in)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = f.carts.AddItem(ctx, user.ID, p.ID, 1)
	require.NoError(t, err)

	second, created, err := f.orders.PlaceOrder(ctx, user, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, f.stock(t, p.ID))

	cart, err := f.carts.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount, "the retried request must not consume the new cart")
}

func TestPlaceOrderInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	plenty := f.product(t, func(p *models.Product) { p.Stock = 5 })
	scarce := f.product(t, func(p *models.Product) { p.Name, p.Stock = "Saffron", 1 })

	_, err := f.carts.AddItem(ctx, user.ID, plenty.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, user.ID, scarce.ID, 3)
	require.NoError(t, err)

	_, _, err = f.orders.PlaceOrder(ctx, user, PlaceOrderInput{ShippingAddress: testAddress, PaymentMethod: models.PaymentCOD})
	requireKind(t, err, apperr.KindInsufficientStock)
	assert.Equal(t, apperr.StockShortage{ProductID: scarce.ID.Hex(), Available: 1, Requested: 3}, apperr.From(err).Details)

	assert.Equal(t, 5, f.stock(t, plenty.ID))
	assert.Equal(t, 1, f.stock(t, scarce.ID))

	cart, err := f.carts.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	orders, err := f.orders.ListMine(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	in := PlaceOrderInput{ShippingAddress: testAddress, PaymentMethod: models.PaymentCOD}

	_, _, err := f.orders.PlaceOrder(ctx, user, in)
	requireKind(t, err, apperr.KindInvalidState)

	_, err = f.carts.Get(ctx, user.ID)
	require.NoError(t, err)
	_, _, err = f.orders.PlaceOrder(ctx, user, in)
	requireKind(t, err, apperr.KindInvalidState)
	assert.Equal(t, "cart is empty", apperr.From(err).Message)
}

func TestPlaceOrderRejectsUnavailableProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	pending := f.product(t, func(p *models.Product) { p.IsApproved = false })

	_, err := f.carts.AddItem(ctx, user.ID, pending.ID, 1)
	require.NoError(t, err)

	_, _, err = f.orders.PlaceOrder(ctx, user, PlaceOrderInput{ShippingAddress: testAddress, PaymentMethod: models.PaymentUPI})
	requireKind(t, err, apperr.KindInvalidState)
	assert.Equal(t, "product unavailable", apperr.From(err).Message)
	assert.Equal(t, 10, f.stock(t, pending.ID))
}

func TestPlaceOrderRejectsUnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.orders.PlaceOrder(context.Background(), customer(), PlaceOrderInput{PaymentMethod: "Cheque"})
	requireKind(t, err, apperr.KindInvalidState)
}

func TestConcurrentCheckoutsOfOneCartPlaceOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)
	_, err := f.carts.AddItem(ctx, user.ID, p.ID, 4)
	require.NoError(t, err)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		refused int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.orders.PlaceOrder(ctx, user, PlaceOrderInput{ShippingAddress: testAddress, PaymentMethod: models.PaymentCOD})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				placed++
				return
			}
			if apperr.IsKind(err, apperr.KindInvalidState) || apperr.IsKind(err, apperr.KindConflict) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, attempts-1, refused)
	assert.Equal(t, 6, f.stock(t, p.ID))
}

func TestCancelRestocksAndCannotRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)
	order := f.placeOrder(t, user, map[primitive.ObjectID]int{p.ID: 3})
	require.Equal(t, 7, f.stock(t, p.ID))

	cancelled, err := f.orders.Cancel(ctx, user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 10, f.stock(t, p.ID))

	_, err = f.orders.Cancel(ctx, user, order.ID)
	requireKind(t, err, apperr.KindInvalidState)
	assert.Equal(t, "order is already cancelled", apperr.From(err).Message)
	assert.Equal(t, 10, f.stock(t, p.ID))
}

func TestCancelSkipsDeletedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	gone := f.product(t, nil)
	kept := f.product(t, func(p *models.Product) { p.Name = "Pears" })
	order := f.placeOrder(t, user, map[primitive.ObjectID]int{gone.ID: 1, kept.ID: 2})

	require.NoError(t, f.stores.Products.Delete(ctx, gone.ID))

	_, err := f.orders.Cancel(ctx, user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, kept.ID))
}

func TestCancelIsOwnerOnlyAndBeforeShipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)
	order := f.placeOrder(t, user, map[primitive.ObjectID]int{p.ID: 1})

	_, err := f.orders.Cancel(ctx, customer(), order.ID)
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.orders.UpdateStatus(ctx, admin(), order.ID, models.StatusShipped)
	require.NoError(t, err)

	_, err = f.orders.Cancel(ctx, user, order.ID)
	requireKind(t, err, apperr.KindForbidden)
	assert.Equal(t, "cannot cancel shipped or delivered orders", apperr.From(err).Message)

	_, err = f.orders.Cancel(ctx, user, primitive.NewObjectID())
	requireKind(t, err, apperr.KindNotFound)
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boss := admin()
	p := f.product(t, nil)
	order := f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 1})

	_, err := f.orders.UpdateStatus(ctx, boss, order.ID, "Lost")
	requireKind(t, err, apperr.KindInvalidState)

	_, err = f.orders.UpdateStatus(ctx, boss, order.ID, models.StatusPending)
	requireKind(t, err, apperr.KindInvalidState)

	delivered, err := f.orders.UpdateStatus(ctx, boss, order.ID, models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)
	assert.Equal(t, models.PaymentPaid, delivered.PaymentStatus)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, f.now, *delivered.DeliveredAt)

	_, err = f.orders.UpdateStatus(ctx, boss, order.ID, models.StatusShipped)
	requireKind(t, err, apperr.KindInvalidState)
	_, err = f.orders.UpdateStatus(ctx, boss, order.ID, models.StatusCancelled)
	requireKind(t, err, apperr.KindInvalidState)
}

func TestAdminCancelRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, nil)
	order := f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 4})

	_, err := f.orders.UpdateStatus(ctx, admin(), order.ID, models.StatusProcessing)
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, admin(), order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, p.ID))
}

func TestSellerUpdateStatusNeedsOwnedLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, stranger := seller(), seller()
	p := f.product(t, func(p *models.Product) { p.Seller = &owner.ID })
	order := f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 1})

	_, err := f.orders.UpdateStatus(ctx, stranger, order.ID, models.StatusProcessing)
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.orders.UpdateStatus(ctx, customer(), order.ID, models.StatusProcessing)
	requireKind(t, err, apperr.KindForbidden)

	updated, err := f.orders.UpdateStatus(ctx, owner, order.ID, models.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, updated.Status)

	// Ownership survives deletion through the line's seller snapshot.
	require.NoError(t, f.stores.Products.Delete(ctx, p.ID))
	_, err = f.orders.UpdateStatus(ctx, owner, order.ID, models.StatusShipped)
	require.NoError(t, err)
}

func TestGetIsOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := customer()
	p := f.product(t, nil)
	order := f.placeOrder(t, user, map[primitive.ObjectID]int{p.ID: 1})

	_, err := f.orders.Get(ctx, customer(), order.ID)
	requireKind(t, err, apperr.KindForbidden)

	got, err := f.orders.Get(ctx, admin(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestListAllPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, func(p *models.Product) { p.Stock = 100 })

	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		f.now = f.now.Add(time.Minute)
		ids = append(ids, f.placeOrder(t, customer(), map[primitive.ObjectID]int{p.ID: 1}).ID)
	}

	page, err := f.orders.ListAll(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.Pages)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, ids[2], page.Orders[0].ID)

	page, err = f.orders.ListAll(ctx, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, ids[0], page.Orders[0].ID)

	_, err = f.orders.ListAll(ctx, "", math.MaxInt64/10, 200)
	requireKind(t, err, apperr.KindInvalidState)

	page, err = f.orders.ListAll(ctx, models.StatusShipped, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.orders.ListAll(ctx, "Lost", 1, 10)
	requireKind(t, err, apperr.KindInvalidState)
}
