package mongostore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grocery/internal/models"
	"grocery/internal/store"
)

func TestNormalizeProductDocumentCoercesLegacyFields(t *testing.T) {
	product, err := normalizeProductDocument(bson.M{
		"name":       "Apple",
		"price":      100.0,
		"discount":   10.0,
		"stock":      int32(5),
		"category":   bson.A{"fruits"},
		"isApproved": "true",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, product.Stock)
	assert.Equal(t, models.CategoryFruits, product.Category)
	assert.True(t, product.IsActive, "missing isActive defaults to true")
	assert.True(t, product.IsApproved)
	assert.Equal(t, models.UnitPiece, product.Unit)
	assert.Equal(t, 90.0, product.DiscountedPrice)
	assert.True(t, product.InStock)
}

func TestProductJSONIncludesDerivedFields(t *testing.T) {
	product, err := normalizeProductDocument(bson.M{
		"name":     "Cheese",
		"price":    20.0,
		"stock":    0.0,
		"category": "Dairy",
	})
	require.NoError(t, err)

	body, err := json.Marshal(product)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"discountedPrice":20`)
	assert.Contains(t, string(body), `"inStock":false`)
}

func TestProductQueryBuildsFilters(t *testing.T) {
	minPrice, maxStock := 5.0, 10
	seller := primitive.NewObjectID()

	q := productQuery(store.ProductFilter{
		Category:    models.CategorySnacks,
		Search:      "chips.",
		MinPrice:    &minPrice,
		Seller:      &seller,
		ActiveOnly:  true,
		StockAtMost: &maxStock,
	})

	assert.Equal(t, models.CategorySnacks, q["category"])
	assert.Equal(t, bson.M{"$gte": 5.0}, q["price"])
	assert.Equal(t, seller, q["seller"])
	assert.Equal(t, bson.M{"$lte": 10}, q["stock"])

	or, ok := q["$or"].(bson.A)
	require.True(t, ok)
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: `chips\.`, Options: "i"}}, or[0])
}

func TestOrderQueryMatchesItemProducts(t *testing.T) {
	p1 := primitive.NewObjectID()
	q := orderQuery(store.OrderQuery{Products: []primitive.ObjectID{p1}, Status: models.StatusShipped})

	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{p1}}, q["items.product"])
	assert.Equal(t, models.StatusShipped, q["status"])
}

func TestOrderQueryOrsProductsWithSellerSnapshot(t *testing.T) {
	p1, seller := primitive.NewObjectID(), primitive.NewObjectID()
	q := orderQuery(store.OrderQuery{Products: []primitive.ObjectID{p1}, Seller: &seller})

	assert.NotContains(t, q, "items.product")
	assert.Equal(t, bson.A{
		bson.M{"items.product": bson.M{"$in": []primitive.ObjectID{p1}}},
		bson.M{"items.seller": seller},
	}, q["$or"])
}

func TestPatchSetOnlyWritesProvidedFields(t *testing.T) {
	name := "New"
	set := patchSet(store.ProductPatch{Name: &name})
	assert.Equal(t, "New", set["name"])
	assert.Contains(t, set, "updatedAt")
	assert.Len(t, set, 2)

	assert.Empty(t, patchSet(store.ProductPatch{}))
}

// The checks below need a replica set; set MONGO_TEST_URI to run them.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("grocery_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoDecrementStockInTransaction(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	stores := New(db, 5*time.Second)

	p := &models.Product{Name: "Rice", Price: 3, Stock: 2, IsActive: true, IsApproved: true}
	require.NoError(t, stores.Products.Create(ctx, p))

	err := stores.Tx.Execute(ctx, func(ctx context.Context) error {
		require.NoError(t, stores.Products.DecrementStock(ctx, p.ID, 2))
		return stores.Products.DecrementStock(ctx, p.ID, 1)
	})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	got, err := stores.Products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock, "aborted transaction must not change stock")
}

func TestMongoCartSaveChecksVersion(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	stores := New(db, 5*time.Second)
	user := primitive.NewObjectID()

	cart, err := stores.Carts.GetOrCreate(ctx, user)
	require.NoError(t, err)
	stale := *cart

	require.NoError(t, cart.Add(primitive.NewObjectID(), 2))
	require.NoError(t, stores.Carts.Save(ctx, cart))

	stale.Items = []models.CartItem{}
	assert.ErrorIs(t, stores.Carts.Save(ctx, &stale), store.ErrConflict)
}
