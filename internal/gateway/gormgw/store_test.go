package gormgw

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avelinehq/cartside/pkg/types"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func intPtr(v int) *int {
	return &v
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	store, err := New(setupCartTestDB(t))
	require.NoError(t, err)

	owner := types.SessionOwner("sess-1")
	lines := []types.CartLine{
		{ProductID: "sku-espresso", UnitListPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{ProductID: "sku-grinder", UnitListPrice: decimal.RequireFromString("89.00"), DiscountPercent: intPtr(10), Quantity: 1},
	}

	require.NoError(t, store.Save(context.Background(), owner, lines, 3))

	loaded, err := store.Load(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "sku-espresso", loaded[0].ProductID)
	assert.Equal(t, "sku-grinder", loaded[1].ProductID)
	assert.True(t, loaded[0].UnitListPrice.Equal(decimal.RequireFromString("12.50")))
	require.NotNil(t, loaded[1].DiscountPercent)
	assert.Equal(t, 10, *loaded[1].DiscountPercent)
	assert.Equal(t, 2, loaded[0].Quantity)
}

func TestStoreLoadMissingOwnerReturnsEmpty(t *testing.T) {
	store, err := New(setupCartTestDB(t))
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), types.UserOwner("nobody"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStoreSaveReplacesItems(t *testing.T) {
	store, err := New(setupCartTestDB(t))
	require.NoError(t, err)

	owner := types.SessionOwner("sess-2")
	first := []types.CartLine{
		{ProductID: "sku-a", UnitListPrice: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: "sku-b", UnitListPrice: decimal.NewFromInt(20), Quantity: 1},
	}
	require.NoError(t, store.Save(context.Background(), owner, first, 1))

	second := []types.CartLine{
		{ProductID: "sku-b", UnitListPrice: decimal.NewFromInt(20), Quantity: 4},
	}
	require.NoError(t, store.Save(context.Background(), owner, second, 2))

	loaded, err := store.Load(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "sku-b", loaded[0].ProductID)
	assert.Equal(t, 4, loaded[0].Quantity)

	var count int64
	require.NoError(t, store.db.Model(&CartRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStoreSaveEmptyCartClearsItems(t *testing.T) {
	store, err := New(setupCartTestDB(t))
	require.NoError(t, err)

	owner := types.UserOwner("user-7")
	require.NoError(t, store.Save(context.Background(), owner, []types.CartLine{
		{ProductID: "sku-a", UnitListPrice: decimal.NewFromInt(10), Quantity: 1},
	}, 1))
	require.NoError(t, store.Save(context.Background(), owner, nil, 2))

	loaded, err := store.Load(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStoreMigrateMergesAndRemovesSessionCart(t *testing.T) {
	store, err := New(setupCartTestDB(t))
	require.NoError(t, err)

	sessionOwner := types.SessionOwner("sess-3")
	userOwner := types.UserOwner("user-3")

	require.NoError(t, store.Save(context.Background(), sessionOwner, []types.CartLine{
		{ProductID: "sku-shared", UnitListPrice: decimal.RequireFromString("11.00"), Quantity: 2},
		{ProductID: "sku-session-only", UnitListPrice: decimal.NewFromInt(5), Quantity: 1},
	}, 4))
	require.NoError(t, store.Save(context.Background(), userOwner, []types.CartLine{
		{ProductID: "sku-shared", UnitListPrice: decimal.RequireFromString("9.00"), Quantity: 3},
		{ProductID: "sku-user-only", UnitListPrice: decimal.NewFromInt(7), Quantity: 1},
	}, 9))

	require.NoError(t, store.Migrate(context.Background(), "sess-3", "user-3"))

	merged, err := store.Load(context.Background(), userOwner)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, "sku-shared", merged[0].ProductID)
	assert.Equal(t, 5, merged[0].Quantity)
	assert.True(t, merged[0].UnitListPrice.Equal(decimal.RequireFromString("11.00")))
	assert.Equal(t, "sku-session-only", merged[1].ProductID)
	assert.Equal(t, "sku-user-only", merged[2].ProductID)

	sessionLines, err := store.Load(context.Background(), sessionOwner)
	require.NoError(t, err)
	assert.Empty(t, sessionLines)
}

func TestStoreMigrateWithoutSessionCartKeepsUserCart(t *testing.T) {
	store, err := New(setupCartTestDB(t))
	require.NoError(t, err)

	userOwner := types.UserOwner("user-4")
	require.NoError(t, store.Save(context.Background(), userOwner, []types.CartLine{
		{ProductID: "sku-keep", UnitListPrice: decimal.NewFromInt(30), Quantity: 2},
	}, 1))

	require.NoError(t, store.Migrate(context.Background(), "sess-missing", "user-4"))

	loaded, err := store.Load(context.Background(), userOwner)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "sku-keep", loaded[0].ProductID)
	assert.Equal(t, 2, loaded[0].Quantity)
}

func TestNewRequiresHandle(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
