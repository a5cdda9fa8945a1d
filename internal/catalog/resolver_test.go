package catalog

import (
	"testing"

	"github.com/factoryia/fincasya-new/internal/database"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestResolveForLocation(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	bogota := models.Catalog{Name: "Bogotá", MetaCatalogID: "cat-bogota", LocationKeyword: "bogota", SortOrder: 0, IsDefault: true}
	tolima := models.Catalog{Name: "Tolima", MetaCatalogID: "cat-tolima", LocationKeyword: "tolima", SortOrder: 1}
	require.NoError(t, db.Create(&bogota).Error)
	require.NoError(t, db.Create(&tolima).Error)

	t.Run("keyword match wins", func(t *testing.T) {
		got, err := r.ResolveForLocation("Ibagué, Tolima")
		require.NoError(t, err)
		assert.Equal(t, tolima.ID, got.ID)
	})

	t.Run("no keyword match falls back to default", func(t *testing.T) {
		got, err := r.ResolveForLocation("Girardot")
		require.NoError(t, err)
		assert.Equal(t, bogota.ID, got.ID)
	})

	t.Run("keyword comparison is case-insensitive", func(t *testing.T) {
		got, err := r.ResolveForLocation("BOGOTA centro")
		require.NoError(t, err)
		assert.Equal(t, bogota.ID, got.ID)
	})
}

func TestResolveForLocationTieBreak(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	second := models.Catalog{Name: "B", MetaCatalogID: "cat-b", LocationKeyword: "melgar", SortOrder: 2}
	first := models.Catalog{Name: "A", MetaCatalogID: "cat-a", LocationKeyword: "melgar", SortOrder: 1}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&first).Error)

	// Both keywords match; the lower sort order wins regardless of
	// insertion order.
	got, err := r.ResolveForLocation("melgar")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestResolveFallbackWithoutDefault(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	low := models.Catalog{Name: "Low", MetaCatalogID: "cat-low", SortOrder: 0}
	high := models.Catalog{Name: "High", MetaCatalogID: "cat-high", SortOrder: 5}
	require.NoError(t, db.Create(&high).Error)
	require.NoError(t, db.Create(&low).Error)

	got, err := r.ResolveForLocation("nowhere special")
	require.NoError(t, err)
	assert.Equal(t, low.ID, got.ID)
}

func TestResolveNoCatalogs(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	_, err := r.ResolveForLocation("melgar")
	assert.ErrorIs(t, err, ErrNoCatalogs)

	_, err = r.Default()
	assert.ErrorIs(t, err, ErrNoCatalogs)
}

func TestProductIDs(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	cat := models.Catalog{Name: "Main", MetaCatalogID: "cat-main"}
	require.NoError(t, db.Create(&cat).Error)

	links := []models.FincaCatalogLink{
		{FincaID: 1, CatalogID: cat.ID, ProductRetailerID: "prod-1"},
		{FincaID: 3, CatalogID: cat.ID, ProductRetailerID: "prod-3"},
	}
	require.NoError(t, db.Create(&links).Error)

	t.Run("preserves request order and omits unlinked", func(t *testing.T) {
		ids, err := r.ProductIDs(cat.ID, []uint{3, 2, 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"prod-3", "prod-1"}, ids)
	})

	t.Run("empty request", func(t *testing.T) {
		ids, err := r.ProductIDs(cat.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
