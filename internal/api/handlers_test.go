package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/factoryia/fincasya-new/internal/catalog"
	"github.com/factoryia/fincasya-new/internal/conversation"
	"github.com/factoryia/fincasya-new/internal/database"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/gin-gonic/gin"
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

type noopSyncer struct{}

func (noopSyncer) CreateItem(context.Context, string, string, catalog.ItemData) error { return nil }
func (noopSyncer) UpdateItem(context.Context, string, string, catalog.ItemData) error { return nil }
func (noopSyncer) DeleteItem(context.Context, string, string) error                   { return nil }

// inlineEnqueuer runs tasks synchronously and remembers their names.
type inlineEnqueuer struct {
	names []string
}

func (e *inlineEnqueuer) Enqueue(name string, fn func(ctx context.Context) error) {
	e.names = append(e.names, name)
	_ = fn(context.Background())
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *inlineEnqueuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	jobs := &inlineEnqueuer{}
	linker := catalog.NewLinker(db, noopSyncer{}, jobs)
	catalogs := NewCatalogHandler(db, linker, jobs)
	conversations := NewConversationHandler(db, conversation.NewService(db))

	r := gin.New()
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/catalogs", catalogs.GetCatalogs)
		apiGroup.POST("/catalogs", catalogs.CreateCatalog)
		apiGroup.PUT("/catalogs/:id", catalogs.UpdateCatalog)
		apiGroup.POST("/catalogs/resync", catalogs.Resync)
		apiGroup.GET("/fincas/:fincaId/catalogs", catalogs.GetFincaLinks)
		apiGroup.PUT("/fincas/:fincaId/catalogs/:catalogId", catalogs.LinkFinca)
		apiGroup.DELETE("/fincas/:fincaId/catalogs/:catalogId", catalogs.UnlinkFinca)
		apiGroup.PUT("/fincas/:fincaId/catalogs", catalogs.ReplaceFincaLinks)
		apiGroup.GET("/conversations", conversations.GetConversations)
		apiGroup.GET("/conversations/:id/messages", conversations.GetMessages)
		apiGroup.POST("/conversations/:id/escalate", conversations.Escalate)
		apiGroup.POST("/conversations/:id/resolve", conversations.Resolve)
		apiGroup.POST("/conversations/:id/reopen", conversations.Reopen)
	}
	return r, db, jobs
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndListCatalogs(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/catalogs", gin.H{
		"name":             "Tolima",
		"meta_catalog_id":  "meta-tolima",
		"location_keyword": "tolima",
		"order":            1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/api/catalogs", gin.H{
		"name":            "General",
		"meta_catalog_id": "meta-general",
		"is_default":      true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, "/api/catalogs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.Catalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	// Ordered by sort_order then id.
	assert.Equal(t, "General", got[0].Name)
	assert.Equal(t, "Tolima", got[1].Name)
}

func TestCreateCatalogValidation(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/catalogs", gin.H{"name": "Sin meta"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCatalogNotFound(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodPut, "/api/catalogs/99", gin.H{
		"name":            "X",
		"meta_catalog_id": "meta-x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLinkAndUnlinkFinca(t *testing.T) {
	r, db, jobs := newTestRouter(t)

	finca := models.Finca{Name: "Villa Green", Location: "Melgar", PriceBase: 500000}
	require.NoError(t, db.Create(&finca).Error)
	cat := models.Catalog{Name: "General", MetaCatalogID: "meta-general", IsDefault: true}
	require.NoError(t, db.Create(&cat).Error)

	path := "/api/fincas/1/catalogs/1"
	w := do(t, r, http.MethodPut, path, gin.H{"product_retailer_id": "prod-vg"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, jobs.names, "catalog.item.create")

	w = do(t, r, http.MethodGet, "/api/fincas/1/catalogs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var links []models.FincaCatalogLink
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Len(t, links, 1)
	assert.Equal(t, "prod-vg", links[0].ProductRetailerID)

	w = do(t, r, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.FincaCatalogLink{}).Count(&count)
	assert.Zero(t, count)
}

func TestReplaceFincaLinksWithEmptySet(t *testing.T) {
	r, db, _ := newTestRouter(t)

	finca := models.Finca{Name: "Villa Green", Location: "Melgar", PriceBase: 500000}
	require.NoError(t, db.Create(&finca).Error)
	cat := models.Catalog{Name: "General", MetaCatalogID: "meta-general", IsDefault: true}
	require.NoError(t, db.Create(&cat).Error)
	require.NoError(t, db.Create(&models.FincaCatalogLink{
		FincaID: finca.ID, CatalogID: cat.ID, ProductRetailerID: "prod-vg",
	}).Error)

	w := do(t, r, http.MethodPut, "/api/fincas/1/catalogs", gin.H{"entries": []gin.H{}})
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.FincaCatalogLink{}).Count(&count)
	assert.Zero(t, count)
}

func TestResyncIsScheduled(t *testing.T) {
	r, _, jobs := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/catalogs/resync", gin.H{"finca_ids": []uint{}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, jobs.names, "catalog.bulk_resync")
}

func TestInvalidIDParam(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/conversations/abc/escalate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationLifecycleEndpoints(t *testing.T) {
	r, db, _ := newTestRouter(t)

	svc := conversation.NewService(db)
	conv, _, err := svc.GetOrCreate("573001112233", "Ana")
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/api/conversations/1/escalate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	status, err := svc.Status(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHuman, status)

	w = do(t, r, http.MethodPost, "/api/conversations/1/reopen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status, _ = svc.Status(conv.ID)
	assert.Equal(t, models.StatusAI, status)

	w = do(t, r, http.MethodPost, "/api/conversations/1/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status, _ = svc.Status(conv.ID)
	assert.Equal(t, models.StatusResolved, status)

	w = do(t, r, http.MethodPost, "/api/conversations/42/resolve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationListFilterAndOrder(t *testing.T) {
	r, db, _ := newTestRouter(t)

	svc := conversation.NewService(db)
	first, _, err := svc.GetOrCreate("573001112233", "Ana")
	require.NoError(t, err)
	second, _, err := svc.GetOrCreate("573009998877", "Luis")
	require.NoError(t, err)
	require.NoError(t, svc.Escalate(first.ID))

	// Bump the second conversation so it sorts first.
	_, err = svc.AppendMessage(second.ID, models.SenderUser, "hola", "wamid.b")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Conversation{}).Where("id = ?", second.ID).
		Update("last_message_at", time.Now().Add(time.Minute)).Error)

	w := do(t, r, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	w = do(t, r, http.MethodGet, "/api/conversations?status=human", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var humans []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &humans))
	require.Len(t, humans, 1)
	assert.Equal(t, first.ID, humans[0].ID)
}

func TestGetMessagesChronological(t *testing.T) {
	r, db, _ := newTestRouter(t)

	svc := conversation.NewService(db)
	conv, _, err := svc.GetOrCreate("573001112233", "Ana")
	require.NoError(t, err)
	_, err = svc.AppendMessage(conv.ID, models.SenderUser, "hola", "wamid.1")
	require.NoError(t, err)
	_, err = svc.AppendMessage(conv.ID, models.SenderAssistant, "¡Hola! ¿En qué te ayudo?", "")
	require.NoError(t, err)

	w := do(t, r, http.MethodGet, "/api/conversations/1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 3) // welcome + two appended
	assert.Equal(t, "hola", msgs[1].Content)
	assert.Equal(t, models.SenderAssistant, msgs[2].Sender)
}
