package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/factoryia/fincasya-new/internal/catalog"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CatalogHandler struct {
	db     *gorm.DB
	linker *catalog.Linker
	jobs   catalog.Enqueuer
}

func NewCatalogHandler(db *gorm.DB, linker *catalog.Linker, jobs catalog.Enqueuer) *CatalogHandler {
	return &CatalogHandler{db: db, linker: linker, jobs: jobs}
}

func (h *CatalogHandler) GetCatalogs(c *gin.Context) {
	var catalogs []models.Catalog
	if err := h.db.Order("sort_order asc, id asc").Find(&catalogs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if catalogs == nil {
		catalogs = []models.Catalog{}
	}
	c.JSON(http.StatusOK, catalogs)
}

type catalogRequest struct {
	Name            string `json:"name" binding:"required"`
	MetaCatalogID   string `json:"meta_catalog_id" binding:"required"`
	IsDefault       bool   `json:"is_default"`
	LocationKeyword string `json:"location_keyword"`
	SortOrder       int    `json:"order"`
}

func (h *CatalogHandler) CreateCatalog(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat := models.Catalog{
		Name:            req.Name,
		MetaCatalogID:   req.MetaCatalogID,
		IsDefault:       req.IsDefault,
		LocationKeyword: req.LocationKeyword,
		SortOrder:       req.SortOrder,
	}
	if err := h.db.Create(&cat).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create catalog"})
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) UpdateCatalog(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.db.Model(&models.Catalog{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":             req.Name,
		"meta_catalog_id":  req.MetaCatalogID,
		"is_default":       req.IsDefault,
		"location_keyword": req.LocationKeyword,
		"sort_order":       req.SortOrder,
	})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update catalog"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catalog not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Catalog updated"})
}

func (h *CatalogHandler) GetFincaLinks(c *gin.Context) {
	fincaID, ok := uintParam(c, "fincaId")
	if !ok {
		return
	}

	var links []models.FincaCatalogLink
	if err := h.db.Where("finca_id = ?", fincaID).Find(&links).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if links == nil {
		links = []models.FincaCatalogLink{}
	}
	c.JSON(http.StatusOK, links)
}

type linkRequest struct {
	ProductRetailerID string `json:"product_retailer_id" binding:"required"`
}

func (h *CatalogHandler) LinkFinca(c *gin.Context) {
	fincaID, ok := uintParam(c, "fincaId")
	if !ok {
		return
	}
	catalogID, ok := uintParam(c, "catalogId")
	if !ok {
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.linker.Link(fincaID, catalogID, req.ProductRetailerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Finca linked"})
}

func (h *CatalogHandler) UnlinkFinca(c *gin.Context) {
	fincaID, ok := uintParam(c, "fincaId")
	if !ok {
		return
	}
	catalogID, ok := uintParam(c, "catalogId")
	if !ok {
		return
	}

	if err := h.linker.Unlink(fincaID, catalogID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Finca unlinked"})
}

type replaceLinksRequest struct {
	Entries []catalog.LinkEntry `json:"entries"`
}

func (h *CatalogHandler) ReplaceFincaLinks(c *gin.Context) {
	fincaID, ok := uintParam(c, "fincaId")
	if !ok {
		return
	}

	var req replaceLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.linker.ReplaceAll(fincaID, req.Entries); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Links replaced", "count": len(req.Entries)})
}

type resyncRequest struct {
	FincaIDs []uint `json:"finca_ids"`
}

// Resync schedules a full re-push of the linked items; the per-catalog
// success count is computed and logged by the background task.
func (h *CatalogHandler) Resync(c *gin.Context) {
	var req resyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fincaIDs := req.FincaIDs
	h.jobs.Enqueue("catalog.bulk_resync", func(ctx context.Context) error {
		_, err := h.linker.BulkResync(ctx, fincaIDs)
		return err
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "Resync scheduled"})
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
