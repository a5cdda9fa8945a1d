package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ItemSyncer is the remote catalog API surface the linker schedules calls
// against. *MetaClient is the production implementation.
type ItemSyncer interface {
	CreateItem(ctx context.Context, metaCatalogID, retailerID string, data ItemData) error
	UpdateItem(ctx context.Context, metaCatalogID, retailerID string, data ItemData) error
	DeleteItem(ctx context.Context, metaCatalogID, retailerID string) error
}

// Enqueuer schedules fire-and-forget background work.
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error)
}

// Linker owns the finca-to-catalog link table. Local writes are
// authoritative; remote pushes happen in the background and the external
// catalog is eventually consistent.
type Linker struct {
	db     *gorm.DB
	syncer ItemSyncer
	jobs   Enqueuer
}

func NewLinker(db *gorm.DB, syncer ItemSyncer, jobs Enqueuer) *Linker {
	return &Linker{db: db, syncer: syncer, jobs: jobs}
}

// LinkEntry is one target (catalog, retailer id) pair for ReplaceAll.
type LinkEntry struct {
	CatalogID         uint   `json:"catalog_id" binding:"required"`
	ProductRetailerID string `json:"product_retailer_id" binding:"required"`
}

// Link upserts the (finca, catalog) pair's retailer id and schedules a
// remote CREATE (new link) or UPDATE (re-link) for the item.
func (l *Linker) Link(fincaID, catalogID uint, productRetailerID string) error {
	cat, err := l.catalog(catalogID)
	if err != nil {
		return err
	}
	finca, err := l.finca(fincaID)
	if err != nil {
		return err
	}

	var existing models.FincaCatalogLink
	err = l.db.Where("finca_id = ? AND catalog_id = ?", fincaID, catalogID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		link := models.FincaCatalogLink{
			FincaID:           fincaID,
			CatalogID:         catalogID,
			ProductRetailerID: productRetailerID,
		}
		if err := l.db.Create(&link).Error; err != nil {
			return fmt.Errorf("create link: %w", err)
		}
		l.schedulePush("catalog.item.create", cat.MetaCatalogID, productRetailerID, *finca, false)
	case err != nil:
		return err
	default:
		existing.ProductRetailerID = productRetailerID
		if err := l.db.Save(&existing).Error; err != nil {
			return fmt.Errorf("update link: %w", err)
		}
		l.schedulePush("catalog.item.update", cat.MetaCatalogID, productRetailerID, *finca, true)
	}

	return nil
}

// Unlink removes the (finca, catalog) link and schedules a remote DELETE.
// A missing link is a no-op.
func (l *Linker) Unlink(fincaID, catalogID uint) error {
	var link models.FincaCatalogLink
	err := l.db.Where("finca_id = ? AND catalog_id = ?", fincaID, catalogID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	cat, err := l.catalog(catalogID)
	if err != nil {
		return err
	}

	if err := l.db.Delete(&link).Error; err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	l.scheduleDelete(cat.MetaCatalogID, link.ProductRetailerID)

	return nil
}

// ReplaceAll swaps the full catalog set of a finca: every existing link is
// deleted (with a scheduled remote DELETE), then the new entries are
// inserted (with scheduled remote CREATEs). Not transactional across the
// remote calls; local state is the target set regardless, and the remote
// side converges on the next resync.
func (l *Linker) ReplaceAll(fincaID uint, entries []LinkEntry) error {
	finca, err := l.finca(fincaID)
	if err != nil {
		return err
	}

	var existing []models.FincaCatalogLink
	if err := l.db.Where("finca_id = ?", fincaID).Find(&existing).Error; err != nil {
		return err
	}

	for _, link := range existing {
		cat, err := l.catalog(link.CatalogID)
		if err != nil {
			log.Error().Err(err).Uint("catalog_id", link.CatalogID).Msg("skipping remote delete for unknown catalog")
			continue
		}
		l.scheduleDelete(cat.MetaCatalogID, link.ProductRetailerID)
	}
	if len(existing) > 0 {
		if err := l.db.Where("finca_id = ?", fincaID).Delete(&models.FincaCatalogLink{}).Error; err != nil {
			return fmt.Errorf("clear links: %w", err)
		}
	}

	for _, entry := range entries {
		cat, err := l.catalog(entry.CatalogID)
		if err != nil {
			return err
		}
		link := models.FincaCatalogLink{
			FincaID:           fincaID,
			CatalogID:         entry.CatalogID,
			ProductRetailerID: entry.ProductRetailerID,
		}
		if err := l.db.Create(&link).Error; err != nil {
			return fmt.Errorf("create link: %w", err)
		}
		l.schedulePush("catalog.item.create", cat.MetaCatalogID, entry.ProductRetailerID, *finca, false)
	}

	return nil
}

// BulkResync re-pushes the full current item payload for every link of
// every given finca as an UPDATE. Each catalog is attempted independently;
// one failure never aborts the siblings. Returns the number of successful
// pushes.
func (l *Linker) BulkResync(ctx context.Context, fincaIDs []uint) (int, error) {
	var links []models.FincaCatalogLink
	q := l.db.Model(&models.FincaCatalogLink{})
	if len(fincaIDs) > 0 {
		q = q.Where("finca_id IN ?", fincaIDs)
	}
	if err := q.Find(&links).Error; err != nil {
		return 0, err
	}

	succeeded := 0
	for _, link := range links {
		cat, err := l.catalog(link.CatalogID)
		if err != nil {
			log.Error().Err(err).Uint("catalog_id", link.CatalogID).Msg("resync: catalog lookup failed")
			continue
		}
		finca, err := l.finca(link.FincaID)
		if err != nil {
			log.Error().Err(err).Uint("finca_id", link.FincaID).Msg("resync: finca lookup failed")
			continue
		}

		if err := l.syncer.UpdateItem(ctx, cat.MetaCatalogID, link.ProductRetailerID, BuildItemData(*finca)); err != nil {
			log.Error().Err(err).
				Uint("finca_id", link.FincaID).
				Str("retailer_id", link.ProductRetailerID).
				Msg("resync: remote update failed")
			continue
		}
		succeeded++
	}

	log.Info().Int("succeeded", succeeded).Int("total", len(links)).Msg("catalog resync finished")
	return succeeded, nil
}

func (l *Linker) schedulePush(name, metaCatalogID, retailerID string, finca models.Finca, update bool) {
	data := BuildItemData(finca)
	l.jobs.Enqueue(name, func(ctx context.Context) error {
		if update {
			return l.syncer.UpdateItem(ctx, metaCatalogID, retailerID, data)
		}
		return l.syncer.CreateItem(ctx, metaCatalogID, retailerID, data)
	})
}

func (l *Linker) scheduleDelete(metaCatalogID, retailerID string) {
	l.jobs.Enqueue("catalog.item.delete", func(ctx context.Context) error {
		return l.syncer.DeleteItem(ctx, metaCatalogID, retailerID)
	})
}

func (l *Linker) catalog(id uint) (*models.Catalog, error) {
	var cat models.Catalog
	if err := l.db.First(&cat, id).Error; err != nil {
		return nil, fmt.Errorf("catalog %d: %w", id, err)
	}
	return &cat, nil
}

func (l *Linker) finca(id uint) (*models.Finca, error) {
	var finca models.Finca
	if err := l.db.First(&finca, id).Error; err != nil {
		return nil, fmt.Errorf("finca %d: %w", id, err)
	}
	return &finca, nil
}
