// Package catalog maps fincas to the external product identifiers used by
// the WhatsApp catalog feature and keeps the remote catalogs in sync with
// local listing data.
package catalog

import (
	"errors"
	"strings"

	"github.com/factoryia/fincasya-new/internal/models"

	"gorm.io/gorm"
)

// ErrNoCatalogs is returned when resolution is requested but no catalogs
// exist at all; callers must treat it as "cannot present catalog".
var ErrNoCatalogs = errors.New("catalog: no catalogs configured")

// Resolver picks catalogs deterministically and looks up product ids.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ordered returns all catalogs in resolution order.
func (r *Resolver) ordered() ([]models.Catalog, error) {
	var catalogs []models.Catalog
	if err := r.db.Order("sort_order asc, id asc").Find(&catalogs).Error; err != nil {
		return nil, err
	}
	return catalogs, nil
}

// ResolveForLocation picks the catalog for a free-text location: first
// catalog (ascending sort order) whose keyword is a case-insensitive
// substring of the location, then the default-flagged catalog, then the
// lowest-order catalog overall.
func (r *Resolver) ResolveForLocation(location string) (*models.Catalog, error) {
	catalogs, err := r.ordered()
	if err != nil {
		return nil, err
	}
	if len(catalogs) == 0 {
		return nil, ErrNoCatalogs
	}

	loc := strings.ToLower(strings.TrimSpace(location))
	if loc != "" {
		for i := range catalogs {
			kw := strings.ToLower(strings.TrimSpace(catalogs[i].LocationKeyword))
			if kw != "" && strings.Contains(loc, kw) {
				return &catalogs[i], nil
			}
		}
	}

	return pickFallback(catalogs), nil
}

// Default returns the default-flagged catalog, or the lowest-order one
// when no default is flagged.
func (r *Resolver) Default() (*models.Catalog, error) {
	catalogs, err := r.ordered()
	if err != nil {
		return nil, err
	}
	if len(catalogs) == 0 {
		return nil, ErrNoCatalogs
	}
	return pickFallback(catalogs), nil
}

func pickFallback(catalogs []models.Catalog) *models.Catalog {
	for i := range catalogs {
		if catalogs[i].IsDefault {
			return &catalogs[i]
		}
	}
	return &catalogs[0]
}

// ProductIDs returns the retailer ids linked to the given fincas in one
// catalog, preserving the order of fincaIDs. Fincas without a link are
// silently omitted; callers must handle a result smaller than the request.
func (r *Resolver) ProductIDs(catalogID uint, fincaIDs []uint) ([]string, error) {
	if len(fincaIDs) == 0 {
		return nil, nil
	}

	var links []models.FincaCatalogLink
	if err := r.db.Where("catalog_id = ? AND finca_id IN ?", catalogID, fincaIDs).
		Find(&links).Error; err != nil {
		return nil, err
	}

	byFinca := make(map[uint]string, len(links))
	for _, l := range links {
		byFinca[l.FincaID] = l.ProductRetailerID
	}

	ids := make([]string, 0, len(links))
	for _, fincaID := range fincaIDs {
		if pid, ok := byFinca[fincaID]; ok {
			ids = append(ids, pid)
		}
	}
	return ids, nil
}
