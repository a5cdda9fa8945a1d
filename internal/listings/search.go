// Package listings answers finca lookups: name search and availability
// over a (location, date-range) pair.
package listings

import (
	"strings"
	"time"

	"github.com/factoryia/fincasya-new/internal/models"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SearchByName finds fincas whose name contains the term,
// case-insensitively.
func (s *Service) SearchByName(term string) ([]models.Finca, error) {
	var fincas []models.Finca
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	err := s.db.Where("LOWER(name) LIKE ?", pattern).Order("id asc").Find(&fincas).Error
	if err != nil {
		return nil, err
	}
	return fincas, nil
}

// FindAvailable returns fincas in the given location with no pending or
// confirmed booking overlapping the half-open range [entry, exit). Two
// half-open ranges overlap when each starts before the other ends.
func (s *Service) FindAvailable(location string, entry, exit time.Time) ([]models.Finca, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(location)) + "%"

	var fincas []models.Finca
	err := s.db.
		Where("LOWER(location) LIKE ?", pattern).
		Where(`NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.finca_id = fincas.id
			  AND b.status <> ?
			  AND b.check_in < ?
			  AND ? < b.check_out
		)`, models.BookingCancelled, exit, entry).
		Order("id asc").
		Find(&fincas).Error
	if err != nil {
		return nil, err
	}
	return fincas, nil
}
