package catalog

import (
	"fmt"

	"github.com/factoryia/fincasya-new/internal/models"
)

// ItemData is the product payload pushed to the Meta catalog batch API.
type ItemData struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        string `json:"price"`
	SalePrice    string `json:"sale_price,omitempty"`
	Currency     string `json:"currency"`
	ImageURL     string `json:"image_url,omitempty"`
	Availability string `json:"availability"`
}

// BuildItemData maps a finca to its remote catalog payload. The sale price
// is included only for a genuine discount: strictly positive and strictly
// below the base price. Otherwise the field is omitted entirely, never
// sent as zero.
func BuildItemData(f models.Finca) ItemData {
	item := ItemData{
		Name:         f.Name,
		Description:  f.Description,
		Price:        fmt.Sprintf("%d COP", f.PriceBase),
		Currency:     "COP",
		ImageURL:     f.ImageURL,
		Availability: "in stock",
	}
	if f.PriceBaja > 0 && f.PriceBaja < f.PriceBase {
		item.SalePrice = fmt.Sprintf("%d COP", f.PriceBaja)
	}
	return item
}
