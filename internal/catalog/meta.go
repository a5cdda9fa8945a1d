package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/factoryia/fincasya-new/internal/config"

	"github.com/go-resty/resty/v2"
)

// ErrMissingAccessToken is returned when no Meta access token is
// configured. Background workers log it and abandon the push.
var ErrMissingAccessToken = errors.New("catalog: WHATSAPP_TOKEN must be configured for catalog sync")

// MetaClient pushes catalog items to the Meta Graph batch API, one item
// per request.
type MetaClient struct {
	http  *resty.Client
	token string
}

func NewMetaClient(cfg *config.Config) *MetaClient {
	client := resty.New().
		SetBaseURL(cfg.GraphBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &MetaClient{http: client, token: cfg.WhatsAppToken}
}

type batchItemRequest struct {
	Method     string    `json:"method"` // CREATE, UPDATE or DELETE
	RetailerID string    `json:"retailer_id"`
	Data       *ItemData `json:"data,omitempty"`
}

type batchRequest struct {
	AllowUpsert bool               `json:"allow_upsert"`
	Requests    []batchItemRequest `json:"requests"`
}

func (c *MetaClient) push(ctx context.Context, metaCatalogID, method, retailerID string, data *ItemData) error {
	if c.token == "" {
		return ErrMissingAccessToken
	}

	body := batchRequest{
		AllowUpsert: method != "DELETE",
		Requests:    []batchItemRequest{{Method: method, RetailerID: retailerID, Data: data}},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetBody(body).
		Post(fmt.Sprintf("/%s/batch", metaCatalogID))
	if err != nil {
		return fmt.Errorf("catalog %s %s: %w", method, retailerID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("catalog %s %s: %s - %s", method, retailerID, resp.Status(), resp.String())
	}

	return nil
}

func (c *MetaClient) CreateItem(ctx context.Context, metaCatalogID, retailerID string, data ItemData) error {
	return c.push(ctx, metaCatalogID, "CREATE", retailerID, &data)
}

func (c *MetaClient) UpdateItem(ctx context.Context, metaCatalogID, retailerID string, data ItemData) error {
	return c.push(ctx, metaCatalogID, "UPDATE", retailerID, &data)
}

func (c *MetaClient) DeleteItem(ctx context.Context, metaCatalogID, retailerID string) error {
	return c.push(ctx, metaCatalogID, "DELETE", retailerID, nil)
}
