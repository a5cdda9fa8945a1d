package whatsapp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/factoryia/fincasya-new/internal/config"
)

// ErrMissingCredentials is returned when WHATSAPP_TOKEN or PHONE_NUMBER_ID
// is not configured. Checked at call time, not at startup.
var ErrMissingCredentials = errors.New("whatsapp: WHATSAPP_TOKEN and PHONE_NUMBER_ID must be configured")

type Client struct {
	cfg  *config.Config
	http *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// --- Message Structures ---

type OutboundMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Text             *TextObj        `json:"text,omitempty"`
	Interactive      *InteractiveObj `json:"interactive,omitempty"`
	Context          *ContextObj     `json:"context,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

// ContextObj threads a reply onto an earlier message.
type ContextObj struct {
	MessageID string `json:"message_id"`
}

type InteractiveObj struct {
	Type   string     `json:"type"`
	Header *HeaderObj `json:"header,omitempty"`
	Body   BodyObj    `json:"body"`
	Footer *FooterObj `json:"footer,omitempty"`
	Action ActionObj  `json:"action"`
}

type HeaderObj struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type BodyObj struct {
	Text string `json:"text"`
}

type FooterObj struct {
	Text string `json:"text"`
}

type ActionObj struct {
	CatalogID         string       `json:"catalog_id,omitempty"`
	ProductRetailerID string       `json:"product_retailer_id,omitempty"`
	Sections          []SectionObj `json:"sections,omitempty"`
}

type SectionObj struct {
	Title        string        `json:"title,omitempty"`
	ProductItems []ProductItem `json:"product_items,omitempty"`
}

type ProductItem struct {
	ProductRetailerID string `json:"product_retailer_id"`
}

// --- Sending ---

func (c *Client) send(msg OutboundMessage) error {
	if c.cfg.WhatsAppToken == "" || c.cfg.PhoneNumberID == "" {
		return ErrMissingCredentials
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.GraphBaseURL, c.cfg.PhoneNumberID)

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.WhatsAppToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("whatsapp API error: %s - %s", resp.Status, string(respBody))
	}

	return nil
}

// SendText sends a plain text message. replyTo, when non-empty, threads
// the message as a reply to that wamid.
func (c *Client) SendText(to, body, replyTo string) error {
	msg := OutboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &TextObj{Body: body},
	}
	if replyTo != "" {
		msg.Context = &ContextObj{MessageID: replyTo}
	}
	return c.send(msg)
}

// SendCatalogCard sends an interactive catalog message: a single "product"
// card for exactly one retailer id, a one-section "product_list" for more.
func (c *Client) SendCatalogCard(to string, productIDs []string, body, catalogID, replyTo string) error {
	if catalogID == "" {
		return errors.New("whatsapp: catalog id is required for catalog messages")
	}
	if len(productIDs) == 0 {
		return errors.New("whatsapp: at least one product retailer id is required")
	}

	interactive := &InteractiveObj{
		Body: BodyObj{Text: body},
	}

	if len(productIDs) == 1 {
		interactive.Type = "product"
		interactive.Action = ActionObj{
			CatalogID:         catalogID,
			ProductRetailerID: productIDs[0],
		}
	} else {
		items := make([]ProductItem, 0, len(productIDs))
		for _, id := range productIDs {
			items = append(items, ProductItem{ProductRetailerID: id})
		}
		interactive.Type = "product_list"
		interactive.Header = &HeaderObj{Type: "text", Text: "Fincas disponibles"}
		interactive.Action = ActionObj{
			CatalogID: catalogID,
			Sections:  []SectionObj{{Title: "Opciones", ProductItems: items}},
		}
	}

	msg := OutboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}
	if replyTo != "" {
		msg.Context = &ContextObj{MessageID: replyTo}
	}
	return c.send(msg)
}
