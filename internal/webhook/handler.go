// Package webhook ingests channel provider events: parse, deduplicate,
// route, and always acknowledge.
package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/factoryia/fincasya-new/internal/composer"
	"github.com/factoryia/fincasya-new/internal/conversation"
	"github.com/factoryia/fincasya-new/internal/models"
	"github.com/factoryia/fincasya-new/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Responder produces the automated reply for a persisted inbound message.
type Responder interface {
	Respond(ctx context.Context, in composer.Inbound) error
}

type Handler struct {
	db            *gorm.DB
	conversations *conversation.Service
	responder     Responder
	hub           *ws.Hub
}

func NewHandler(db *gorm.DB, conversations *conversation.Service, responder Responder, hub *ws.Hub) *Handler {
	return &Handler{db: db, conversations: conversations, responder: responder, hub: hub}
}

// Health answers the channel provider's GET health checks.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// Receive handles POSTed webhook events. Anything that parses as JSON is
// acknowledged with 200 — retries are the provider's job for transport
// failures only, and an application error must not trigger a redelivery.
func (h *Handler) Receive(c *gin.Context) {
	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	outcome := h.process(c.Request.Context(), event)

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"receivedAt": time.Now().UTC().Format(time.RFC3339),
		"message":    outcome,
	})
}

func (h *Handler) process(ctx context.Context, event Event) string {
	switch event.Type {
	case TypeMessageReceived:
		return h.processInbound(ctx, event)
	case TypeMessageSent:
		return h.processOutbound(event)
	default:
		log.Debug().Str("type", event.Type).Msg("ignoring webhook event of unknown type")
		return "ignored"
	}
}

func (h *Handler) processInbound(ctx context.Context, event Event) string {
	msg := event.Message
	if msg == nil || msg.From == "" || msg.Empty() {
		return "ignored"
	}

	// Record the event id before any side effects. The unique index makes
	// the check-and-record atomic: of two concurrent deliveries exactly
	// one insert sticks.
	if event.EventID != "" {
		fresh, err := h.markProcessed(event.EventID)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.EventID).Msg("dedup check failed")
			return "error"
		}
		if !fresh {
			log.Info().Str("event_id", event.EventID).Msg("duplicate event skipped")
			return "duplicate"
		}
	}

	conv, created, err := h.conversations.GetOrCreate(msg.From, msg.PushName)
	if err != nil {
		log.Error().Err(err).Str("phone", msg.From).Msg("conversation lookup failed")
		return "error"
	}

	stored, err := h.conversations.AppendMessage(conv.ID, models.SenderUser, msg.DisplayText(), msg.ID)
	if err != nil {
		log.Error().Err(err).Uint("conversation_id", conv.ID).Msg("message persistence failed")
		return "error"
	}
	if h.hub != nil {
		h.hub.Broadcast("message.new", stored)
		if created {
			h.hub.Broadcast("conversation.updated", conv)
		}
	}

	// The user's message is safely recorded; a reply failure from here on
	// is logged and swallowed.
	err = h.responder.Respond(ctx, composer.Inbound{
		Conversation: conv,
		Created:      created,
		Phone:        msg.From,
		Text:         msg.DisplayText(),
		WamID:        msg.ID,
	})
	if err != nil {
		log.Error().Err(err).Uint("conversation_id", conv.ID).Msg("automated reply failed")
	}

	return "processed"
}

func (h *Handler) processOutbound(event Event) string {
	msg := event.Message
	if msg == nil || msg.To == "" {
		return "ignored"
	}

	// A human agent answered through the channel directly; stop automating
	// the active conversation. No conversation is a no-op, and resolved
	// conversations are never reactivated from this path.
	if err := h.conversations.MarkHumanOnOutbound(msg.To); err != nil {
		log.Error().Err(err).Str("phone", msg.To).Msg("mark-human-on-outbound failed")
		return "error"
	}
	return "ok"
}

// markProcessed inserts the event id, reporting false when a record
// already existed.
func (h *Handler) markProcessed(eventID string) (bool, error) {
	record := models.ProcessedEvent{EventID: eventID}
	res := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
