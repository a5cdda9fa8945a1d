package api

import (
	"errors"
	"net/http"

	"github.com/factoryia/fincasya-new/internal/conversation"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ConversationHandler struct {
	db      *gorm.DB
	service *conversation.Service
}

func NewConversationHandler(db *gorm.DB, service *conversation.Service) *ConversationHandler {
	return &ConversationHandler{db: db, service: service}
}

func (h *ConversationHandler) GetConversations(c *gin.Context) {
	var conversations []models.Conversation
	q := h.db.Order("last_message_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&conversations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *ConversationHandler) GetMessages(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var msgs []models.Message
	if err := h.db.Where("conversation_id = ?", id).Order("created_at asc, id asc").
		Find(&msgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// Escalate hands a conversation to a human agent; automation goes silent.
func (h *ConversationHandler) Escalate(c *gin.Context) {
	h.transition(c, h.service.Escalate, "Conversation escalated")
}

// Resolve closes a conversation.
func (h *ConversationHandler) Resolve(c *gin.Context) {
	h.transition(c, h.service.Resolve, "Conversation resolved")
}

// Reopen returns a conversation to automated handling.
func (h *ConversationHandler) Reopen(c *gin.Context) {
	h.transition(c, h.service.ReturnToAI, "Conversation returned to AI")
}

func (h *ConversationHandler) transition(c *gin.Context, fn func(uint) error, okMsg string) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := fn(id); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": okMsg})
}
