// Package conversation implements the ai/human/resolved state machine
// around contacts and their message threads.
package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/factoryia/fincasya-new/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WelcomeMessage is the exact script seeded as the first assistant message
// of every brand-new conversation.
const WelcomeMessage = "¡Hola! 👋 Bienvenido a FincasYa, expertos en alquiler de fincas de descanso. Cuéntame, ¿para qué lugar y en qué fechas estás buscando finca?"

// ErrNotFound is returned by status transitions on a missing conversation.
var ErrNotFound = errors.New("conversation: not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetOrCreate returns the contact's conversation, creating or reactivating
// as needed. Priority: an active (ai or human) conversation is returned
// unchanged; otherwise the most recent resolved one is flipped back to ai
// without re-seeding the welcome; otherwise a new conversation is created
// with the welcome script as its first message. The second return value
// reports whether a brand-new conversation was created.
//
// Runs inside a transaction holding a row lock on the contact so two rapid
// messages from the same number cannot create two conversations.
func (s *Service) GetOrCreate(phone, name string) (*models.Conversation, bool, error) {
	var conv models.Conversation
	created := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertContact(tx, phone, name); err != nil {
			return err
		}

		locked := tx
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var contact models.Contact
		if err := locked.First(&contact, "phone = ?", phone).Error; err != nil {
			return fmt.Errorf("lock contact: %w", err)
		}

		err := tx.Where("contact_phone = ? AND status IN ?", phone,
			[]string{models.StatusAI, models.StatusHuman}).
			Order("created_at desc").First(&conv).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Reactivate the most recent resolved conversation instead of
		// creating a new record; the contact is continuing, not starting
		// fresh, so no welcome message on this path.
		err = tx.Where("contact_phone = ? AND status = ?", phone, models.StatusResolved).
			Order("created_at desc").First(&conv).Error
		if err == nil {
			conv.Status = models.StatusAI
			return tx.Save(&conv).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conv = models.Conversation{
			ContactPhone:  phone,
			Status:        models.StatusAI,
			LastMessageAt: time.Now(),
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		welcome := models.Message{
			ConversationID: conv.ID,
			Sender:         models.SenderAssistant,
			Content:        WelcomeMessage,
		}
		if err := tx.Create(&welcome).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &conv, created, nil
}

func upsertContact(tx *gorm.DB, phone, name string) error {
	contact := models.Contact{Phone: phone, Name: name}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(&contact).Error; err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	if name != "" {
		// Fill in the display name for contacts first seen without one.
		if err := tx.Model(&models.Contact{}).
			Where("phone = ? AND (name = '' OR name IS NULL)", phone).
			Update("name", name).Error; err != nil {
			return err
		}
	}
	return nil
}

// AppendMessage persists a message and bumps the conversation's
// last-message timestamp.
func (s *Service) AppendMessage(conversationID uint, sender, content, wamID string) (*models.Message, error) {
	msg := models.Message{
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		WamID:          wamID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conversationID).
			Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Status re-reads the conversation's current status from the store.
// Callers gate automated replies on this, never on a value cached earlier
// in the request.
func (s *Service) Status(conversationID uint) (string, error) {
	var conv models.Conversation
	if err := s.db.Select("status").First(&conv, conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return conv.Status, nil
}

// Escalate hands the conversation to a human agent. Idempotent.
func (s *Service) Escalate(conversationID uint) error {
	return s.setStatus(conversationID, models.StatusHuman)
}

// ReturnToAI resumes automation on the conversation. Idempotent.
func (s *Service) ReturnToAI(conversationID uint) error {
	return s.setStatus(conversationID, models.StatusAI)
}

// Resolve closes the conversation. Terminal until GetOrCreate reactivates
// it on the contact's next message.
func (s *Service) Resolve(conversationID uint) error {
	return s.setStatus(conversationID, models.StatusResolved)
}

func (s *Service) setStatus(conversationID uint, status string) error {
	res := s.db.Model(&models.Conversation{}).Where("id = ?", conversationID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.Model(&models.Conversation{}).Where("id = ?", conversationID).Count(&count)
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// MarkHumanOnOutbound flips the contact's active conversation to human
// when the business messages them through the external channel directly,
// so automation goes quiet. Resolved conversations are left untouched and
// a missing conversation is a no-op.
func (s *Service) MarkHumanOnOutbound(phone string) error {
	return s.db.Model(&models.Conversation{}).
		Where("contact_phone = ? AND status IN ?", phone,
			[]string{models.StatusAI, models.StatusHuman}).
		Update("status", models.StatusHuman).Error
}

// RecentMessages returns the newest limit messages in chronological order.
func (s *Service) RecentMessages(conversationID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at desc, id desc").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
