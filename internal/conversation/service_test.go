package conversation

import (
	"testing"

	"github.com/factoryia/fincasya-new/internal/database"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

const phone = "573001112233"

func TestGetOrCreateSeedsWelcome(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	conv, created, err := s.GetOrCreate(phone, "Ana")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StatusAI, conv.Status)

	var msgs []models.Message
	require.NoError(t, db.Where("conversation_id = ?", conv.ID).Order("id asc").Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderAssistant, msgs[0].Sender)
	assert.Equal(t, WelcomeMessage, msgs[0].Content)

	var contact models.Contact
	require.NoError(t, db.First(&contact, "phone = ?", phone).Error)
	assert.Equal(t, "Ana", contact.Name)
}

func TestGetOrCreateReturnsActiveUnchanged(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	first, _, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)

	second, created, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Escalated conversations are still active and still returned.
	require.NoError(t, s.Escalate(first.ID))
	third, created, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, models.StatusHuman, third.Status)
}

func TestGetOrCreateReusesResolved(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	first, _, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)
	require.NoError(t, s.Resolve(first.ID))

	reused, created, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, reused.ID)
	assert.Equal(t, models.StatusAI, reused.Status)

	// Reactivation does not re-append the welcome message.
	var count int64
	db.Model(&models.Message{}).Where("conversation_id = ?", first.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	var total int64
	db.Model(&models.Conversation{}).Where("contact_phone = ?", phone).Count(&total)
	assert.EqualValues(t, 1, total)
}

func TestStatusTransitionsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	conv, _, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)

	require.NoError(t, s.Escalate(conv.ID))
	require.NoError(t, s.Escalate(conv.ID))
	status, err := s.Status(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHuman, status)

	require.NoError(t, s.ReturnToAI(conv.ID))
	require.NoError(t, s.ReturnToAI(conv.ID))
	status, _ = s.Status(conv.ID)
	assert.Equal(t, models.StatusAI, status)

	require.NoError(t, s.Resolve(conv.ID))
	require.NoError(t, s.Resolve(conv.ID))
	status, _ = s.Status(conv.ID)
	assert.Equal(t, models.StatusResolved, status)
}

func TestTransitionOnMissingConversation(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	assert.ErrorIs(t, s.Escalate(9999), ErrNotFound)
	_, err := s.Status(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkHumanOnOutbound(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	conv, _, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)

	require.NoError(t, s.MarkHumanOnOutbound(phone))
	status, _ := s.Status(conv.ID)
	assert.Equal(t, models.StatusHuman, status)

	// Resolved conversations stay resolved; no implicit reactivation.
	require.NoError(t, s.Resolve(conv.ID))
	require.NoError(t, s.MarkHumanOnOutbound(phone))
	status, _ = s.Status(conv.ID)
	assert.Equal(t, models.StatusResolved, status)

	// Unknown contact is a no-op.
	require.NoError(t, s.MarkHumanOnOutbound("570000000000"))
}

func TestAppendMessageBumpsLastMessageAt(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	conv, _, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)

	msg, err := s.AppendMessage(conv.ID, models.SenderUser, "hola", "wamid.1")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", msg.WamID)

	var updated models.Conversation
	require.NoError(t, db.First(&updated, conv.ID).Error)
	assert.Equal(t, msg.CreatedAt.Unix(), updated.LastMessageAt.Unix())
}

func TestRecentMessagesChronological(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	conv, _, err := s.GetOrCreate(phone, "")
	require.NoError(t, err)

	for _, text := range []string{"uno", "dos", "tres"} {
		_, err := s.AppendMessage(conv.ID, models.SenderUser, text, "")
		require.NoError(t, err)
	}

	msgs, err := s.RecentMessages(conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "dos", msgs[0].Content)
	assert.Equal(t, "tres", msgs[1].Content)
}
