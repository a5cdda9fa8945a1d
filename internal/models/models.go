package models

import (
	"time"
)

// Conversation statuses.
const (
	StatusAI       = "ai"
	StatusHuman    = "human"
	StatusResolved = "resolved"
)

// Message senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Contact represents a WhatsApp contact, keyed by phone number.
type Contact struct {
	Phone     string    `gorm:"primaryKey;type:varchar(32)" json:"phone"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Conversation groups the messages exchanged with one contact.
// At most one conversation per contact is active (ai or human) at a time.
type Conversation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ContactPhone  string    `gorm:"index;type:varchar(32);not null" json:"contact_phone"`
	Status        string    `gorm:"type:varchar(20);not null;default:'ai';index" json:"status"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is one entry of a conversation. Append-only.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	Sender         string    `gorm:"type:varchar(20);not null" json:"sender"`
	Content        string    `gorm:"type:text" json:"content"`
	WamID          string    `gorm:"type:varchar(255)" json:"wamid"` // WhatsApp message id, for reply threading
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// ProcessedEvent records a handled webhook event id. Existence of a row
// means the event was already processed and retries must be skipped.
type ProcessedEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"uniqueIndex;type:varchar(255);not null" json:"event_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}

// Catalog represents an externally hosted WhatsApp product catalog.
type Catalog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	MetaCatalogID   string    `gorm:"type:varchar(255);not null" json:"meta_catalog_id"`
	IsDefault       bool      `gorm:"default:false" json:"is_default"`
	LocationKeyword string    `gorm:"type:varchar(255)" json:"location_keyword"`
	SortOrder       int       `gorm:"default:0" json:"order"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Catalog) TableName() string {
	return "whatsapp_catalogs"
}

// FincaCatalogLink maps a finca to its product retailer id inside one
// catalog. Unique per (finca, catalog) pair; re-linking updates in place.
type FincaCatalogLink struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	FincaID           uint      `gorm:"not null;uniqueIndex:ux_finca_catalog,priority:1" json:"finca_id"`
	CatalogID         uint      `gorm:"not null;uniqueIndex:ux_finca_catalog,priority:2" json:"catalog_id"`
	ProductRetailerID string    `gorm:"type:varchar(255);not null" json:"product_retailer_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FincaCatalogLink) TableName() string {
	return "finca_catalog_links"
}

// Finca is a rental listing.
type Finca struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"type:varchar(255);index" json:"location"`
	PriceBase   int64     `json:"price_base"` // COP per night, high season
	PriceBaja   int64     `json:"price_baja"` // COP per night, low season
	Capacity    int       `json:"capacity"`
	ImageURL    string    `gorm:"type:text" json:"image_url"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Finca) TableName() string {
	return "fincas"
}

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking occupies a finca over the half-open range [check_in, check_out).
type Booking struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FincaID   uint      `gorm:"index;not null" json:"finca_id"`
	CheckIn   time.Time `gorm:"not null" json:"check_in"`
	CheckOut  time.Time `gorm:"not null" json:"check_out"`
	Status    string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Document is a knowledge-base entry used to ground generated replies.
// Embedding holds a JSON-encoded []float32 produced by the embeddings API.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Embedding string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}
