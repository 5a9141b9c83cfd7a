package models

import (
	"time"

	"github.com/google/uuid"
)

// Action record statuses.
const (
	StatusInitiated = "initiated"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCompleted = "completed"
)

type Call struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PhoneNumber    string    `gorm:"size:32;not null" json:"phone_number"`
	Topic          string    `gorm:"type:text;not null" json:"topic"`
	Script         string    `gorm:"type:text" json:"-"`
	Status         string    `gorm:"size:20;not null;default:'initiated'" json:"status"`
	ProviderStatus string    `gorm:"size:30" json:"provider_status,omitempty"`
	CallSID        *string   `gorm:"size:64;uniqueIndex" json:"call_sid,omitempty"`
	DurationSec    int       `json:"duration_sec"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Email struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Recipient         string    `gorm:"size:255;not null" json:"recipient"`
	Subject           string    `gorm:"size:500;not null" json:"subject"`
	Body              string    `gorm:"type:text" json:"body"`
	Status            string    `gorm:"size:20;not null;default:'initiated'" json:"status"`
	ProviderMessageID string    `gorm:"size:255" json:"provider_message_id,omitempty"`
	ErrorMessage      string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type SmsConversation struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PhoneNumber   string    `gorm:"size:32;not null;index" json:"phone_number"`
	Topic         string    `gorm:"type:text;not null" json:"topic"`
	Status        string    `gorm:"size:20;not null;default:'initiated'" json:"status"`
	ExchangeCount int       `gorm:"not null;default:0" json:"exchange_count"`
	MaxExchanges  int       `gorm:"not null" json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Done reports whether the conversation accepts no further exchanges.
func (c *SmsConversation) Done() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}

const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

type SmsMessage struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Direction      string    `gorm:"size:10;not null" json:"direction"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	MessageSID     *string   `gorm:"size:64" json:"message_sid,omitempty"`
	Status         string    `gorm:"size:20;not null" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
