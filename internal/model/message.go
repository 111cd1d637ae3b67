package model

import (
	"time"
)

// Message direction values.
const (
	MessageDirectionIncoming = "incoming"
	MessageDirectionOutgoing = "outgoing"
)

// Message status values. Outbound messages default to pending, accepted
// inbound messages to delivered.
const (
	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
)

// Message content types, classified by payload variant.
const (
	MessageTypeText        = "text"
	MessageTypeImage       = "image"
	MessageTypeAudio       = "audio"
	MessageTypeVideo       = "video"
	MessageTypeDocument    = "document"
	MessageTypeSticker     = "sticker"
	MessageTypeLocation    = "location"
	MessageTypeContactCard = "contact_card"
)

// MediaPlaceholder substitutes for text content when an unsupported payload
// kind carries no caption.
const MediaPlaceholder = "[Mídia]"

// Message represents a chat message, immutable once persisted except for
// status transitions.
type Message struct {
	ID int64 `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	// MessageID is the protocol-assigned message ID, unique within a session.
	MessageID string `json:"message_id" gorm:"column:message_id;uniqueIndex:idx_messages_session_message" validate:"required"`
	SessionID string `json:"session_id" gorm:"column:session_id;uniqueIndex:idx_messages_session_message;index" validate:"required"`
	ContactID string `json:"contact_id" gorm:"column:contact_id;index" validate:"required"`
	Type      string `json:"type,omitempty" gorm:"column:type;default:text"`
	Direction string `json:"direction" gorm:"column:direction" validate:"required,oneof=incoming outgoing"`
	Status    string `json:"status,omitempty" gorm:"column:status;default:pending"`
	// Content is the message text or media caption.
	Content       string `json:"content,omitempty" gorm:"column:content;type:text"`
	MediaURL      string `json:"media_url,omitempty" gorm:"column:media_url"`
	MediaFilename string `json:"media_filename,omitempty" gorm:"column:media_filename"`
	MediaMimeType string `json:"media_mime_type,omitempty" gorm:"column:media_mime_type"`
	MediaSize     int64  `json:"media_size,omitempty" gorm:"column:media_size"`
	IsForwarded   bool   `json:"is_forwarded,omitempty" gorm:"column:is_forwarded"`
	IsStarred     bool   `json:"is_starred,omitempty" gorm:"column:is_starred"`
	// Timestamp is the protocol-supplied event time, not ingestion time.
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;index"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}

// MessageUpdatableFields returns the column names that may change after the
// record is persisted. Everything else is immutable.
func MessageUpdatableFields() []string {
	return []string{
		"status", "updated_at",
	}
}
