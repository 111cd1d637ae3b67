package model

import (
	"time"

	"gorm.io/datatypes"
)

// Contact represents a contact in the PostgreSQL database, unique per
// (session_id, phone_number). Created lazily on first inbound message or
// explicitly via the command API.
type Contact struct {
	ID        string `json:"id" gorm:"primaryKey;type:text"`
	SessionID string `json:"session_id" gorm:"column:session_id;uniqueIndex:idx_contacts_session_phone;type:text" validate:"required"`
	// PhoneNumber is the canonical phone identity, transport suffix stripped.
	PhoneNumber string `json:"phone_number" gorm:"column:phone_number;uniqueIndex:idx_contacts_session_phone;type:text" validate:"required"`
	// DisplayName comes from the protocol (push name); inbound processing may refresh it.
	DisplayName string `json:"display_name,omitempty" gorm:"column:display_name;type:text"`
	// CustomName is the operator-set override; never overwritten by inbound processing.
	CustomName string `json:"custom_name,omitempty" gorm:"column:custom_name;type:text"`
	Notes      string `json:"notes,omitempty" gorm:"type:text"`
	Category   string `json:"category,omitempty" gorm:"type:text"`
	Color      string `json:"color,omitempty" gorm:"type:text"`
	IsBlocked  bool   `json:"is_blocked,omitempty" gorm:"column:is_blocked"`
	IsFavorite bool   `json:"is_favorite,omitempty" gorm:"column:is_favorite"`
	// LastMessageAt advances to the newest event timestamp; never regresses.
	LastMessageAt *time.Time     `json:"last_message_at,omitempty" gorm:"column:last_message_at"`
	CustomFields  datatypes.JSON `json:"custom_fields,omitempty" gorm:"type:jsonb;column:custom_fields"`
	Tags          []Tag          `json:"tags,omitempty" gorm:"many2many:contact_tags"`
	CreatedAt     time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Contact model.
func (Contact) TableName() string {
	return "contacts"
}

// ContactUpdateColumns returns the columns refreshed when an inbound event
// touches an existing contact. CustomName is deliberately excluded.
func ContactUpdateColumns() []string {
	return []string{
		"display_name",
		"updated_at",
	}
}
