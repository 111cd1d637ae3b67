package model

import (
	"time"
)

// Tag is a session-scoped label attached to contacts (many-to-many).
type Tag struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	SessionID   string    `json:"session_id" gorm:"column:session_id;index;type:text" validate:"required"`
	Name        string    `json:"name" gorm:"type:text" validate:"required"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Color       string    `json:"color,omitempty" gorm:"type:text;default:#007bff"`
	Icon        string    `json:"icon,omitempty" gorm:"type:text"`
	IsActive    bool      `json:"is_active,omitempty" gorm:"column:is_active;default:true"`
	Contacts    []Contact `json:"contacts,omitempty" gorm:"many2many:contact_tags"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}
