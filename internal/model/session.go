package model

import (
	"time"

	"gorm.io/datatypes"
)

// Session status values. A session rests in disconnected or error; all other
// states are driven by the lifecycle runner.
const (
	SessionStatusDisconnected = "disconnected"
	SessionStatusConnecting   = "connecting"
	SessionStatusQRPending    = "qr_pending"
	SessionStatusConnected    = "connected"
	SessionStatusError        = "error"
)

// Session represents one externally-addressable messaging account managed by
// this service, with its last-known connection status.
type Session struct {
	// ID is the internal database primary key.
	ID int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	// SessionID is the externally chosen unique identifier for the session.
	SessionID string `json:"session_id" gorm:"column:session_id;uniqueIndex" validate:"required"`
	// UserID identifies the owning account.
	UserID string `json:"user_id,omitempty" gorm:"column:user_id;index"`
	// Status is the last persisted lifecycle state.
	Status string `json:"status,omitempty" gorm:"column:status;default:disconnected"`
	// PhoneNumber is known only once the session authenticated.
	PhoneNumber string `json:"phone_number,omitempty" gorm:"column:phone_number"`
	// ProfileName is the profile name reported on authentication.
	ProfileName string `json:"profile_name,omitempty" gorm:"column:profile_name"`
	// QRCode holds the rendered pairing payload (data URL), present only while pairing.
	QRCode string `json:"qr_code,omitempty" gorm:"column:qr_code"`
	// LastSeen is the time of the last successful authentication.
	LastSeen *time.Time `json:"last_seen,omitempty" gorm:"column:last_seen"`
	// Settings is an opaque blob (auto-reply, business hours, webhook URL);
	// the session core never interprets it.
	Settings  datatypes.JSON `json:"settings,omitempty" gorm:"type:jsonb;column:settings"`
	CreatedAt time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}

// SessionUpdateColumns returns the column names that are allowed to be updated
// during an upsert operation. Excludes primary key, session_id, user_id and
// created_at.
func SessionUpdateColumns() []string {
	return []string{
		"status",
		"phone_number",
		"profile_name",
		"qr_code",
		"last_seen",
		"settings",
		"updated_at",
	}
}
