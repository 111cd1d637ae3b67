package model

import (
	"time"
)

// Notification event types published to interested clients.
const (
	NotificationStatusChanged   = "status_changed"
	NotificationMessageReceived = "message_received"
)

// StatusChangedEvent is the fire-and-forget notification emitted on every
// session lifecycle transition.
type StatusChangedEvent struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	QRCode    string    `json:"qr_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageReceivedEvent is the notification emitted after an inbound message
// has been persisted.
type MessageReceivedEvent struct {
	SessionID string    `json:"session_id"`
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
