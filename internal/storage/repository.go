package storage

import (
	"context"
	"time"

	"github.com/brendondev/central-empresa/internal/model"
)

// SessionRepo defines session record storage operations
type SessionRepo interface {
	Save(ctx context.Context, session model.Session) error
	Update(ctx context.Context, session model.Session) error
	// UpdateStatus persists one lifecycle transition. The QR payload is stored
	// as given; an empty string clears it.
	UpdateStatus(ctx context.Context, sessionID, status, qrCode string) error
	// SetIdentity records the authenticated account identity and last-seen time.
	SetIdentity(ctx context.Context, sessionID, phoneNumber, profileName string, lastSeen time.Time) error
	FindBySessionID(ctx context.Context, sessionID string) (*model.Session, error)
	FindByUserID(ctx context.Context, userID string) ([]model.Session, error)
	FindAll(ctx context.Context) ([]model.Session, error)
	Delete(ctx context.Context, sessionID string) error
	Close(ctx context.Context) error
}

// ContactRepo defines contact storage operations
type ContactRepo interface {
	// InsertOrFetch creates the contact if no row exists for its
	// (session_id, phone_number) pair, otherwise returns the existing row.
	// A non-empty DisplayName refreshes the stored one; CustomName is never
	// touched.
	InsertOrFetch(ctx context.Context, contact model.Contact) (*model.Contact, error)
	// AdvanceLastMessageAt moves last_message_at forward to ts. Older
	// timestamps are a no-op.
	AdvanceLastMessageAt(ctx context.Context, contactID string, ts time.Time) error
	Save(ctx context.Context, contact model.Contact) error
	Update(ctx context.Context, contact model.Contact) error
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	FindBySessionAndPhone(ctx context.Context, sessionID, phoneNumber string) (*model.Contact, error)
	FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Contact, error)
	// ReplaceTags swaps the contact's tag set for the given tag IDs.
	ReplaceTags(ctx context.Context, contactID string, tagIDs []string) error
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// MessageRepo defines message storage operations
type MessageRepo interface {
	Save(ctx context.Context, message model.Message) error
	UpdateStatus(ctx context.Context, sessionID, messageID, status string) error
	FindByMessageID(ctx context.Context, sessionID, messageID string) (*model.Message, error)
	FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error)
	FindByContactID(ctx context.Context, sessionID, contactID string, limit, offset int) ([]model.Message, error)
	Close(ctx context.Context) error
}

// TagRepo defines tag storage operations
type TagRepo interface {
	Save(ctx context.Context, tag model.Tag) error
	Update(ctx context.Context, tag model.Tag) error
	FindByID(ctx context.Context, id string) (*model.Tag, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]model.Tag, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// AutomationRepo defines automation rule storage operations
type AutomationRepo interface {
	Save(ctx context.Context, automation model.Automation) error
	Update(ctx context.Context, automation model.Automation) error
	FindByID(ctx context.Context, id string) (*model.Automation, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]model.Automation, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}
