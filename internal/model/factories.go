package model

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Test data factories. Kept in the main package so repository and service
// tests share consistent fixtures.

// NewFakeSession creates a Session with randomized but valid fields.
func NewFakeSession(overrides ...func(*Session)) Session {
	s := Session{
		SessionID: fmt.Sprintf("session-%s", gofakeit.LetterN(8)),
		UserID:    uuid.New().String(),
		Status:    SessionStatusDisconnected,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	for _, fn := range overrides {
		fn(&s)
	}
	return s
}

// NewFakeContact creates a Contact bound to the given session.
func NewFakeContact(sessionID string, overrides ...func(*Contact)) Contact {
	c := Contact{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		PhoneNumber: gofakeit.Numerify("55###########"),
		DisplayName: gofakeit.Name(),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	for _, fn := range overrides {
		fn(&c)
	}
	return c
}

// NewFakeMessage creates an incoming text Message linking the given session
// and contact.
func NewFakeMessage(sessionID, contactID string, overrides ...func(*Message)) Message {
	m := Message{
		MessageID: uuid.New().String(),
		SessionID: sessionID,
		ContactID: contactID,
		Type:      MessageTypeText,
		Direction: MessageDirectionIncoming,
		Status:    MessageStatusDelivered,
		Content:   gofakeit.Sentence(6),
		Timestamp: time.Now().UTC(),
	}
	for _, fn := range overrides {
		fn(&m)
	}
	return m
}

// NewFakeTag creates a Tag scoped to the given session.
func NewFakeTag(sessionID string, overrides ...func(*Tag)) Tag {
	t := Tag{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Name:      gofakeit.BuzzWord(),
		Color:     gofakeit.HexColor(),
		IsActive:  true,
	}
	for _, fn := range overrides {
		fn(&t)
	}
	return t
}
