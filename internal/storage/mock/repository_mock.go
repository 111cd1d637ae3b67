package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/brendondev/central-empresa/internal/model"
)

// --- SessionRepo Mock ---

// SessionRepoMock mocks the SessionRepo interface
type SessionRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *SessionRepoMock) Save(ctx context.Context, session model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// Update mocks the Update method
func (m *SessionRepoMock) Update(ctx context.Context, session model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// UpdateStatus mocks the UpdateStatus method
func (m *SessionRepoMock) UpdateStatus(ctx context.Context, sessionID, status, qrCode string) error {
	args := m.Called(ctx, sessionID, status, qrCode)
	return args.Error(0)
}

// SetIdentity mocks the SetIdentity method
func (m *SessionRepoMock) SetIdentity(ctx context.Context, sessionID, phoneNumber, profileName string, lastSeen time.Time) error {
	args := m.Called(ctx, sessionID, phoneNumber, profileName, lastSeen)
	return args.Error(0)
}

// FindBySessionID mocks the FindBySessionID method
func (m *SessionRepoMock) FindBySessionID(ctx context.Context, sessionID string) (*model.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

// FindByUserID mocks the FindByUserID method
func (m *SessionRepoMock) FindByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

// FindAll mocks the FindAll method
func (m *SessionRepoMock) FindAll(ctx context.Context) ([]model.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

// Delete mocks the Delete method
func (m *SessionRepoMock) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// Close mocks the Close method
func (m *SessionRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ContactRepo Mock ---

// ContactRepoMock mocks the ContactRepo interface
type ContactRepoMock struct {
	mock.Mock
}

// InsertOrFetch mocks the InsertOrFetch method
func (m *ContactRepoMock) InsertOrFetch(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// AdvanceLastMessageAt mocks the AdvanceLastMessageAt method
func (m *ContactRepoMock) AdvanceLastMessageAt(ctx context.Context, contactID string, ts time.Time) error {
	args := m.Called(ctx, contactID, ts)
	return args.Error(0)
}

// Save mocks the Save method
func (m *ContactRepoMock) Save(ctx context.Context, contact model.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

// Update mocks the Update method
func (m *ContactRepoMock) Update(ctx context.Context, contact model.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *ContactRepoMock) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// FindBySessionAndPhone mocks the FindBySessionAndPhone method
func (m *ContactRepoMock) FindBySessionAndPhone(ctx context.Context, sessionID, phoneNumber string) (*model.Contact, error) {
	args := m.Called(ctx, sessionID, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// FindBySessionID mocks the FindBySessionID method
func (m *ContactRepoMock) FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Contact, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

// ReplaceTags mocks the ReplaceTags method
func (m *ContactRepoMock) ReplaceTags(ctx context.Context, contactID string, tagIDs []string) error {
	args := m.Called(ctx, contactID, tagIDs)
	return args.Error(0)
}

// Delete mocks the Delete method
func (m *ContactRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Close mocks the Close method
func (m *ContactRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *MessageRepoMock) Save(ctx context.Context, message model.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// UpdateStatus mocks the UpdateStatus method
func (m *MessageRepoMock) UpdateStatus(ctx context.Context, sessionID, messageID, status string) error {
	args := m.Called(ctx, sessionID, messageID, status)
	return args.Error(0)
}

// FindByMessageID mocks the FindByMessageID method
func (m *MessageRepoMock) FindByMessageID(ctx context.Context, sessionID, messageID string) (*model.Message, error) {
	args := m.Called(ctx, sessionID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

// FindBySessionID mocks the FindBySessionID method
func (m *MessageRepoMock) FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// FindByContactID mocks the FindByContactID method
func (m *MessageRepoMock) FindByContactID(ctx context.Context, sessionID, contactID string, limit, offset int) ([]model.Message, error) {
	args := m.Called(ctx, sessionID, contactID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// Close mocks the Close method
func (m *MessageRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- TagRepo Mock ---

// TagRepoMock mocks the TagRepo interface
type TagRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *TagRepoMock) Save(ctx context.Context, tag model.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

// Update mocks the Update method
func (m *TagRepoMock) Update(ctx context.Context, tag model.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *TagRepoMock) FindByID(ctx context.Context, id string) (*model.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

// FindBySessionID mocks the FindBySessionID method
func (m *TagRepoMock) FindBySessionID(ctx context.Context, sessionID string) ([]model.Tag, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

// Delete mocks the Delete method
func (m *TagRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Close mocks the Close method
func (m *TagRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- AutomationRepo Mock ---

// AutomationRepoMock mocks the AutomationRepo interface
type AutomationRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *AutomationRepoMock) Save(ctx context.Context, automation model.Automation) error {
	args := m.Called(ctx, automation)
	return args.Error(0)
}

// Update mocks the Update method
func (m *AutomationRepoMock) Update(ctx context.Context, automation model.Automation) error {
	args := m.Called(ctx, automation)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *AutomationRepoMock) FindByID(ctx context.Context, id string) (*model.Automation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Automation), args.Error(1)
}

// FindBySessionID mocks the FindBySessionID method
func (m *AutomationRepoMock) FindBySessionID(ctx context.Context, sessionID string) ([]model.Automation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Automation), args.Error(1)
}

// Delete mocks the Delete method
func (m *AutomationRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Close mocks the Close method
func (m *AutomationRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
