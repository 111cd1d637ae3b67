package storage

import (
	"context"
	"time"

	"github.com/brendondev/central-empresa/internal/model"
)

// SessionRepoAdapter adapts the PostgresRepo to the SessionRepo interface
type SessionRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSessionRepoAdapter creates a new session repository adapter
func NewSessionRepoAdapter(postgres *PostgresRepo) SessionRepo {
	return &SessionRepoAdapter{postgres: postgres}
}

func (a *SessionRepoAdapter) Save(ctx context.Context, session model.Session) error {
	return a.postgres.SaveSession(ctx, session)
}

func (a *SessionRepoAdapter) Update(ctx context.Context, session model.Session) error {
	return a.postgres.UpdateSession(ctx, session)
}

func (a *SessionRepoAdapter) UpdateStatus(ctx context.Context, sessionID, status, qrCode string) error {
	return a.postgres.UpdateSessionStatus(ctx, sessionID, status, qrCode)
}

func (a *SessionRepoAdapter) SetIdentity(ctx context.Context, sessionID, phoneNumber, profileName string, lastSeen time.Time) error {
	return a.postgres.SetSessionIdentity(ctx, sessionID, phoneNumber, profileName, lastSeen)
}

func (a *SessionRepoAdapter) FindBySessionID(ctx context.Context, sessionID string) (*model.Session, error) {
	return a.postgres.FindSessionBySessionID(ctx, sessionID)
}

func (a *SessionRepoAdapter) FindByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	return a.postgres.FindSessionsByUserID(ctx, userID)
}

func (a *SessionRepoAdapter) FindAll(ctx context.Context) ([]model.Session, error) {
	return a.postgres.FindAllSessions(ctx)
}

func (a *SessionRepoAdapter) Delete(ctx context.Context, sessionID string) error {
	return a.postgres.DeleteSession(ctx, sessionID)
}

func (a *SessionRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ContactRepoAdapter adapts the PostgresRepo to the ContactRepo interface
type ContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewContactRepoAdapter creates a new contact repository adapter
func NewContactRepoAdapter(postgres *PostgresRepo) ContactRepo {
	return &ContactRepoAdapter{postgres: postgres}
}

func (a *ContactRepoAdapter) InsertOrFetch(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	return a.postgres.InsertOrFetchContact(ctx, contact)
}

func (a *ContactRepoAdapter) AdvanceLastMessageAt(ctx context.Context, contactID string, ts time.Time) error {
	return a.postgres.AdvanceContactLastMessageAt(ctx, contactID, ts)
}

func (a *ContactRepoAdapter) Save(ctx context.Context, contact model.Contact) error {
	return a.postgres.SaveContact(ctx, contact)
}

func (a *ContactRepoAdapter) Update(ctx context.Context, contact model.Contact) error {
	return a.postgres.UpdateContact(ctx, contact)
}

func (a *ContactRepoAdapter) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	return a.postgres.FindContactByID(ctx, id)
}

func (a *ContactRepoAdapter) FindBySessionAndPhone(ctx context.Context, sessionID, phoneNumber string) (*model.Contact, error) {
	return a.postgres.FindContactBySessionAndPhone(ctx, sessionID, phoneNumber)
}

func (a *ContactRepoAdapter) FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Contact, error) {
	return a.postgres.FindContactsBySessionID(ctx, sessionID, limit, offset)
}

func (a *ContactRepoAdapter) ReplaceTags(ctx context.Context, contactID string, tagIDs []string) error {
	return a.postgres.ReplaceContactTags(ctx, contactID, tagIDs)
}

func (a *ContactRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteContact(ctx, id)
}

func (a *ContactRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

func (a *MessageRepoAdapter) Save(ctx context.Context, message model.Message) error {
	return a.postgres.SaveMessage(ctx, message)
}

func (a *MessageRepoAdapter) UpdateStatus(ctx context.Context, sessionID, messageID, status string) error {
	return a.postgres.UpdateMessageStatus(ctx, sessionID, messageID, status)
}

func (a *MessageRepoAdapter) FindByMessageID(ctx context.Context, sessionID, messageID string) (*model.Message, error) {
	return a.postgres.FindMessageByMessageID(ctx, sessionID, messageID)
}

func (a *MessageRepoAdapter) FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error) {
	return a.postgres.FindMessagesBySessionID(ctx, sessionID, limit, offset)
}

func (a *MessageRepoAdapter) FindByContactID(ctx context.Context, sessionID, contactID string, limit, offset int) ([]model.Message, error) {
	return a.postgres.FindMessagesByContactID(ctx, sessionID, contactID, limit, offset)
}

func (a *MessageRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// TagRepoAdapter adapts the PostgresRepo to the TagRepo interface
type TagRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTagRepoAdapter creates a new tag repository adapter
func NewTagRepoAdapter(postgres *PostgresRepo) TagRepo {
	return &TagRepoAdapter{postgres: postgres}
}

func (a *TagRepoAdapter) Save(ctx context.Context, tag model.Tag) error {
	return a.postgres.SaveTag(ctx, tag)
}

func (a *TagRepoAdapter) Update(ctx context.Context, tag model.Tag) error {
	return a.postgres.UpdateTag(ctx, tag)
}

func (a *TagRepoAdapter) FindByID(ctx context.Context, id string) (*model.Tag, error) {
	return a.postgres.FindTagByID(ctx, id)
}

func (a *TagRepoAdapter) FindBySessionID(ctx context.Context, sessionID string) ([]model.Tag, error) {
	return a.postgres.FindTagsBySessionID(ctx, sessionID)
}

func (a *TagRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteTag(ctx, id)
}

func (a *TagRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// AutomationRepoAdapter adapts the PostgresRepo to the AutomationRepo interface
type AutomationRepoAdapter struct {
	postgres *PostgresRepo
}

// NewAutomationRepoAdapter creates a new automation repository adapter
func NewAutomationRepoAdapter(postgres *PostgresRepo) AutomationRepo {
	return &AutomationRepoAdapter{postgres: postgres}
}

func (a *AutomationRepoAdapter) Save(ctx context.Context, automation model.Automation) error {
	return a.postgres.SaveAutomation(ctx, automation)
}

func (a *AutomationRepoAdapter) Update(ctx context.Context, automation model.Automation) error {
	return a.postgres.UpdateAutomation(ctx, automation)
}

func (a *AutomationRepoAdapter) FindByID(ctx context.Context, id string) (*model.Automation, error) {
	return a.postgres.FindAutomationByID(ctx, id)
}

func (a *AutomationRepoAdapter) FindBySessionID(ctx context.Context, sessionID string) ([]model.Automation, error) {
	return a.postgres.FindAutomationsBySessionID(ctx, sessionID)
}

func (a *AutomationRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteAutomation(ctx, id)
}

func (a *AutomationRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}
