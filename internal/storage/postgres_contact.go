package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// --- Contact Repository Methods ---

// InsertOrFetchContact creates the contact when no row exists for its
// (session_id, phone_number) pair and returns the persisted row either way.
// Concurrent callers race on the unique index, never on a read-then-write
// window. A non-empty DisplayName refreshes the stored one on conflict;
// CustomName belongs to the operator and is never written here.
func (r *PostgresRepo) InsertOrFetchContact(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := utils.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "phone_number"}},
		DoNothing: true,
	}
	if contact.DisplayName != "" {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.AssignmentColumns(model.ContactUpdateColumns())
	}

	var persisted model.Contact
	operation := func() error {
		if err := r.db.WithContext(ctx).Clauses(conflict).Create(&contact).Error; err != nil {
			return checkConstraintViolation(err)
		}
		// DoNothing returns no row on conflict; re-read for the caller either way.
		err := r.db.WithContext(ctx).
			Where("session_id = ? AND phone_number = ?", contact.SessionID, contact.PhoneNumber).
			First(&persisted).Error
		if err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "InsertOrFetchContact", operation)
	observer.ObserveDbOperationDuration("insert_or_fetch", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to insert-or-fetch contact after retries",
			zap.String("session_id", contact.SessionID),
			zap.String("phone_number", contact.PhoneNumber),
			zap.Error(err))
		return nil, err
	}
	return &persisted, nil
}

// AdvanceContactLastMessageAt moves last_message_at forward to ts. The guard
// in the WHERE clause keeps out-of-order events from regressing it.
func (r *PostgresRepo) AdvanceContactLastMessageAt(ctx context.Context, contactID string, ts time.Time) error {
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Contact{}).
			Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", contactID, ts).
			Updates(map[string]interface{}{
				"last_message_at": ts,
				"updated_at":      utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		// Zero rows means the stored timestamp is already newer. Not an error.
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "AdvanceContactLastMessageAt", operation)
	observer.ObserveDbOperationDuration("advance_last_message", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to advance contact last message time after retries",
			zap.String("contact_id", contactID), zap.Error(err))
		return err
	}
	return nil
}

// SaveContact creates a contact explicitly, via the command API.
func (r *PostgresRepo) SaveContact(ctx context.Context, contact model.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}

	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&contact).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "SaveContact", operation)
	observer.ObserveDbOperationDuration("save", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to save contact after retries",
			zap.String("session_id", contact.SessionID),
			zap.String("phone_number", contact.PhoneNumber),
			zap.Error(err))
		return err
	}
	return nil
}

// UpdateContact updates the operator-editable fields of an existing contact.
func (r *PostgresRepo) UpdateContact(ctx context.Context, contact model.Contact) error {
	contact.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Contact{}).
			Where("id = ?", contact.ID).
			Select("custom_name", "notes", "category", "color", "is_blocked", "is_favorite", "custom_fields", "updated_at").
			Updates(contact)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, contact.ID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateContact", operation)
	observer.ObserveDbOperationDuration("update", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update contact after retries",
			zap.String("contact_id", contact.ID), zap.Error(err))
		return err
	}
	return nil
}

// FindContactByID finds a contact by primary key, tags preloaded.
func (r *PostgresRepo) FindContactByID(ctx context.Context, id string) (*model.Contact, error) {
	var contact model.Contact

	operation := func() error {
		err := r.db.WithContext(ctx).Preload("Tags").Where("id = ?", id).First(&contact).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindContactByID", operation)
	observer.ObserveDbOperationDuration("find", "contact", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindContactBySessionAndPhone finds a contact by its natural key.
func (r *PostgresRepo) FindContactBySessionAndPhone(ctx context.Context, sessionID, phoneNumber string) (*model.Contact, error) {
	var contact model.Contact

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("session_id = ? AND phone_number = ?", sessionID, phoneNumber).
			First(&contact).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contact %s/%s", apperrors.ErrNotFound, sessionID, phoneNumber)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindContactBySessionAndPhone", operation)
	observer.ObserveDbOperationDuration("find_by_phone", "contact", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindContactsBySessionID lists contacts for a session, most recent
// conversation first.
func (r *PostgresRepo) FindContactsBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Contact, error) {
	var contacts []model.Contact
	if limit <= 0 {
		limit = 100
	}

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).
				Preload("Tags").
				Where("session_id = ?", sessionID).
				Order("last_message_at DESC NULLS LAST").
				Limit(limit).
				Offset(offset).
				Find(&contacts).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindContactsBySessionID", operation)
	observer.ObserveDbOperationDuration("find_by_session", "contact", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// ReplaceContactTags swaps the contact's tag set for the given tag IDs.
func (r *PostgresRepo) ReplaceContactTags(ctx context.Context, contactID string, tagIDs []string) error {
	operation := func() error {
		var contact model.Contact
		if err := r.db.WithContext(ctx).Where("id = ?", contactID).First(&contact).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, contactID)
			}
			return checkConstraintViolation(err)
		}

		var tags []model.Tag
		if len(tagIDs) > 0 {
			if err := r.db.WithContext(ctx).Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if len(tags) != len(tagIDs) {
				return fmt.Errorf("%w: one or more tags do not exist", apperrors.ErrBadRequest)
			}
			for _, tag := range tags {
				if tag.SessionID != contact.SessionID {
					return fmt.Errorf("%w: tag %s belongs to another session", apperrors.ErrBadRequest, tag.ID)
				}
			}
		}

		if err := r.db.WithContext(ctx).Model(&contact).Association("Tags").Replace(tags); err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "ReplaceContactTags", operation)
	observer.ObserveDbOperationDuration("replace_tags", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to replace contact tags after retries",
			zap.String("contact_id", contactID), zap.Error(err))
		return err
	}
	return nil
}

// DeleteContact removes a contact and its tag links.
func (r *PostgresRepo) DeleteContact(ctx context.Context, id string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Select(clause.Associations).Delete(&model.Contact{ID: id})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "DeleteContact", operation)
	observer.ObserveDbOperationDuration("delete", "contact", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to delete contact after retries",
			zap.String("contact_id", id), zap.Error(err))
		return err
	}
	return nil
}
