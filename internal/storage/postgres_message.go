package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// --- Message Repository Methods ---

// SaveMessage persists one message. A replayed protocol message id within the
// same session surfaces as apperrors.ErrDuplicate via the unique index.
func (r *PostgresRepo) SaveMessage(ctx context.Context, message model.Message) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&message).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "SaveMessage", operation)
	observer.ObserveDbOperationDuration("save", "message", time.Since(startTime), err)
	if err != nil {
		if apperrors.IsDuplicateError(err) {
			// Replay of an already-persisted message; caller decides whether
			// to treat this as success.
			logger.FromContext(ctx).Debug("Duplicate message ignored",
				zap.String("session_id", message.SessionID),
				zap.String("message_id", message.MessageID))
			return err
		}
		logger.FromContext(ctx).Error("Failed to save message after retries",
			zap.String("session_id", message.SessionID),
			zap.String("message_id", message.MessageID),
			zap.Error(err))
		return err
	}
	return nil
}

// UpdateMessageStatus moves a message through its delivery status. Only the
// status column is updatable once persisted.
func (r *PostgresRepo) UpdateMessageStatus(ctx context.Context, sessionID, messageID, status string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Message{}).
			Where("session_id = ? AND message_id = ?", sessionID, messageID).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: message %s/%s", apperrors.ErrNotFound, sessionID, messageID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateMessageStatus", operation)
	observer.ObserveDbOperationDuration("update_status", "message", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update message status after retries",
			zap.String("session_id", sessionID),
			zap.String("message_id", messageID),
			zap.Error(err))
		return err
	}
	return nil
}

// FindMessageByMessageID finds one message by its protocol id within a session.
func (r *PostgresRepo) FindMessageByMessageID(ctx context.Context, sessionID, messageID string) (*model.Message, error) {
	var message model.Message

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("session_id = ? AND message_id = ?", sessionID, messageID).
			First(&message).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: message %s/%s", apperrors.ErrNotFound, sessionID, messageID)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindMessageByMessageID", operation)
	observer.ObserveDbOperationDuration("find", "message", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// FindMessagesBySessionID lists messages for a session, newest first.
func (r *PostgresRepo) FindMessagesBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error) {
	var messages []model.Message
	if limit <= 0 {
		limit = 100
	}

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).
				Where("session_id = ?", sessionID).
				Order("timestamp DESC").
				Limit(limit).
				Offset(offset).
				Find(&messages).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindMessagesBySessionID", operation)
	observer.ObserveDbOperationDuration("find_by_session", "message", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// FindMessagesByContactID lists one conversation, newest first.
func (r *PostgresRepo) FindMessagesByContactID(ctx context.Context, sessionID, contactID string, limit, offset int) ([]model.Message, error) {
	var messages []model.Message
	if limit <= 0 {
		limit = 100
	}

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).
				Where("session_id = ? AND contact_id = ?", sessionID, contactID).
				Order("timestamp DESC").
				Limit(limit).
				Offset(offset).
				Find(&messages).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindMessagesByContactID", operation)
	observer.ObserveDbOperationDuration("find_by_contact", "message", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
