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

// --- Session Repository Methods ---

// SaveSession creates a new session record.
func (r *PostgresRepo) SaveSession(ctx context.Context, session model.Session) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "SaveSession", operation)
	observer.ObserveDbOperationDuration("save", "session", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to save session after retries",
			zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	return nil
}

// UpdateSession updates the mutable columns of an existing session record.
func (r *PostgresRepo) UpdateSession(ctx context.Context, session model.Session) error {
	session.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Session{}).
			Where("session_id = ?", session.SessionID).
			Select(model.SessionUpdateColumns()).
			Updates(session)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, session.SessionID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateSession", operation)
	observer.ObserveDbOperationDuration("update", "session", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update session after retries",
			zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	return nil
}

// UpdateSessionStatus persists one lifecycle transition. The QR payload is
// written as given so a transition out of pairing clears it.
func (r *PostgresRepo) UpdateSessionStatus(ctx context.Context, sessionID, status, qrCode string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Session{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]interface{}{
				"status":     status,
				"qr_code":    qrCode,
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateSessionStatus", operation)
	observer.ObserveDbOperationDuration("update_status", "session", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update session status after retries",
			zap.String("session_id", sessionID), zap.String("status", status), zap.Error(err))
		return err
	}
	return nil
}

// SetSessionIdentity records the authenticated account identity.
func (r *PostgresRepo) SetSessionIdentity(ctx context.Context, sessionID, phoneNumber, profileName string, lastSeen time.Time) error {
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Session{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]interface{}{
				"phone_number": phoneNumber,
				"profile_name": profileName,
				"last_seen":    lastSeen,
				"updated_at":   utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "SetSessionIdentity", operation)
	observer.ObserveDbOperationDuration("set_identity", "session", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to set session identity after retries",
			zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

// FindSessionBySessionID finds a session by its external identifier.
func (r *PostgresRepo) FindSessionBySessionID(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session

	operation := func() error {
		err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindSessionBySessionID", operation)
	observer.ObserveDbOperationDuration("find", "session", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindSessionsByUserID lists the sessions owned by one account.
func (r *PostgresRepo) FindSessionsByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	var sessions []model.Session

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).
				Where("user_id = ?", userID).
				Order("created_at ASC").
				Find(&sessions).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindSessionsByUserID", operation)
	observer.ObserveDbOperationDuration("find_by_user", "session", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindAllSessions lists every session record. Used on startup to reconcile
// persisted status with the empty registry.
func (r *PostgresRepo) FindAllSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).Order("created_at ASC").Find(&sessions).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindAllSessions", operation)
	observer.ObserveDbOperationDuration("find_all", "session", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session record.
func (r *PostgresRepo) DeleteSession(ctx context.Context, sessionID string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.Session{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "DeleteSession", operation)
	observer.ObserveDbOperationDuration("delete", "session", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to delete session after retries",
			zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}
