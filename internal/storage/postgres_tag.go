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

// --- Tag Repository Methods ---

// SaveTag creates a tag. When per-session uniqueness is enabled a duplicate
// name within the session maps to apperrors.ErrDuplicate.
func (r *PostgresRepo) SaveTag(ctx context.Context, tag model.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}

	operation := func() error {
		if r.tagsUniquePerSession {
			var count int64
			err := r.db.WithContext(ctx).
				Model(&model.Tag{}).
				Where("session_id = ? AND name = ?", tag.SessionID, tag.Name).
				Count(&count).Error
			if err != nil {
				return checkConstraintViolation(err)
			}
			if count > 0 {
				return fmt.Errorf("%w: tag %q already exists in session %s", apperrors.ErrDuplicate, tag.Name, tag.SessionID)
			}
		}
		if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "SaveTag", operation)
	observer.ObserveDbOperationDuration("save", "tag", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to save tag after retries",
			zap.String("session_id", tag.SessionID), zap.String("name", tag.Name), zap.Error(err))
		return err
	}
	return nil
}

// UpdateTag updates a tag's editable fields.
func (r *PostgresRepo) UpdateTag(ctx context.Context, tag model.Tag) error {
	tag.UpdatedAt = utils.Now()

	operation := func() error {
		if r.tagsUniquePerSession && tag.Name != "" {
			var count int64
			err := r.db.WithContext(ctx).
				Model(&model.Tag{}).
				Where("session_id = ? AND name = ? AND id <> ?", tag.SessionID, tag.Name, tag.ID).
				Count(&count).Error
			if err != nil {
				return checkConstraintViolation(err)
			}
			if count > 0 {
				return fmt.Errorf("%w: tag %q already exists in session %s", apperrors.ErrDuplicate, tag.Name, tag.SessionID)
			}
		}
		result := r.db.WithContext(ctx).
			Model(&model.Tag{}).
			Where("id = ?", tag.ID).
			Select("name", "description", "color", "icon", "is_active", "updated_at").
			Updates(tag)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: tag %s", apperrors.ErrNotFound, tag.ID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateTag", operation)
	observer.ObserveDbOperationDuration("update", "tag", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update tag after retries",
			zap.String("tag_id", tag.ID), zap.Error(err))
		return err
	}
	return nil
}

// FindTagByID finds a tag by primary key.
func (r *PostgresRepo) FindTagByID(ctx context.Context, id string) (*model.Tag, error) {
	var tag model.Tag

	operation := func() error {
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: tag %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindTagByID", operation)
	observer.ObserveDbOperationDuration("find", "tag", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindTagsBySessionID lists the tags of a session.
func (r *PostgresRepo) FindTagsBySessionID(ctx context.Context, sessionID string) ([]model.Tag, error) {
	var tags []model.Tag

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).
				Where("session_id = ?", sessionID).
				Order("name ASC").
				Find(&tags).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindTagsBySessionID", operation)
	observer.ObserveDbOperationDuration("find_by_session", "tag", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag removes a tag and its contact links.
func (r *PostgresRepo) DeleteTag(ctx context.Context, id string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Select(clause.Associations).Delete(&model.Tag{ID: id})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: tag %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "DeleteTag", operation)
	observer.ObserveDbOperationDuration("delete", "tag", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to delete tag after retries",
			zap.String("tag_id", id), zap.Error(err))
		return err
	}
	return nil
}
