package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// --- Automation Repository Methods ---

// SaveAutomation creates an automation rule record.
func (r *PostgresRepo) SaveAutomation(ctx context.Context, automation model.Automation) error {
	if automation.ID == "" {
		automation.ID = uuid.New().String()
	}

	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&automation).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "SaveAutomation", operation)
	observer.ObserveDbOperationDuration("save", "automation", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to save automation after retries",
			zap.String("session_id", automation.SessionID),
			zap.String("name", automation.Name),
			zap.Error(err))
		return err
	}
	return nil
}

// UpdateAutomation updates an automation rule's editable fields.
func (r *PostgresRepo) UpdateAutomation(ctx context.Context, automation model.Automation) error {
	automation.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Automation{}).
			Where("id = ?", automation.ID).
			Select("name", "description", "type", "trigger", "trigger_conditions", "actions", "is_active", "updated_at").
			Updates(automation)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: automation %s", apperrors.ErrNotFound, automation.ID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateAutomation", operation)
	observer.ObserveDbOperationDuration("update", "automation", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update automation after retries",
			zap.String("automation_id", automation.ID), zap.Error(err))
		return err
	}
	return nil
}

// FindAutomationByID finds an automation rule by primary key.
func (r *PostgresRepo) FindAutomationByID(ctx context.Context, id string) (*model.Automation, error) {
	var automation model.Automation

	operation := func() error {
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&automation).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: automation %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindAutomationByID", operation)
	observer.ObserveDbOperationDuration("find", "automation", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &automation, nil
}

// FindAutomationsBySessionID lists the automation rules of a session.
func (r *PostgresRepo) FindAutomationsBySessionID(ctx context.Context, sessionID string) ([]model.Automation, error) {
	var automations []model.Automation

	operation := func() error {
		return checkConstraintViolation(
			r.db.WithContext(ctx).
				Where("session_id = ?", sessionID).
				Order("created_at ASC").
				Find(&automations).Error,
		)
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindAutomationsBySessionID", operation)
	observer.ObserveDbOperationDuration("find_by_session", "automation", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return automations, nil
}

// DeleteAutomation removes an automation rule.
func (r *PostgresRepo) DeleteAutomation(ctx context.Context, id string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Automation{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: automation %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "DeleteAutomation", operation)
	observer.ObserveDbOperationDuration("delete", "automation", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to delete automation after retries",
			zap.String("automation_id", id), zap.Error(err))
		return err
	}
	return nil
}
