package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/pkg/logger"
)

// AnyTime matches any time.Time argument in sqlmock expectations.
type AnyTime struct{}

// Match satisfies sqlmock.Argument.
func (a AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

func newTestRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	logger.Log = zaptest.NewLogger(t).Named("test")
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
	})
	assert.NoError(t, err)
	return &PostgresRepo{db: gormDB, tagsUniquePerSession: true}, mock
}

func TestCheckConstraintViolation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			name:    "nil error",
			err:     nil,
			wantErr: nil,
		},
		{
			name:    "record not found",
			err:     gorm.ErrRecordNotFound,
			wantErr: apperrors.ErrNotFound,
		},
		{
			name:    "unique violation",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "idx_messages_session_message"},
			wantErr: apperrors.ErrDuplicate,
		},
		{
			name:    "foreign key violation",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: "fk_contact"},
			wantErr: apperrors.ErrBadRequest,
		},
		{
			name:    "not null violation",
			err:     &pgconn.PgError{Code: "23502", ColumnName: "session_id"},
			wantErr: apperrors.ErrBadRequest,
		},
		{
			name:    "deadlock",
			err:     &pgconn.PgError{Code: "40P01"},
			wantErr: apperrors.ErrDatabase,
		},
		{
			name:    "connection exception",
			err:     &pgconn.PgError{Code: "08006"},
			wantErr: apperrors.ErrDatabase,
		},
		{
			name:    "gorm translated duplicate",
			err:     gorm.ErrDuplicatedKey,
			wantErr: apperrors.ErrDuplicate,
		},
		{
			name:    "generic error",
			err:     errors.New("something broke"),
			wantErr: apperrors.ErrDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkConstraintViolation(tt.err)
			if tt.wantErr == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.wantErr)
		})
	}
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, isTransientError(nil))
	assert.True(t, isTransientError(context.DeadlineExceeded))
	assert.True(t, isTransientError(&pgconn.PgError{Code: "08006"}))
	assert.True(t, isTransientError(&pgconn.PgError{Code: "53300"}))
	assert.True(t, isTransientError(errors.New("dial tcp: connection refused")))
	assert.True(t, isTransientError(errors.New("read: connection reset by peer")))
	assert.False(t, isTransientError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isTransientError(errors.New("syntax error at or near")))
}

func TestRetryableOperation_PermanentErrorNotRetried(t *testing.T) {
	logger.Log = zaptest.NewLogger(t).Named("test")
	ctx := context.Background()

	calls := 0
	wrapped := fmt.Errorf("%w: session missing", apperrors.ErrNotFound)
	err := retryableOperation(ctx, newRetryPolicy(ctx, defaultRetryMaxElapsedTime), "test", func() error {
		calls++
		return wrapped
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestRetryableOperation_TransientErrorRetried(t *testing.T) {
	logger.Log = zaptest.NewLogger(t).Named("test")
	ctx := context.Background()

	calls := 0
	err := retryableOperation(ctx, newRetryPolicy(ctx, 500*time.Millisecond), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls, "transient errors should be retried until success")
}
