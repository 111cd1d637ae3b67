package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
)

func TestPostgresRepo_UpdateSessionStatus_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE "sessions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateSessionStatus(ctx, "session-1", model.SessionStatusConnected, "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateSessionStatus_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE "sessions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSessionStatus(ctx, "missing", model.SessionStatusConnected, "")
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SetSessionIdentity_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE "sessions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetSessionIdentity(ctx, "session-1", "5511999990000", "Central", time.Now().UTC())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindSessionBySessionID_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "session_id", "user_id", "status", "created_at", "updated_at"}).
		AddRow(int64(7), "session-1", "user-1", model.SessionStatusDisconnected, now, now)
	mock.ExpectQuery(`SELECT \* FROM "sessions"`).
		WithArgs("session-1", 1).
		WillReturnRows(rows)

	session, err := repo.FindSessionBySessionID(ctx, "session-1")
	assert.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, "session-1", session.SessionID)
	assert.Equal(t, model.SessionStatusDisconnected, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindSessionBySessionID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "sessions"`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	session, err := repo.FindSessionBySessionID(ctx, "missing")
	assert.Nil(t, session)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindSessionsByUserID(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "session_id", "user_id", "status", "created_at", "updated_at"}).
		AddRow(int64(1), "session-1", "user-1", model.SessionStatusConnected, now.Add(-time.Hour), now).
		AddRow(int64(2), "session-2", "user-1", model.SessionStatusDisconnected, now, now)
	mock.ExpectQuery(`SELECT \* FROM "sessions"`).
		WithArgs("user-1").
		WillReturnRows(rows)

	sessions, err := repo.FindSessionsByUserID(ctx, "user-1")
	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, "session-1", sessions[0].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_DeleteSession_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM "sessions"`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteSession(ctx, "missing")
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
