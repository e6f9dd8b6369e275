package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/store"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "pgx")
	return &Store{db: db}, mock
}

func TestStore_UpsertInstallation(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO installations`).
		WithArgs(int64(1), "acme", "Organization", []byte(`{}`), true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertInstallation(context.Background(), domain.Installation{
		ID: 1, Login: "acme", Kind: "Organization", Active: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetInstallation_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT id, login, kind, config, active, created_at, updated_at FROM installations`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "kind", "config", "active", "created_at", "updated_at"}))

	_, err := s.GetInstallation(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetInstallation_Found(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, login, kind, config, active, created_at, updated_at FROM installations`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "kind", "config", "active", "created_at", "updated_at"}).
			AddRow(int64(1), "acme", "Organization", []byte(`{"largePRFileLimit":30}`), true, now, now))

	got, err := s.GetInstallation(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Login)
	assert.Equal(t, float64(30), got.Config["largePRFileLimit"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateReview(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO reviews`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateReview(context.Background(), domain.Review{
		ID: "review-1", RepositoryID: 10, PRNumber: 5, BaseSHA: "b", HeadSHA: "h",
		Status: domain.ReviewStatusQueued, EnqueuedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateReviewStatus_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE reviews SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateReviewStatus(context.Background(), "missing", domain.ReviewStatusFailed, "stage", "boom")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveFindings_CommitsTransaction(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO findings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO findings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	findings := []domain.Finding{
		domain.NewFinding("review-1", domain.FindingInput{File: "a.go", Severity: domain.SeverityHigh, Category: domain.CategoryDefect, Title: "a"}),
		domain.NewFinding("review-1", domain.FindingInput{File: "b.go", Severity: domain.SeverityLow, Category: domain.CategoryStyle, Title: "b"}),
	}

	err := s.SaveFindings(context.Background(), findings)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CompleteReview_CommitsTransaction(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE reviews SET status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO findings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	findings := []domain.Finding{
		domain.NewFinding("review-1", domain.FindingInput{File: "a.go", Severity: domain.SeverityHigh, Category: domain.CategoryDefect, Title: "a"}),
	}

	err := s.CompleteReview(context.Background(), "review-1", domain.ReviewStatusCompleted, "", findings)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CompleteReview_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE reviews SET status`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.CompleteReview(context.Background(), "missing", domain.ReviewStatusCompleted, "", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendConversationTurn_TrimsToMaxTurns(t *testing.T) {
	s, mock := newTestStore(t)

	existing := `[{"role":"user","body":"t1"},{"role":"assistant","body":"t2"},{"role":"user","body":"t3"}]`

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT history FROM conversation_threads`).
		WithArgs(int64(555)).
		WillReturnRows(sqlmock.NewRows([]string{"history"}).AddRow([]byte(existing)))
	mock.ExpectExec(`UPDATE conversation_threads SET history`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.AppendConversationTurn(context.Background(), 555, domain.ConversationTurn{Role: "user", Body: "t4"}, 3)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendConversationTurn_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT history FROM conversation_threads`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.AppendConversationTurn(context.Background(), 404, domain.ConversationTurn{Role: "user", Body: "x"}, 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
