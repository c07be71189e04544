package postgresql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhand/deskhand/internal/deskhand/db/dberror"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
	"github.com/deskhand/deskhand/internal/deskhand/lifecycle"
)

func newMockStore(t *testing.T) (*store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &store{db: sqlDB}, mock
}

func TestCreateRequest(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO user_requests`).
		WithArgs("alice", "Slack", "4.35", lifecycle.StatusRequested, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_at"}).AddRow(int64(7), now))

	req := &models.Request{
		UserID:       "alice",
		SoftwareName: "Slack",
		Version:      "4.35",
	}
	err := s.CreateRequest(ctx, req)
	require.Nil(t, err)
	assert.Equal(t, int64(7), req.ID)
	assert.Equal(t, lifecycle.StatusRequested, req.Status)
	assert.WithinDuration(t, now, req.RequestedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestMissingFields(t *testing.T) {
	s, _ := newMockStore(t)

	err := s.CreateRequest(context.Background(), &models.Request{UserID: "alice"})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestGetRequestNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM user_requests WHERE id`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetRequest(context.Background(), 42)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestSetTicketCreated(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM user_requests WHERE id .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("requested"))
	mock.ExpectExec(`UPDATE user_requests`).
		WithArgs(int64(7), lifecycle.StatusTicketCreated, "INC0012345").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SetTicketCreated(context.Background(), 7, "INC0012345")
	require.Nil(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDecisionApprove(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM user_requests WHERE id .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("ticket_created"))
	mock.ExpectExec(`UPDATE user_requests`).
		WithArgs(int64(7), lifecycle.StatusApproved, "bob", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SetDecision(context.Background(), 7, lifecycle.StatusApproved, "bob", at)
	require.Nil(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDecisionRejectsNonDecisionStatus(t *testing.T) {
	s, _ := newMockStore(t)

	err := s.SetDecision(context.Background(), 7, lifecycle.StatusRunning, "bob", time.Now())
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestInvalidTransitionRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	// requested has no edge to accepted, so no UPDATE should be issued.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM user_requests WHERE id .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("requested"))
	mock.ExpectRollback()

	err := s.SetAccepted(context.Background(), 7, time.Now())
	require.NotNil(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAcceptedGuardOnRacingWriter(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM user_requests WHERE id .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
	mock.ExpectExec(`UPDATE user_requests`).
		WithArgs(int64(7), lifecycle.StatusAccepted, at, lifecycle.StatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.SetAccepted(context.Background(), 7, at)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetFinishedFailedKeepsLogs(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM user_requests WHERE id .* FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("running"))
	mock.ExpectExec(`UPDATE user_requests`).
		WithArgs(int64(7), lifecycle.StatusFailed, "winget exited 1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SetFinished(context.Background(), 7, lifecycle.StatusFailed, "winget exited 1", at)
	require.Nil(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetFinishedRejectsNonTerminalResult(t *testing.T) {
	s, _ := newMockStore(t)

	err := s.SetFinished(context.Background(), 7, lifecycle.StatusRunning, "", time.Now())
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestGetCatalogEntryNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM software_catalog WHERE software_name`).
		WithArgs("Photoshop").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetCatalogEntryBySoftware(context.Background(), "Photoshop")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}
