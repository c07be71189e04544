package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/deskhand/db/dberror"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
	"github.com/deskhand/deskhand/internal/deskhand/lifecycle"
)

const requestColumns = `
	id, user_id, software_name, version, status, ticket_number, logs, info,
	requested_at, approved_by, approved_at, accepted_at, finished_at
`

func scanRequest(row interface{ Scan(dest ...any) error }) (*models.Request, error) {
	var req models.Request
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.SoftwareName,
		&req.Version,
		&req.Status,
		&req.TicketNumber,
		&req.Logs,
		&req.Info,
		&req.RequestedAt,
		&req.ApprovedBy,
		&req.ApprovedAt,
		&req.AcceptedAt,
		&req.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequest inserts a new request in status "requested" and fills in the
// generated id and requested_at timestamp.
func (s *store) CreateRequest(ctx context.Context, req *models.Request) apperrors.Error {
	if req.UserID == "" || req.SoftwareName == "" || req.Version == "" {
		return dberror.ErrInvalidInput.Msg("user id, software name and version are required")
	}
	req.Status = lifecycle.StatusRequested
	if req.Info.Status == pgtype.Undefined {
		req.Info = pgtype.JSONB{Status: pgtype.Null}
	}

	query := `
		INSERT INTO user_requests (user_id, software_name, version, status, info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, requested_at
	`

	err := s.db.QueryRowContext(ctx, query,
		req.UserID,
		req.SoftwareName,
		req.Version,
		req.Status,
		req.Info,
	).Scan(&req.ID, &req.RequestedAt)

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert request")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// GetRequest retrieves a request by id.
func (s *store) GetRequest(ctx context.Context, id int64) (*models.Request, apperrors.Error) {
	query := `SELECT ` + requestColumns + ` FROM user_requests WHERE id = $1`

	req, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dberror.ErrNotFound.Msg("request not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	return req, nil
}

// ListRequests returns all requests, newest first.
func (s *store) ListRequests(ctx context.Context) ([]*models.Request, apperrors.Error) {
	query := `SELECT ` + requestColumns + ` FROM user_requests ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var reqs []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return reqs, nil
}

// transition locks the request row, validates the edge against the lifecycle
// table, and applies the update inside one transaction.
func (s *store) transition(ctx context.Context, id int64, to lifecycle.Status, apply func(tx *sql.Tx) error) (err apperrors.Error) {
	tx, errStd := s.db.BeginTx(ctx, nil)
	if errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to begin transaction")
		return dberror.ErrDatabase.Err(errStd)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var current lifecycle.Status
	errStd = tx.QueryRowContext(ctx, `SELECT status FROM user_requests WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errStd != nil {
		if errors.Is(errStd, sql.ErrNoRows) {
			return dberror.ErrNotFound.Msg("request not found")
		}
		return dberror.ErrDatabase.Err(errStd)
	}

	if verr := lifecycle.Validate(current, to); verr != nil {
		return verr
	}

	if errStd := apply(tx); errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Str("to", to.String()).Msg("failed to apply transition")
		var appErr apperrors.Error
		if errors.As(errStd, &appErr) {
			return appErr
		}
		return dberror.ErrDatabase.Err(errStd)
	}

	if errStd := tx.Commit(); errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errStd)
	}

	return nil
}

// SetTicketCreated moves a request to ticket_created. The COALESCE keeps an
// already-set ticket number from ever being overwritten.
func (s *store) SetTicketCreated(ctx context.Context, id int64, ticketNumber string) apperrors.Error {
	if ticketNumber == "" {
		return dberror.ErrInvalidInput.Msg("ticket number is required")
	}
	return s.transition(ctx, id, lifecycle.StatusTicketCreated, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE user_requests
			SET status = $2, ticket_number = COALESCE(ticket_number, $3)
			WHERE id = $1
		`, id, lifecycle.StatusTicketCreated, ticketNumber)
		return err
	})
}

// SetDecision records an approve or reject decision with approver identity.
func (s *store) SetDecision(ctx context.Context, id int64, decision lifecycle.Status, approvedBy string, at time.Time) apperrors.Error {
	if decision != lifecycle.StatusApproved && decision != lifecycle.StatusRejected {
		return dberror.ErrInvalidInput.Msg("decision must be approved or rejected")
	}
	return s.transition(ctx, id, decision, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE user_requests
			SET status = $2, approved_by = $3, approved_at = $4
			WHERE id = $1
		`, id, decision, approvedBy, at)
		return err
	})
}

// SetAccepted moves an approved request to accepted. The status predicate in
// the UPDATE is the optimistic guard against a racing writer; together with
// the row lock it makes skipping the approval gate impossible.
func (s *store) SetAccepted(ctx context.Context, id int64, at time.Time) apperrors.Error {
	return s.transition(ctx, id, lifecycle.StatusAccepted, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE user_requests
			SET status = $2, accepted_at = $3
			WHERE id = $1 AND status = $4
		`, id, lifecycle.StatusAccepted, at, lifecycle.StatusApproved)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return lifecycle.ErrInvalidTransition.Msg("request is no longer approved")
		}
		return nil
	})
}

// SetRunning marks an accepted request as running.
func (s *store) SetRunning(ctx context.Context, id int64) apperrors.Error {
	return s.transition(ctx, id, lifecycle.StatusRunning, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE user_requests SET status = $2 WHERE id = $1
		`, id, lifecycle.StatusRunning)
		return err
	})
}

// SetFinished records the terminal outcome of the job run.
func (s *store) SetFinished(ctx context.Context, id int64, result lifecycle.Status, logs string, at time.Time) apperrors.Error {
	if result != lifecycle.StatusInstalled && result != lifecycle.StatusFailed {
		return dberror.ErrInvalidInput.Msg("result must be installed or failed")
	}
	return s.transition(ctx, id, result, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE user_requests
			SET status = $2, logs = $3, finished_at = $4
			WHERE id = $1
		`, id, result, logs, at)
		return err
	})
}
