package models

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"

	"github.com/deskhand/deskhand/internal/deskhand/lifecycle"
)

// Request is one user-initiated install workflow instance. Rows are never
// deleted; they double as the audit trail. Optional fields are populated at
// the lifecycle transition that produces them and never rewritten, with the
// exception of approved_by/approved_at which follow the permissive
// re-approval behavior documented in the lifecycle package.
type Request struct {
	ID           int64            `db:"id"`
	UserID       string           `db:"user_id"`
	SoftwareName string           `db:"software_name"`
	Version      string           `db:"version"`
	Status       lifecycle.Status `db:"status"`
	TicketNumber sql.NullString   `db:"ticket_number"`
	Logs         sql.NullString   `db:"logs"`
	Info         pgtype.JSONB     `db:"info"`
	RequestedAt  time.Time        `db:"requested_at"`
	ApprovedBy   sql.NullString   `db:"approved_by"`
	ApprovedAt   sql.NullTime     `db:"approved_at"`
	AcceptedAt   sql.NullTime     `db:"accepted_at"`
	FinishedAt   sql.NullTime     `db:"finished_at"`
}
