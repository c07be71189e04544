// Package db provides the durable store for the deskhand server: the
// software catalog and the install-request table. The Store interface is the
// seam between handlers and PostgreSQL; tests substitute a fake.
package db

import (
	"context"
	"time"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
	"github.com/deskhand/deskhand/internal/deskhand/lifecycle"
)

// Store is the persistence contract for catalog entries and install
// requests. Every status-changing method validates the edge against the
// lifecycle transition table and fails with lifecycle.ErrInvalidTransition
// when the persisted state does not permit it.
type Store interface {
	// Catalog
	UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) apperrors.Error
	GetCatalogEntryBySoftware(ctx context.Context, softwareName string) (*models.CatalogEntry, apperrors.Error)
	ListCatalogEntries(ctx context.Context) ([]*models.CatalogEntry, apperrors.Error)

	// Requests
	CreateRequest(ctx context.Context, req *models.Request) apperrors.Error
	GetRequest(ctx context.Context, id int64) (*models.Request, apperrors.Error)
	ListRequests(ctx context.Context) ([]*models.Request, apperrors.Error)

	// Lifecycle transitions. SetTicketCreated is the only writer of
	// ticket_number and never overwrites an existing one. SetDecision
	// records approve/reject with the approver audit fields. SetAccepted
	// commits only when the persisted status is still "approved", which is
	// the guard against racing accepts. SetFinished records the terminal
	// result of a job run together with its logs.
	SetTicketCreated(ctx context.Context, id int64, ticketNumber string) apperrors.Error
	SetDecision(ctx context.Context, id int64, decision lifecycle.Status, approvedBy string, at time.Time) apperrors.Error
	SetAccepted(ctx context.Context, id int64, at time.Time) apperrors.Error
	SetRunning(ctx context.Context, id int64) apperrors.Error
	SetFinished(ctx context.Context, id int64, result lifecycle.Status, logs string, at time.Time) apperrors.Error

	// Close releases the underlying connection pool.
	Close() error
}
