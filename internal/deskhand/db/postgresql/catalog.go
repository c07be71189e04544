package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/deskhand/db/dberror"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
)

// UpsertCatalogEntry inserts or replaces a catalog entry keyed by software
// name.
func (s *store) UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) apperrors.Error {
	if entry.SoftwareName == "" || entry.Version == "" {
		return dberror.ErrInvalidInput.Msg("software name and version are required")
	}

	query := `
		INSERT INTO software_catalog (software_name, version, job_id, winget_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (software_name) DO UPDATE SET
			version = EXCLUDED.version,
			job_id = EXCLUDED.job_id,
			winget_id = EXCLUDED.winget_id
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		entry.SoftwareName,
		entry.Version,
		entry.JobID,
		entry.WingetID,
	).Scan(&entry.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return dberror.ErrAlreadyExists.Msg("catalog entry already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to upsert catalog entry")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// GetCatalogEntryBySoftware retrieves a catalog entry by software name.
func (s *store) GetCatalogEntryBySoftware(ctx context.Context, softwareName string) (*models.CatalogEntry, apperrors.Error) {
	query := `
		SELECT id, software_name, version, job_id, winget_id
		FROM software_catalog
		WHERE software_name = $1
	`

	var entry models.CatalogEntry
	err := s.db.QueryRowContext(ctx, query, softwareName).
		Scan(&entry.ID, &entry.SoftwareName, &entry.Version, &entry.JobID, &entry.WingetID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dberror.ErrNotFound.Msg("catalog entry not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	return &entry, nil
}

// ListCatalogEntries returns all catalog entries ordered by software name.
func (s *store) ListCatalogEntries(ctx context.Context) ([]*models.CatalogEntry, apperrors.Error) {
	query := `
		SELECT id, software_name, version, job_id, winget_id
		FROM software_catalog
		ORDER BY software_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var entries []*models.CatalogEntry
	for rows.Next() {
		var entry models.CatalogEntry
		if err := rows.Scan(&entry.ID, &entry.SoftwareName, &entry.Version, &entry.JobID, &entry.WingetID); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return entries, nil
}
