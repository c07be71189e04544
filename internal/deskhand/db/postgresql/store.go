package postgresql

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/deskhand/db"
	"github.com/deskhand/deskhand/internal/deskhand/db/dberror"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
)

//go:embed schema.sql
var schemaSQL string

// seedEntries are the catalog rows installed on first boot when the catalog
// is empty. Operators extend the catalog with deskctl afterwards.
var seedEntries = []models.CatalogEntry{
	{SoftwareName: "Google Chrome", Version: "117.0", JobID: "universal-install-job", WingetID: "Google.Chrome"},
	{SoftwareName: "VS Code", Version: "1.90", JobID: "universal-install-job", WingetID: "Microsoft.VisualStudioCode"},
	{SoftwareName: "Slack", Version: "4.35", JobID: "universal-install-job", WingetID: "SlackTechnologies.Slack"},
	{SoftwareName: "Firefox", Version: "latest", JobID: "universal-install-job", WingetID: "Mozilla.Firefox"},
	{SoftwareName: "Zoom", Version: "latest", JobID: "universal-install-job", WingetID: "Zoom.Zoom"},
}

// store implements db.Store on a *sql.DB.
type store struct {
	db *sql.DB
}

// NewStore wraps the given pool in a db.Store.
func NewStore(sqlDB *sql.DB) db.Store {
	return &store{db: sqlDB}
}

// EnsureSchema creates the tables if they do not exist and seeds the catalog
// when it is empty. There is deliberately no migration framework; the schema
// is flat and unversioned.
func (s *store) EnsureSchema(ctx context.Context) apperrors.Error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to create schema")
		return dberror.ErrDatabase.Err(err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM software_catalog`).Scan(&count); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if count > 0 {
		return nil
	}

	for i := range seedEntries {
		entry := seedEntries[i]
		if err := s.UpsertCatalogEntry(ctx, &entry); err != nil {
			return err
		}
	}
	log.Ctx(ctx).Info().Int("entries", len(seedEntries)).Msg("seeded software catalog")
	return nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// BootstrapStore opens the pool, prepares the schema, and returns a ready
// store.
func BootstrapStore(ctx context.Context, dsn string) (db.Store, apperrors.Error) {
	sqlDB, err := Open(ctx, dsn)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	st := &store{db: sqlDB}
	if err := st.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return st, nil
}
