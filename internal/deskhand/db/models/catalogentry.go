package models

// CatalogEntry is one installable software title. Catalog rows are reference
// data: seeded at boot or upserted by an operator, never mutated by the
// request lifecycle.
type CatalogEntry struct {
	ID           int64  `db:"id"`
	SoftwareName string `db:"software_name"`
	Version      string `db:"version"`
	JobID        string `db:"job_id"`
	WingetID     string `db:"winget_id"`
}
