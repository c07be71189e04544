// Package postgresql implements the deskhand Store on PostgreSQL using the
// pgx stdlib driver.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"
)

// sessionOptions are appended to the DSN so every pooled connection picks
// them up. Bounded statement and lock timeouts keep a wedged query from
// holding a request hostage.
const sessionOptions = "-c statement_timeout=5s -c lock_timeout=5s -c idle_in_transaction_session_timeout=5s"

// Open creates the database connection pool and verifies connectivity.
// The initial ping is retried with backoff so the service tolerates the
// database coming up after it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", fmt.Sprintf("%s options='%s'", dsn, sessionOptions))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open db")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	err = retry.Do(func() error {
		return sqlDB.PingContext(ctx)
	}, retry.Context(ctx), retry.Attempts(5), retry.Delay(1*time.Second), retry.DelayType(retry.BackOffDelay))
	if err != nil {
		sqlDB.Close()
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping db")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqlDB, nil
}
