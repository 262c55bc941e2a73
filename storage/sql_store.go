package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"lianjia-rentals/models"
	"lianjia-rentals/utils"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Columns lists the rentals table columns in storage order, without the
// surrogate id.
var Columns = []string{
	"title", "lease_type", "location", "name", "area", "price", "style", "orientation",
	"floor", "decoration", "transportation", "pay_type", "first_rent", "brand", "link",
}

// SQLStore persists listing records to SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	logger *utils.Logger
}

// OpenSQLStore connects to the database, retrying the initial ping, and makes
// sure the rentals table exists.
func OpenSQLStore(ctx context.Context, driver, dsn string, retries int, logger *utils.Logger) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("store: unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	retry := &utils.RetryConfig{MaxAttempts: retries, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "store-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	create := `CREATE TABLE IF NOT EXISTS rentals (
			` + idColumn + `,
			title          TEXT,
			lease_type     TEXT,
			location       TEXT,
			name           TEXT,
			area           TEXT,
			price          TEXT,
			style          TEXT,
			orientation    TEXT,
			floor          TEXT,
			decoration     TEXT,
			transportation TEXT,
			pay_type       TEXT,
			first_rent     TEXT,
			brand          TEXT,
			link           TEXT
		)`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return err
	}

	// Tables created by older runs have no constraint on link and may hold
	// the same listing several times. Keep the first copy of each.
	const index = `CREATE UNIQUE INDEX IF NOT EXISTS idx_rentals_link ON rentals(link)`
	if _, err := s.db.ExecContext(ctx, index); err == nil {
		return nil
	} else if s.logger != nil {
		s.logger.Warn("[store] Cannot index rentals.link (%v), removing repeated links", err)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rentals WHERE link IS NOT NULL AND id NOT IN (SELECT MIN(id) FROM rentals GROUP BY link)`)
	if err != nil {
		return fmt.Errorf("remove repeated links: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && s.logger != nil {
		s.logger.Info("[store] Removed %d repeated rows", n)
	}

	_, err = s.db.ExecContext(ctx, index)
	return err
}

// InsertBatch stores records in one transaction and returns how many were
// new. Records whose link already exists are skipped.
func (s *SQLStore) InsertBatch(ctx context.Context, records []models.ListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := s.db.Rebind(fmt.Sprintf(
		"INSERT INTO rentals (%s) VALUES (%s) ON CONFLICT (link) DO NOTHING",
		strings.Join(Columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", "),
	))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.Title, r.LeaseType, r.Location, r.Name, r.Area, r.Price, r.Style, r.Orientation,
			r.Floor, r.Decoration, r.Transportation, r.PayType, r.FirstRent, r.Brand, r.Link,
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert %s: %w", r.Link, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return inserted, nil
}

// LoadAll returns every stored record ordered by id.
func (s *SQLStore) LoadAll(ctx context.Context) ([]models.ListingRecord, error) {
	var records []models.ListingRecord
	query := "SELECT id, " + strings.Join(Columns, ", ") + " FROM rentals ORDER BY id"
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("store: load all: %w", err)
	}
	return records, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
