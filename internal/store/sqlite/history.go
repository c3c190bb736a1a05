// Package sqlite persists the most recent raw history fetch per
// (region, type) pair. Semantics are replace-on-write: each successful
// fetch overwrites whatever the previous fetch left behind, last write
// wins. The pipeline calls it fire-and-forget — a store failure is logged
// by the caller and never fails a fetch.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"marketlens/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-writer SQLite store for raw price history.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and the schema.
func New(dbPath string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps the replace-then-insert transaction simple.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Info("sqlite store opened", "path", dbPath)
	return &Store{db: db, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS price_history (
			region_id  INTEGER NOT NULL,
			type_id    INTEGER NOT NULL,
			date       INTEGER NOT NULL,
			average    REAL    NOT NULL,
			highest    REAL    NOT NULL,
			lowest     REAL    NOT NULL,
			volume     INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (region_id, type_id, date)
		);
	`)
	return err
}

// SavePriceHistory replaces the stored series for (regionID, typeID) with
// the given records in one transaction.
func (s *Store) SavePriceHistory(ctx context.Context, regionID, typeID int32, records []model.PriceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM price_history WHERE region_id = ? AND type_id = ?`, regionID, typeID); err != nil {
		return fmt.Errorf("sqlite clear previous fetch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history (region_id, type_id, date, average, highest, lowest, volume, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			regionID, typeID, r.Date.Unix(), r.Average, r.Highest, r.Lowest, r.Volume, now); err != nil {
			return fmt.Errorf("sqlite insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	s.log.Debug("price history persisted", "region_id", regionID, "type_id", typeID, "rows", len(records))
	return nil
}

// LoadPriceHistory reads back the stored series for (regionID, typeID),
// ordered by date ascending. Used by the CLI when the network is down and
// by operators poking at the cache.
func (s *Store) LoadPriceHistory(ctx context.Context, regionID, typeID int32) ([]model.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, average, highest, lowest, volume
		FROM price_history
		WHERE region_id = ? AND type_id = ?
		ORDER BY date ASC
	`, regionID, typeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	var records []model.PriceRecord
	for rows.Next() {
		var r model.PriceRecord
		var dateUnix int64
		if err := rows.Scan(&dateUnix, &r.Average, &r.Highest, &r.Lowest, &r.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		r.Date = time.Unix(dateUnix, 0).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
