// Package database implements the reservation store on SQLite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"besedka/internal/models"
	"besedka/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the reservation store.
type DB struct {
	*sql.DB
	path string
}

var (
	_ store.Store       = (*DB)(nil)
	_ store.VenueSyncer = (*DB)(nil)
)

// NewDB opens database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price INTEGER NOT NULL DEFAULT 0,
			description TEXT,
			photo TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Times are kept as entered so that dirty rows behave as in a sheet.
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			venue TEXT NOT NULL,
			date TEXT NOT NULL,
			time_from TEXT NOT NULL,
			time_to TEXT NOT NULL,
			name TEXT,
			phone TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_venue_date ON reservations(venue, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// SyncVenues upserts venues from the venue file and deactivates the ones
// that disappeared from it.
func (db *DB) SyncVenues(ctx context.Context, venues []models.Venue) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for i, v := range venues {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO venues (id, name, price, description, photo, position, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				price = excluded.price,
				description = excluded.description,
				photo = excluded.photo,
				position = excluded.position,
				is_active = 1,
				updated_at = excluded.updated_at`,
			v.ID, v.Name, v.HourlyPrice, v.Description, v.Photo, i, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync venue %s: %w", v.ID, err)
		}
	}

	args := make([]interface{}, 0, len(venues)+1)
	args = append(args, now)
	placeholders := make([]string, 0, len(venues))
	for _, v := range venues {
		placeholders = append(placeholders, "?")
		args = append(args, v.ID)
	}
	q := `UPDATE venues SET is_active = 0, updated_at = ?`
	if len(placeholders) > 0 {
		q += ` WHERE id NOT IN (` + strings.Join(placeholders, ",") + `)`
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("deactivate venues: %w", err)
	}
	return tx.Commit()
}

func (db *DB) ListVenues(ctx context.Context) ([]models.Venue, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, price, COALESCE(description, ''), COALESCE(photo, '')
		FROM venues WHERE is_active = 1 ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var out []models.Venue
	for rows.Next() {
		var v models.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.HourlyPrice, &v.Description, &v.Photo); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (db *DB) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, venue, date, time_from, time_to, COALESCE(name, ''), COALESCE(phone, ''), status
		FROM reservations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		var (
			r      models.Reservation
			id     int64
			status string
		)
		if err := rows.Scan(&id, &r.Venue, &r.Date, &r.From, &r.To, &r.Name, &r.Phone, &status); err != nil {
			return nil, err
		}
		r.ID = strconv.FormatInt(id, 10)
		r.Status = models.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) AppendReservation(ctx context.Context, r models.Reservation) (string, error) {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO reservations (venue, date, time_from, time_to, name, phone, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Venue, r.Date, r.From, r.To, r.Name, r.Phone, string(r.Status), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert reservation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// UpdateStatus applies the match in Go so trimming follows store.Match.
func (db *DB) UpdateStatus(ctx context.Context, match store.Match, status models.Status) error {
	candidates, err := db.ListReservations(ctx)
	if err != nil {
		return err
	}
	for _, r := range candidates {
		if !match.Matches(r) {
			continue
		}
		_, err := db.ExecContext(ctx,
			`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), time.Now(), r.ID)
		if err != nil {
			return fmt.Errorf("update reservation %s: %w", r.ID, err)
		}
		return nil
	}
	return store.ErrNotFound
}
