package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// dbTimeLayout is fixed-width so stored timestamps sort lexically
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	log  *zap.Logger
}

// Testimonial is a visitor review. MessageEN and MessageJP cache translations.
type Testimonial struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	MessageEN *string   `json:"message_en"`
	MessageJP *string   `json:"message_jp"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenDB opens (or creates) the SQLite database. ":memory:" is accepted for
// tests; the pool is pinned to one connection so every query sees the same
// in-memory database.
func OpenDB(path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db := &DB{conn: conn, log: log.Named("db")}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// sqliteDSN puts the pragmas in the DSN so every pooled connection gets
// them. Transactions begin IMMEDIATE; writers queue on busy_timeout.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=busy_timeout(5000)"
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS testimonials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		message TEXT NOT NULL,
		message_en TEXT,
		message_jp TEXT,
		client_ip TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rate_limits (
		key TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		reset_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		client_ip TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_testimonials_created ON testimonials(created_at);
	CREATE INDEX IF NOT EXISTS idx_rate_limits_reset ON rate_limits(reset_at);
	CREATE INDEX IF NOT EXISTS idx_analytics_type_time ON analytics_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		db.log.Error("migration failed", zap.Error(err))
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertTestimonial stores t; ID and CreatedAt must already be set
func (db *DB) InsertTestimonial(ctx context.Context, t Testimonial, clientIP string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO testimonials (id, name, rating, message, client_ip, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		t.ID, t.Name, t.Rating, t.Message, clientIP, t.CreatedAt.UTC().Format(dbTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert testimonial: %w", err)
	}
	return nil
}

// ListTestimonials returns up to limit rows, newest first
func (db *DB) ListTestimonials(ctx context.Context, limit int) ([]Testimonial, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, rating, message, message_en, message_jp, created_at
		FROM testimonials ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	defer rows.Close()

	result := []Testimonial{}
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetTestimonial returns a single row or ErrNotFound
func (db *DB) GetTestimonial(ctx context.Context, id string) (Testimonial, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, rating, message, message_en, message_jp, created_at
		FROM testimonials WHERE id = ?`, id)
	t, err := scanTestimonial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Testimonial{}, fmt.Errorf("testimonial %s: %w", id, ErrNotFound)
	}
	return t, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestimonial(r rowScanner) (Testimonial, error) {
	var t Testimonial
	var en, jp sql.NullString
	var created string
	if err := r.Scan(&t.ID, &t.Name, &t.Rating, &t.Message, &en, &jp, &created); err != nil {
		return Testimonial{}, err
	}
	if en.Valid {
		t.MessageEN = &en.String
	}
	if jp.Valid {
		t.MessageJP = &jp.String
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Testimonial{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	t.CreatedAt = ts
	return t, nil
}

// SetTranslation caches a translated message; lang is "en" or "jp"
func (db *DB) SetTranslation(ctx context.Context, id, lang, text string) error {
	var column string
	switch lang {
	case "en":
		column = "message_en"
	case "jp":
		column = "message_jp"
	default:
		return fmt.Errorf("unsupported language %q", lang)
	}
	res, err := db.conn.ExecContext(ctx, "UPDATE testimonials SET "+column+" = ? WHERE id = ?", text, id)
	if err != nil {
		return fmt.Errorf("set translation: %w", err)
	}
	return expectOne(res, "testimonial "+id)
}

// DeleteTestimonial removes a row
func (db *DB) DeleteTestimonial(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM testimonials WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete testimonial: %w", err)
	}
	return expectOne(res, "testimonial "+id)
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// GetSetting returns a setting value, or "" if unset
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

// SetSetting upserts a setting
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
