// Package sqlite is the local/dev interview store. Production reads the
// REST layer's Postgres database instead.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	"github.com/cwrk-planet/interview-room/internal/domain"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

type InterviewRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// ":memory:" gives a throwaway database.
func Open(ctx context.Context, path string) (*InterviewRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)"
	if path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// одно соединение: иначе у :memory: у каждого своя база
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	r := &InterviewRepository{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *InterviewRepository) Close() error {
	return r.db.Close()
}

func (r *InterviewRepository) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS interviews (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled'
	);`)
	return err
}

// Upsert is used for seeding a dev database.
func (r *InterviewRepository) Upsert(ctx context.Context, iv domain.Interview) error {
	if !iv.ID.Valid() {
		return domain.ErrInterviewIDRequired
	}
	status := iv.Status
	if status == "" {
		status = "scheduled"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO interviews (id, title, status) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, status = excluded.status`,
		int64(iv.ID), iv.Title, status)
	return err
}

func (r *InterviewRepository) Get(ctx context.Context, id domain.InterviewID) (domain.Interview, error) {
	var iv domain.Interview
	err := r.db.QueryRowContext(ctx, `SELECT id, title, status FROM interviews WHERE id = ?`, int64(id)).
		Scan(&iv.ID, &iv.Title, &iv.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Interview{}, domain.ErrInterviewNotFound
		}
		return domain.Interview{}, err
	}
	return iv, nil
}

func (r *InterviewRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
