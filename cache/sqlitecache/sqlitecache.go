// Package sqlitecache keeps the grade cache in a single-table SQLite database,
// using the pure Go modernc.org/sqlite driver.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DatabaseFile = "ems.db"

	schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`
)

var _ cache.Store = (*Store)(nil)

// NowTimeFunc stamps updated_at. It can be overridden in tests.
var NowTimeFunc = time.Now

type Store struct {
	db *sql.DB
}

// Open creates or opens <folder>/ems.db.
func Open(ctx context.Context, folder string) (*Store, error) {
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	db, err := sql.Open("sqlite", filepath.Join(folder, DatabaseFile))
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, gs []grades.Grade) error {
	if gs == nil {
		gs = []grades.Grade{}
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return errors.Wrap(apperrors.ErrCacheStore, "encode grades")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		cache.RecordKey, string(data), NowTimeFunc().Unix())
	if err != nil {
		return errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	return nil
}

func (s *Store) Get(ctx context.Context) ([]grades.Grade, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, cache.RecordKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []grades.Grade{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}

	var gs []grades.Grade
	if err := json.Unmarshal([]byte(value), &gs); err != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, "decode grades")
	}
	if gs == nil {
		gs = []grades.Grade{}
	}
	return gs, nil
}

// UpdatedAt reports when the cache was last written. ok is false when empty.
func (s *Store) UpdatedAt(ctx context.Context) (updated time.Time, ok bool, err error) {
	var unix int64
	err = s.db.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, cache.RecordKey).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	return time.Unix(unix, 0), true, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, cache.RecordKey); err != nil {
		return errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	return nil
}
