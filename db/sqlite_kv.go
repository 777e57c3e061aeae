package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SQLiteKV keeps each collection as one row of a local SQLite table
type SQLiteKV struct {
	DB  *sqlx.DB
	log *zap.Logger
}

// OpenSQLiteKV opens (creating if needed) the database file at path.
func OpenSQLiteKV(path string, logger *zap.Logger) (*SQLiteKV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create data directory")
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create kv table")
	}

	logger.Info("opened sqlite store", zap.String("path", path))
	return &SQLiteKV{DB: db, log: logger}, nil
}

func (s *SQLiteKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.DB.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		s.log.Error("sqlite load failed", zap.String("key", key), zap.Error(err))
		return nil, false, errors.Wrapf(err, "failed to load %s", key)
	}
	return value, true, nil
}

func (s *SQLiteKV) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		s.log.Error("sqlite save failed", zap.String("key", key), zap.Error(err))
		return errors.Wrapf(err, "failed to save %s", key)
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	return s.DB.Close()
}
