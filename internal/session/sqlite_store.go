package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rajivgeraev/campus-market/internal/broadcast"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore хранит сессию в файле SQLite, общем для процессов на одной машине
type SQLiteStore struct {
	db       *sql.DB
	notifier broadcast.Notifier
}

// NewSQLiteStore открывает (или создает) файл хранилища
func NewSQLiteStore(path string, notifier broadcast.Notifier) (*SQLiteStore, error) {
	if notifier == nil {
		notifier = broadcast.NewHub(nil)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог хранилища: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть хранилище: %w", err)
	}

	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("не удалось подготовить хранилище: %w", err)
		}
	}

	return &SQLiteStore{db: db, notifier: notifier}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("не удалось записать %s: %w", key, err)
	}
	return publish(ctx, s.notifier, key)
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("не удалось удалить %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return publish(ctx, s.notifier, key)
}

func (s *SQLiteStore) Subscribe() (<-chan broadcast.Change, func()) {
	return s.notifier.Subscribe()
}

func (s *SQLiteStore) Close() error {
	err := s.notifier.Close()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
