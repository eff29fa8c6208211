package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/campus-market/internal/broadcast"
	"github.com/rajivgeraev/campus-market/internal/db"
)

// PostgresStore хранит сессию в таблице client_session; нужен, когда
// шлюз и CLI работают на разных машинах
type PostgresStore struct {
	pool     *pgxpool.Pool
	notifier broadcast.Notifier
}

// NewPostgresStore создает хранилище поверх готового пула
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, notifier broadcast.Notifier) (*PostgresStore, error) {
	if notifier == nil {
		notifier = broadcast.NewHub(nil)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, notifier: notifier}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	var value string
	err := s.pool.QueryRow(ctx, "SELECT value FROM client_session WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	qctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(qctx, `
		INSERT INTO client_session (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("не удалось записать %s: %w", key, err)
	}
	return publish(ctx, s.notifier, key)
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	qctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(qctx, "DELETE FROM client_session WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("не удалось удалить %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	return publish(ctx, s.notifier, key)
}

func (s *PostgresStore) Subscribe() (<-chan broadcast.Change, func()) {
	return s.notifier.Subscribe()
}

// Close закрывает канал уведомлений; пул принадлежит вызывающему
func (s *PostgresStore) Close() error {
	return s.notifier.Close()
}
