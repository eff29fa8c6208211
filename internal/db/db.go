package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Таблица общего хранилища сессии
const sessionSchema = `
CREATE TABLE IF NOT EXISTS client_session (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Open создает пул соединений и проверяет подключение
func Open(ctx context.Context, databaseURL string, log *logger.Logger) (*pgxpool.Pool, error) {
	log.Info("Подключение к базе данных")

	// Создаем контекст с таймаутом для подключения
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL базы данных: %w", err)
	}

	// Сессия - пара ключей, большой пул не нужен
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения: %w", err)
	}

	log.Info("Успешное подключение к базе данных", zap.Int32("max_conns", poolConfig.MaxConns))
	return pool, nil
}

// Migrate создает таблицы, если их еще нет
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := WithTimeout(ctx)
	defer cancel()

	if _, err := pool.Exec(ctx, sessionSchema); err != nil {
		return fmt.Errorf("ошибка при создании таблицы client_session: %w", err)
	}
	return nil
}

// WithTimeout возвращает контекст с таймаутом для запросов к базе данных
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
