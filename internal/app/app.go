// Package app собирает компоненты клиента площадки по конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/broadcast"
	"github.com/rajivgeraev/campus-market/internal/chat"
	"github.com/rajivgeraev/campus-market/internal/config"
	"github.com/rajivgeraev/campus-market/internal/db"
	"github.com/rajivgeraev/campus-market/internal/goods"
	"github.com/rajivgeraev/campus-market/internal/review"
	"github.com/rajivgeraev/campus-market/internal/session"
	"github.com/rajivgeraev/campus-market/internal/trade"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Options дополняет конфигурацию тем, что нельзя задать переменными окружения
type Options struct {
	// OnDecision получает каждое решение сверки сессии
	OnDecision func(session.Decision)
}

// App содержит собранные компоненты
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Store   session.Store
	Backend *backend.Client
	Session *session.Synchronizer
	Trades  *trade.Workflow
	Inbox   *chat.Inbox
	Catalog *goods.Catalog
	Images  *goods.Images
	Reviews *review.Service

	pool *pgxpool.Pool
}

// New создает хранилище, канал уведомлений, клиент бэкенда и сервисы домена
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)

	a := &App{Config: cfg, Log: log}

	if cfg.SessionStore == config.StorePostgres {
		pool, err := db.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		a.pool = pool
	}

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.newStore(ctx, notifier)
	if err != nil {
		notifier.Close()
		a.Close()
		return nil, err
	}
	a.Store = store

	// Клиент и синхронизатор ссылаются друг на друга: токен читается через
	// синхронизатор, 401 передается ему же
	a.Backend = backend.NewClient(
		backend.Config{BaseURL: cfg.BackendURL, Timeout: cfg.RequestTimeout},
		backend.WithLogger(log.Named("backend")),
		backend.WithTokenSource(backend.TokenFunc(func(ctx context.Context) (string, error) {
			return a.Session.Token(ctx)
		})),
	)
	a.Session = session.NewSynchronizer(store, a.Backend, session.Options{
		Interval:     cfg.ReconcileInterval,
		FetchTimeout: cfg.RequestTimeout,
		Logger:       log,
		OnDecision:   opts.OnDecision,
	})
	a.Backend.OnUnauthorized(a.Session.ExpireToken)

	a.Trades = trade.NewWorkflow(a.Backend, a.Session, log)
	a.Inbox = chat.NewInbox(a.Backend, a.Session, log)
	a.Catalog = goods.NewCatalog(a.Backend, log)
	a.Reviews = review.NewService(a.Backend, a.Trades, a.Session, log)

	a.Images, err = goods.NewImages(cfg.CloudinaryConfig)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("клиент площадки собран",
		zap.String("store", cfg.SessionStore),
		zap.String("notifier", cfg.SessionNotifier),
		zap.String("backend", cfg.BackendURL),
		zap.Bool("images", a.Images.Enabled()),
	)
	return a, nil
}

func (a *App) newNotifier() (broadcast.Notifier, error) {
	switch a.Config.SessionNotifier {
	case config.NotifierNATS:
		return broadcast.NewNATSNotifier(a.Config.NATSURL, a.Config.NATSSubject, a.Log)
	case config.NotifierPostgres:
		return broadcast.NewPGNotifier(a.Config.DatabaseURL, a.pool, a.Log)
	default:
		return broadcast.NewHub(a.Log), nil
	}
}

func (a *App) newStore(ctx context.Context, notifier broadcast.Notifier) (session.Store, error) {
	switch a.Config.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(notifier), nil
	case config.StorePostgres:
		return session.NewPostgresStore(ctx, a.pool, notifier)
	default:
		return session.NewSQLiteStore(a.Config.SQLitePath, notifier)
	}
}

// Close дожидается фоновых запросов и освобождает хранилище и пул
func (a *App) Close() error {
	var errs []error
	if a.Session != nil {
		a.Session.Wait()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие хранилища: %w", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
