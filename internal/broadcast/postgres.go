package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Канал LISTEN/NOTIFY для изменений сессии
const PGChannel = "campus_session"

// PGNotifier рассылает изменения через LISTEN/NOTIFY PostgreSQL
type PGNotifier struct {
	*Hub
	pool     *pgxpool.Pool
	listener *pq.Listener
	done     chan struct{}
}

// NewPGNotifier запускает слушателя канала; публикация идет через пул
func NewPGNotifier(connString string, pool *pgxpool.Pool, log *logger.Logger) (*PGNotifier, error) {
	log = logger.OrNop(log)
	hub := NewHub(log.Named("pg"))

	listener := pq.NewListener(connString, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			hub.log.Warn("событие слушателя PostgreSQL", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(PGChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("не удалось подписаться на канал %s: %w", PGChannel, err)
	}

	n := &PGNotifier{
		Hub:      hub,
		pool:     pool,
		listener: listener,
		done:     make(chan struct{}),
	}
	go n.loop()
	return n, nil
}

func (n *PGNotifier) loop() {
	for {
		select {
		case <-n.done:
			return
		case notification, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// nil приходит после переподключения: изменения могли потеряться
			if notification == nil {
				n.Deliver(Change{Key: "", Origin: "reconnect"})
				continue
			}
			n.handle(notification.Extra)
		case <-time.After(90 * time.Second):
			go func() { _ = n.listener.Ping() }()
		}
	}
}

// Publish доставляет изменение локально и выполняет pg_notify
func (n *PGNotifier) Publish(ctx context.Context, change Change) error {
	change.Origin = n.ID()
	if change.At.IsZero() {
		change.At = time.Now()
	}
	n.Deliver(change)

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать изменение: %w", err)
	}
	if _, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", PGChannel, string(payload)); err != nil {
		return fmt.Errorf("ошибка pg_notify: %w", err)
	}
	return nil
}

func (n *PGNotifier) handle(extra string) {
	var change Change
	if err := json.Unmarshal([]byte(extra), &change); err != nil {
		n.log.Warn("некорректное уведомление PostgreSQL", zap.Error(err))
		return
	}
	if change.Origin == n.ID() {
		return
	}
	n.Deliver(change)
}

// Close останавливает слушателя и закрывает подписчиков
func (n *PGNotifier) Close() error {
	select {
	case <-n.done:
	default:
		close(n.done)
	}
	err := n.listener.Close()
	if cerr := n.Hub.Close(); err == nil {
		err = cerr
	}
	return err
}
