package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// NATSNotifier рассылает изменения между процессами через NATS
type NATSNotifier struct {
	*Hub
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNATSNotifier подключается к NATS и подписывается на subject
func NewNATSNotifier(url, subject string, log *logger.Logger) (*NATSNotifier, error) {
	log = logger.OrNop(log)

	nc, err := nats.Connect(url,
		nats.Name("campus-market-session"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS отключен", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS переподключен")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к NATS: %w", err)
	}

	n := &NATSNotifier{
		Hub:     NewHub(log.Named("nats")),
		conn:    nc,
		subject: subject,
	}

	n.sub, err = nc.Subscribe(subject, func(msg *nats.Msg) {
		n.handle(msg.Data)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("не удалось подписаться на %s: %w", subject, err)
	}

	return n, nil
}

// Publish доставляет изменение локально и отправляет его другим процессам
func (n *NATSNotifier) Publish(ctx context.Context, change Change) error {
	change.Origin = n.ID()
	if change.At.IsZero() {
		change.At = time.Now()
	}
	n.Deliver(change)

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать изменение: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("не удалось опубликовать изменение: %w", err)
	}
	return nil
}

// handle принимает изменение от другого процесса; свои уже доставлены локально
func (n *NATSNotifier) handle(data []byte) {
	var change Change
	if err := json.Unmarshal(data, &change); err != nil {
		n.log.Warn("некорректное сообщение NATS", zap.Error(err))
		return
	}
	if change.Origin == n.ID() {
		return
	}
	n.Deliver(change)
}

// Close отписывается, закрывает соединение и локальных подписчиков
func (n *NATSNotifier) Close() error {
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
	}
	if n.conn != nil {
		n.conn.Close()
	}
	return n.Hub.Close()
}
