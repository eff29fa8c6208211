package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/pkg/logger"
	"github.com/rajivgeraev/campus-market/pkg/metrics"
)

// Размер буфера канала подписчика
const subscriberBuffer = 16

// Change сообщает, что ключ хранилища сессии изменился
type Change struct {
	Key    string    `json:"key"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Notifier доставляет изменения хранилища всем подписчикам
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Subscribe() (<-chan Change, func())
	Close() error
}

// Hub раздает изменения подписчикам внутри процесса
type Hub struct {
	id     string
	log    *logger.Logger
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Change
	closed bool
}

// NewHub создает новый экземпляр Hub
func NewHub(log *logger.Logger) *Hub {
	log = logger.OrNop(log)
	return &Hub{
		id:   uuid.NewString(),
		log:  log,
		subs: make(map[uuid.UUID]chan Change),
	}
}

// ID возвращает идентификатор процесса, которым помечаются исходящие изменения
func (h *Hub) ID() string {
	return h.id
}

// Subscribe регистрирует подписчика; вторая функция отменяет подписку
func (h *Hub) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)
	id := uuid.New()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch
	count := len(h.subs)
	h.mu.Unlock()

	metrics.SessionSubscribers.Set(float64(count))

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	ch, exists := h.subs[id]
	if exists {
		delete(h.subs, id)
		close(ch)
	}
	count := len(h.subs)
	h.mu.Unlock()

	metrics.SessionSubscribers.Set(float64(count))
}

// Publish помечает изменение своим ID и доставляет его локально
func (h *Hub) Publish(_ context.Context, change Change) error {
	if change.Origin == "" {
		change.Origin = h.id
	}
	h.Deliver(change)
	return nil
}

// Deliver отправляет изменение всем подписчикам в неблокирующем режиме
func (h *Hub) Deliver(change Change) {
	if change.At.IsZero() {
		change.At = time.Now()
	}

	var slow []uuid.UUID

	h.mu.RLock()
	for id, ch := range h.subs {
		select {
		case ch <- change:
		default:
			// Канал заполнен, подписчик не успевает - отключаем его
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		h.log.Warn("подписчик не успевает, отключаем", zap.String("subscriber", id.String()))
		h.remove(id)
	}
}

// Close закрывает каналы всех подписчиков
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	metrics.SessionSubscribers.Set(0)
	return nil
}
