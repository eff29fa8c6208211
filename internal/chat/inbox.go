package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Префикс sessionId незавершенной беседы
const PendingPrefix = "pending:"

var (
	ErrEmptyMessage = errors.New("消息内容不能为空")
	ErrSelfChat     = errors.New("不能给自己发消息")
)

// API - вызовы бэкенда для переписки
type API interface {
	ChatHistory(ctx context.Context, userID1, userID2 int64) ([]models.ChatMessage, error)
	ChatSessions(ctx context.Context, userID int64) ([]models.ChatMessage, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	UnreadCountWith(ctx context.Context, currentUserID, targetUserID int64) (int, error)
	MarkRead(ctx context.Context, sessionID string, userID int64) error
	SendMessage(ctx context.Context, msg models.SendMessageRequest) (*models.ChatMessage, error)
}

// IdentitySource отдает текущего пользователя
type IdentitySource interface {
	Identity() (*models.UserProfile, error)
}

// SendResult - отправленное сообщение и обновленные данные входящих
type SendResult struct {
	Message       *models.ChatMessage `json:"message"`
	Conversations []Conversation      `json:"conversations,omitempty"`
	Unread        int                 `json:"unread"`
}

// Inbox собирает входящие пользователя поверх API переписки
type Inbox struct {
	api      API
	identity IdentitySource
	log      *logger.Logger
	now      func() time.Time

	mu sync.Mutex
	// владелец -> собеседник -> заглушка
	pending map[int64]map[int64]Conversation
}

// NewInbox создает новый экземпляр Inbox
func NewInbox(api API, identity IdentitySource, log *logger.Logger) *Inbox {
	log = logger.OrNop(log)
	return &Inbox{
		api:      api,
		identity: identity,
		log:      log.Named("chat"),
		now:      time.Now,
		pending:  make(map[int64]map[int64]Conversation),
	}
}

// Conversations возвращает список бесед, включая незавершенные
func (i *Inbox) Conversations(ctx context.Context) ([]Conversation, error) {
	me, err := i.identity.Identity()
	if err != nil {
		return nil, err
	}

	messages, err := i.api.ChatSessions(ctx, me.UserID)
	if err != nil {
		return nil, backend.Describe(err, "获取会话列表失败")
	}

	conversations := Assemble(messages, me.UserID, i.now())
	return MergePending(conversations, i.prunePending(me.UserID, conversations)), nil
}

// prunePending удаляет заглушки, для которых появилась настоящая беседа,
// и возвращает оставшиеся
func (i *Inbox) prunePending(owner int64, conversations []Conversation) []Conversation {
	i.mu.Lock()
	defer i.mu.Unlock()

	placeholders := i.pending[owner]
	for _, conv := range conversations {
		delete(placeholders, conv.CounterpartID)
	}

	rest := make([]Conversation, 0, len(placeholders))
	for _, conv := range placeholders {
		rest = append(rest, conv)
	}
	// Заглушки хранятся в map: упорядочиваем по sessionId для стабильного вывода
	slices.SortFunc(rest, func(a, b Conversation) int {
		return strings.Compare(a.SessionID, b.SessionID)
	})
	return rest
}

// StartConversation регистрирует заглушку беседы с продавцом до первого сообщения
func (i *Inbox) StartConversation(counterpartID int64, productID *int64) (Conversation, error) {
	me, err := i.identity.Identity()
	if err != nil {
		return Conversation{}, err
	}
	if counterpartID == me.UserID {
		return Conversation{}, ErrSelfChat
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	placeholders, ok := i.pending[me.UserID]
	if !ok {
		placeholders = make(map[int64]Conversation)
		i.pending[me.UserID] = placeholders
	}
	if conv, exists := placeholders[counterpartID]; exists {
		return conv, nil
	}

	conv := Conversation{
		SessionID:     PendingPrefix + uuid.NewString(),
		CounterpartID: counterpartID,
		ProductID:     productID,
		Pending:       true,
	}
	placeholders[counterpartID] = conv
	i.log.Debug("начата новая беседа", zap.Int64("counterpart_id", counterpartID))
	return conv, nil
}

// History возвращает переписку с собеседником
func (i *Inbox) History(ctx context.Context, counterpartID int64) ([]Entry, error) {
	me, err := i.identity.Identity()
	if err != nil {
		return nil, err
	}

	messages, err := i.api.ChatHistory(ctx, me.UserID, counterpartID)
	if err != nil {
		return nil, backend.Describe(err, "获取聊天历史失败")
	}
	return toEntries(messages, me.UserID), nil
}

// Send отправляет сообщение и обновляет список бесед и счетчик непрочитанных
func (i *Inbox) Send(ctx context.Context, toUserID int64, content string, productID *int64) (*SendResult, error) {
	me, err := i.identity.Identity()
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if toUserID == me.UserID {
		return nil, ErrSelfChat
	}

	sent, err := i.api.SendMessage(ctx, models.SendMessageRequest{
		FromUserID: me.UserID,
		ToUserID:   toUserID,
		Content:    content,
		ProductID:  productID,
	})
	if err != nil {
		return nil, backend.Describe(err, "发送消息失败")
	}

	result := &SendResult{Message: sent}

	// Сообщение уже ушло: ошибки обновления только логируем
	if conversations, err := i.Conversations(ctx); err != nil {
		i.log.Warn("не удалось обновить список бесед", zap.Error(err))
	} else {
		result.Conversations = conversations
	}
	if unread, err := i.api.UnreadCount(ctx, me.UserID); err != nil {
		i.log.Warn("не удалось обновить счетчик непрочитанных", zap.Error(err))
	} else {
		result.Unread = unread
	}
	return result, nil
}

// MarkRead отмечает беседу прочитанной; для заглушки запрос не нужен
func (i *Inbox) MarkRead(ctx context.Context, sessionID string) error {
	me, err := i.identity.Identity()
	if err != nil {
		return err
	}
	if strings.HasPrefix(sessionID, PendingPrefix) {
		return nil
	}
	return backend.Describe(i.api.MarkRead(ctx, sessionID, me.UserID), "标记已读失败")
}

// Unread возвращает общее число непрочитанных сообщений
func (i *Inbox) Unread(ctx context.Context) (int, error) {
	me, err := i.identity.Identity()
	if err != nil {
		return 0, err
	}
	count, err := i.api.UnreadCount(ctx, me.UserID)
	if err != nil {
		return 0, backend.Describe(err, "获取未读消息数失败")
	}
	return count, nil
}

// UnreadWith возвращает число непрочитанных сообщений от собеседника
func (i *Inbox) UnreadWith(ctx context.Context, counterpartID int64) (int, error) {
	me, err := i.identity.Identity()
	if err != nil {
		return 0, err
	}
	count, err := i.api.UnreadCountWith(ctx, me.UserID, counterpartID)
	if err != nil {
		return 0, backend.Describe(err, "获取未读消息数失败")
	}
	return count, nil
}
