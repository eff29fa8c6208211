package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rajivgeraev/campus-market/internal/models"
)

func idParam(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ChatHistory возвращает переписку двух пользователей в хронологическом порядке
func (c *Client) ChatHistory(ctx context.Context, userID1, userID2 int64) ([]models.ChatMessage, error) {
	query := url.Values{}
	query.Set("userId1", idParam(userID1))
	query.Set("userId2", idParam(userID2))

	return call[[]models.ChatMessage](ctx, c, request{
		op: "chat.history", method: "GET", path: "/chat/history", query: query, allowEmpty: true,
	})
}

// ChatSessions возвращает плоский список сообщений всех сессий пользователя
func (c *Client) ChatSessions(ctx context.Context, userID int64) ([]models.ChatMessage, error) {
	query := url.Values{}
	query.Set("userId", idParam(userID))

	return call[[]models.ChatMessage](ctx, c, request{
		op: "chat.sessions", method: "GET", path: "/chat/sessions", query: query, allowEmpty: true,
	})
}

// UnreadCount возвращает общее число непрочитанных сообщений
func (c *Client) UnreadCount(ctx context.Context, userID int64) (int, error) {
	query := url.Values{}
	query.Set("userId", idParam(userID))

	return call[int](ctx, c, request{
		op: "chat.unread", method: "GET", path: "/chat/unread", query: query,
	})
}

// UnreadCountWith возвращает число непрочитанных сообщений от конкретного пользователя
func (c *Client) UnreadCountWith(ctx context.Context, currentUserID, targetUserID int64) (int, error) {
	query := url.Values{}
	query.Set("currentUserId", idParam(currentUserID))
	query.Set("targetUserId", idParam(targetUserID))

	return call[int](ctx, c, request{
		op: "chat.unread_with", method: "GET", path: "/chat/unread/with", query: query,
	})
}

// MarkRead отмечает сообщения сессии прочитанными
func (c *Client) MarkRead(ctx context.Context, sessionID string, userID int64) error {
	query := url.Values{}
	query.Set("sessionId", sessionID)
	query.Set("userId", idParam(userID))

	return exec(ctx, c, request{
		op: "chat.read", method: "POST", path: "/chat/read", query: query,
	})
}

// SendMessage отправляет сообщение; параметры идут в строке запроса, как ждет бэкенд
func (c *Client) SendMessage(ctx context.Context, msg models.SendMessageRequest) (*models.ChatMessage, error) {
	query := url.Values{}
	query.Set("fromUserId", idParam(msg.FromUserID))
	query.Set("toUserId", idParam(msg.ToUserID))
	query.Set("content", msg.Content)
	if msg.ProductID != nil {
		query.Set("productId", idParam(*msg.ProductID))
	}

	sent, err := call[models.ChatMessage](ctx, c, request{
		op: "chat.send", method: "POST", path: "/chat/send", query: query,
	})
	if err != nil {
		return nil, err
	}
	return &sent, nil
}
