package chat

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	inbox "github.com/rajivgeraev/campus-market/internal/chat"
	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/internal/utils"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Inbox - операции с входящими, нужные обработчикам
type Inbox interface {
	Conversations(ctx context.Context) ([]inbox.Conversation, error)
	StartConversation(counterpartID int64, productID *int64) (inbox.Conversation, error)
	History(ctx context.Context, counterpartID int64) ([]inbox.Entry, error)
	Send(ctx context.Context, toUserID int64, content string, productID *int64) (*inbox.SendResult, error)
	MarkRead(ctx context.Context, sessionID string) error
	Unread(ctx context.Context) (int, error)
	UnreadWith(ctx context.Context, counterpartID int64) (int, error)
}

// ChatService представляет сервис для работы с перепиской
type ChatService struct {
	inbox        Inbox
	identity     middleware.IdentitySource
	banThreshold int
	log          *logger.Logger
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(in Inbox, identity middleware.IdentitySource, banThreshold int, log *logger.Logger) *ChatService {
	log = logger.OrNop(log)
	return &ChatService{
		inbox:        in,
		identity:     identity,
		banThreshold: banThreshold,
		log:          log.Named("chat"),
	}
}

// GetChats возвращает список бесед пользователя
func (s *ChatService) GetChats(c fiber.Ctx) error {
	conversations, err := s.inbox.Conversations(c.Context())
	if err != nil {
		return middleware.Fail(c, err, "获取会话列表失败")
	}
	if conversations == nil {
		conversations = []inbox.Conversation{}
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

// GetUnread возвращает общее число непрочитанных
func (s *ChatService) GetUnread(c fiber.Ctx) error {
	count, err := s.inbox.Unread(c.Context())
	if err != nil {
		return middleware.Fail(c, err, "获取未读消息数失败")
	}
	return c.JSON(fiber.Map{"unread": count})
}

// GetChatMessages возвращает переписку с собеседником и число непрочитанных от него
func (s *ChatService) GetChatMessages(c fiber.Ctx) error {
	counterpartID, err := utils.ParamID(c, "userId")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	entries, err := s.inbox.History(c.Context(), counterpartID)
	if err != nil {
		return middleware.Fail(c, err, "获取聊天历史失败")
	}
	unread, err := s.inbox.UnreadWith(c.Context(), counterpartID)
	if err != nil {
		return middleware.Fail(c, err, "获取未读消息数失败")
	}
	if entries == nil {
		entries = []inbox.Entry{}
	}
	return c.JSON(fiber.Map{
		"messages": entries,
		"unread":   unread,
	})
}

// CreateChat начинает беседу с продавцом до первого сообщения
func (s *ChatService) CreateChat(c fiber.Ctx) error {
	var requestData struct {
		CounterpartID int64  `json:"counterpartId"`
		ProductID     *int64 `json:"productId"`
	}
	if err := c.Bind().Body(&requestData); err != nil || requestData.CounterpartID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请指定聊天对象"})
	}

	conv, err := s.inbox.StartConversation(requestData.CounterpartID, requestData.ProductID)
	if err != nil {
		if errors.Is(err, inbox.ErrSelfChat) {
			return middleware.BadRequest(c, err)
		}
		return middleware.Fail(c, err, "创建会话失败")
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// SendMessage отправляет сообщение
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	var requestData struct {
		ToUserID  int64  `json:"toUserId"`
		Content   string `json:"content"`
		ProductID *int64 `json:"productId"`
	}
	if err := c.Bind().Body(&requestData); err != nil || requestData.ToUserID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请指定聊天对象"})
	}

	result, err := s.inbox.Send(c.Context(), requestData.ToUserID, requestData.Content, requestData.ProductID)
	if err != nil {
		if errors.Is(err, inbox.ErrEmptyMessage) || errors.Is(err, inbox.ErrSelfChat) {
			return middleware.BadRequest(c, err)
		}
		return middleware.Fail(c, err, "发送消息失败")
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// MarkRead отмечает беседу прочитанной
func (s *ChatService) MarkRead(c fiber.Ctx) error {
	if err := s.inbox.MarkRead(c.Context(), c.Params("sessionId")); err != nil {
		return middleware.Fail(c, err, "标记已读失败")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
