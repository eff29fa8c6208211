package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
)

// SetupRoutes настраивает маршруты для API переписки
func (s *ChatService) SetupRoutes(app *fiber.App) {
	// Группа для API переписки
	api := app.Group("/api/inbox")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.RequireSession(s.identity))

	// Маршрут для получения всех бесед пользователя
	api.Get("/", s.GetChats)

	// Маршрут для получения числа непрочитанных
	api.Get("/unread", s.GetUnread)

	// Маршрут для получения переписки с собеседником
	api.Get("/with/:userId", s.GetChatMessages)

	// Маршрут для начала беседы
	api.Post("/start", s.CreateChat)

	// Маршрут для отправки сообщения
	api.Post("/send", middleware.RejectBanned(s.banThreshold), s.SendMessage)

	// Маршрут для отметки прочтения
	api.Post("/:sessionId/read", s.MarkRead)
}
