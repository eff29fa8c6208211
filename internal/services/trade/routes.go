package trade

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
)

// SetupRoutes настраивает маршруты для API заказов
func (s *TradeService) SetupRoutes(app *fiber.App) {
	// Группа для API заказов
	api := app.Group("/api/trades")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.RequireSession(s.identity))

	// Маршрут для получения списка заказов
	api.Get("/", s.GetMyTrades)

	// Маршрут для получения заказа
	api.Get("/:id", s.GetTrade)

	// Маршрут для принятия заказа продавцом
	api.Post("/:id/accept", middleware.RejectBanned(s.banThreshold), s.AcceptTrade)
}
