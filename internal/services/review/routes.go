package review

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
)

// SetupRoutes настраивает маршруты для API отзывов
func (s *ReviewService) SetupRoutes(app *fiber.App) {
	requireSession := middleware.RequireSession(s.identity)

	// Отзыв оставляется из заказа
	app.Post("/api/trades/:id/review", requireSession, middleware.RejectBanned(s.banThreshold), s.SubmitReview)

	// Группа для просмотра отзывов
	api := app.Group("/api/reviews")
	api.Get("/product/:id", s.GetProductReviews)
	api.Get("/user/:id", s.GetUserReviews)
	api.Get("/order/:id", requireSession, s.GetOrderReview)
	api.Get("/my", requireSession, s.GetMyReviews)
}
