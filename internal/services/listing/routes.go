package listing

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *ListingService) SetupRoutes(app *fiber.App) {
	// Группа для API объявлений
	api := app.Group("/api/goods")

	// Публичные маршруты
	api.Get("/", s.GetPublicListings)
	api.Get("/:id", s.GetListing)

	// Защищенные маршруты (требуют авторизации)
	requireSession := middleware.RequireSession(s.identity)
	api.Post("/", requireSession, middleware.RejectBanned(s.banThreshold), s.CreateListing)
	api.Put("/:id", requireSession, s.UpdateListing)
	api.Delete("/:id", requireSession, s.DeleteListing)
}
