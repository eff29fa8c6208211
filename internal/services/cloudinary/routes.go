package cloudinary

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
)

// SetupRoutes настраивает маршруты для загрузки изображений
func (s *CloudinaryService) SetupRoutes(app *fiber.App) {
	// Группа для API загрузки
	api := app.Group("/api/upload")

	// Защищенные маршруты
	api.Use(middleware.RequireSession(s.identity))

	// Маршрут для получения параметров загрузки
	api.Get("/params", s.GenerateUploadParams)

	// Маршрут для загрузки через шлюз
	api.Post("/", s.UploadImage)
}
