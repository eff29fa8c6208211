package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
)

// SetupRoutes регистрирует маршруты в Fiber
func (s *AuthService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Сессия
	api.Post("/session/login", s.Login)
	api.Delete("/session", s.Logout)
	api.Get("/session", s.Current)
	api.Post("/session/refresh", s.Refresh)

	// Учетная запись
	api.Post("/user/register", s.Register)
	api.Post("/user/reset-password", s.ResetPassword)

	// Защищенные маршруты
	requireSession := middleware.RequireSession(s.session)
	api.Put("/user/profile", requireSession, s.UpdateProfile)
	api.Post("/user/verify-identity", requireSession, s.VerifyIdentity)

	// Страница продавца
	api.Get("/sellers/:id", s.Seller)
}
