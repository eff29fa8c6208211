package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/user"
)

// Ключ профиля в c.Locals
const localProfile = "profile"

// Страница входа, на которую фронтенд уводит неавторизованного пользователя
const LoginPath = "/user"

// IdentitySource отдает текущего пользователя
type IdentitySource interface {
	Identity() (*models.UserProfile, error)
}

// RequireSession пропускает запрос только при установленной личности
func RequireSession(identity IdentitySource) fiber.Handler {
	return func(c fiber.Ctx) error {
		profile, err := identity.Identity()
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":    "请先登录",
				"redirect": LoginPath,
			})
		}

		// Добавляем профиль в контекст
		c.Locals(localProfile, profile)

		return c.Next()
	}
}

// RejectBanned запрещает изменения пользователю с кредитным баллом ниже порога.
// Ставится после RequireSession.
func RejectBanned(threshold int) fiber.Handler {
	return func(c fiber.Ctx) error {
		if user.Banned(Profile(c), threshold) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "信用分过低，账号已被限制操作",
			})
		}
		return c.Next()
	}
}

// Profile возвращает профиль, положенный RequireSession, или nil
func Profile(c fiber.Ctx) *models.UserProfile {
	profile, _ := c.Locals(localProfile).(*models.UserProfile)
	return profile
}
