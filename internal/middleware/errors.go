package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/session"
	"github.com/rajivgeraev/campus-market/internal/trade"
)

// StatusFor подбирает HTTP статус для ошибки бэкенда
func StatusFor(kind backend.Kind) int {
	switch kind {
	case backend.KindUnauthorized:
		return fiber.StatusUnauthorized
	case backend.KindForbidden:
		return fiber.StatusForbidden
	case backend.KindNotFound:
		return fiber.StatusNotFound
	case backend.KindValidation:
		return fiber.StatusBadRequest
	case backend.KindTransport, backend.KindServer, backend.KindMalformed:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Fail отвечает ошибкой в формате {"error": ...}. Текст берется из ошибки,
// если он предназначен пользователю, иначе используется fallback.
func Fail(c fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, session.ErrNotAuthenticated) || backend.Is(err, backend.KindUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":    "登录已过期，请重新登录",
			"redirect": LoginPath,
		})
	}

	var te *trade.TransitionError
	if errors.As(err, &te) {
		return c.Status(StatusFor(te.Kind)).JSON(fiber.Map{"error": te.Message})
	}

	var ue *backend.UserError
	if errors.As(err, &ue) {
		return c.Status(StatusFor(backend.KindOf(ue.Err))).JSON(fiber.Map{"error": ue.Message})
	}

	if kind := backend.KindOf(err); kind != backend.KindUnknown {
		return c.Status(StatusFor(kind)).JSON(fiber.Map{"error": backend.UserMessage(err, fallback)})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// BadRequest отвечает 400 с текстом ошибки проверки
func BadRequest(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}
