package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/pkg/logger"
	"github.com/rajivgeraev/campus-market/pkg/metrics"
)

// CorrelationHeader - заголовок с идентификатором запроса
const CorrelationHeader = "X-Correlation-ID"

// RequestLogger пишет каждый запрос в лог и в метрики
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Named("http")

	return func(c fiber.Ctx) error {
		started := time.Now()

		correlationID := c.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Set(CorrelationHeader, correlationID)

		// Ошибку обрабатываем здесь, чтобы записать итоговый статус
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(started)
		metrics.RecordRequest(c.Method(), c.Route().Path, strconv.Itoa(status), elapsed.Seconds())

		var userID int64
		if profile := Profile(c); profile != nil {
			userID = profile.UserID
		}
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		}
		reqLog := log.WithRequest(correlationID, userID)
		if status >= fiber.StatusInternalServerError {
			reqLog.Error("запрос завершился ошибкой", fields...)
		} else {
			reqLog.Info("запрос", fields...)
		}
		return nil
	}
}
