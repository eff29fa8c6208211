package utils

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
)

// ErrInvalidID возвращается для нечислового или неположительного идентификатора
var ErrInvalidID = errors.New("无效的ID")

// ParseID разбирает положительный числовой идентификатор
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParamID читает идентификатор из параметра маршрута
func ParamID(c fiber.Ctx, key string) (int64, error) {
	return ParseID(c.Params(key))
}

// QueryInt читает целый параметр запроса или возвращает значение по умолчанию
func QueryInt(c fiber.Ctx, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// OptionalID читает необязательный идентификатор из параметра запроса
func OptionalID(c fiber.Ctx, key string) (*int64, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	id, err := ParseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
