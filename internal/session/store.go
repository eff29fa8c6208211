package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rajivgeraev/campus-market/internal/broadcast"
	"github.com/rajivgeraev/campus-market/internal/models"
)

// Ключи общего хранилища сессии
const (
	KeyToken   = "token"
	KeyProfile = "user_profile"
)

// Store - долговременное хранилище учетных данных и кэша профиля.
// Записи последнего писателя побеждают; подписчики узнают о любых изменениях.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Subscribe() (<-chan broadcast.Change, func())
	Close() error
}

// readToken возвращает токен или пустую строку
func readToken(ctx context.Context, store Store) (string, error) {
	token, _, err := store.Get(ctx, KeyToken)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать токен: %w", err)
	}
	return token, nil
}

// errCorruptProfile означает, что в кэше лежит не JSON профиля
var errCorruptProfile = errors.New("кэш профиля поврежден")

// readProfile возвращает кэшированный профиль или nil
func readProfile(ctx context.Context, store Store) (*models.UserProfile, error) {
	raw, ok, err := store.Get(ctx, KeyProfile)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать профиль: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil || profile.UserID == 0 {
		return nil, errCorruptProfile
	}
	return &profile, nil
}

// writeProfile сохраняет профиль без токена
func writeProfile(ctx context.Context, store Store, profile models.UserProfile) error {
	data, err := json.Marshal(profile.WithoutToken())
	if err != nil {
		return fmt.Errorf("не удалось сериализовать профиль: %w", err)
	}
	if err := store.Set(ctx, KeyProfile, string(data)); err != nil {
		return fmt.Errorf("не удалось сохранить профиль: %w", err)
	}
	return nil
}

func publish(ctx context.Context, notifier broadcast.Notifier, key string) error {
	if err := notifier.Publish(ctx, broadcast.Change{Key: key}); err != nil {
		return fmt.Errorf("не удалось оповестить об изменении %s: %w", key, err)
	}
	return nil
}
