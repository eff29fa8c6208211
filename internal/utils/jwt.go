package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoUserID возвращается, если в токене нет идентификатора пользователя
var ErrNoUserID = errors.New("в токене нет userId")

// TokenClaims содержит поля полезной нагрузки токена бэкенда
type TokenClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// JWTService отвечает за разбор и (в разработке и тестах) создание JWT токенов
type JWTService struct {
	secretKey string
	parser    *jwt.Parser
}

// NewJWTService создаёт новый экземпляр JWTService
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: secretKey,
		parser:    jwt.NewParser(),
	}
}

// GenerateToken создаёт JWT токен в формате бэкенда
func (s *JWTService) GenerateToken(userID int64, ttl time.Duration) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken проверяет подпись JWT токена
func (s *JWTService) ValidateToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// InspectToken читает полезную нагрузку без проверки подписи.
// Клиент не знает секрет бэкенда, поэтому токен для него непрозрачен;
// userId используется только для сверки с кэшированным профилем.
func (s *JWTService) InspectToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := s.parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("не удалось разобрать токен: %w", err)
	}
	return claims, nil
}

// ExtractUserID извлекает userId из токена без проверки подписи
func (s *JWTService) ExtractUserID(tokenString string) (int64, error) {
	claims, err := s.InspectToken(tokenString)
	if err != nil {
		return 0, err
	}
	if claims.UserID == 0 {
		return 0, ErrNoUserID
	}
	return claims.UserID, nil
}

// Expired сообщает, истек ли срок действия токена по его собственному exp
func (s *JWTService) Expired(tokenString string, now time.Time) bool {
	claims, err := s.InspectToken(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return now.After(claims.ExpiresAt.Time)
}
