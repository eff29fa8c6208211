package backend

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку обращения к бэкенду
type Kind int

const (
	KindUnknown Kind = iota
	// Сеть недоступна, таймаут, отказ в соединении
	KindTransport
	// HTTP 401 или code 401 в конверте
	KindUnauthorized
	KindNotFound
	// HTTP 400 или code != 200 в конверте
	KindValidation
	KindForbidden
	// Ответ не соответствует конверту {code, message, data}
	KindMalformed
	KindServer
)

// String возвращает имя вида ошибки для логов и метрик
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindMalformed:
		return "malformed"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error представляет неудачный вызов бэкенда
type Error struct {
	Op      string
	Kind    Kind
	Status  int    // HTTP статус, 0 для сетевых ошибок
	Code    int    // code из конверта, если он был
	Message string // текст сервера без изменений
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает вид ошибки бэкенда или KindUnknown
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// Is проверяет вид ошибки
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage возвращает текст сервера без изменений, если он есть, иначе fallback
func UserMessage(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

// UserError - ошибка операции с готовым текстом для пользователя
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Describe оборачивает ошибку текстом сервера или fallback; nil остается nil
func Describe(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &UserError{Message: UserMessage(err, fallback), Err: err}
}
