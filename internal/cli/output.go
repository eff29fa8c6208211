package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Коды выхода
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // операция отклонена: нет сессии, бэкенд вернул ошибку
	ExitCommandError = 2 // ошибка запуска: конфигурация, хранилище
)

// ExitError - ошибка с кодом выхода
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError оборачивает ошибку с кодом выхода
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode извлекает код выхода; по умолчанию ExitFailure
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response - формат ответа в json
type Response struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *ErrorOut `json:"error,omitempty"`
}

// ErrorOut - описание ошибки в json
type ErrorOut struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Printer выводит результат в выбранном формате
type Printer struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Print выводит данные; text рисует человекочитаемый вид
func (p *Printer) Print(data any, text func(w io.Writer)) error {
	switch p.Format {
	case FormatJSON:
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	case FormatYAML:
		return writeYAML(p.Writer, data)
	default:
		text(p.Writer)
		return nil
	}
}

// PrintError выводит ошибку; в текстовом виде ее печатает cobra
func (p *Printer) PrintError(err error) {
	msg := err.Error()
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		msg = exitErr.Err.Error()
	}

	switch p.Format {
	case FormatJSON:
		_ = json.NewEncoder(p.Writer).Encode(Response{
			Status: "error",
			Error:  &ErrorOut{Code: GetExitCode(err), Message: msg},
		})
	case FormatYAML:
		_ = yaml.NewEncoder(p.Writer).Encode(map[string]any{
			"status": "error",
			"error":  map[string]any{"code": GetExitCode(err), "message": msg},
		})
	default:
		fmt.Fprintf(p.errWriter(), "Error: %s\n", msg)
	}
}

// Logf пишет диагностику только в режиме --verbose
func (p *Printer) Logf(format string, args ...any) {
	if !p.Verbose {
		return
	}
	fmt.Fprintf(p.errWriter(), format+"\n", args...)
}

func (p *Printer) errWriter() io.Writer {
	if p.ErrWriter != nil {
		return p.ErrWriter
	}
	return p.Writer
}

// writeYAML сохраняет имена полей из json тегов
func writeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
