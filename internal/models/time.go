package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Форматы, в которых бэкенд сериализует LocalDateTime
var localTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LocalTime представляет время из ответа бэкенда (LocalDateTime без зоны)
type LocalTime struct {
	time.Time
}

// NewLocalTime оборачивает time.Time
func NewLocalTime(t time.Time) LocalTime {
	return LocalTime{Time: t}
}

// ParseLocalTime разбирает строку в одном из известных форматов
func ParseLocalTime(value string) (LocalTime, error) {
	if value == "" {
		return LocalTime{}, nil
	}
	for _, layout := range localTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return LocalTime{Time: t}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("неизвестный формат времени: %q", value)
}

// UnmarshalJSON принимает строку, null или пустую строку
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("время должно быть строкой: %w", err)
	}

	parsed, err := ParseLocalTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON сериализует время в формате бэкенда
func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}
