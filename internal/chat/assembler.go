package chat

import (
	"slices"
	"time"

	"github.com/rajivgeraev/campus-market/internal/models"
)

// Conversation - сводка одной беседы для списка
type Conversation struct {
	SessionID     string              `json:"sessionId"`
	CounterpartID int64               `json:"counterpartId"`
	ProductID     *int64              `json:"productId,omitempty"`
	Latest        *models.ChatMessage `json:"latest,omitempty"`
	Unread        int                 `json:"unread"`
	MessageCount  int                 `json:"messageCount"`
	LastTime      string              `json:"lastTime"`
	// Беседа начата, но сообщений на бэкенде еще нет
	Pending bool `json:"pending"`
}

// Entry - сообщение переписки с отметкой автора
type Entry struct {
	models.ChatMessage
	Own bool `json:"own"`
}

// Assemble группирует сообщения по sessionId и сортирует беседы по времени
// последнего сообщения, новые первыми. Порядок внутри группы не меняется:
// последнее сообщение группы считается самым новым.
func Assemble(messages []models.ChatMessage, currentUserID int64, now time.Time) []Conversation {
	index := make(map[string]int)
	groups := make([][]models.ChatMessage, 0)

	for _, msg := range messages {
		i, ok := index[msg.SessionID]
		if !ok {
			i = len(groups)
			index[msg.SessionID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], msg)
	}

	conversations := make([]Conversation, 0, len(groups))
	for _, group := range groups {
		latest := group[len(group)-1]

		unread := 0
		for _, msg := range group {
			if msg.ReceiverID == currentUserID && !msg.IsRead {
				unread++
			}
		}

		conversations = append(conversations, Conversation{
			SessionID:     latest.SessionID,
			CounterpartID: counterpart(latest, currentUserID),
			ProductID:     latest.ProductID,
			Latest:        &latest,
			Unread:        unread,
			MessageCount:  len(group),
			LastTime:      RelativeTime(latest.SendTime.Time, now),
		})
	}

	slices.SortStableFunc(conversations, func(a, b Conversation) int {
		return b.Latest.SendTime.Compare(a.Latest.SendTime.Time)
	})
	return conversations
}

func counterpart(msg models.ChatMessage, currentUserID int64) int64 {
	if msg.SenderID != currentUserID {
		return msg.SenderID
	}
	return msg.ReceiverID
}

// Transcript возвращает сообщения беседы в порядке бэкенда
func Transcript(messages []models.ChatMessage, sessionID string, currentUserID int64) []Entry {
	entries := make([]Entry, 0)
	for _, msg := range messages {
		if msg.SessionID == sessionID {
			entries = append(entries, Entry{ChatMessage: msg, Own: msg.SenderID == currentUserID})
		}
	}
	return entries
}

func toEntries(messages []models.ChatMessage, currentUserID int64) []Entry {
	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, Entry{ChatMessage: msg, Own: msg.SenderID == currentUserID})
	}
	return entries
}

// MergePending ставит незавершенные беседы в начало списка. Заглушка исчезает,
// как только в списке появилась настоящая беседа с тем же собеседником.
func MergePending(conversations []Conversation, pending []Conversation) []Conversation {
	seen := make(map[int64]bool, len(conversations))
	for _, conv := range conversations {
		seen[conv.CounterpartID] = true
	}

	merged := make([]Conversation, 0, len(pending)+len(conversations))
	for _, conv := range pending {
		if !seen[conv.CounterpartID] {
			merged = append(merged, conv)
			seen[conv.CounterpartID] = true
		}
	}
	return append(merged, conversations...)
}

var weekdays = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// RelativeTime форматирует время сообщения относительно now:
// сегодня - 15:04, вчера - 昨天, в пределах недели - день недели,
// в этом году - 01-02, иначе полная дата.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())

	today := startOfDay(now)
	day := startOfDay(t)

	switch {
	case day.Equal(today):
		return t.Format("15:04")
	case day.Equal(today.AddDate(0, 0, -1)):
		return "昨天"
	case day.Before(today) && day.After(today.AddDate(0, 0, -7)):
		return weekdays[t.Weekday()]
	case t.Year() == now.Year():
		return t.Format("01-02")
	default:
		return t.Format("2006-01-02")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
