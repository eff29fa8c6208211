package models

// ChatMessage представляет сообщение, как его возвращает /chat/*
type ChatMessage struct {
	ID          int64     `json:"id"`
	ProductID   *int64    `json:"productId,omitempty"`
	SenderID    int64     `json:"senderId"`
	ReceiverID  int64     `json:"receiverId"`
	Content     string    `json:"content"`
	MessageType string    `json:"messageType,omitempty"` // TEXT, IMAGE, SYSTEM
	IsRead      bool      `json:"isRead"`
	SendTime    LocalTime `json:"sendTime"`
	SessionID   string    `json:"sessionId"`
}

// SendMessageRequest представляет параметры отправки сообщения
type SendMessageRequest struct {
	FromUserID int64
	ToUserID   int64
	Content    string
	ProductID  *int64
}
