package models

// TradeStatus определяет состояние заказа
type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeAccepted  TradeStatus = "ACCEPTED"
	TradeShipped   TradeStatus = "SHIPPED"
	TradeCompleted TradeStatus = "COMPLETED"
	TradeCancelled TradeStatus = "CANCELLED"
)

// Допустимые переходы; назад в PENDING вернуться нельзя
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradePending:  {TradeAccepted, TradeCancelled},
	TradeAccepted: {TradeShipped, TradeCancelled},
	TradeShipped:  {TradeCompleted},
}

// Valid сообщает, известен ли статус
func (s TradeStatus) Valid() bool {
	switch s {
	case TradePending, TradeAccepted, TradeShipped, TradeCompleted, TradeCancelled:
		return true
	}
	return false
}

// Final сообщает, является ли статус конечным
func (s TradeStatus) Final() bool {
	return s == TradeCompleted || s == TradeCancelled
}

// CanTransitionTo проверяет переход по графу статусов
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	for _, allowed := range tradeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ProductSnapshot хранит данные товара на момент оформления заказа
type ProductSnapshot struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
}

// Trade представляет заказ между покупателем и продавцом
type Trade struct {
	ID              int64           `json:"id"`
	Product         ProductSnapshot `json:"product"`
	BuyerID         int64           `json:"buyerId"`
	SellerID        int64           `json:"sellerId"`
	Status          TradeStatus     `json:"status"`
	TotalAmount     float64         `json:"totalAmount"`
	Quantity        int             `json:"quantity"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	CreatedAt       LocalTime       `json:"createdAt"`
	UpdatedAt       LocalTime       `json:"updatedAt"`
}

// TradeStatusUpdate представляет тело запроса смены статуса
type TradeStatusUpdate struct {
	Status TradeStatus `json:"status"`
}
