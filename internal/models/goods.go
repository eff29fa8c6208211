package models

// GoodsStatus определяет статус объявления
type GoodsStatus string

const (
	GoodsActive   GoodsStatus = "ACTIVE"
	GoodsInactive GoodsStatus = "INACTIVE"
)

// Goods представляет товар (объявление) на площадке
type Goods struct {
	ID              int64       `json:"id,omitempty"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Price           float64     `json:"price"`
	Category        string      `json:"category"`
	ConditionStatus string      `json:"conditionStatus"`
	ImageURL        string      `json:"imageUrl"`
	TradeTime       string      `json:"tradeTime,omitempty"`
	TradeLocation   string      `json:"tradeLocation,omitempty"`
	ContactPhone    string      `json:"contactPhone,omitempty"`
	SellerID        int64       `json:"sellerId,omitempty"`
	Status          GoodsStatus `json:"status,omitempty"`
	CreateTime      LocalTime   `json:"createTime"`
	UpdateTime      LocalTime   `json:"updateTime"`
}
