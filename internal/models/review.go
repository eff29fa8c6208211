package models

// Review представляет отзыв по заказу
type Review struct {
	ID         int64     `json:"id,omitempty"`
	OrderID    int64     `json:"orderId"`
	ReviewerID int64     `json:"reviewerId"`
	RevieweeID int64     `json:"revieweeId"`
	ProductID  int64     `json:"productId"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	Anonymity  bool      `json:"anonymity,omitempty"`
	CreateTime LocalTime `json:"createTime"`
	UpdateTime LocalTime `json:"updateTime"`
}
