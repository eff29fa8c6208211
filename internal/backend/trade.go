package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rajivgeraev/campus-market/internal/models"
)

// TradeQuery задает фильтр и страницу списка заказов
type TradeQuery struct {
	Status   models.TradeStatus // пустой статус - все заказы
	Page     int
	PageSize int
}

// ListTrades возвращает заказы текущего пользователя (как покупателя и как продавца)
func (c *Client) ListTrades(ctx context.Context, q TradeQuery) (*models.Page[models.Trade], error) {
	query := url.Values{}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("pageSize", strconv.Itoa(q.PageSize))

	page, err := call[models.Page[models.Trade]](ctx, c, request{
		op: "trades.list", method: "GET", path: "/trades", query: query,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTrade возвращает заказ по ID
func (c *Client) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	trade, err := call[models.Trade](ctx, c, request{
		op: "trades.get", method: "GET", path: fmt.Sprintf("/trades/%d", id),
	})
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// UpdateTradeStatus запрашивает смену статуса заказа.
// Если бэкенд не вернул заказ, возвращается nil без ошибки.
func (c *Client) UpdateTradeStatus(ctx context.Context, id int64, status models.TradeStatus) (*models.Trade, error) {
	return call[*models.Trade](ctx, c, request{
		op:         "trades.update_status",
		method:     "PUT",
		path:       fmt.Sprintf("/trades/%d/status", id),
		body:       models.TradeStatusUpdate{Status: status},
		allowEmpty: true,
	})
}
