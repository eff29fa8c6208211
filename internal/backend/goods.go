package backend

import (
	"context"
	"fmt"

	"github.com/rajivgeraev/campus-market/internal/models"
)

// ListGoods возвращает все объявления
func (c *Client) ListGoods(ctx context.Context) ([]models.Goods, error) {
	return call[[]models.Goods](ctx, c, request{
		op: "goods.list", method: "GET", path: "/goods/list", allowEmpty: true,
	})
}

// GetGoods возвращает объявление по ID
func (c *Client) GetGoods(ctx context.Context, id int64) (*models.Goods, error) {
	goods, err := call[models.Goods](ctx, c, request{
		op: "goods.get", method: "GET", path: fmt.Sprintf("/goods/%d", id),
	})
	if err != nil {
		return nil, err
	}
	return &goods, nil
}

// CreateGoods создает объявление; продавца бэкенд берет из токена
func (c *Client) CreateGoods(ctx context.Context, goods models.Goods) error {
	return exec(ctx, c, request{
		op: "goods.create", method: "POST", path: "/goods/create", body: goods,
	})
}

// UpdateGoods обновляет объявление
func (c *Client) UpdateGoods(ctx context.Context, goods models.Goods) error {
	return exec(ctx, c, request{
		op: "goods.update", method: "PUT", path: "/goods/update", body: goods,
	})
}

// DeleteGoods удаляет объявление
func (c *Client) DeleteGoods(ctx context.Context, id int64) error {
	return exec(ctx, c, request{
		op: "goods.delete", method: "DELETE", path: fmt.Sprintf("/goods/%d", id),
	})
}
