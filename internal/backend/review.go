package backend

import (
	"context"
	"fmt"

	"github.com/rajivgeraev/campus-market/internal/models"
)

// SaveReview публикует отзыв
func (c *Client) SaveReview(ctx context.Context, review models.Review) error {
	return exec(ctx, c, request{
		op: "review.save", method: "POST", path: "/review", body: review,
	})
}

// ReviewsByProduct возвращает отзывы о товаре
func (c *Client) ReviewsByProduct(ctx context.Context, productID int64) ([]models.Review, error) {
	return call[[]models.Review](ctx, c, request{
		op: "review.by_product", method: "GET", path: fmt.Sprintf("/review/product/%d", productID), allowEmpty: true,
	})
}

// ReviewsByUser возвращает отзывы, полученные пользователем
func (c *Client) ReviewsByUser(ctx context.Context, userID int64) ([]models.Review, error) {
	return call[[]models.Review](ctx, c, request{
		op: "review.by_user", method: "GET", path: fmt.Sprintf("/review/user/%d", userID), allowEmpty: true,
	})
}

// ReviewByOrder возвращает отзыв по заказу или nil, если его еще нет
func (c *Client) ReviewByOrder(ctx context.Context, orderID int64) (*models.Review, error) {
	return call[*models.Review](ctx, c, request{
		op: "review.by_order", method: "GET", path: fmt.Sprintf("/review/order/%d", orderID), allowEmpty: true,
	})
}

// MyReviews возвращает отзывы, оставленные текущим пользователем
func (c *Client) MyReviews(ctx context.Context) ([]models.Review, error) {
	return call[[]models.Review](ctx, c, request{
		op: "review.my", method: "GET", path: "/review/my", allowEmpty: true,
	})
}
