package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rajivgeraev/campus-market/internal/models"
)

// Login выполняет вход; в data возвращается профиль вместе с токеном
func (c *Client) Login(ctx context.Context, creds models.LoginRequest) (*models.UserProfile, error) {
	profile, err := call[models.UserProfile](ctx, c, request{
		op: "user.login", method: "POST", path: "/user/login", body: creds,
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	return exec(ctx, c, request{
		op: "user.register", method: "POST", path: "/user/register", body: req,
	})
}

// Profile возвращает профиль владельца текущего токена
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	profile, err := call[models.UserProfile](ctx, c, request{
		op: "user.profile", method: "GET", path: "/user/profile",
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile обновляет профиль; бэкенд может не вернуть обновленный профиль
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	profile, err := call[*models.UserProfile](ctx, c, request{
		op: "user.update_profile", method: "PUT", path: "/user/update-profile", body: update, allowEmpty: true,
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// VerifyIdentity отправляет данные студента на проверку
func (c *Client) VerifyIdentity(ctx context.Context, req models.IdentityVerification) error {
	return exec(ctx, c, request{
		op: "user.verify_identity", method: "POST", path: "/user/verify-identity", body: req,
	})
}

// ResetPassword сбрасывает пароль
func (c *Client) ResetPassword(ctx context.Context, req models.PasswordReset) error {
	return exec(ctx, c, request{
		op: "user.reset_password", method: "POST", path: "/user/reset-password", body: req,
	})
}

// UserProfile возвращает публичный профиль пользователя (страница продавца)
func (c *Client) UserProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	profile, err := call[models.UserProfile](ctx, c, request{
		op: "user.profile_by_id", method: "GET", path: fmt.Sprintf("/user/profile/%d", userID),
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// RecentGoods возвращает страницу последних товаров продавца
func (c *Client) RecentGoods(ctx context.Context, userID int64, pageNum, pageSize int) (*models.Page[models.Goods], error) {
	query := url.Values{}
	query.Set("pageNum", strconv.Itoa(pageNum))
	query.Set("pageSize", strconv.Itoa(pageSize))

	page, err := call[models.Page[models.Goods]](ctx, c, request{
		op: "user.recent_goods", method: "GET", path: fmt.Sprintf("/user/recent-goods/%d", userID), query: query,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}
