package user

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/models"
)

// Размер страницы последних объявлений продавца
const SellerGoodsPageSize = 6

// SellerAPI - вызовы бэкенда для страницы продавца
type SellerAPI interface {
	UserProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	RecentGoods(ctx context.Context, userID int64, pageNum, pageSize int) (*models.Page[models.Goods], error)
}

// LoadSeller загружает профиль продавца и страницу его объявлений параллельно.
// Без профиля страница не имеет смысла, ошибка объявлений не фатальна.
func LoadSeller(ctx context.Context, api SellerAPI, sellerID int64, pageNum, pageSize int) (*SellerProfile, error) {
	if pageNum <= 0 {
		pageNum = 1
	}
	if pageSize <= 0 {
		pageSize = SellerGoodsPageSize
	}

	var (
		profile *models.UserProfile
		goods   *models.Page[models.Goods]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := api.UserProfile(gctx, sellerID)
		if err != nil {
			return backend.Describe(err, "获取卖家信息失败")
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		page, err := api.RecentGoods(gctx, sellerID, pageNum, pageSize)
		if err == nil {
			goods = page
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if goods == nil {
		goods = &models.Page[models.Goods]{List: []models.Goods{}, PageNum: pageNum, PageSize: pageSize}
	}

	// Токен чужого профиля не отдаем
	public := profile.WithoutToken()
	credit := Credit(public.CreditScore)
	return &SellerProfile{
		Profile:     &public,
		Credit:      credit,
		CreditLabel: credit.Label(),
		RecentGoods: goods,
	}, nil
}
