package review

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/trade"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

var (
	ErrRating          = errors.New("评分必须在1-5之间")
	ErrEmptyContent    = errors.New("请输入评价内容")
	ErrNotReviewable   = errors.New("当前订单不可评价")
	ErrAlreadyReviewed = errors.New("该订单已评价")
)

// API - вызовы бэкенда для отзывов
type API interface {
	SaveReview(ctx context.Context, review models.Review) error
	ReviewsByProduct(ctx context.Context, productID int64) ([]models.Review, error)
	ReviewsByUser(ctx context.Context, userID int64) ([]models.Review, error)
	ReviewByOrder(ctx context.Context, orderID int64) (*models.Review, error)
	MyReviews(ctx context.Context) ([]models.Review, error)
}

// TradeLoader загружает заказ в представлении текущего пользователя
type TradeLoader interface {
	GetTrade(ctx context.Context, id int64) (*trade.View, error)
}

// IdentitySource отдает текущего пользователя
type IdentitySource interface {
	Identity() (*models.UserProfile, error)
}

// Draft - отзыв, который пишет покупатель
type Draft struct {
	Rating    int    `json:"rating"`
	Content   string `json:"content"`
	Anonymity bool   `json:"anonymity"`
}

// Summary - сводка отзывов: средняя оценка и распределение по звездам
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Stars   [5]int  `json:"stars"`
}

// List - отзывы вместе со сводкой
type List struct {
	Reviews []models.Review `json:"reviews"`
	Summary Summary         `json:"summary"`
}

// Service публикует и показывает отзывы
type Service struct {
	api      API
	trades   TradeLoader
	identity IdentitySource
	log      *logger.Logger
}

// NewService создает новый экземпляр Service
func NewService(api API, trades TradeLoader, identity IdentitySource, log *logger.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{api: api, trades: trades, identity: identity, log: log.Named("review")}
}

// Submit публикует отзыв по заказу. Отзыв оставляет покупатель
// принятого или завершенного заказа, один раз.
func (s *Service) Submit(ctx context.Context, tradeID int64, draft Draft) (*models.Review, error) {
	me, err := s.identity.Identity()
	if err != nil {
		return nil, err
	}
	if draft.Rating < 1 || draft.Rating > 5 {
		return nil, ErrRating
	}
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	view, err := s.trades.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.CanReview(view.Trade, me.UserID) {
		return nil, ErrNotReviewable
	}

	existing, err := s.api.ReviewByOrder(ctx, tradeID)
	if err != nil && !backend.Is(err, backend.KindNotFound) {
		return nil, backend.Describe(err, "获取订单评价失败")
	}
	if existing != nil {
		return nil, ErrAlreadyReviewed
	}

	review := models.Review{
		OrderID:    tradeID,
		ReviewerID: me.UserID,
		RevieweeID: view.SellerID,
		ProductID:  view.Product.ID,
		Rating:     draft.Rating,
		Content:    content,
		Anonymity:  draft.Anonymity,
	}
	if err := s.api.SaveReview(ctx, review); err != nil {
		return nil, backend.Describe(err, "发布评价失败")
	}

	s.log.Info("отзыв опубликован", zap.Int64("trade_id", tradeID), zap.Int("rating", draft.Rating))
	return &review, nil
}

// ByProduct возвращает отзывы о товаре
func (s *Service) ByProduct(ctx context.Context, productID int64) (*List, error) {
	reviews, err := s.api.ReviewsByProduct(ctx, productID)
	if err != nil {
		return nil, backend.Describe(err, "获取商品评价列表失败")
	}
	return newList(reviews), nil
}

// ByUser возвращает отзывы о пользователе
func (s *Service) ByUser(ctx context.Context, userID int64) (*List, error) {
	reviews, err := s.api.ReviewsByUser(ctx, userID)
	if err != nil {
		return nil, backend.Describe(err, "获取用户评价列表失败")
	}
	return newList(reviews), nil
}

// ByOrder возвращает отзыв по заказу или nil
func (s *Service) ByOrder(ctx context.Context, orderID int64) (*models.Review, error) {
	review, err := s.api.ReviewByOrder(ctx, orderID)
	if backend.Is(err, backend.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, backend.Describe(err, "获取订单评价失败")
	}
	return review, nil
}

// Mine возвращает отзывы, оставленные текущим пользователем
func (s *Service) Mine(ctx context.Context) (*List, error) {
	if _, err := s.identity.Identity(); err != nil {
		return nil, err
	}
	reviews, err := s.api.MyReviews(ctx)
	if err != nil {
		return nil, backend.Describe(err, "获取我的评价列表失败")
	}
	return newList(reviews), nil
}

func newList(reviews []models.Review) *List {
	if reviews == nil {
		reviews = []models.Review{}
	}
	return &List{Reviews: reviews, Summary: Summarize(reviews)}
}

// Summarize считает среднюю оценку с одним знаком и число отзывов на каждую звезду
func Summarize(reviews []models.Review) Summary {
	var summary Summary
	total := 0
	for _, r := range reviews {
		if r.Rating < 1 || r.Rating > 5 {
			continue
		}
		summary.Count++
		summary.Stars[r.Rating-1]++
		total += r.Rating
	}
	if summary.Count > 0 {
		summary.Average = math.Round(float64(total)/float64(summary.Count)*10) / 10
	}
	return summary
}
