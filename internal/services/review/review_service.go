package review

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/review"
	"github.com/rajivgeraev/campus-market/internal/trade"
	"github.com/rajivgeraev/campus-market/internal/utils"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Reviews - операции с отзывами, нужные обработчикам
type Reviews interface {
	Submit(ctx context.Context, tradeID int64, draft review.Draft) (*models.Review, error)
	ByProduct(ctx context.Context, productID int64) (*review.List, error)
	ByUser(ctx context.Context, userID int64) (*review.List, error)
	ByOrder(ctx context.Context, orderID int64) (*models.Review, error)
	Mine(ctx context.Context) (*review.List, error)
}

// ReviewService представляет сервис для работы с отзывами
type ReviewService struct {
	reviews      Reviews
	identity     middleware.IdentitySource
	banThreshold int
	log          *logger.Logger
}

// NewReviewService создает новый экземпляр ReviewService
func NewReviewService(reviews Reviews, identity middleware.IdentitySource, banThreshold int, log *logger.Logger) *ReviewService {
	log = logger.OrNop(log)
	return &ReviewService{
		reviews:      reviews,
		identity:     identity,
		banThreshold: banThreshold,
		log:          log.Named("review"),
	}
}

// SubmitReview публикует отзыв по заказу
func (s *ReviewService) SubmitReview(c fiber.Ctx) error {
	tradeID, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	var draft review.Draft
	if err := c.Bind().Body(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}

	saved, err := s.reviews.Submit(c.Context(), tradeID, draft)
	switch {
	case err == nil:
	case errors.Is(err, review.ErrRating), errors.Is(err, review.ErrEmptyContent):
		return middleware.BadRequest(c, err)
	case errors.Is(err, review.ErrNotReviewable):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, review.ErrAlreadyReviewed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, trade.ErrUnavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "订单不存在或无权查看"})
	default:
		return middleware.Fail(c, err, "发布评价失败")
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

// GetProductReviews возвращает отзывы о товаре
func (s *ReviewService) GetProductReviews(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}
	list, err := s.reviews.ByProduct(c.Context(), id)
	if err != nil {
		return middleware.Fail(c, err, "获取商品评价列表失败")
	}
	return c.JSON(list)
}

// GetUserReviews возвращает отзывы о пользователе
func (s *ReviewService) GetUserReviews(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}
	list, err := s.reviews.ByUser(c.Context(), id)
	if err != nil {
		return middleware.Fail(c, err, "获取用户评价列表失败")
	}
	return c.JSON(list)
}

// GetOrderReview возвращает отзыв по заказу; null, если его нет
func (s *ReviewService) GetOrderReview(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}
	r, err := s.reviews.ByOrder(c.Context(), id)
	if err != nil {
		return middleware.Fail(c, err, "获取订单评价失败")
	}
	return c.JSON(fiber.Map{"review": r})
}

// GetMyReviews возвращает отзывы текущего пользователя
func (s *ReviewService) GetMyReviews(c fiber.Ctx) error {
	list, err := s.reviews.Mine(c.Context())
	if err != nil {
		return middleware.Fail(c, err, "获取我的评价列表失败")
	}
	return c.JSON(list)
}
