package trade

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/internal/models"
	tradeflow "github.com/rajivgeraev/campus-market/internal/trade"
	"github.com/rajivgeraev/campus-market/internal/utils"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Страница списка заказов, куда уводим с недоступного заказа
const listPath = "/trades"

// Workflow - операции над заказами, нужные обработчикам
type Workflow interface {
	ListTrades(ctx context.Context, filter models.TradeStatus, page, pageSize int) (*models.Page[tradeflow.View], error)
	Detail(ctx context.Context, id int64) (*tradeflow.Detail, error)
	AcceptTrade(ctx context.Context, id int64) (*tradeflow.View, error)
}

// TradeService представляет сервис для работы с заказами
type TradeService struct {
	workflow     Workflow
	identity     middleware.IdentitySource
	banThreshold int
	log          *logger.Logger
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(workflow Workflow, identity middleware.IdentitySource, banThreshold int, log *logger.Logger) *TradeService {
	log = logger.OrNop(log)
	return &TradeService{
		workflow:     workflow,
		identity:     identity,
		banThreshold: banThreshold,
		log:          log.Named("trade"),
	}
}

// GetMyTrades возвращает страницу заказов пользователя
func (s *TradeService) GetMyTrades(c fiber.Ctx) error {
	filter := models.TradeStatus(c.Query("status"))
	page := utils.QueryInt(c, "page", tradeflow.DefaultPage)
	pageSize := utils.QueryInt(c, "pageSize", tradeflow.DefaultPageSize)

	result, err := s.workflow.ListTrades(c.Context(), filter, page, pageSize)
	if err != nil {
		if errors.Is(err, tradeflow.ErrInvalidStatus) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "无效的订单状态"})
		}
		return middleware.Fail(c, err, "获取订单列表失败")
	}
	return c.JSON(result)
}

// GetTrade возвращает заказ вместе с отзывом
func (s *TradeService) GetTrade(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	detail, err := s.workflow.Detail(c.Context(), id)
	if err != nil {
		// Недоступный заказ не показываем, фронтенд возвращается к списку
		if errors.Is(err, tradeflow.ErrUnavailable) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":    "订单不存在或无权查看",
				"redirect": listPath,
			})
		}
		return middleware.Fail(c, err, "获取订单详情失败")
	}
	return c.JSON(detail)
}

// AcceptTrade переводит заказ в ACCEPTED от имени продавца
func (s *TradeService) AcceptTrade(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	view, err := s.workflow.AcceptTrade(c.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, tradeflow.ErrInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "操作进行中，请勿重复提交"})
	case errors.Is(err, tradeflow.ErrNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "当前订单状态不允许该操作"})
	case errors.Is(err, tradeflow.ErrUnavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    "订单不存在或无权查看",
			"redirect": listPath,
		})
	default:
		s.log.Info("заказ не принят", zap.Int64("trade_id", id), zap.Error(err))
		return middleware.Fail(c, err, "操作失败，请稍后重试")
	}

	return c.JSON(fiber.Map{
		"message": "订单已接受",
		"trade":   view,
	})
}
