package listing

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/goods"
	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/utils"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Catalog - операции с объявлениями, нужные обработчикам
type Catalog interface {
	List(ctx context.Context, q goods.Query) ([]models.Goods, error)
	Get(ctx context.Context, id int64) (*models.Goods, error)
	Create(ctx context.Context, ownerID int64, g models.Goods) error
	Update(ctx context.Context, g models.Goods) error
	Delete(ctx context.Context, id int64) error
}

// ListingService представляет сервис для работы с объявлениями
type ListingService struct {
	catalog      Catalog
	identity     middleware.IdentitySource
	banThreshold int
	log          *logger.Logger
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(catalog Catalog, identity middleware.IdentitySource, banThreshold int, log *logger.Logger) *ListingService {
	log = logger.OrNop(log)
	return &ListingService{
		catalog:      catalog,
		identity:     identity,
		banThreshold: banThreshold,
		log:          log.Named("listing"),
	}
}

// GetPublicListings возвращает витрину с фильтром и сортировкой
func (s *ListingService) GetPublicListings(c fiber.Ctx) error {
	q := goods.Query{
		Category: c.Query("category", goods.AllCategories),
		Keyword:  c.Query("keyword"),
		SortBy:   goods.SortField(c.Query("sortBy", string(goods.SortByCreateTime))),
		Order:    goods.SortOrder(c.Query("order", string(goods.Desc))),
	}

	list, err := s.catalog.List(c.Context(), q)
	if err != nil {
		return middleware.Fail(c, backend.Describe(err, "获取商品列表失败"), "获取商品列表失败")
	}
	return c.JSON(fiber.Map{
		"list":       list,
		"total":      len(list),
		"categories": goods.Categories,
	})
}

// GetListing возвращает объявление по ID
func (s *ListingService) GetListing(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	item, err := s.catalog.Get(c.Context(), id)
	if err != nil {
		return middleware.Fail(c, backend.Describe(err, "获取商品详情失败"), "获取商品详情失败")
	}
	return c.JSON(item)
}

// CreateListing публикует новое объявление
func (s *ListingService) CreateListing(c fiber.Ctx) error {
	var item models.Goods
	if err := c.Bind().Body(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}

	if err := s.catalog.Create(c.Context(), middleware.Profile(c).UserID, item); err != nil {
		return s.fail(c, err, "创建失败")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "商品创建成功"})
}

// UpdateListing сохраняет изменения объявления
func (s *ListingService) UpdateListing(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	var item models.Goods
	if err := c.Bind().Body(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}
	item.ID = id

	if err := s.catalog.Update(c.Context(), item); err != nil {
		return s.fail(c, err, "更新失败")
	}
	return c.JSON(fiber.Map{"message": "商品更新成功"})
}

// DeleteListing удаляет объявление
func (s *ListingService) DeleteListing(c fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	if err := s.catalog.Delete(c.Context(), id); err != nil {
		return s.fail(c, err, "删除失败")
	}
	return c.JSON(fiber.Map{"message": "商品删除成功"})
}

func (s *ListingService) fail(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, goods.ErrSubmitting):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, goods.ErrNoName), errors.Is(err, goods.ErrBadPrice),
		errors.Is(err, goods.ErrNoCategory), errors.Is(err, goods.ErrNoID):
		return middleware.BadRequest(c, err)
	}
	return middleware.Fail(c, backend.Describe(err, fallback), fallback)
}
