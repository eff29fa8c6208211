package cloudinary

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/goods"
	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Предельный размер фотографии товара
const MaxImageSize = 5 << 20

// Images - загрузка фотографий, нужная обработчикам
type Images interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*goods.Uploaded, error)
	SignedParams(now time.Time, publicID string) (*goods.UploadParams, error)
}

// CloudinaryService предоставляет методы для работы с Cloudinary
type CloudinaryService struct {
	images   Images
	identity middleware.IdentitySource
	log      *logger.Logger
}

// NewCloudinaryService создает новый экземпляр CloudinaryService
func NewCloudinaryService(images Images, identity middleware.IdentitySource, log *logger.Logger) *CloudinaryService {
	log = logger.OrNop(log)
	return &CloudinaryService{
		images:   images,
		identity: identity,
		log:      log.Named("cloudinary"),
	}
}

// GenerateUploadParams создаёт параметры для загрузки изображений из браузера
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	params, err := s.images.SignedParams(time.Now(), c.Query("public_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(params)
}

// UploadImage принимает файл формы и загружает его в Cloudinary
func (s *CloudinaryService) UploadImage(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请选择要上传的图片"})
	}

	// Проверяем тип и размер файла
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "只能上传图片文件"})
	}
	if header.Size > MaxImageSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "图片大小不能超过5MB"})
	}

	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "读取图片失败"})
	}
	defer file.Close()

	uploaded, err := s.images.Upload(c.Context(), file, header.Filename)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(uploaded)
}

func (s *CloudinaryService) fail(c fiber.Ctx, err error) error {
	if errors.Is(err, goods.ErrImagesDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "图片上传服务未配置"})
	}
	s.log.Warn("ошибка загрузки изображения", zap.Error(err))
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "上传失败"})
}
