package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/app"
	"github.com/rajivgeraev/campus-market/internal/config"
	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/internal/services/auth"
	"github.com/rajivgeraev/campus-market/internal/services/chat"
	"github.com/rajivgeraev/campus-market/internal/services/cloudinary"
	"github.com/rajivgeraev/campus-market/internal/services/listing"
	"github.com/rajivgeraev/campus-market/internal/services/review"
	"github.com/rajivgeraev/campus-market/internal/services/trade"
	"github.com/rajivgeraev/campus-market/pkg/logger"
	"github.com/rajivgeraev/campus-market/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем логгер
	appLog, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Service:     "campus-gateway",
	})
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации логгера: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Трассировка включается переменной TRACING_ENABLED
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "campus-gateway", cfg.TracingEndpoint)
		if err != nil {
			appLog.Warn("трассировка отключена", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Собираем хранилище сессии, клиент бэкенда и сервисы домена
	market, err := app.New(ctx, cfg, appLog, app.Options{})
	if err != nil {
		appLog.Fatal("❌ Ошибка при инициализации клиента", zap.Error(err))
	}
	defer market.Close()

	// Синхронизатор сессии работает все время жизни процесса
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		if err := market.Session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLog.Error("синхронизатор сессии остановлен", zap.Error(err))
		}
	}()

	// Создаём экземпляр Fiber
	server := fiber.New(fiber.Config{
		AppName:      "Campus Market Gateway",
		ErrorHandler: errorHandler,
		BodyLimit:    cloudinary.MaxImageSize + 1<<20,
	})

	// Добавляем middleware
	server.Use(recover.New())
	server.Use(middleware.RequestLogger(appLog))
	server.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.CorrelationHeader},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	server.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"authenticated": market.Session.Authenticated(),
		})
	})
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Создаём сервисы
	threshold := cfg.CreditBanThreshold
	authService := auth.NewAuthService(market.Backend, market.Session, threshold, appLog)
	tradeService := trade.NewTradeService(market.Trades, market.Session, threshold, appLog)
	reviewService := review.NewReviewService(market.Reviews, market.Session, threshold, appLog)
	chatService := chat.NewChatService(market.Inbox, market.Session, threshold, appLog)
	listingService := listing.NewListingService(market.Catalog, market.Session, threshold, appLog)
	cloudinaryService := cloudinary.NewCloudinaryService(market.Images, market.Session, appLog)

	// Регистрируем маршруты; отзыв о заказе регистрируется до группы заказов
	authService.SetupRoutes(server)
	reviewService.SetupRoutes(server)
	tradeService.SetupRoutes(server)
	chatService.SetupRoutes(server)
	listingService.SetupRoutes(server)
	cloudinaryService.SetupRoutes(server)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			appLog.Warn("остановка сервера", zap.Error(err))
		}
	}()

	// Запускаем сервер
	appLog.Info("✅ Campus Market Gateway запущен", zap.String("port", cfg.Port))
	if err := server.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		appLog.Error("сервер остановлен с ошибкой", zap.Error(err))
	}

	stop()
	<-syncDone
	appLog.Info("шлюз остановлен")
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
