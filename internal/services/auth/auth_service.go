package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/middleware"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/session"
	"github.com/rajivgeraev/campus-market/internal/user"
	"github.com/rajivgeraev/campus-market/internal/utils"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// SessionManager - операции с сессией, нужные обработчикам
type SessionManager interface {
	middleware.IdentitySource
	Login(ctx context.Context, profile *models.UserProfile) error
	Logout(ctx context.Context) error
	FetchProfile(ctx context.Context) error
}

// AccountAPI - вызовы бэкенда для учетной записи
type AccountAPI interface {
	user.SellerAPI
	Login(ctx context.Context, creds models.LoginRequest) (*models.UserProfile, error)
	Register(ctx context.Context, req models.RegisterRequest) error
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error)
	VerifyIdentity(ctx context.Context, req models.IdentityVerification) error
	ResetPassword(ctx context.Context, req models.PasswordReset) error
}

// AuthService – структура для обработки входа и учетной записи
type AuthService struct {
	api          AccountAPI
	session      SessionManager
	banThreshold int
	log          *logger.Logger
}

// NewAuthService – конструктор AuthService
func NewAuthService(api AccountAPI, sess SessionManager, banThreshold int, log *logger.Logger) *AuthService {
	log = logger.OrNop(log)
	return &AuthService{
		api:          api,
		session:      sess,
		banThreshold: banThreshold,
		log:          log.Named("auth"),
	}
}

// sessionView описывает текущего пользователя для фронтенда
func (s *AuthService) sessionView(profile *models.UserProfile) fiber.Map {
	public := profile.WithoutToken()
	credit := user.Credit(public.CreditScore)
	return fiber.Map{
		"user":        public,
		"credit":      credit,
		"creditLabel": credit.Label(),
		"banned":      user.Banned(&public, s.banThreshold),
	}
}

// Login выполняет вход через бэкенд и сохраняет сессию
func (s *AuthService) Login(c fiber.Ctx) error {
	var creds models.LoginRequest
	if err := c.Bind().Body(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请输入用户名和密码"})
	}

	profile, err := s.api.Login(c.Context(), creds)
	if err != nil {
		return middleware.Fail(c, backend.Describe(err, "登录失败"), "登录失败")
	}

	if err := s.session.Login(c.Context(), profile); err != nil {
		if errors.Is(err, session.ErrInvalidProfile) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "登录失败"})
		}
		s.log.Error("не удалось сохранить сессию", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "保存登录状态失败"})
	}

	s.log.Info("пользователь вошел", zap.Int64("user_id", profile.UserID))
	return c.JSON(s.sessionView(profile))
}

// Logout завершает сессию; повторный вызов безопасен
func (s *AuthService) Logout(c fiber.Ctx) error {
	if err := s.session.Logout(c.Context()); err != nil {
		s.log.Error("не удалось очистить сессию", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "退出登录失败"})
	}
	return c.JSON(fiber.Map{"message": "已退出登录"})
}

// Current возвращает текущего пользователя
func (s *AuthService) Current(c fiber.Ctx) error {
	profile, err := s.session.Identity()
	if err != nil {
		return middleware.Fail(c, err, "获取用户信息失败")
	}
	return c.JSON(s.sessionView(profile))
}

// Refresh заново загружает профиль; ошибка завершает сессию
func (s *AuthService) Refresh(c fiber.Ctx) error {
	if err := s.session.FetchProfile(c.Context()); err != nil {
		if errors.Is(err, session.ErrSuperseded) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "登录状态已变更"})
		}
		return middleware.Fail(c, backend.Describe(err, "获取用户信息失败"), "获取用户信息失败")
	}
	return s.Current(c)
}

// Register регистрирует нового пользователя
func (s *AuthService) Register(c fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请输入用户名和密码"})
	}

	if err := s.api.Register(c.Context(), req); err != nil {
		return middleware.Fail(c, backend.Describe(err, "注册失败"), "注册失败")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "注册成功"})
}

// UpdateProfile изменяет профиль и обновляет личность
func (s *AuthService) UpdateProfile(c fiber.Ctx) error {
	var update models.ProfileUpdate
	if err := c.Bind().Body(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}

	if _, err := s.api.UpdateProfile(c.Context(), update); err != nil {
		return middleware.Fail(c, backend.Describe(err, "更新用户信息失败"), "更新用户信息失败")
	}
	return s.Refresh(c)
}

// VerifyIdentity отправляет данные студента на проверку
func (s *AuthService) VerifyIdentity(c fiber.Ctx) error {
	var req models.IdentityVerification
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}
	if strings.TrimSpace(req.RealName) == "" || strings.TrimSpace(req.SchoolID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请填写真实姓名和学号"})
	}

	if err := s.api.VerifyIdentity(c.Context(), req); err != nil {
		return middleware.Fail(c, backend.Describe(err, "身份认证失败"), "身份认证失败")
	}
	return s.Refresh(c)
}

// ResetPassword сбрасывает пароль
func (s *AuthService) ResetPassword(c fiber.Ctx) error {
	var req models.PasswordReset
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请求格式错误"})
	}
	if req.Username == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "请输入用户名和新密码"})
	}

	if err := s.api.ResetPassword(c.Context(), req); err != nil {
		return middleware.Fail(c, backend.Describe(err, "重置密码失败"), "重置密码失败")
	}
	return c.JSON(fiber.Map{"message": "密码已重置"})
}

// Seller возвращает страницу продавца
func (s *AuthService) Seller(c fiber.Ctx) error {
	sellerID, err := utils.ParamID(c, "id")
	if err != nil {
		return middleware.BadRequest(c, err)
	}

	seller, err := user.LoadSeller(c.Context(), s.api, sellerID,
		utils.QueryInt(c, "pageNum", 1), utils.QueryInt(c, "pageSize", user.SellerGoodsPageSize))
	if err != nil {
		return middleware.Fail(c, err, "获取卖家信息失败")
	}
	return c.JSON(seller)
}
