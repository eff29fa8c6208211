package trade

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/pkg/logger"
	"github.com/rajivgeraev/campus-market/pkg/metrics"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

var (
	// ErrNotAllowed - действие недоступно пользователю в текущем статусе
	ErrNotAllowed = errors.New("действие недоступно")
	// ErrInFlight - по этому заказу уже выполняется запрос
	ErrInFlight = errors.New("запрос по заказу уже выполняется")
	// ErrUnavailable - заказ не найден или недоступен; показывать его нельзя
	ErrUnavailable = errors.New("заказ недоступен")
	// ErrInvalidStatus - неизвестный статус в фильтре
	ErrInvalidStatus = errors.New("неизвестный статус заказа")
)

// API - вызовы бэкенда, нужные для работы с заказами
type API interface {
	ListTrades(ctx context.Context, q backend.TradeQuery) (*models.Page[models.Trade], error)
	GetTrade(ctx context.Context, id int64) (*models.Trade, error)
	UpdateTradeStatus(ctx context.Context, id int64, status models.TradeStatus) (*models.Trade, error)
	ReviewByOrder(ctx context.Context, orderID int64) (*models.Review, error)
}

// IdentitySource отдает текущего пользователя
type IdentitySource interface {
	Identity() (*models.UserProfile, error)
}

// Role - роль пользователя в заказе
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
	RoleNone   Role = ""
)

// Action - действие, доступное пользователю над заказом
type Action string

const (
	ActionAccept Action = "accept"
	ActionReview Action = "review"
	ActionReport Action = "report"
)

// View - заказ в том виде, в каком его видит текущий пользователь
type View struct {
	models.Trade
	Role    Role     `json:"role"`
	Actions []Action `json:"actions"`
}

// Detail - заказ вместе с отзывом, если он уже есть
type Detail struct {
	View
	Review *models.Review `json:"review"`
}

// TransitionError - бэкенд отклонил смену статуса
type TransitionError struct {
	TradeID int64
	Status  models.TradeStatus
	Kind    backend.Kind
	Message string
	Err     error
}

func (e *TransitionError) Error() string {
	return e.Message
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Workflow показывает заказы пользователя и переводит их по статусам
type Workflow struct {
	api      API
	identity IdentitySource
	log      *logger.Logger

	mu       sync.Mutex
	views    map[int64]models.Trade
	inflight map[int64]bool
}

// NewWorkflow создает новый экземпляр Workflow
func NewWorkflow(api API, identity IdentitySource, log *logger.Logger) *Workflow {
	log = logger.OrNop(log)
	return &Workflow{
		api:      api,
		identity: identity,
		log:      log.Named("trade"),
		views:    make(map[int64]models.Trade),
		inflight: make(map[int64]bool),
	}
}

// RoleOf определяет роль пользователя в заказе
func RoleOf(trade models.Trade, userID int64) Role {
	switch userID {
	case trade.SellerID:
		return RoleSeller
	case trade.BuyerID:
		return RoleBuyer
	default:
		return RoleNone
	}
}

// Actions возвращает действия, доступные пользователю над заказом
func Actions(trade models.Trade, userID int64) []Action {
	switch RoleOf(trade, userID) {
	case RoleSeller:
		if trade.Status == models.TradePending {
			return []Action{ActionAccept}
		}
	case RoleBuyer:
		if trade.Status == models.TradeAccepted || trade.Status == models.TradeCompleted {
			return []Action{ActionReview, ActionReport}
		}
	}
	return []Action{}
}

// CanReview сообщает, может ли пользователь оставить отзыв по заказу
func CanReview(trade models.Trade, userID int64) bool {
	for _, action := range Actions(trade, userID) {
		if action == ActionReview {
			return true
		}
	}
	return false
}

func newView(trade models.Trade, userID int64) View {
	return View{
		Trade:   trade,
		Role:    RoleOf(trade, userID),
		Actions: Actions(trade, userID),
	}
}

// ListTrades возвращает страницу заказов пользователя с необязательным фильтром по статусу
func (w *Workflow) ListTrades(ctx context.Context, filter models.TradeStatus, page, pageSize int) (*models.Page[View], error) {
	me, err := w.identity.Identity()
	if err != nil {
		return nil, err
	}
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, filter)
	}
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	result, err := w.api.ListTrades(ctx, backend.TradeQuery{Status: filter, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(result.List))
	w.mu.Lock()
	for _, trade := range result.List {
		w.views[trade.ID] = trade
		views = append(views, newView(trade, me.UserID))
	}
	w.mu.Unlock()

	return &models.Page[View]{
		List:     views,
		Total:    result.Total,
		PageNum:  result.PageNum,
		PageSize: result.PageSize,
		Pages:    result.Pages,
	}, nil
}

// GetTrade загружает заказ; ненайденный или чужой заказ возвращает ErrUnavailable.
// Отклоненный токен возвращается как есть.
func (w *Workflow) GetTrade(ctx context.Context, id int64) (*View, error) {
	me, err := w.identity.Identity()
	if err != nil {
		return nil, err
	}

	trade, err := w.api.GetTrade(ctx, id)
	if err != nil {
		switch backend.KindOf(err) {
		case backend.KindNotFound, backend.KindForbidden:
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}

	w.mu.Lock()
	w.views[trade.ID] = *trade
	w.mu.Unlock()

	view := newView(*trade, me.UserID)
	return &view, nil
}

// Detail загружает заказ и отзыв по нему параллельно
func (w *Workflow) Detail(ctx context.Context, id int64) (*Detail, error) {
	var (
		view   *View
		review *models.Review
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view, err = w.GetTrade(gctx, id)
		return err
	})
	g.Go(func() error {
		r, err := w.api.ReviewByOrder(gctx, id)
		if err != nil {
			// Без отзыва детали заказа все равно показываем
			if !backend.Is(err, backend.KindNotFound) {
				w.log.Warn("не удалось загрузить отзыв по заказу", zap.Int64("trade_id", id), zap.Error(err))
			}
			return nil
		}
		review = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Detail{View: *view, Review: review}, nil
}

// Cached возвращает последнее показанное состояние заказа
func (w *Workflow) Cached(id int64) (models.Trade, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	trade, ok := w.views[id]
	return trade, ok
}

// AcceptTrade переводит заказ в ACCEPTED. Доступно только продавцу в статусе PENDING;
// пока запрос по заказу не завершен, повторный вызов возвращает ErrInFlight.
func (w *Workflow) AcceptTrade(ctx context.Context, id int64) (*View, error) {
	me, err := w.identity.Identity()
	if err != nil {
		return nil, err
	}

	// Заказ, которого еще не видели, сначала загружаем
	if _, ok := w.Cached(id); !ok {
		if _, err := w.GetTrade(ctx, id); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	if w.inflight[id] {
		w.mu.Unlock()
		return nil, ErrInFlight
	}
	current := w.views[id]
	if RoleOf(current, me.UserID) != RoleSeller || current.Status != models.TradePending {
		w.mu.Unlock()
		metrics.RecordTradeTransition(string(models.TradeAccepted), "not_allowed")
		return nil, ErrNotAllowed
	}
	w.inflight[id] = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.inflight, id)
		w.mu.Unlock()
	}()

	updated, err := w.api.UpdateTradeStatus(ctx, id, models.TradeAccepted)
	if err != nil {
		te := transitionError(id, models.TradeAccepted, err)
		metrics.RecordTradeTransition(string(models.TradeAccepted), te.Kind.String())
		w.log.Info("бэкенд отклонил смену статуса", zap.Int64("trade_id", id), zap.Error(err))
		return nil, te
	}

	w.mu.Lock()
	next := w.views[id]
	if updated != nil && updated.ID == id {
		next = *updated
	}
	next.Status = models.TradeAccepted
	w.views[id] = next
	w.mu.Unlock()

	metrics.RecordTradeTransition(string(models.TradeAccepted), "ok")
	view := newView(next, me.UserID)
	return &view, nil
}

func transitionError(id int64, status models.TradeStatus, err error) *TransitionError {
	kind := backend.KindOf(err)
	var message string
	switch kind {
	case backend.KindForbidden:
		message = "无权操作该订单"
	case backend.KindNotFound:
		message = "订单不存在或已被删除"
	case backend.KindValidation:
		message = backend.UserMessage(err, "订单状态已变更，无法执行该操作")
	case backend.KindTransport:
		message = "网络连接失败，请检查网络"
	default:
		message = backend.UserMessage(err, "操作失败，请稍后重试")
	}
	return &TransitionError{TradeID: id, Status: status, Kind: kind, Message: message, Err: err}
}
