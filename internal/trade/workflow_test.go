package trade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/session"
)

const (
	sellerID int64 = 10
	buyerID  int64 = 20
)

type fakeAPI struct {
	mu          sync.Mutex
	trades      map[int64]models.Trade
	review      *models.Review
	reviewErr   error
	getErr      error
	updateErr   error
	updateGate  chan struct{}
	updateCalls int
	lastQuery   backend.TradeQuery
}

func newFakeAPI(trades ...models.Trade) *fakeAPI {
	api := &fakeAPI{trades: make(map[int64]models.Trade)}
	for _, t := range trades {
		api.trades[t.ID] = t
	}
	return api
}

func (f *fakeAPI) ListTrades(_ context.Context, q backend.TradeQuery) (*models.Page[models.Trade], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q

	var list []models.Trade
	for _, t := range f.trades {
		if q.Status == "" || t.Status == q.Status {
			list = append(list, t)
		}
	}
	return &models.Page[models.Trade]{List: list, Total: int64(len(list)), PageNum: q.Page, PageSize: q.PageSize, Pages: 1}, nil
}

func (f *fakeAPI) GetTrade(_ context.Context, id int64) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.trades[id]
	if !ok {
		return nil, &backend.Error{Op: "trades.get", Kind: backend.KindNotFound, Status: 404}
	}
	return &t, nil
}

func (f *fakeAPI) UpdateTradeStatus(_ context.Context, id int64, status models.TradeStatus) (*models.Trade, error) {
	f.mu.Lock()
	f.updateCalls++
	gate, err := f.updateGate, f.updateErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.trades[id]
	t.Status = status
	f.trades[id] = t
	return &t, nil
}

func (f *fakeAPI) ReviewByOrder(context.Context, int64) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.review, f.reviewErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCalls
}

type fixedIdentity struct {
	profile *models.UserProfile
}

func (f fixedIdentity) Identity() (*models.UserProfile, error) {
	if f.profile == nil {
		return nil, session.ErrNotAuthenticated
	}
	return f.profile, nil
}

func as(userID int64) fixedIdentity {
	return fixedIdentity{profile: &models.UserProfile{UserID: userID, CreditScore: 90}}
}

func pendingTrade(id int64) models.Trade {
	return models.Trade{
		ID:       id,
		Product:  models.ProductSnapshot{ID: 3, Title: "二手自行车", Price: 150},
		BuyerID:  buyerID,
		SellerID: sellerID,
		Status:   models.TradePending,
	}
}

func TestActions(t *testing.T) {
	tests := []struct {
		name   string
		status models.TradeStatus
		user   int64
		want   []Action
	}{
		{"seller pending", models.TradePending, sellerID, []Action{ActionAccept}},
		{"seller accepted", models.TradeAccepted, sellerID, []Action{}},
		{"seller completed", models.TradeCompleted, sellerID, []Action{}},
		{"buyer pending", models.TradePending, buyerID, []Action{}},
		{"buyer accepted", models.TradeAccepted, buyerID, []Action{ActionReview, ActionReport}},
		{"buyer shipped", models.TradeShipped, buyerID, []Action{}},
		{"buyer completed", models.TradeCompleted, buyerID, []Action{ActionReview, ActionReport}},
		{"buyer cancelled", models.TradeCancelled, buyerID, []Action{}},
		{"stranger", models.TradePending, 99, []Action{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := pendingTrade(1)
			trade.Status = tt.status
			assert.Equal(t, tt.want, Actions(trade, tt.user))
		})
	}

	accepted := pendingTrade(1)
	accepted.Status = models.TradeAccepted
	assert.True(t, CanReview(accepted, buyerID))
	assert.False(t, CanReview(accepted, sellerID))
}

func TestWorkflow_ListTrades(t *testing.T) {
	ctx := context.Background()
	accepted := pendingTrade(2)
	accepted.Status = models.TradeAccepted
	api := newFakeAPI(pendingTrade(1), accepted)
	w := NewWorkflow(api, as(sellerID), nil)

	page, err := w.ListTrades(ctx, models.TradePending, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.List, 1)
	assert.Equal(t, []Action{ActionAccept}, page.List[0].Actions)
	assert.Equal(t, RoleSeller, page.List[0].Role)
	assert.Equal(t, backend.TradeQuery{Status: models.TradePending, Page: DefaultPage, PageSize: DefaultPageSize}, api.lastQuery)

	_, err = w.ListTrades(ctx, "LOST", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWorkflow_RequiresIdentity(t *testing.T) {
	w := NewWorkflow(newFakeAPI(pendingTrade(1)), fixedIdentity{}, nil)

	_, err := w.ListTrades(context.Background(), "", 1, 10)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = w.AcceptTrade(context.Background(), 1)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestWorkflow_GetTradeUnavailable(t *testing.T) {
	ctx := context.Background()

	api := newFakeAPI()
	w := NewWorkflow(api, as(buyerID), nil)
	_, err := w.GetTrade(ctx, 404)
	assert.ErrorIs(t, err, ErrUnavailable)

	api.getErr = &backend.Error{Op: "trades.get", Kind: backend.KindForbidden, Status: 403}
	_, err = w.GetTrade(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)

	api.getErr = &backend.Error{Op: "trades.get", Kind: backend.KindTransport}
	_, err = w.GetTrade(ctx, 1)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.True(t, backend.Is(err, backend.KindTransport))

	api.getErr = &backend.Error{Op: "trades.get", Kind: backend.KindUnauthorized, Status: 401}
	_, err = w.GetTrade(ctx, 1)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.True(t, backend.Is(err, backend.KindUnauthorized))
}

func TestWorkflow_Detail(t *testing.T) {
	ctx := context.Background()
	accepted := pendingTrade(1)
	accepted.Status = models.TradeCompleted
	api := newFakeAPI(accepted)
	w := NewWorkflow(api, as(buyerID), nil)

	detail, err := w.Detail(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, detail.Review)
	assert.Equal(t, []Action{ActionReview, ActionReport}, detail.Actions)

	api.review = &models.Review{ID: 5, OrderID: 1, Rating: 5, Content: "很好"}
	detail, err = w.Detail(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, detail.Review)
	assert.Equal(t, 5, detail.Review.Rating)

	api.review = nil
	api.reviewErr = &backend.Error{Kind: backend.KindServer, Status: 500}
	detail, err = w.Detail(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, detail.Review)

	_, err = w.Detail(ctx, 77)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWorkflow_SellerAcceptsPending(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(pendingTrade(1))
	w := NewWorkflow(api, as(sellerID), nil)

	view, err := w.GetTrade(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionAccept}, view.Actions)

	view, err = w.AcceptTrade(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TradeAccepted, view.Status)
	assert.Empty(t, view.Actions)

	cached, ok := w.Cached(1)
	require.True(t, ok)
	assert.Equal(t, models.TradeAccepted, cached.Status)

	// Повторный вызов после успеха уже не разрешен
	_, err = w.AcceptTrade(ctx, 1)
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 1, api.calls())
}

func TestWorkflow_NonSellerCannotAccept(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(pendingTrade(1))
	w := NewWorkflow(api, as(buyerID), nil)

	_, err := w.AcceptTrade(ctx, 1)
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Zero(t, api.calls())

	cached, ok := w.Cached(1)
	require.True(t, ok)
	assert.Equal(t, models.TradePending, cached.Status)
}

func TestWorkflow_AcceptOnlyWhilePending(t *testing.T) {
	shipped := pendingTrade(1)
	shipped.Status = models.TradeShipped
	api := newFakeAPI(shipped)
	w := NewWorkflow(api, as(sellerID), nil)

	_, err := w.AcceptTrade(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Zero(t, api.calls())
}

func TestWorkflow_SecondAcceptWhileInFlight(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(pendingTrade(1))
	api.updateGate = make(chan struct{})
	w := NewWorkflow(api, as(sellerID), nil)
	_, err := w.GetTrade(ctx, 1)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := w.AcceptTrade(ctx, 1)
		first <- err
	}()

	require.Eventually(t, func() bool { return api.calls() == 1 }, time.Second, 5*time.Millisecond)

	_, err = w.AcceptTrade(ctx, 1)
	assert.ErrorIs(t, err, ErrInFlight)

	close(api.updateGate)
	require.NoError(t, <-first)
	assert.Equal(t, 1, api.calls())

	cached, _ := w.Cached(1)
	assert.Equal(t, models.TradeAccepted, cached.Status)
}

func TestWorkflow_AcceptFailureKeepsState(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    backend.Kind
		message string
	}{
		{"forbidden", &backend.Error{Kind: backend.KindForbidden, Status: 403}, backend.KindForbidden, "无权操作该订单"},
		{"not found", &backend.Error{Kind: backend.KindNotFound, Status: 404}, backend.KindNotFound, "订单不存在或已被删除"},
		{"validation", &backend.Error{Kind: backend.KindValidation, Status: 400, Message: "订单已被取消"}, backend.KindValidation, "订单已被取消"},
		{"validation without message", &backend.Error{Kind: backend.KindValidation, Status: 400}, backend.KindValidation, "订单状态已变更，无法执行该操作"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := newFakeAPI(pendingTrade(1))
			api.updateErr = tt.err
			w := NewWorkflow(api, as(sellerID), nil)

			_, err := w.AcceptTrade(ctx, 1)

			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.kind, te.Kind)
			assert.Equal(t, tt.message, te.Error())

			cached, _ := w.Cached(1)
			assert.Equal(t, models.TradePending, cached.Status)

			// Ошибка снимает блокировку: можно повторить
			api.mu.Lock()
			api.updateErr = nil
			api.mu.Unlock()
			view, err := w.AcceptTrade(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, models.TradeAccepted, view.Status)
		})
	}
}
