package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/rajivgeraev/campus-market/internal/models"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler, token string) *Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	hc := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return NewClient(
		Config{BaseURL: "http://backend.test/api/", Timeout: 2 * time.Second},
		WithHTTPClient(hc),
		WithTokenSource(TokenFunc(func(context.Context) (string, error) { return token, nil })),
	)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	payload, _ := json.Marshal(body)
	ctx.SetBody(payload)
}

func TestClient_DecodesEnvelopeAndSendsToken(t *testing.T) {
	var gotToken, gotPath string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		gotToken = string(ctx.Request.Header.Peek("token"))
		gotPath = string(ctx.Path())
		writeJSON(ctx, 200, map[string]any{
			"code":    200,
			"message": "ok",
			"data":    map[string]any{"userId": 7, "username": "alice", "creditScore": 85},
		})
	}, "tok-1")

	profile, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", gotToken)
	assert.Equal(t, "/api/user/profile", gotPath)
	assert.Equal(t, int64(7), profile.UserID)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 85, profile.CreditScore)
}

func TestClient_NoTokenHeaderWhenSignedOut(t *testing.T) {
	var hasToken bool
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		hasToken = len(ctx.Request.Header.Peek("token")) > 0
		writeJSON(ctx, 200, map[string]any{"code": 200, "data": []any{}})
	}, "")

	goods, err := c.ListGoods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, goods)
	assert.False(t, hasToken)
}

func TestClient_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing code", body: `{"message":"ok","data":{"userId":1}}`},
		{name: "not json", body: `<html>gateway</html>`},
		{name: "missing data", body: `{"code":200,"message":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(200)
				ctx.SetBodyString(tt.body)
			}, "tok")

			_, err := c.Profile(context.Background())
			require.Error(t, err)
			assert.True(t, Is(err, KindMalformed), "got %v", err)
		})
	}
}

func TestClient_UnauthorizedInvokesHook(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
	}{
		{name: "http 401", status: 401, body: map[string]any{"code": 401, "message": "token expired"}},
		{name: "envelope 401", status: 200, body: map[string]any{"code": 401, "message": "token expired"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
				writeJSON(ctx, tt.status, tt.body)
			}, "stale-token")

			var mu sync.Mutex
			var seen []string
			c.OnUnauthorized(func(_ context.Context, token string) {
				mu.Lock()
				seen = append(seen, token)
				mu.Unlock()
			})

			_, err := c.ListTrades(context.Background(), TradeQuery{Page: 1, PageSize: 10})
			require.Error(t, err)
			assert.True(t, Is(err, KindUnauthorized))
			assert.Equal(t, "token expired", UserMessage(err, "fallback"))

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{"stale-token"}, seen)
		})
	}
}

func TestClient_UnauthorizedWithoutTokenSkipsHook(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, 401, map[string]any{"code": 401})
	}, "")

	called := false
	c.OnUnauthorized(func(context.Context, string) { called = true })

	_, err := c.Profile(context.Background())
	assert.True(t, Is(err, KindUnauthorized))
	assert.False(t, called)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		kind   Kind
		msg    string
	}{
		{name: "not found", status: 404, body: map[string]any{"code": 404, "message": "订单不存在"}, kind: KindNotFound, msg: "订单不存在"},
		{name: "forbidden", status: 403, body: map[string]any{"code": 403, "message": "无权操作"}, kind: KindForbidden, msg: "无权操作"},
		{name: "bad request", status: 400, body: map[string]any{"code": 400, "message": "状态不合法"}, kind: KindValidation, msg: "状态不合法"},
		{name: "server error", status: 502, body: nil, kind: KindServer, msg: "fallback"},
		{name: "envelope failure", status: 200, body: map[string]any{"code": 500, "message": "库存不足"}, kind: KindValidation, msg: "库存不足"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
				writeJSON(ctx, tt.status, tt.body)
			}, "tok")

			_, err := c.GetTrade(context.Background(), 3)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.msg, UserMessage(err, "fallback"))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	hc := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return nil, errors.New("connection refused") },
	}
	c := NewClient(Config{BaseURL: "http://backend.test/api"}, WithHTTPClient(hc))

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, Is(err, KindTransport))
}

func TestClient_CanceledContext(t *testing.T) {
	requests := 0
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		requests++
		writeJSON(ctx, 200, map[string]any{"code": 200, "data": map[string]any{}})
	}, "tok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Profile(ctx)
	assert.True(t, Is(err, KindTransport))
	assert.Zero(t, requests)
}

func TestClient_UpdateTradeStatus(t *testing.T) {
	var method, path string
	var body models.TradeStatusUpdate
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		method = string(ctx.Method())
		path = string(ctx.Path())
		_ = json.Unmarshal(ctx.PostBody(), &body)
		writeJSON(ctx, 200, map[string]any{"code": 200, "data": nil})
	}, "tok")

	trade, err := c.UpdateTradeStatus(context.Background(), 42, models.TradeAccepted)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, "PUT", method)
	assert.Equal(t, "/api/trades/42/status", path)
	assert.Equal(t, models.TradeAccepted, body.Status)
}

func TestClient_SendMessageUsesQuery(t *testing.T) {
	var args *fasthttp.Args
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		args = &fasthttp.Args{}
		ctx.QueryArgs().CopyTo(args)
		writeJSON(ctx, 200, map[string]any{
			"code": 200,
			"data": map[string]any{"id": 9, "senderId": 1, "receiverId": 2, "content": "你好 还在吗", "sessionId": "1_2"},
		})
	}, "tok")

	productID := int64(5)
	sent, err := c.SendMessage(context.Background(), models.SendMessageRequest{
		FromUserID: 1, ToUserID: 2, Content: "你好 还在吗", ProductID: &productID,
	})
	require.NoError(t, err)
	assert.Equal(t, "1_2", sent.SessionID)
	assert.Equal(t, "1", string(args.Peek("fromUserId")))
	assert.Equal(t, "2", string(args.Peek("toUserId")))
	assert.Equal(t, "你好 还在吗", string(args.Peek("content")))
	assert.Equal(t, "5", string(args.Peek("productId")))
}

func TestClient_ReviewByOrderMissing(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, 200, map[string]any{"code": 200, "message": "ok", "data": nil})
	}, "tok")

	review, err := c.ReviewByOrder(context.Background(), 11)
	require.NoError(t, err)
	assert.Nil(t, review)
}
