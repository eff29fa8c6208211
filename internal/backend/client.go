package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/pkg/logger"
	"github.com/rajivgeraev/campus-market/pkg/metrics"
	"github.com/rajivgeraev/campus-market/pkg/tracing"
)

// Код успешного ответа в конверте
const codeOK = 200

// Заголовок, в котором бэкенд ждет учетные данные
const tokenHeader = "token"

// TokenSource отдает текущие учетные данные перед каждым запросом
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc адаптирует функцию к TokenSource
type TokenFunc func(ctx context.Context) (string, error)

// Token реализует TokenSource
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// UnauthorizedHandler вызывается при ответе 401 с токеном, с которым был сделан запрос
type UnauthorizedHandler func(ctx context.Context, token string)

// Config содержит настройки клиента бэкенда
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client обращается к REST бэкенду площадки
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	tokens  TokenSource
	log     *logger.Logger
	tracer  trace.Tracer

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет fasthttp клиент (в тестах - in-memory соединение)
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource задает источник учетных данных
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger задает логгер
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient создает новый экземпляр Client
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "campus-market-gateway",
			MaxConnsPerHost:     64,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		tokens: TokenFunc(func(context.Context) (string, error) { return "", nil }),
		log:    logger.NewNop(),
		tracer: tracing.Tracer("campus-market/backend"),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized регистрирует центральный обработчик ответов 401
func (c *Client) OnUnauthorized(fn UnauthorizedHandler) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// request описывает один вызов бэкенда
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	// Нулевой data в ответе допустим (например, отзыва по заказу еще нет)
	allowEmpty bool
}

// envelope - конверт ответа бэкенда; code обязателен
type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call выполняет запрос и декодирует data в T
func call[T any](ctx context.Context, c *Client, r request) (T, error) {
	var out T
	raw, err := c.do(ctx, r)
	if err != nil {
		return out, err
	}

	if isEmptyData(raw) {
		if r.allowEmpty {
			return out, nil
		}
		return out, &Error{Op: r.op, Kind: KindMalformed, Status: 200, Code: codeOK, Err: errors.New("ответ без data")}
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &Error{Op: r.op, Kind: KindMalformed, Status: 200, Code: codeOK, Err: fmt.Errorf("не удалось разобрать data: %w", err)}
	}
	return out, nil
}

// exec выполняет запрос, содержимое data не важно
func exec(ctx context.Context, c *Client, r request) error {
	_, err := c.do(ctx, r)
	return err
}

func isEmptyData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// do отправляет запрос и возвращает data успешного конверта
func (c *Client) do(ctx context.Context, r request) (data json.RawMessage, err error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: r.op, Kind: KindTransport, Err: err}
	}

	ctx, span := c.tracer.Start(ctx, r.op, trace.WithAttributes(
		attribute.String("http.method", r.method),
		attribute.String("backend.path", r.path),
	))
	started := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		metrics.RecordBackendCall(r.op, outcome, time.Since(started).Seconds())
	}()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: KindTransport, Err: fmt.Errorf("не удалось прочитать токен: %w", err)}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + r.path
	if len(r.query) > 0 {
		uri += "?" + r.query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(r.method)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, &Error{Op: r.op, Kind: KindValidation, Err: fmt.Errorf("не удалось сериализовать запрос: %w", err)}
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.log.Warn("бэкенд недоступен", zap.String("op", r.op), zap.Error(err))
		return nil, &Error{Op: r.op, Kind: KindTransport, Err: err}
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if status < 200 || status >= 300 {
		be := &Error{Op: r.op, Status: status, Kind: kindForStatus(status)}
		if decodeErr == nil {
			be.Message = env.Message
			if env.Code != nil {
				be.Code = *env.Code
			}
		}
		c.handleUnauthorized(ctx, be, token)
		return nil, be
	}

	if decodeErr != nil || env.Code == nil {
		cause := decodeErr
		if cause == nil {
			cause = errors.New("в ответе нет поля code")
		}
		return nil, &Error{Op: r.op, Kind: KindMalformed, Status: status, Err: cause}
	}

	if *env.Code != codeOK {
		be := &Error{Op: r.op, Status: status, Code: *env.Code, Kind: kindForCode(*env.Code), Message: env.Message}
		c.handleUnauthorized(ctx, be, token)
		return nil, be
	}

	return env.Data, nil
}

func (c *Client) handleUnauthorized(ctx context.Context, be *Error, token string) {
	if be.Kind != KindUnauthorized || token == "" {
		return
	}

	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()

	c.log.Info("бэкенд отклонил токен", zap.String("op", be.Op))
	if fn != nil {
		fn(ctx, token)
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == fasthttp.StatusUnauthorized:
		return KindUnauthorized
	case status == fasthttp.StatusForbidden:
		return KindForbidden
	case status == fasthttp.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// kindForCode классифицирует code != 200 внутри успешного HTTP ответа
func kindForCode(code int) Kind {
	switch code {
	case fasthttp.StatusUnauthorized:
		return KindUnauthorized
	case fasthttp.StatusForbidden:
		return KindForbidden
	case fasthttp.StatusNotFound:
		return KindNotFound
	default:
		return KindValidation
	}
}
