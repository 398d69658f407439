package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/registry"
	"github.com/GriffinCanCode/ai4/internal/resilience"
)

// ClientConfig configures a remote bridge client.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Breaker      resilience.Settings
}

// DefaultClientConfig returns the client defaults for baseURL.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		Retries:      3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// Client talks to a bridge server. Transport failures and 5xx responses are
// retried by the transport; repeated failures open a circuit breaker that
// fails calls fast until the server recovers.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at cfg.BaseURL.
func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid bridge URL %q", cfg.BaseURL)
	}

	c := &Client{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryLogger{c.logger.Sugar()}

	c.resty = resty.New().
		SetBaseURL(u.String()).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "ai4-bridge-client/1.0").
		SetTransport(retryClient.StandardClient().Transport)

	settings := cfg.Breaker
	settings.IsSuccessful = func(err error) bool {
		return err == nil || isClientError(err)
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to resilience.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}
	c.breaker = resilience.New("bridge:"+u.Host, settings)

	return c, nil
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.breaker.Do(func() error {
		return c.do(ctx, http.MethodGet, "/health", nil, nil)
	})
}

// Models returns the remote registry records in deploy order.
func (c *Client) Models(ctx context.Context) ([]registry.Record, error) {
	return resilience.Execute(c.breaker, func() ([]registry.Record, error) {
		var out ModelsResponse
		if err := c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
			return nil, err
		}
		return out.Models, nil
	})
}

// List returns the remote URIs in deploy order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	records, err := c.Models(ctx)
	if err != nil {
		return nil, err
	}
	uris := make([]string, len(records))
	for i, r := range records {
		uris[i] = r.URI
	}
	return uris, nil
}

// Infer runs a paid inference on the server.
func (c *Client) Infer(ctx context.Context, req InferRequest) (*Receipt, error) {
	return resilience.Execute(c.breaker, func() (*Receipt, error) {
		var out Receipt
		if err := c.do(ctx, http.MethodPost, "/infer", req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// Balance returns the MAT balance of an identity on the server.
func (c *Client) Balance(ctx context.Context, who string) (int64, error) {
	return resilience.Execute(c.breaker, func() (int64, error) {
		var out BalanceResponse
		if err := c.do(ctx, http.MethodGet, "/balance/"+url.PathEscape(who), nil, &out); err != nil {
			return 0, err
		}
		return out.Balance, nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var apiErr ErrorResponse
	req := c.resty.R().
		SetContext(ctx).
		SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRemote, method, path, err)
	}
	if resp.IsError() {
		return decodeError(resp.StatusCode(), apiErr)
	}
	return nil
}

// decodeError turns an error response back into the sentinel the server
// mapped it from.
func decodeError(status int, body ErrorResponse) error {
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	var sentinel error
	switch {
	case body.Code == CodeUnknownURI:
		sentinel = registry.ErrUnknownURI
	case body.Code == CodeInsufficientBalance:
		sentinel = ledger.ErrInsufficientBalance
	case body.Code == CodeNonFiniteOutput:
		sentinel = ErrNonFiniteOutput
	case body.Code == CodeBadRequest || status == http.StatusBadRequest:
		sentinel = ErrBadRequest
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		sentinel = ErrRemote
	}
	return fmt.Errorf("%w: %s (HTTP %d)", sentinel, msg, status)
}

func isClientError(err error) bool {
	for _, target := range []error{
		registry.ErrUnknownURI,
		ledger.ErrInsufficientBalance,
		ErrNonFiniteOutput,
		ErrBadRequest,
		ErrRateLimited,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// retryPolicy retries connection errors, 429 and 5xx like the default
// policy, except that a POST which reached the server is only retried when
// the server shed it before doing any work.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.Request != nil && resp.Request.Method == http.MethodPost {
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		default:
			return false, ctx.Err()
		}
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
