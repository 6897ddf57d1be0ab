package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
)

const apiKeyHeader = "X-API-Key"

// Client talks to the trade history and price API. It implements both
// journal.TradeSource and journal.PriceOracle.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interfaces
var (
	_ journal.TradeSource = (*Client)(nil)
	_ journal.PriceOracle = (*Client)(nil)
)

// NewClient creates a new upstream API client.
func NewClient(cfg *config.Upstream, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetHeader("Accept", "application/json")
	if cfg.ApiKey != "" {
		client.SetHeader(apiKeyHeader, cfg.ApiKey)
	} else {
		logger.Warn("No upstream API key configured")
	}

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger.Named("upstream"),
		limiter: limiter,
	}
}

// tradesResponse is the body of GET /wallets/{wallet}/trades.
type tradesResponse struct {
	Trades     []models.RawTrade `json:"trades"`
	TotalCount int               `json:"total_count"`
}

// FetchTrades fetches one page of a wallet's trade history.
func (c *Client) FetchTrades(ctx context.Context, req journal.FetchRequest) (*journal.FetchResult, error) {
	params := map[string]string{
		"page":      strconv.Itoa(req.Page),
		"page_size": strconv.Itoa(req.PageSize),
	}
	if req.TokenAddress != "" {
		params["token"] = req.TokenAddress
	}
	if req.MinTimestamp != nil {
		params["min_timestamp"] = strconv.FormatInt(*req.MinTimestamp, 10)
	}

	r := c.client.R().
		SetPathParam("wallet", req.WalletAddress).
		SetQueryParams(params).
		SetResult(&tradesResponse{})

	resp, err := c.doRequest(ctx, "fetch trades", http.MethodGet, "/wallets/{wallet}/trades", r)
	if err != nil {
		return nil, err
	}

	result := resp.Result().(*tradesResponse)
	return &journal.FetchResult{Trades: result.Trades, TotalCount: result.TotalCount}, nil
}

// priceResponse is the body of GET /tokens/{token}/price.
type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// CurrentUnitPrice fetches the latest USD price of a token.
func (c *Client) CurrentUnitPrice(ctx context.Context, tokenAddress string) (decimal.Decimal, error) {
	r := c.client.R().
		SetPathParam("token", tokenAddress).
		SetResult(&priceResponse{})

	resp, err := c.doRequest(ctx, "fetch price", http.MethodGet, "/tokens/{token}/price", r)
	if err != nil {
		return decimal.Zero, err
	}
	return resp.Result().(*priceResponse).Price, nil
}

// doRequest waits for the rate limiter, executes the request and classifies failures.
// Retrying is left to the caller.
func (c *Client) doRequest(ctx context.Context, op, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, journal.NewError(classifyTransport(ctx, err), op, fmt.Errorf("rate limiter wait failed: %w", err))
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		kind := classifyTransport(ctx, err)
		c.logger.Warn("Request failed", zap.String("op", op), zap.Stringer("kind", kind), zap.Error(err))
		return nil, journal.NewError(kind, op, err)
	}

	if resp.IsError() {
		kind := classifyStatus(resp.StatusCode())
		c.logger.Warn("Request rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode()),
			zap.Stringer("kind", kind),
			zap.String("retry_after", resp.Header().Get("Retry-After")),
		)
		return nil, journal.NewError(kind, op, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String()))
	}

	return resp, nil
}

func classifyStatus(status int) journal.ErrorKind {
	switch {
	case status == http.StatusTooManyRequests || status == 418:
		return journal.KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return journal.KindAuthentication
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return journal.KindTimeout
	case status >= 500:
		return journal.KindUpstreamUnavailable
	default:
		return journal.KindUnknown
	}
}

func classifyTransport(ctx context.Context, err error) journal.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return journal.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return journal.KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return journal.KindUpstreamUnavailable
	}
	return journal.KindUnknown
}
