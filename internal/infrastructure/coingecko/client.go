package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketdata-backend/internal/domain"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	// One retry after a fixed delay, and only for timeouts.
	retryDelay = 500 * time.Millisecond
)

// Client talks to the CoinGecko REST API. It holds no mutable state
// and is safe to share across concurrent callers.
type Client struct {
	baseURL    string
	perPage    int
	sparkline  bool
	httpClient *http.Client
}

// NewClient creates a CoinGecko client. baseURL falls back to the
// public API when empty, perPage to 100 when non-positive.
func NewClient(baseURL string, perPage int, sparkline bool, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if perPage <= 0 {
		perPage = 100
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		perPage:   perPage,
		sparkline: sparkline,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// marketCoin mirrors one element of the /coins/markets response.
type marketCoin struct {
	ID                string     `json:"id"`
	Symbol            string     `json:"symbol"`
	Name              string     `json:"name"`
	Image             string     `json:"image"`
	CurrentPrice      float64    `json:"current_price"`
	PriceChangePct24h float64    `json:"price_change_percentage_24h"`
	PriceChangePct1h  *float64   `json:"price_change_percentage_1h_in_currency"`
	TotalVolume       float64    `json:"total_volume"`
	MarketCap         float64    `json:"market_cap"`
	Sparkline         *sparkline `json:"sparkline_in_7d"`
}

type sparkline struct {
	Price []float64 `json:"price"`
}

// globalResponse mirrors the /global response wrapper.
type globalResponse struct {
	Data globalData `json:"data"`
}

type globalData struct {
	TotalMarketCap           map[string]float64 `json:"total_market_cap"`
	TotalVolume              map[string]float64 `json:"total_volume"`
	MarketCapPercentage      map[string]float64 `json:"market_cap_percentage"`
	MarketCapChangePct24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
}

// FetchCoins returns the top coins by market cap, quoted in USD, with
// 1h and 24h percentage-change windows.
func (c *Client) FetchCoins(ctx context.Context) ([]domain.Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", "1")
	q.Set("sparkline", strconv.FormatBool(c.sparkline))
	q.Set("price_change_percentage", "1h,24h")

	var wire []marketCoin
	if err := c.getJSON(ctx, c.baseURL+"/coins/markets?"+q.Encode(), &wire); err != nil {
		return nil, err
	}
	return toDomainCoins(wire), nil
}

// FetchCoinsByIDs returns market rows for specific coin IDs, sparkline
// included. Used for the favorites watchlist.
func (c *Client) FetchCoinsByIDs(ctx context.Context, ids []string) ([]domain.Coin, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "1h,24h")

	var wire []marketCoin
	if err := c.getJSON(ctx, c.baseURL+"/coins/markets?"+q.Encode(), &wire); err != nil {
		return nil, err
	}
	return toDomainCoins(wire), nil
}

// FetchGlobalSummary returns market-wide totals and dominance shares.
func (c *Client) FetchGlobalSummary(ctx context.Context) (*domain.GlobalSummary, error) {
	var wire globalResponse
	if err := c.getJSON(ctx, c.baseURL+"/global", &wire); err != nil {
		return nil, err
	}
	return &domain.GlobalSummary{
		TotalMarketCap:           wire.Data.TotalMarketCap,
		TotalVolume:              wire.Data.TotalVolume,
		MarketCapPercentage:      wire.Data.MarketCapPercentage,
		MarketCapChangePct24hUSD: wire.Data.MarketCapChangePct24hUSD,
	}, nil
}

// getJSON issues one GET and decodes the body into v. A timeout is
// retried exactly once after retryDelay; every other failure is
// returned immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	err := c.doGet(ctx, rawURL, v)
	if err == nil || !domain.IsTimeout(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryDelay):
	}

	return c.doGet(ctx, rawURL, v)
}

func (c *Client) doGet(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &domain.TimeoutError{Err: err}
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return &domain.TimeoutError{Err: err}
		}
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.ServerError{StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &domain.DecodeError{Err: err}
	}
	return nil
}

// isTimeout classifies transport errors. Context cancellation is not a
// timeout; it propagates so the caller can swallow it silently.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func toDomainCoins(wire []marketCoin) []domain.Coin {
	coins := make([]domain.Coin, 0, len(wire))
	for _, w := range wire {
		coin := domain.Coin{
			ID:                w.ID,
			Symbol:            w.Symbol,
			Name:              w.Name,
			Image:             w.Image,
			CurrentPrice:      w.CurrentPrice,
			PriceChangePct24h: w.PriceChangePct24h,
			PriceChangePct1h:  w.PriceChangePct1h,
			TotalVolume:       w.TotalVolume,
			MarketCap:         w.MarketCap,
		}
		if w.Sparkline != nil {
			coin.Sparkline7d = w.Sparkline.Price
		}
		coins = append(coins, coin)
	}
	return coins
}
