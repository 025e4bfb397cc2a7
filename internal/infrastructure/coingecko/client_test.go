package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata-backend/internal/domain"
)

const marketsBody = `[
	{
		"id": "bitcoin",
		"symbol": "btc",
		"name": "Bitcoin",
		"image": "https://img.example/btc.png",
		"current_price": 60123.45,
		"price_change_percentage_24h": 2.31,
		"price_change_percentage_1h_in_currency": -0.12,
		"total_volume": 31000000000,
		"market_cap": 1200000000000,
		"sparkline_in_7d": {"price": [59000.1, 59500.2, 60123.45]}
	},
	{
		"id": "ethereum",
		"symbol": "eth",
		"name": "Ethereum",
		"image": "https://img.example/eth.png",
		"current_price": 3050.12,
		"price_change_percentage_24h": -1.05,
		"total_volume": 15000000000,
		"market_cap": 360000000000
	}
]`

const globalBody = `{
	"data": {
		"total_market_cap": {"usd": 2500000000000, "eur": 2300000000000},
		"total_volume": {"usd": 95000000000},
		"market_cap_percentage": {"btc": 48.2, "eth": 18.5},
		"market_cap_change_percentage_24h_usd": 1.7
	}
}`

func TestFetchCoinsDecodesWireFormat(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(marketsBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, time.Second)
	coins, err := client.FetchCoins(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "usd", q.Get("vs_currency"))
	assert.Equal(t, "market_cap_desc", q.Get("order"))
	assert.Equal(t, "100", q.Get("per_page"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "false", q.Get("sparkline"))
	assert.Equal(t, "1h,24h", q.Get("price_change_percentage"))

	btc := coins[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, "btc", btc.Symbol)
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.Equal(t, 60123.45, btc.CurrentPrice)
	assert.Equal(t, 2.31, btc.PriceChangePct24h)
	require.NotNil(t, btc.PriceChangePct1h)
	assert.Equal(t, -0.12, *btc.PriceChangePct1h)
	assert.Equal(t, []float64{59000.1, 59500.2, 60123.45}, btc.Sparkline7d)
	assert.False(t, btc.IsFavorite)

	// Provider omitted the 1h window and sparkline for ethereum.
	eth := coins[1]
	assert.Nil(t, eth.PriceChangePct1h)
	assert.Nil(t, eth.Sparkline7d)
}

func TestFetchCoinsByIDsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "bitcoin,ethereum", q.Get("ids"))
		assert.Equal(t, "true", q.Get("sparkline"))
		w.Write([]byte(marketsBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, time.Second)
	coins, err := client.FetchCoinsByIDs(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Len(t, coins, 2)

	// No IDs means no request at all.
	coins, err = client.FetchCoinsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, coins)
}

func TestFetchGlobalSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/global", r.URL.Path)
		w.Write([]byte(globalBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, time.Second)
	global, err := client.FetchGlobalSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.5e12, global.TotalMarketCap["usd"])
	assert.Equal(t, 9.5e10, global.TotalVolume["usd"])
	assert.Equal(t, 48.2, global.MarketCapPercentage["btc"])
	assert.Equal(t, 1.7, global.MarketCapChangePct24hUSD)
}

func TestServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, time.Second)
	_, err := client.FetchCoins(context.Background())

	var serverErr *domain.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Equal(t, int64(1), calls.Load(), "non-2xx must fail immediately")
}

func TestDecodeErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"not": "a list"`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, time.Second)
	_, err := client.FetchCoins(context.Background())

	var decodeErr *domain.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, int64(1), calls.Load())
}

func TestTimeoutRetriedOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond) // past the client timeout
			return
		}
		w.Write([]byte(globalBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, 100*time.Millisecond)
	global, err := client.FetchGlobalSummary(context.Background())

	require.NoError(t, err, "the retry's values must win")
	assert.Equal(t, 2.5e12, global.TotalMarketCap["usd"])
	assert.Equal(t, int64(2), calls.Load())
}

func TestTimeoutSurfacedAfterOneRetry(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, false, 100*time.Millisecond)
	_, err := client.FetchCoins(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	assert.Equal(t, int64(2), calls.Load(), "exactly one retry")
}

func TestCancellationIsNotATimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewClient(server.URL, 100, false, 10*time.Second)
	_, err := client.FetchCoins(ctx)

	require.Error(t, err)
	assert.False(t, domain.IsTimeout(err))
	assert.True(t, errors.Is(err, context.Canceled))
}
