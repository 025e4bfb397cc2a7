package domain

// Coin is one market snapshot row for a single asset.
// All fields are replaced wholesale on every refresh except IsFavorite,
// which is engine-managed and survives refreshes.
type Coin struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Image             string    `json:"image,omitempty"`
	CurrentPrice      float64   `json:"currentPrice"`
	PriceChangePct24h float64   `json:"priceChangePct24h"`
	// PriceChangePct1h is nil when the provider omits the 1h window.
	PriceChangePct1h *float64  `json:"priceChangePct1h,omitempty"`
	TotalVolume      float64   `json:"totalVolume"`
	MarketCap        float64   `json:"marketCap"`
	Sparkline7d      []float64 `json:"sparkline7d,omitempty"`
	IsFavorite       bool      `json:"isFavorite"`
}

// GlobalSummary aggregates market-wide totals keyed by currency code
// and dominance percentages keyed by asset symbol (e.g. "btc").
type GlobalSummary struct {
	TotalMarketCap           map[string]float64 `json:"totalMarketCap"`
	TotalVolume              map[string]float64 `json:"totalVolume"`
	MarketCapPercentage      map[string]float64 `json:"marketCapPercentage"`
	MarketCapChangePct24hUSD float64            `json:"marketCapChangePct24hUsd"`
}
