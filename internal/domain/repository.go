package domain

import "context"

// MarketDataAPI is the remote provider surface the engine depends on.
// Implementations must be stateless and safe for concurrent use.
type MarketDataAPI interface {
	FetchCoins(ctx context.Context) ([]Coin, error)
	FetchGlobalSummary(ctx context.Context) (*GlobalSummary, error)
	FetchCoinsByIDs(ctx context.Context, ids []string) ([]Coin, error)
}

// SnapshotCache persists the last-known coin list as a fallback data
// source for when the provider is unreachable.
type SnapshotCache interface {
	Save(coins []Coin) error
	Load() ([]Coin, error)
}

// FavoritesStore persists the user's favorited coin IDs independently
// of the coin list, so favorites survive a failed coin load.
type FavoritesStore interface {
	Save(ids map[string]struct{}) error
	Load() (map[string]struct{}, error)
}
