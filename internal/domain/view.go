package domain

// Segment is a named predefined view filter.
type Segment string

const (
	SegmentAll       Segment = "all"
	SegmentTrending  Segment = "trending"
	SegmentGainers   Segment = "gainers"
	SegmentLosers    Segment = "losers"
	SegmentFavorites Segment = "favorites"
)

// ParseSegment maps a string to a Segment, defaulting to SegmentAll.
func ParseSegment(s string) Segment {
	switch Segment(s) {
	case SegmentTrending, SegmentGainers, SegmentLosers, SegmentFavorites:
		return Segment(s)
	default:
		return SegmentAll
	}
}

// SortField selects the column used to order the filtered projection.
type SortField string

const (
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByChange24h SortField = "change24h"
	SortByVolume    SortField = "volume"
	SortByMarketCap SortField = "marketcap"
)

// ParseSortField maps a string to a SortField, defaulting to SortByName.
func ParseSortField(s string) SortField {
	switch SortField(s) {
	case SortByPrice, SortByChange24h, SortByVolume, SortByMarketCap:
		return SortField(s)
	default:
		return SortByName
	}
}

// SortDirection is the order applied to the active sort field.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Toggle returns the opposite direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// EngineStatus describes where the engine is in its refresh cycle.
// Every cycle ends in StatusReady (both fetches succeeded) or
// StatusDegraded (at least one failed, prior or cached data retained).
type EngineStatus string

const (
	StatusIdle       EngineStatus = "idle"
	StatusRefreshing EngineStatus = "refreshing"
	StatusReady      EngineStatus = "ready"
	StatusDegraded   EngineStatus = "degraded"
)

// ViewState is the full derived projection handed to the presentation
// layer. It is recomputed synchronously after any mutation of the coin
// list, the favorite set, or the filter/sort selection, and is never
// independently mutated.
type ViewState struct {
	Status         EngineStatus  `json:"status"`
	Segment        Segment       `json:"segment"`
	SearchText     string        `json:"searchText"`
	SortField      SortField     `json:"sortField"`
	SortDirection  SortDirection `json:"sortDirection"`
	Coins          []Coin        `json:"coins"`
	Watchlist      []Coin        `json:"watchlist,omitempty"`
	Global         *GlobalSummary `json:"global,omitempty"`
	IsLoadingCoins bool          `json:"isLoadingCoins"`
	CoinError      string        `json:"coinError,omitempty"`
	GlobalError    string        `json:"globalError,omitempty"`
}
