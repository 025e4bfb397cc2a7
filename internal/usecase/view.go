package usecase

import (
	"sort"
	"strings"

	"marketdata-backend/internal/domain"
)

// topListLimit caps the trending/gainers/losers rankings.
const topListLimit = 10

// stableSymbols are pegged assets excluded from the trending ranking.
var stableSymbols = map[string]struct{}{
	"USDT": {},
	"USDC": {},
	"BUSD": {},
	"DAI":  {},
}

// recomputeLocked rebuilds the filtered projection: segment base set,
// then search filter, then stable sort. Caller holds uc.mu.
func (uc *MarketUsecase) recomputeLocked() {
	var base []domain.Coin
	switch uc.segment {
	case domain.SegmentTrending:
		base = trendingCoins(uc.coins)
	case domain.SegmentGainers:
		base = topByChange24h(uc.coins, domain.SortDesc)
	case domain.SegmentLosers:
		base = topByChange24h(uc.coins, domain.SortAsc)
	case domain.SegmentFavorites:
		base = make([]domain.Coin, 0, len(uc.favoriteIDs))
		for _, c := range uc.coins {
			if _, ok := uc.favoriteIDs[c.ID]; ok {
				base = append(base, c)
			}
		}
	default:
		base = append([]domain.Coin(nil), uc.coins...)
	}

	if q := strings.ToLower(uc.searchText); q != "" {
		matched := make([]domain.Coin, 0, len(base))
		for _, c := range base {
			if strings.Contains(strings.ToLower(c.Name), q) ||
				strings.Contains(strings.ToLower(c.Symbol), q) {
				matched = append(matched, c)
			}
		}
		base = matched
	}

	sortCoins(base, uc.sortField, uc.sortDirection)
	uc.filtered = base
}

// trendingCoins is the non-stablecoin list ranked by volume, top 10.
func trendingCoins(coins []domain.Coin) []domain.Coin {
	out := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if _, stable := stableSymbols[strings.ToUpper(c.Symbol)]; stable {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalVolume > out[j].TotalVolume
	})
	if len(out) > topListLimit {
		out = out[:topListLimit]
	}
	return out
}

func topByChange24h(coins []domain.Coin, dir domain.SortDirection) []domain.Coin {
	out := append([]domain.Coin(nil), coins...)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == domain.SortDesc {
			return out[i].PriceChangePct24h > out[j].PriceChangePct24h
		}
		return out[i].PriceChangePct24h < out[j].PriceChangePct24h
	})
	if len(out) > topListLimit {
		out = out[:topListLimit]
	}
	return out
}

// sortCoins orders coins in place. Desc swaps the operands of the
// ascending comparison, so ties keep their relative order under the
// stable sort in both directions.
func sortCoins(coins []domain.Coin, field domain.SortField, dir domain.SortDirection) {
	less := func(a, b domain.Coin) bool {
		switch field {
		case domain.SortByPrice:
			return a.CurrentPrice < b.CurrentPrice
		case domain.SortByChange24h:
			return a.PriceChangePct24h < b.PriceChangePct24h
		case domain.SortByVolume:
			return a.TotalVolume < b.TotalVolume
		case domain.SortByMarketCap:
			return a.MarketCap < b.MarketCap
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(coins, func(i, j int) bool {
		if dir == domain.SortDesc {
			return less(coins[j], coins[i])
		}
		return less(coins[i], coins[j])
	})
}
