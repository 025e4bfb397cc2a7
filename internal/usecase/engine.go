package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"marketdata-backend/internal/domain"
	"marketdata-backend/internal/pubsub"
)

// User-facing error strings. The presentation layer renders these next
// to whatever (possibly stale) data is still available.
const (
	coinErrorMessage   = "Could not load market data"
	globalErrorMessage = "Could not load global market data"
)

// Publisher receives a domain.ViewState value after every state
// change. *pubsub.Bus satisfies it.
type Publisher interface {
	Publish(topic string, payload interface{})
}

// MarketUsecase owns the canonical in-memory market state and
// recomputes the filtered/sorted projection on every mutation. All
// mutations are serialized under one mutex so the view pipeline always
// observes a consistent snapshot.
type MarketUsecase struct {
	client    domain.MarketDataAPI
	cache     domain.SnapshotCache
	favorites domain.FavoritesStore
	bus       Publisher

	mu             sync.Mutex
	coins          []domain.Coin
	global         *domain.GlobalSummary
	watchlist      []domain.Coin
	favoriteIDs    map[string]struct{}
	segment        domain.Segment
	searchText     string
	sortField      domain.SortField
	sortDirection  domain.SortDirection
	filtered       []domain.Coin
	status         domain.EngineStatus
	isLoadingCoins bool
	coinError      string
	globalError    string
}

func NewMarketUsecase(client domain.MarketDataAPI, cache domain.SnapshotCache, favorites domain.FavoritesStore, bus Publisher) *MarketUsecase {
	return &MarketUsecase{
		client:        client,
		cache:         cache,
		favorites:     favorites,
		bus:           bus,
		favoriteIDs:   map[string]struct{}{},
		segment:       domain.SegmentAll,
		sortField:     domain.SortByName,
		sortDirection: domain.SortDesc,
		status:        domain.StatusIdle,
	}
}

// Start restores the cached coin list and the persisted favorites
// synchronously, so the engine is never fully empty while the first
// refresh is in flight, then kicks that refresh off in the background.
func (uc *MarketUsecase) Start(ctx context.Context) {
	uc.mu.Lock()
	if cached, err := uc.cache.Load(); err == nil && len(cached) > 0 {
		uc.coins = cached
	} else if err != nil {
		log.WithError(err).Debug("no coin snapshot to restore")
	}
	if ids, err := uc.favorites.Load(); err == nil {
		uc.favoriteIDs = ids
	} else {
		log.WithError(err).Warn("favorites load failed, starting empty")
	}
	uc.applyFavoriteFlagsLocked()
	uc.recomputeLocked()
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)

	go uc.Refresh(ctx)
}

// Refresh runs one full refresh cycle: the coin fetch and the global
// fetch run concurrently, each sub-result is applied to state as soon
// as it resolves, and both are awaited before the cycle ends. A cycle
// already in progress causes the call to be dropped, not queued.
func (uc *MarketUsecase) Refresh(ctx context.Context) {
	uc.mu.Lock()
	if uc.isLoadingCoins {
		uc.mu.Unlock()
		return
	}
	uc.isLoadingCoins = true
	uc.status = domain.StatusRefreshing
	uc.coinError = ""
	uc.globalError = ""
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		uc.refreshCoins(ctx)
	}()
	go func() {
		defer wg.Done()
		uc.refreshGlobal(ctx)
	}()
	wg.Wait()

	uc.mu.Lock()
	uc.isLoadingCoins = false
	if uc.coinError == "" && uc.globalError == "" {
		uc.status = domain.StatusReady
	} else {
		uc.status = domain.StatusDegraded
	}
	view = uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)
}

func (uc *MarketUsecase) refreshCoins(ctx context.Context) {
	coins, err := uc.client.FetchCoins(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return // host shut down mid-flight, nothing to surface
		}
		log.WithError(err).Warn("coin fetch failed, falling back to cache")

		uc.mu.Lock()
		uc.coinError = coinErrorMessage
		if cached, cacheErr := uc.cache.Load(); cacheErr == nil && len(cached) > 0 {
			uc.coins = cached
			uc.applyFavoriteFlagsLocked()
		}
		uc.recomputeLocked()
		view := uc.viewLocked()
		uc.mu.Unlock()
		uc.publish(view)
		return
	}

	uc.mu.Lock()
	uc.coins = coins
	uc.applyFavoriteFlagsLocked()
	uc.recomputeLocked()
	view := uc.viewLocked()
	snapshot := make([]domain.Coin, len(uc.coins))
	copy(snapshot, uc.coins)
	uc.mu.Unlock()
	uc.publish(view)

	// Fire-and-forget: a failed disk write never rolls back the
	// in-memory update.
	go func() {
		if err := uc.cache.Save(snapshot); err != nil {
			log.WithError(err).Warn("snapshot save failed")
		}
	}()
}

func (uc *MarketUsecase) refreshGlobal(ctx context.Context) {
	global, err := uc.client.FetchGlobalSummary(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.WithError(err).Warn("global summary fetch failed, keeping stale value")

		uc.mu.Lock()
		uc.globalError = globalErrorMessage
		view := uc.viewLocked()
		uc.mu.Unlock()
		uc.publish(view)
		return
	}

	uc.mu.Lock()
	uc.global = global
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)
}

// ToggleFavorite flips membership of id in the favorite set. It is
// synchronous and never waits on the network; the watchlist refresh it
// kicks off runs in the background.
func (uc *MarketUsecase) ToggleFavorite(id string) {
	uc.mu.Lock()
	if _, ok := uc.favoriteIDs[id]; ok {
		delete(uc.favoriteIDs, id)
	} else {
		uc.favoriteIDs[id] = struct{}{}
	}
	for i := range uc.coins {
		if uc.coins[i].ID == id {
			_, fav := uc.favoriteIDs[id]
			uc.coins[i].IsFavorite = fav
		}
	}
	for i := range uc.watchlist {
		if uc.watchlist[i].ID == id {
			_, fav := uc.favoriteIDs[id]
			uc.watchlist[i].IsFavorite = fav
		}
	}
	ids := make(map[string]struct{}, len(uc.favoriteIDs))
	for fid := range uc.favoriteIDs {
		ids[fid] = struct{}{}
	}
	uc.recomputeLocked()
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)

	if err := uc.favorites.Save(ids); err != nil {
		log.WithError(err).Warn("favorites save failed")
	}

	go uc.RefreshWatchlist(context.Background())
}

// RefreshWatchlist fetches sparkline-enriched rows for the favorited
// IDs. Failures are logged, never surfaced as engine errors.
func (uc *MarketUsecase) RefreshWatchlist(ctx context.Context) {
	uc.mu.Lock()
	ids := make([]string, 0, len(uc.favoriteIDs))
	for id := range uc.favoriteIDs {
		ids = append(ids, id)
	}
	uc.mu.Unlock()
	sort.Strings(ids)

	if len(ids) == 0 {
		uc.mu.Lock()
		uc.watchlist = nil
		view := uc.viewLocked()
		uc.mu.Unlock()
		uc.publish(view)
		return
	}

	coins, err := uc.client.FetchCoinsByIDs(ctx, ids)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("watchlist fetch failed")
		}
		return
	}

	uc.mu.Lock()
	for i := range coins {
		_, fav := uc.favoriteIDs[coins[i].ID]
		coins[i].IsFavorite = fav
	}
	uc.watchlist = coins
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)
}

// SetSegment selects the active view filter. Pure state mutation, no
// network call.
func (uc *MarketUsecase) SetSegment(segment domain.Segment) {
	uc.mu.Lock()
	uc.segment = segment
	uc.recomputeLocked()
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)
}

// SetSearchText updates the case-insensitive substring filter.
func (uc *MarketUsecase) SetSearchText(text string) {
	uc.mu.Lock()
	uc.searchText = text
	uc.recomputeLocked()
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)
}

// ToggleSort selects field as the active sort column. Selecting the
// field that is already active flips the direction instead.
func (uc *MarketUsecase) ToggleSort(field domain.SortField) {
	uc.mu.Lock()
	if uc.sortField == field {
		uc.sortDirection = uc.sortDirection.Toggle()
	} else {
		uc.sortField = field
		uc.sortDirection = domain.SortAsc
	}
	uc.recomputeLocked()
	view := uc.viewLocked()
	uc.mu.Unlock()
	uc.publish(view)
}

// View returns the current derived projection.
func (uc *MarketUsecase) View() domain.ViewState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.viewLocked()
}

// MarketCapUSD returns the global total market cap in USD, 0 when no
// summary has loaded yet.
func (uc *MarketUsecase) MarketCapUSD() float64 { return uc.globalStat("usd", false) }

// Volume24hUSD returns the global 24h volume in USD.
func (uc *MarketUsecase) Volume24hUSD() float64 { return uc.globalStat("usd", true) }

// BTCDominance returns bitcoin's share of total market cap in percent.
func (uc *MarketUsecase) BTCDominance() float64 { return uc.dominance("btc") }

// ETHDominance returns ether's share of total market cap in percent.
func (uc *MarketUsecase) ETHDominance() float64 { return uc.dominance("eth") }

func (uc *MarketUsecase) globalStat(currency string, volume bool) float64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.global == nil {
		return 0
	}
	if volume {
		return uc.global.TotalVolume[currency]
	}
	return uc.global.TotalMarketCap[currency]
}

func (uc *MarketUsecase) dominance(symbol string) float64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.global == nil {
		return 0
	}
	return uc.global.MarketCapPercentage[symbol]
}

func (uc *MarketUsecase) applyFavoriteFlagsLocked() {
	for i := range uc.coins {
		_, fav := uc.favoriteIDs[uc.coins[i].ID]
		uc.coins[i].IsFavorite = fav
	}
}

// viewLocked builds the published projection. The watchlist is copied
// because ToggleFavorite mutates its elements in place; uc.filtered is
// rebuilt fresh on every recompute, so it never aliases a view that is
// already in a subscriber's hands.
func (uc *MarketUsecase) viewLocked() domain.ViewState {
	var watchlist []domain.Coin
	if uc.watchlist != nil {
		watchlist = append([]domain.Coin(nil), uc.watchlist...)
	}
	return domain.ViewState{
		Status:         uc.status,
		Segment:        uc.segment,
		SearchText:     uc.searchText,
		SortField:      uc.sortField,
		SortDirection:  uc.sortDirection,
		Coins:          uc.filtered,
		Watchlist:      watchlist,
		Global:         uc.global,
		IsLoadingCoins: uc.isLoadingCoins,
		CoinError:      uc.coinError,
		GlobalError:    uc.globalError,
	}
}

func (uc *MarketUsecase) publish(view domain.ViewState) {
	if uc.bus != nil {
		uc.bus.Publish(pubsub.TopicViewUpdated, view)
	}
}
