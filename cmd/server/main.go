package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"marketdata-backend/internal/config"
	deliveryhttp "marketdata-backend/internal/delivery/http"
	"marketdata-backend/internal/delivery/websocket"
	"marketdata-backend/internal/infrastructure/coingecko"
	"marketdata-backend/internal/pubsub"
	"marketdata-backend/internal/repository"
	"marketdata-backend/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment")
	}

	cfg := config.FromEnv()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.SettingsDBPath), 0o755); err != nil {
		log.WithError(err).Fatal("data dir")
	}

	favorites, err := repository.NewSQLiteFavoritesStore(cfg.SettingsDBPath)
	if err != nil {
		log.WithError(err).Fatal("favorites store")
	}
	defer favorites.Close()

	cache := repository.NewFileSnapshotCache(cfg.SnapshotPath)
	client := coingecko.NewClient(cfg.CoinGeckoBaseURL, cfg.PerPage, cfg.Sparkline, cfg.RequestTimeout)
	bus := pubsub.New()

	engine := usecase.NewMarketUsecase(client, cache, favorites, bus)
	engine.Start(ctx)

	scheduler := usecase.NewScheduler(engine, cfg.RefreshInterval)
	go scheduler.Run(ctx)

	wsHandler := websocket.NewHandler(engine, bus)
	marketHandler := deliveryhttp.NewMarketHandler(engine)

	http.HandleFunc("/ws", wsHandler.Handle)
	http.HandleFunc("/api/market", marketHandler.GetMarket)
	http.HandleFunc("/api/global", marketHandler.GetGlobal)
	http.HandleFunc("/api/market/segment", marketHandler.SetSegment)
	http.HandleFunc("/api/market/search", marketHandler.SetSearch)
	http.HandleFunc("/api/market/sort", marketHandler.ToggleSort)
	http.HandleFunc("/api/favorites/toggle", marketHandler.ToggleFavorite)
	http.HandleFunc("/api/refresh", marketHandler.TriggerRefresh)

	server := &http.Server{Addr: cfg.ListenAddr}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.WithField("addr", cfg.ListenAddr).Info("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
