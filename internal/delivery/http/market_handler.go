package http

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"marketdata-backend/internal/domain"
)

// MarketService is the engine surface the REST adapter exposes to the
// presentation layer.
type MarketService interface {
	View() domain.ViewState
	Refresh(ctx context.Context)
	ToggleFavorite(id string)
	SetSegment(segment domain.Segment)
	SetSearchText(text string)
	ToggleSort(field domain.SortField)
}

// MarketHandler adapts engine operations to REST endpoints. Every
// mutation responds with the recomputed view so callers can react
// without a second round trip.
type MarketHandler struct {
	engine MarketService
}

func NewMarketHandler(engine MarketService) *MarketHandler {
	return &MarketHandler{engine: engine}
}

// GetMarket handles GET /api/market
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.engine.View())
}

// GetGlobal handles GET /api/global
func (h *MarketHandler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view := h.engine.View()
	if view.Global == nil {
		http.Error(w, "Global summary not loaded yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, view.Global)
}

// SetSegment handles POST /api/market/segment
func (h *MarketHandler) SetSegment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Segment string `json:"segment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.engine.SetSegment(domain.ParseSegment(req.Segment))
	writeJSON(w, h.engine.View())
}

// SetSearch handles POST /api/market/search
func (h *MarketHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.engine.SetSearchText(req.Query)
	writeJSON(w, h.engine.View())
}

// ToggleSort handles POST /api/market/sort
func (h *MarketHandler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Field string `json:"field"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.engine.ToggleSort(domain.ParseSortField(req.Field))
	writeJSON(w, h.engine.View())
}

// ToggleFavorite handles POST /api/favorites/toggle
func (h *MarketHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "Missing coin id", http.StatusBadRequest)
		return
	}

	h.engine.ToggleFavorite(req.ID)
	writeJSON(w, h.engine.View())
}

// TriggerRefresh handles POST /api/refresh. The engine drops the call
// if a cycle is already in flight, so retry affordances can hit this
// freely.
func (h *MarketHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	go h.engine.Refresh(context.Background())
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("response encode failed")
	}
}
