package websocket

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"

	"marketdata-backend/internal/domain"
	"marketdata-backend/internal/pubsub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // presentation layer runs on a different origin
	},
}

// ViewProvider is the read-only slice of the engine the handler needs.
type ViewProvider interface {
	View() domain.ViewState
}

// Handler streams ViewState updates to connected presentation clients.
// Each client gets the current view on connect and every recomputation
// after that.
type Handler struct {
	engine ViewProvider
	bus    *pubsub.Bus
}

func NewHandler(engine ViewProvider, bus *pubsub.Bus) *Handler {
	return &Handler{
		engine: engine,
		bus:    bus,
	}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info("presentation client connected")

	// Buffered so a slow client drops intermediate frames instead of
	// blocking the publisher.
	updates := make(chan domain.ViewState, 8)
	onUpdate := func(view domain.ViewState) {
		select {
		case updates <- view:
		default:
		}
	}

	if err := h.bus.Subscribe(pubsub.TopicViewUpdated, onUpdate); err != nil {
		log.WithError(err).Error("view subscription failed")
		return
	}
	defer func() {
		if err := h.bus.Unsubscribe(pubsub.TopicViewUpdated, onUpdate); err != nil {
			log.WithError(err).Warn("view unsubscribe failed")
		}
	}()

	if err := conn.WriteJSON(h.engine.View()); err != nil {
		log.WithError(err).Warn("initial view write failed")
		return
	}

	// Reader goroutine: we never expect client frames, but reading is
	// what detects a closed connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Info("presentation client disconnected")
			return
		case view := <-updates:
			if err := conn.WriteJSON(view); err != nil {
				log.WithError(err).Warn("view write failed")
				return
			}
		}
	}
}
