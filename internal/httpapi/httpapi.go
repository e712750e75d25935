// Package httpapi is the daemon's HTTP side channel. It never carries
// commands; it exposes health and counters to operators and streams idle
// events to browser clients over a websocket.
//
// Routes
// ======
//
//	GET /healthz                   liveness probe
//	GET /stats                     JSON counters supplied by the daemon
//	GET /idle?subsystems=a,b,...   websocket; one JSON message per wake-up
//
// An /idle stream behaves like a protocol connection that issues "idle" in a
// loop: it owns a Subscriber for its whole lifetime, so changes that happen
// between two messages are reported in the next one, and the subsystems
// parameter follows the same rules as the idle command arguments.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"cadence.lopezb.com/internal/idle"
)

// Event is the JSON message sent on an /idle stream.
type Event struct {
	Changed []string `json:"changed"`
}

// StatsFunc returns the document served on /stats.
type StatsFunc func() any

type server struct {
	hub    *idle.Hub
	stats  StatsFunc
	logger *slog.Logger
}

// NewHandler returns the side channel's router.
func NewHandler(hub *idle.Hub, stats StatsFunc, logger *slog.Logger) http.Handler {
	s := &server{hub: hub, stats: stats, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/idle", s.handleIdle)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.stats())
}

func (s *server) handleIdle(w http.ResponseWriter, r *http.Request) {
	var names []string
	if q := r.URL.Query().Get("subsystems"); q != "" {
		names = strings.Split(q, ",")
	}
	mask := idle.ParseMask(names)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()

	sub := s.hub.Subscribe("ws-" + uuid.NewString())
	defer s.hub.Unsubscribe(sub)

	logger := s.logger.With("client_id", sub.ID(), "remote_addr", r.RemoteAddr)
	logger.Debug("idle stream opened", "subsystems", mask.Strings())

	// The stream is write-only; CloseRead discards client frames and cancels
	// ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case changed := <-sub.Wait(mask):
			if err := wsjson.Write(ctx, conn, Event{Changed: changed.Strings()}); err != nil {
				if !errors.Is(err, ctx.Err()) {
					logger.Debug("idle stream write failed", "error", err)
				}
				return
			}
		case <-ctx.Done():
			sub.Cancel()
			logger.Debug("idle stream closed")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
