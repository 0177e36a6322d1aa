package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	appbattle "beast-arena/internal/app/battle"
	"beast-arena/internal/notify"
	"beast-arena/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(svc *appbattle.Service, subs notify.Subscriber, gw *ws.Gateway, ping func(context.Context) error) *chi.Mux {
	h := NewBattleHandlers(svc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(ping))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Route("/battles", func(r chi.Router) {
			r.Post("/", h.Create())
			r.Get("/waiting", h.ListWaiting())
			r.Post("/join", h.Join())
			r.Get("/events", WaitingEventsHandler(subs))
			r.Route("/{battle_id}", func(r chi.Router) {
				r.Get("/", h.Get())
				r.Delete("/", h.Cancel())
				r.Post("/select-beast", h.SelectBeast())
				r.Post("/moves", h.AppendMove())
				r.Get("/moves", h.ListMoves())
				r.Post("/complete", h.Complete())
				r.Get("/events", BattleEventsHandler(svc, subs))
			})
		})
		r.Get("/beasts/{beast_id}", h.GetBeast())
	})

	if gw != nil {
		r.Get("/ws/battles/{battle_id}", gw.HandleBattle)
	}
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	for _, rt := range routes {
		log.Info().Str("method", rt.Method).Str("route", rt.Path).Msg("route registered")
	}
}

func HealthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				WriteHTTPError(w, http.StatusServiceUnavailable, "store_unreachable")
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
