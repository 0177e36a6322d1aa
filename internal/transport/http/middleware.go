package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"beast-arena/internal/app/battle"
	"beast-arena/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

// writeServiceError maps battle service sentinels onto HTTP statuses.
// Sentinel messages double as wire error codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, battle.ErrMissingFields),
		errors.Is(err, battle.ErrInvalidCodeFormat),
		errors.Is(err, battle.ErrSelfJoin),
		errors.Is(err, battle.ErrRoomUnavailable),
		errors.Is(err, battle.ErrBattleCompleted),
		errors.Is(err, battle.ErrBeastAlreadyLocked),
		errors.Is(err, battle.ErrInvalidWinnerValue),
		errors.Is(err, battle.ErrBattleAlreadyCompleted),
		errors.Is(err, battle.ErrInvalidBattleResult):
		WriteHTTPError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, battle.ErrPlayerNotInBattle),
		errors.Is(err, battle.ErrBeastNotOwned):
		WriteHTTPError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, battle.ErrRoomNotFound),
		errors.Is(err, battle.ErrBattleNotFound),
		errors.Is(err, battle.ErrBeastNotFound),
		errors.Is(err, battle.ErrPlayerNotFound):
		WriteHTTPError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, battle.ErrRoomAlreadyJoined):
		WriteHTTPError(w, http.StatusConflict, err.Error())
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
