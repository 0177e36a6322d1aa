package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appbattle "beast-arena/internal/app/battle"
	"beast-arena/internal/notify"

	"github.com/go-chi/chi/v5"
)

var pingInterval = 15 * time.Second

// StreamEvent is one SSE frame.
type StreamEvent struct {
	Event    string `json:"event"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data,omitempty"`
}

func WriteSSE(w http.ResponseWriter, ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// BattleEventsHandler streams one battle's change notifications. The
// stream carries whole battle snapshots and ledger entries; clients
// still poll as a safety net.
func BattleEventsHandler(svc *appbattle.Service, subs notify.Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		battleID := chi.URLParam(r, "battle_id")
		if _, err := svc.Get(r.Context(), battleID); err != nil {
			writeServiceError(w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		sub, err := subs.SubscribeBattle(r.Context(), battleID)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "subscribe_failed")
			return
		}
		defer sub.Close()

		setSSEHeaders(w)
		flusher.Flush()
		streamEvents(w, r, flusher, sub)
	}
}

// WaitingEventsHandler streams waiting-room list change signals.
func WaitingEventsHandler(subs notify.Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		sub, err := subs.SubscribeWaiting(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "subscribe_failed")
			return
		}
		defer sub.Close()

		setSSEHeaders(w)
		flusher.Flush()
		streamEvents(w, r, flusher, sub)
	}
}

func streamEvents(w http.ResponseWriter, r *http.Request, flusher http.Flusher, sub notify.Subscription) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := WriteSSE(w, StreamEvent{Event: ev.Type, ServerTS: ev.ServerTS, Data: ev}); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			ping := StreamEvent{Event: "ping", ServerTS: time.Now().UnixMilli()}
			if err := WriteSSE(w, ping); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
