package ws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	appbattle "beast-arena/internal/app/battle"
	"beast-arena/internal/notify"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 15 * time.Second
	sendBuffer   = 16
)

// Gateway pushes battle change notifications over websockets. It is a
// one-way feed; clients act through the REST API and use this stream
// plus polling to stay current.
type Gateway struct {
	svc      *appbattle.Service
	subs     notify.Subscriber
	upgrader websocket.Upgrader
}

func NewGateway(svc *appbattle.Service, subs notify.Subscriber) *Gateway {
	return &Gateway{
		svc:      svc,
		subs:     subs,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// HandleBattle upgrades the connection and relays one battle's events
// until the client hangs up or the battle stream closes.
func (g *Gateway) HandleBattle(w http.ResponseWriter, r *http.Request) {
	battleID := chi.URLParam(r, "battle_id")
	if _, err := g.svc.Get(r.Context(), battleID); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sub, err := g.subs.SubscribeBattle(r.Context(), battleID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		return
	}
	log.Debug().Str("battle_id", battleID).Str("remote", r.RemoteAddr).Msg("ws client attached")

	go g.readLoop(conn, sub)
	g.writeLoop(conn, sub)
}

// readLoop drains inbound frames so pings and close frames are
// processed, then tears the subscription down on disconnect.
func (g *Gateway) readLoop(conn *websocket.Conn, sub notify.Subscription) {
	defer sub.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) writeLoop(conn *websocket.Conn, sub notify.Subscription) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
