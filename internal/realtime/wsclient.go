package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"beast-arena/internal/notify"
)

// WSSubscriber receives push events over the server's websocket feed.
// Only per-battle streams exist on that feed; waiting-list watchers
// fall back to polling.
type WSSubscriber struct {
	BaseURL string
	Dialer  *websocket.Dialer
}

var ErrNoWaitingStream = errors.New("waiting list stream not available over websocket")

func NewWSSubscriber(baseURL string) *WSSubscriber {
	return &WSSubscriber{BaseURL: baseURL, Dialer: websocket.DefaultDialer}
}

func (s *WSSubscriber) SubscribeBattle(ctx context.Context, battleID string) (notify.Subscription, error) {
	conn, resp, err := s.Dialer.DialContext(ctx, s.BaseURL+"/ws/battles/"+battleID, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	sub := &wsSub{conn: conn, ch: make(chan notify.Event, 32)}
	go sub.pump()
	return sub, nil
}

func (s *WSSubscriber) SubscribeWaiting(context.Context) (notify.Subscription, error) {
	return nil, ErrNoWaitingStream
}

type wsSub struct {
	conn      *websocket.Conn
	ch        chan notify.Event
	closeOnce sync.Once
}

func (s *wsSub) pump() {
	defer close(s.ch)
	for {
		var ev notify.Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			return
		}
		if ev.SchemaVer != notify.SchemaVersion || ev.Type == "" {
			log.Warn().Int("schema", ev.SchemaVer).Msg("dropping malformed ws frame")
			continue
		}
		select {
		case s.ch <- ev:
		default:
			log.Warn().Str("type", ev.Type).Msg("dropping ws event, consumer behind")
		}
	}
}

func (s *wsSub) Events() <-chan notify.Event { return s.ch }

func (s *wsSub) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}
