package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/notify"
	"beast-arena/internal/store"
)

// LobbySync keeps the waiting-room list current. Any change signal
// triggers a wholesale refetch of the list; the notifications carry no
// delta the client has to merge.
type LobbySync struct {
	fetch     Fetcher
	subs      notify.Subscriber
	pollEvery time.Duration

	lists chan []store.Battle

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	sub      notify.Subscription
}

func NewLobbySync(fetch Fetcher, subs notify.Subscriber) *LobbySync {
	return &LobbySync{
		fetch:     fetch,
		subs:      subs,
		pollEvery: DefaultPollInterval,
		lists:     make(chan []store.Battle, 8),
	}
}

// Lists is the stream of waiting-room snapshots. It closes after Stop.
func (s *LobbySync) Lists() <-chan []store.Battle { return s.lists }

func (s *LobbySync) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if err := s.refresh(s.ctx); err != nil {
		s.cancel()
		return err
	}
	sub, err := s.subs.SubscribeWaiting(s.ctx)
	if err != nil {
		// Push is an accelerator here; the poll alone stays correct.
		log.Warn().Err(err).Msg("lobby push subscribe failed, polling only")
	} else {
		s.sub = sub
	}
	s.wg.Add(1)
	go s.run()
	return nil
}

func (s *LobbySync) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.sub != nil {
			s.sub.Close()
		}
		s.wg.Wait()
		close(s.lists)
	})
}

func (s *LobbySync) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	var events <-chan notify.Event
	if s.sub != nil {
		events = s.sub.Events()
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.pollOnce()
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

func (s *LobbySync) pollOnce() {
	if err := s.refresh(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Msg("waiting list refresh failed")
	}
}

func (s *LobbySync) refresh(ctx context.Context) error {
	list, err := s.fetch.WaitingBattles(ctx)
	if err != nil {
		return err
	}
	select {
	case s.lists <- list:
	default:
		log.Debug().Int("rooms", len(list)).Msg("waiting list snapshot dropped, consumer lagging")
	}
	return nil
}
