package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/notify"
)

// Store is the slice of the battle store the sweeper needs.
type Store interface {
	DeleteStaleWaiting(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Sweeper reaps waiting rooms whose host never got an opponent. Rooms
// that progressed past waiting are never touched.
type Sweeper struct {
	store    Store
	pub      notify.Publisher
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func New(store Store, pub notify.Publisher, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		pub:      pub,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Info().Dur("interval", s.interval).Dur("max_age", s.maxAge).Msg("stale room sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stale room sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes every expired waiting room and announces each
// deletion so list watchers refresh.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.maxAge)
	ids, err := s.store.DeleteStaleWaiting(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("stale room sweep failed")
		return 0
	}
	if len(ids) == 0 {
		return 0
	}
	for _, id := range ids {
		if s.pub == nil {
			continue
		}
		if err := s.pub.Publish(ctx, notify.NewEvent(notify.EventBattleDeleted, id)); err != nil {
			log.Warn().Err(err).Str("battle_id", id).Msg("publish swept room failed")
		}
	}
	log.Info().Int("swept", len(ids)).Time("cutoff", cutoff).Msg("stale waiting rooms deleted")
	return len(ids)
}
