package battle

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/app/reward"
	"beast-arena/internal/notify"
	"beast-arena/internal/roomcode"
	"beast-arena/internal/store"
)

// Service is the room lifecycle controller. Each request is handled
// independently; cross-client coordination happens only through the
// store's conditional update.
type Service struct {
	store   Store
	codes   *roomcode.Generator
	pub     notify.Publisher
	rewards *reward.Service

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService wires the controller. rng drives turn-order tie breaks;
// pass nil for time-seeded randomness, or a fixed source in tests.
func NewService(st Store, codes *roomcode.Generator, pub notify.Publisher, rewards *reward.Service, rng *rand.Rand) *Service {
	if codes == nil {
		codes = roomcode.NewGenerator(nil)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{store: st, codes: codes, pub: pub, rewards: rewards, rng: rng}
}

// Create opens a waiting room with a fresh shareable code. beastID is
// the legacy upfront-selection path and may be empty.
func (s *Service) Create(ctx context.Context, playerID, beastID string) (*store.Battle, error) {
	if playerID == "" {
		return nil, ErrMissingFields
	}
	var beast1 *string
	if beastID != "" {
		if _, err := s.store.GetBeast(ctx, beastID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrBeastNotFound
			}
			return nil, err
		}
		beast1 = &beastID
	}

	code, err := s.codes.GenerateUnique(ctx, s.store.ExistsWaitingCode)
	if err != nil {
		if errors.Is(err, roomcode.ErrExhausted) {
			return nil, ErrRoomCodeExhausted
		}
		return nil, err
	}

	b := &store.Battle{
		RoomCode:  &code,
		Player1ID: playerID,
		Beast1ID:  beast1,
		Status:    store.StatusWaiting,
	}
	if err := s.store.CreateBattle(ctx, b); err != nil {
		return nil, err
	}
	log.Info().Str("battle_id", b.ID).Str("room_code", code).Str("player_id", playerID).Msg("battle room created")
	s.publish(ctx, notify.EventBattleCreated, b, nil)
	return b, nil
}

// Join arbitrates entry into a waiting room. Exactly one of two
// concurrent joiners succeeds; the loser sees ErrRoomAlreadyJoined.
func (s *Service) Join(ctx context.Context, code, playerID, beastID string) (*store.Battle, error) {
	if code == "" || playerID == "" {
		return nil, ErrMissingFields
	}
	if !roomcode.IsValid(code) {
		return nil, ErrInvalidCodeFormat
	}
	b, err := s.store.FindWaitingByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if b.Player1ID == playerID {
		return nil, ErrSelfJoin
	}
	if b.Status != store.StatusWaiting {
		return nil, ErrRoomUnavailable
	}

	patch := store.BattlePatch{Player2ID: &playerID}
	if beastID != "" {
		beast2, err := s.store.GetBeast(ctx, beastID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrBeastNotFound
			}
			return nil, err
		}
		if b.Beast1ID != nil {
			// Legacy path: both beasts known up front, so the battle
			// starts in the same write that admits the joiner. With an
			// unselected host the beast is only validated here and gets
			// locked later through the selection endpoint.
			beast1, err := s.store.GetBeast(ctx, *b.Beast1ID)
			if err != nil {
				return nil, err
			}
			turn := s.resolveFirstTurn(b.Player1ID, playerID, beast1.Speed, beast2.Speed)
			patch.Beast2ID = &beastID
			patch.Beast1Locked = store.BoolPtr(true)
			patch.Beast2Locked = store.BoolPtr(true)
			patch.Status = store.StrPtr(store.StatusInProgress)
			patch.CurrentTurn = &turn
		}
	}

	updated, err := s.store.UpdateBattleIf(ctx, b.ID, patch, store.BattlePred{
		Status:        store.StrPtr(store.StatusWaiting),
		Player2Absent: true,
	})
	if err != nil {
		if errors.Is(err, store.ErrPredicateFailed) {
			return nil, ErrRoomAlreadyJoined
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	log.Info().Str("battle_id", updated.ID).Str("player_id", playerID).Str("status", updated.Status).Msg("player joined battle")
	s.publish(ctx, notify.EventBattleUpdated, updated, nil)
	return updated, nil
}

// Cancel is a host-only hard delete of a still-waiting room.
func (s *Service) Cancel(ctx context.Context, battleID, playerID string) error {
	if battleID == "" || playerID == "" {
		return ErrMissingFields
	}
	b, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBattleNotFound
		}
		return err
	}
	if b.Player1ID != playerID {
		return ErrPlayerNotInBattle
	}
	if b.Status != store.StatusWaiting {
		return ErrRoomUnavailable
	}
	if err := s.store.DeleteBattle(ctx, battleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBattleNotFound
		}
		return err
	}
	log.Info().Str("battle_id", battleID).Msg("battle room cancelled")
	s.publish(ctx, notify.EventBattleDeleted, b, nil)
	return nil
}

func (s *Service) ListWaiting(ctx context.Context) ([]store.Battle, error) {
	return s.store.ListWaitingBattles(ctx)
}

func (s *Service) Get(ctx context.Context, battleID string) (*store.Battle, error) {
	b, err := s.store.GetBattle(ctx, battleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBattleNotFound
	}
	return b, err
}

func (s *Service) Beast(ctx context.Context, beastID string) (*store.Beast, error) {
	b, err := s.store.GetBeast(ctx, beastID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBeastNotFound
	}
	return b, err
}

func (s *Service) Moves(ctx context.Context, battleID string) ([]store.Move, error) {
	if _, err := s.Get(ctx, battleID); err != nil {
		return nil, err
	}
	return s.store.ListMoves(ctx, battleID)
}

func (s *Service) publish(ctx context.Context, typ string, b *store.Battle, m *store.Move) {
	if s.pub == nil {
		return
	}
	ev := notify.NewEvent(typ, b.ID)
	ev.Battle = b
	ev.Move = m
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("battle_id", b.ID).Str("type", typ).Msg("publish notification failed")
	}
}
