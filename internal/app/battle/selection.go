package battle

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/notify"
	"beast-arena/internal/store"
)

// SelectBeast locks one side's beast choice. Locking is one-shot and
// irreversible; when the write locks the second side it also starts the
// battle and assigns the first turn. The cross-side condition is part
// of the conditional write's predicate, so the 2-of-2 barrier is
// decided by the store, not by what this process read a moment ago.
func (s *Service) SelectBeast(ctx context.Context, battleID, playerID, beastID string) (*store.Battle, error) {
	if battleID == "" || playerID == "" || beastID == "" {
		return nil, ErrMissingFields
	}

	b, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}

	mySide, err := sideOf(b, playerID)
	if err != nil {
		return nil, err
	}
	if b.Status == store.StatusCompleted {
		return nil, ErrBattleCompleted
	}
	if lockedOn(b, mySide) {
		return nil, ErrBeastAlreadyLocked
	}

	user, err := s.store.GetUser(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	beast, err := s.store.GetBeast(ctx, beastID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBeastNotFound
		}
		return nil, err
	}
	if beast.OwnerAddress != user.WalletAddress {
		return nil, ErrBeastNotOwned
	}

	// The other side's lock flag is monotonic, so a failed predicate
	// can only mean it flipped under us; one re-read settles it.
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := s.tryLock(ctx, b, mySide, playerID, beast)
		if err == nil {
			log.Info().Str("battle_id", battleID).Str("player_id", playerID).Str("beast_id", beastID).
				Bool("battle_started", updated.Status == store.StatusInProgress).
				Msg("beast locked")
			s.publish(ctx, notify.EventBattleUpdated, updated, nil)
			return updated, nil
		}
		if !errors.Is(err, store.ErrPredicateFailed) {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrBattleNotFound
			}
			return nil, err
		}
		b, err = s.store.GetBattle(ctx, battleID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrBattleNotFound
			}
			return nil, err
		}
		if b.Status == store.StatusCompleted {
			return nil, ErrBattleCompleted
		}
		if lockedOn(b, mySide) {
			return nil, ErrBeastAlreadyLocked
		}
	}
	return nil, ErrBeastAlreadyLocked
}

// tryLock issues one conditional write for the state observed in b.
func (s *Service) tryLock(ctx context.Context, b *store.Battle, mySide int, playerID string, beast *store.Beast) (*store.Battle, error) {
	otherLocked := lockedOn(b, otherSide(mySide))

	patch := store.BattlePatch{}
	pred := store.BattlePred{Status: store.StrPtr(store.StatusWaiting)}
	if mySide == 1 {
		patch.Beast1ID = &beast.ID
		patch.Beast1Locked = store.BoolPtr(true)
		pred.Beast1Locked = store.BoolPtr(false)
		pred.Beast2Locked = store.BoolPtr(otherLocked)
	} else {
		patch.Beast2ID = &beast.ID
		patch.Beast2Locked = store.BoolPtr(true)
		pred.Beast2Locked = store.BoolPtr(false)
		pred.Beast1Locked = store.BoolPtr(otherLocked)
	}

	if otherLocked {
		otherBeastID := b.Beast1ID
		if mySide == 1 {
			otherBeastID = b.Beast2ID
		}
		if otherBeastID == nil {
			return nil, ErrBeastNotFound
		}
		otherBeast, err := s.store.GetBeast(ctx, *otherBeastID)
		if err != nil {
			return nil, err
		}
		var turn string
		if mySide == 1 {
			turn = s.resolveFirstTurn(b.Player1ID, *b.Player2ID, beast.Speed, otherBeast.Speed)
		} else {
			turn = s.resolveFirstTurn(b.Player1ID, playerID, otherBeast.Speed, beast.Speed)
		}
		patch.Status = store.StrPtr(store.StatusInProgress)
		patch.CurrentTurn = &turn
	}

	return s.store.UpdateBattleIf(ctx, b.ID, patch, pred)
}

func sideOf(b *store.Battle, playerID string) (int, error) {
	switch {
	case b.Player1ID == playerID:
		return 1, nil
	case b.Player2ID != nil && *b.Player2ID == playerID:
		return 2, nil
	}
	return 0, ErrPlayerNotInBattle
}

func otherSide(side int) int {
	if side == 1 {
		return 2
	}
	return 1
}

func lockedOn(b *store.Battle, side int) bool {
	if side == 1 {
		return b.Beast1Locked
	}
	return b.Beast2Locked
}
