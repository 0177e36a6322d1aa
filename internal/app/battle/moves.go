package battle

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/app/reward"
	"beast-arena/internal/notify"
	"beast-arena/internal/store"
)

// AppendMoveRequest is one executed move as reported by the attacking
// client. Damage and remaining HP are client-computed and recorded as
// submitted.
type AppendMoveRequest struct {
	BattleID          string `json:"battle_id"`
	PlayerID          string `json:"player_id"`
	MoveID            string `json:"move_id"`
	TurnNumber        int    `json:"turn_number"`
	DamageDealt       int    `json:"damage_dealt"`
	TargetHPRemaining int    `json:"target_hp_remaining"`
}

type AppendMoveResult struct {
	Move         *store.Move   `json:"move"`
	BattleEnded  bool          `json:"battle_ended"`
	Battle       *store.Battle `json:"battle,omitempty"`
	RewardAmount int64         `json:"reward_amount,omitempty"`
	RewardStatus string        `json:"reward_status,omitempty"`
}

// AppendMove writes one ledger entry and, when the target's HP hit
// zero, completes the battle and kicks off the winner's reward.
func (s *Service) AppendMove(ctx context.Context, req AppendMoveRequest) (*AppendMoveResult, error) {
	if req.BattleID == "" || req.PlayerID == "" || req.MoveID == "" {
		return nil, ErrMissingFields
	}
	if req.TurnNumber < 1 || req.DamageDealt < 0 || req.TargetHPRemaining < 0 {
		return nil, ErrMissingFields
	}

	b, err := s.store.GetBattle(ctx, req.BattleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	if _, err := sideOf(b, req.PlayerID); err != nil {
		return nil, err
	}

	m := &store.Move{
		BattleID:          req.BattleID,
		PlayerID:          req.PlayerID,
		MoveID:            req.MoveID,
		TurnNumber:        req.TurnNumber,
		DamageDealt:       req.DamageDealt,
		TargetHPRemaining: req.TargetHPRemaining,
	}
	if err := s.store.AppendMove(ctx, m); err != nil {
		return nil, err
	}
	s.publish(ctx, notify.EventMoveAppended, b, m)

	res := &AppendMoveResult{Move: m}
	if req.TargetHPRemaining > 0 {
		return res, nil
	}

	// Target HP floored: the mover wins. Completion commits first and
	// is never rolled back, whatever the reward transfer does.
	amount := reward.Calculate("player")
	completed, err := s.store.UpdateBattleIf(ctx, req.BattleID, store.BattlePatch{
		Status:       store.StrPtr(store.StatusCompleted),
		WinnerID:     &req.PlayerID,
		RewardAmount: store.Int64Ptr(amount),
		RewardStatus: store.StrPtr(store.RewardPending),
	}, store.BattlePred{
		Status: store.StrPtr(store.StatusInProgress),
	})
	if err != nil {
		if errors.Is(err, store.ErrPredicateFailed) {
			// Either a concurrent finisher completed first, or the
			// battle never went in_progress (PVE ledgers complete
			// through CompletePVE). Never pay out from here.
			cur, gerr := s.store.GetBattle(ctx, req.BattleID)
			if gerr == nil {
				res.Battle = cur
				res.BattleEnded = cur.Status == store.StatusCompleted
			}
			return res, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}

	res.BattleEnded = true
	res.RewardAmount = amount
	res.Battle = s.settleReward(ctx, completed, req.PlayerID, amount)
	res.RewardStatus = res.Battle.RewardStatus
	s.publish(ctx, notify.EventBattleUpdated, res.Battle, nil)
	return res, nil
}

// settleReward runs the transfer and records its outcome. Failures only
// ever touch reward_status.
func (s *Service) settleReward(ctx context.Context, b *store.Battle, winnerID string, amount int64) *store.Battle {
	status := s.rewards.Apply(ctx, b.ID, winnerID, amount)
	updated, err := s.store.UpdateBattleIf(ctx, b.ID, store.BattlePatch{
		RewardStatus: store.StrPtr(status),
	}, store.BattlePred{})
	if err != nil {
		log.Error().Err(err).Str("battle_id", b.ID).Str("reward_status", status).Msg("record reward status failed")
		return b
	}
	return updated
}

// CompletePVE records the outcome of a single-player battle against an
// AI enemy. The winner must be consistent with the reported final HP
// values.
func (s *Service) CompletePVE(ctx context.Context, battleID, winner string, finalPlayerHP, finalEnemyHP int) (*store.Battle, error) {
	if battleID == "" || winner == "" {
		return nil, ErrMissingFields
	}
	if winner != "player" && winner != "enemy" {
		return nil, ErrInvalidWinnerValue
	}
	b, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	if b.Status == store.StatusCompleted {
		return nil, ErrBattleAlreadyCompleted
	}
	if finalPlayerHP < 0 || finalEnemyHP < 0 {
		return nil, ErrInvalidBattleResult
	}
	if winner == "player" && (finalEnemyHP != 0 || finalPlayerHP == 0) {
		return nil, ErrInvalidBattleResult
	}
	if winner == "enemy" && (finalPlayerHP != 0 || finalEnemyHP == 0) {
		return nil, ErrInvalidBattleResult
	}

	amount := reward.Calculate(winner)
	patch := store.BattlePatch{
		Status:       store.StrPtr(store.StatusCompleted),
		RewardAmount: store.Int64Ptr(amount),
	}
	if winner == "player" {
		patch.WinnerID = &b.Player1ID
		patch.RewardStatus = store.StrPtr(store.RewardPending)
	} else {
		patch.RewardStatus = store.StrPtr(store.RewardNone)
	}
	completed, err := s.store.UpdateBattleIf(ctx, battleID, patch, store.BattlePred{
		StatusNot: store.StrPtr(store.StatusCompleted),
	})
	if err != nil {
		if errors.Is(err, store.ErrPredicateFailed) {
			return nil, ErrBattleAlreadyCompleted
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}

	if amount > 0 {
		completed = s.settleReward(ctx, completed, b.Player1ID, amount)
	}
	s.publish(ctx, notify.EventBattleUpdated, completed, nil)
	return completed, nil
}
