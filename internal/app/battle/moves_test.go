package battle

import (
	"context"
	"errors"
	"testing"

	"beast-arena/internal/app/reward"
	"beast-arena/internal/notify"
	"beast-arena/internal/store"
)

type stubTransferrer struct {
	err   error
	calls int
}

func (s *stubTransferrer) Transfer(context.Context, string, string, int64) error {
	s.calls++
	return s.err
}

func TestAppendMoveMidBattle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b := f.startBattle(t)

	res, err := f.svc.AppendMove(ctx, AppendMoveRequest{
		BattleID:          b.ID,
		PlayerID:          "bob",
		MoveID:            "fireball",
		TurnNumber:        1,
		DamageDealt:       34,
		TargetHPRemaining: 66,
	})
	if err != nil {
		t.Fatalf("AppendMove: %v", err)
	}
	if res.BattleEnded {
		t.Fatal("battle ended on a non-lethal move")
	}
	if res.Move.ID == "" {
		t.Fatal("move was not assigned an id")
	}

	got, err := f.svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != store.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", got.Status)
	}

	moves, err := f.svc.Moves(ctx, b.ID)
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	if len(moves) != 1 || moves[0].DamageDealt != 34 {
		t.Fatalf("ledger = %v, want the one appended move", moves)
	}
}

func TestAppendMoveFinishesBattle(t *testing.T) {
	transfers := &stubTransferrer{}
	f := newFixture(t, transfers)
	ctx := context.Background()
	b := f.startBattle(t)

	res, err := f.svc.AppendMove(ctx, AppendMoveRequest{
		BattleID:          b.ID,
		PlayerID:          "bob",
		MoveID:            "fireball",
		TurnNumber:        5,
		DamageDealt:       48,
		TargetHPRemaining: 0,
	})
	if err != nil {
		t.Fatalf("AppendMove: %v", err)
	}
	if !res.BattleEnded {
		t.Fatal("lethal move did not end the battle")
	}
	if res.RewardAmount != reward.WinAmount {
		t.Fatalf("reward amount = %d, want %d", res.RewardAmount, reward.WinAmount)
	}
	if res.RewardStatus != store.RewardCompleted {
		t.Fatalf("reward status = %q, want completed", res.RewardStatus)
	}
	if transfers.calls != 1 {
		t.Fatalf("transfer calls = %d, want 1", transfers.calls)
	}

	got := res.Battle
	if got.Status != store.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.WinnerID == nil || *got.WinnerID != "bob" {
		t.Fatalf("winner_id = %v, want bob", got.WinnerID)
	}
}

func TestAppendMoveAfterCompletionDoesNotRepay(t *testing.T) {
	transfers := &stubTransferrer{}
	f := newFixture(t, transfers)
	ctx := context.Background()
	b := f.startBattle(t)

	if _, err := f.svc.AppendMove(ctx, AppendMoveRequest{
		BattleID: b.ID, PlayerID: "bob", MoveID: "fireball",
		TurnNumber: 5, DamageDealt: 48, TargetHPRemaining: 0,
	}); err != nil {
		t.Fatalf("first lethal move: %v", err)
	}

	// A crossed-in-flight lethal move from the other side still lands in
	// the ledger but must not flip the winner or pay out again.
	res, err := f.svc.AppendMove(ctx, AppendMoveRequest{
		BattleID: b.ID, PlayerID: "alice", MoveID: "fireball",
		TurnNumber: 5, DamageDealt: 52, TargetHPRemaining: 0,
	})
	if err != nil {
		t.Fatalf("second lethal move: %v", err)
	}
	if !res.BattleEnded {
		t.Fatal("second lethal move should still report the battle ended")
	}
	if res.RewardAmount != 0 {
		t.Fatalf("second finisher got reward amount %d", res.RewardAmount)
	}
	if transfers.calls != 1 {
		t.Fatalf("transfer calls = %d, want 1", transfers.calls)
	}
	if res.Battle.WinnerID == nil || *res.Battle.WinnerID != "bob" {
		t.Fatalf("winner_id = %v, want bob unchanged", res.Battle.WinnerID)
	}
}

func TestAppendMoveRewardClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transfer ok", nil, store.RewardCompleted},
		{"service outage", &reward.TransferError{StatusCode: 502}, store.RewardPending},
		{"rejected", &reward.TransferError{StatusCode: 422}, store.RewardFailed},
		{"network down", errors.New("connection refused"), store.RewardPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &stubTransferrer{err: tt.err})
			b := f.startBattle(t)
			res, err := f.svc.AppendMove(context.Background(), AppendMoveRequest{
				BattleID: b.ID, PlayerID: "bob", MoveID: "fireball",
				TurnNumber: 3, DamageDealt: 60, TargetHPRemaining: 0,
			})
			if err != nil {
				t.Fatalf("AppendMove: %v", err)
			}
			if res.RewardStatus != tt.want {
				t.Fatalf("reward status = %q, want %q", res.RewardStatus, tt.want)
			}
			if res.Battle.Status != store.StatusCompleted {
				t.Fatalf("status = %q, completion must hold regardless of payout", res.Battle.Status)
			}
		})
	}
}

func TestAppendMoveValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b := f.startBattle(t)

	tests := []struct {
		name string
		req  AppendMoveRequest
		want error
	}{
		{"missing move id", AppendMoveRequest{BattleID: b.ID, PlayerID: "bob", TurnNumber: 1}, ErrMissingFields},
		{"zero turn", AppendMoveRequest{BattleID: b.ID, PlayerID: "bob", MoveID: "fireball"}, ErrMissingFields},
		{"negative hp", AppendMoveRequest{BattleID: b.ID, PlayerID: "bob", MoveID: "fireball", TurnNumber: 1, TargetHPRemaining: -2}, ErrMissingFields},
		{"unknown battle", AppendMoveRequest{BattleID: "nope", PlayerID: "bob", MoveID: "fireball", TurnNumber: 1}, ErrBattleNotFound},
		{"outsider", AppendMoveRequest{BattleID: b.ID, PlayerID: "carol", MoveID: "fireball", TurnNumber: 1}, ErrPlayerNotInBattle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.AppendMove(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompletePVEPlayerWin(t *testing.T) {
	transfers := &stubTransferrer{}
	f := newFixture(t, transfers)
	ctx := context.Background()
	b := &store.Battle{Player1ID: "alice", Status: store.StatusInProgress}
	if err := f.mem.CreateBattle(ctx, b); err != nil {
		t.Fatalf("CreateBattle: %v", err)
	}

	done, err := f.svc.CompletePVE(ctx, b.ID, "player", 37, 0)
	if err != nil {
		t.Fatalf("CompletePVE: %v", err)
	}
	if done.Status != store.StatusCompleted {
		t.Fatalf("status = %q, want completed", done.Status)
	}
	if done.WinnerID == nil || *done.WinnerID != "alice" {
		t.Fatalf("winner_id = %v, want alice", done.WinnerID)
	}
	if done.RewardAmount != reward.WinAmount || done.RewardStatus != store.RewardCompleted {
		t.Fatalf("reward = %d/%q, want %d/completed", done.RewardAmount, done.RewardStatus, reward.WinAmount)
	}
}

func TestCompletePVEEnemyWin(t *testing.T) {
	transfers := &stubTransferrer{}
	f := newFixture(t, transfers)
	ctx := context.Background()
	b := &store.Battle{Player1ID: "alice", Status: store.StatusInProgress}
	if err := f.mem.CreateBattle(ctx, b); err != nil {
		t.Fatalf("CreateBattle: %v", err)
	}

	done, err := f.svc.CompletePVE(ctx, b.ID, "enemy", 0, 61)
	if err != nil {
		t.Fatalf("CompletePVE: %v", err)
	}
	if done.WinnerID != nil {
		t.Fatalf("winner_id = %v on a loss, want nil", done.WinnerID)
	}
	if done.RewardAmount != 0 || done.RewardStatus != store.RewardNone {
		t.Fatalf("reward = %d/%q on a loss", done.RewardAmount, done.RewardStatus)
	}
	if transfers.calls != 0 {
		t.Fatalf("transfer calls = %d on a loss", transfers.calls)
	}
}

func TestCompletePVEValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b := &store.Battle{Player1ID: "alice", Status: store.StatusInProgress}
	if err := f.mem.CreateBattle(ctx, b); err != nil {
		t.Fatalf("CreateBattle: %v", err)
	}

	tests := []struct {
		name     string
		winner   string
		playerHP int
		enemyHP  int
		want     error
	}{
		{"bad winner value", "draw", 0, 0, ErrInvalidWinnerValue},
		{"player win with live enemy", "player", 30, 10, ErrInvalidBattleResult},
		{"player win while dead", "player", 0, 0, ErrInvalidBattleResult},
		{"enemy win with live player", "enemy", 5, 0, ErrInvalidBattleResult},
		{"negative hp", "player", -3, 0, ErrInvalidBattleResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CompletePVE(ctx, b.ID, tt.winner, tt.playerHP, tt.enemyHP); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.svc.CompletePVE(ctx, b.ID, "enemy", 0, 61); err != nil {
		t.Fatalf("CompletePVE: %v", err)
	}
	if _, err := f.svc.CompletePVE(ctx, b.ID, "enemy", 0, 61); !errors.Is(err, ErrBattleAlreadyCompleted) {
		t.Fatalf("repeat completion err = %v, want ErrBattleAlreadyCompleted", err)
	}
}

func TestMovePublishesLedgerEvent(t *testing.T) {
	f := newFixture(t, nil)
	b := f.startBattle(t)
	if _, err := f.svc.AppendMove(context.Background(), AppendMoveRequest{
		BattleID: b.ID, PlayerID: "bob", MoveID: "fireball",
		TurnNumber: 1, DamageDealt: 20, TargetHPRemaining: 80,
	}); err != nil {
		t.Fatalf("AppendMove: %v", err)
	}
	types := f.pub.types()
	last := types[len(types)-1]
	if last != notify.EventMoveAppended {
		t.Fatalf("last event = %q, want move_appended", last)
	}
}
