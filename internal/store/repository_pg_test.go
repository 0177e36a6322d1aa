package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"beast-arena/internal/store"
	"beast-arena/internal/testutil"
)

func TestBattleRoundTripPostgres(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	b := &store.Battle{
		RoomCode:  store.StrPtr("KWXM42"),
		Player1ID: "alice",
		Status:    store.StatusWaiting,
	}
	if err := st.CreateBattle(ctx, b); err != nil {
		t.Fatalf("CreateBattle: %v", err)
	}
	if b.ID == "" {
		t.Fatal("CreateBattle did not assign an id")
	}

	got, err := st.GetBattle(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBattle: %v", err)
	}
	if got.Player1ID != "alice" || got.Status != store.StatusWaiting || got.RewardStatus != store.RewardNone {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	byCode, err := st.FindWaitingByCode(ctx, "KWXM42")
	if err != nil || byCode.ID != b.ID {
		t.Fatalf("FindWaitingByCode: %v, got %+v", err, byCode)
	}
	exists, err := st.ExistsWaitingCode(ctx, "KWXM42")
	if err != nil || !exists {
		t.Fatalf("ExistsWaitingCode = %v, %v", exists, err)
	}
}

func TestConditionalUpdatePostgres(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	b := &store.Battle{RoomCode: store.StrPtr("AAAA22"), Player1ID: "alice", Status: store.StatusWaiting}
	if err := st.CreateBattle(ctx, b); err != nil {
		t.Fatalf("CreateBattle: %v", err)
	}

	joined, err := st.UpdateBattleIf(ctx, b.ID, store.BattlePatch{
		Player2ID: store.StrPtr("bob"),
	}, store.BattlePred{Status: store.StrPtr(store.StatusWaiting), Player2Absent: true})
	if err != nil {
		t.Fatalf("first conditional update: %v", err)
	}
	if joined.Player2ID == nil || *joined.Player2ID != "bob" {
		t.Fatalf("player2_id = %v, want bob", joined.Player2ID)
	}

	// Same predicate again: the seat is taken now.
	_, err = st.UpdateBattleIf(ctx, b.ID, store.BattlePatch{
		Player2ID: store.StrPtr("carol"),
	}, store.BattlePred{Status: store.StrPtr(store.StatusWaiting), Player2Absent: true})
	if !errors.Is(err, store.ErrPredicateFailed) {
		t.Fatalf("second conditional update err = %v, want ErrPredicateFailed", err)
	}

	_, err = st.UpdateBattleIf(ctx, "no-such-battle", store.BattlePatch{
		Player2ID: store.StrPtr("carol"),
	}, store.BattlePred{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing battle err = %v, want ErrNotFound", err)
	}
}

func TestMovesLedgerPostgres(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	b := &store.Battle{Player1ID: "alice", Status: store.StatusInProgress}
	if err := st.CreateBattle(ctx, b); err != nil {
		t.Fatalf("CreateBattle: %v", err)
	}
	for turn := 1; turn <= 3; turn++ {
		if err := st.AppendMove(ctx, &store.Move{
			BattleID: b.ID, PlayerID: "alice", MoveID: "tackle",
			TurnNumber: turn, DamageDealt: 10, TargetHPRemaining: 100 - 10*turn,
		}); err != nil {
			t.Fatalf("AppendMove turn %d: %v", turn, err)
		}
	}

	moves, err := st.ListMoves(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListMoves: %v", err)
	}
	if len(moves) != 3 {
		t.Fatalf("ledger has %d entries, want 3", len(moves))
	}
	for i, m := range moves {
		if m.TurnNumber != i+1 {
			t.Fatalf("ledger out of order: %+v", moves)
		}
	}

	if err := st.DeleteBattle(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBattle: %v", err)
	}
	moves, err = st.ListMoves(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListMoves after delete: %v", err)
	}
	if len(moves) != 0 {
		t.Fatalf("moves survived battle deletion: %v", moves)
	}
}

func TestDeleteStaleWaitingPostgres(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	stale := &store.Battle{RoomCode: store.StrPtr("BBBB33"), Player1ID: "alice", Status: store.StatusWaiting, CreatedAt: time.Now().Add(-time.Hour)}
	fresh := &store.Battle{RoomCode: store.StrPtr("CCCC44"), Player1ID: "bob", Status: store.StatusWaiting}
	for _, b := range []*store.Battle{stale, fresh} {
		if err := st.CreateBattle(ctx, b); err != nil {
			t.Fatalf("CreateBattle: %v", err)
		}
	}

	ids, err := st.DeleteStaleWaiting(ctx, time.Now().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("DeleteStaleWaiting: %v", err)
	}
	if len(ids) != 1 || ids[0] != stale.ID {
		t.Fatalf("swept %v, want only %s", ids, stale.ID)
	}
	if _, err := st.GetBattle(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh battle swept: %v", err)
	}
}

func TestCatalogPostgres(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := st.CreateUser(ctx, &store.User{ID: "alice", Username: "alice", WalletAddress: "0xaaa"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := st.CreateBeast(ctx, &store.Beast{ID: "emberfox", Name: "Emberfox", OwnerID: "alice", OwnerAddress: "0xaaa", HP: 100, Attack: 50, Defense: 40, Speed: 70}); err != nil {
		t.Fatalf("CreateBeast: %v", err)
	}

	beast, err := st.GetBeast(ctx, "emberfox")
	if err != nil || beast.Speed != 70 {
		t.Fatalf("GetBeast: %v, %+v", err, beast)
	}
	def, err := st.GetMoveDef(ctx, "fireball")
	if err != nil || def.Power != 70 {
		t.Fatalf("GetMoveDef: %v, %+v", err, def)
	}
	if _, err := st.GetUser(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetUser missing err = %v, want ErrNotFound", err)
	}
}
