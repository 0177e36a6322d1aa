package battle

import (
	"context"
	"time"

	"beast-arena/internal/store"
)

// Store is the persistent-room-store contract the protocol runs on.
// UpdateBattleIf is the sole concurrency primitive: every contested
// transition (join, lock, complete) goes through it, and nothing in
// this package does read-modify-write against the store.
type Store interface {
	CreateBattle(ctx context.Context, b *store.Battle) error
	GetBattle(ctx context.Context, id string) (*store.Battle, error)
	FindWaitingByCode(ctx context.Context, code string) (*store.Battle, error)
	ExistsWaitingCode(ctx context.Context, code string) (bool, error)
	ListWaitingBattles(ctx context.Context) ([]store.Battle, error)
	UpdateBattleIf(ctx context.Context, id string, patch store.BattlePatch, pred store.BattlePred) (*store.Battle, error)
	DeleteBattle(ctx context.Context, id string) error
	DeleteStaleWaiting(ctx context.Context, cutoff time.Time) ([]string, error)

	AppendMove(ctx context.Context, m *store.Move) error
	ListMoves(ctx context.Context, battleID string) ([]store.Move, error)

	GetBeast(ctx context.Context, id string) (*store.Beast, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	GetMoveDef(ctx context.Context, id string) (*store.MoveDef, error)
}
