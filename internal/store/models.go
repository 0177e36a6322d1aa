package store

import "time"

// Battle statuses. Monotonic waiting -> in_progress -> completed;
// cancelled is reachable only from waiting and deletes the row.
const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Reward statuses.
const (
	RewardNone      = "none"
	RewardPending   = "pending"
	RewardCompleted = "completed"
	RewardFailed    = "failed"
)

type Battle struct {
	ID           string    `json:"id"`
	RoomCode     *string   `json:"room_code,omitempty"`
	Player1ID    string    `json:"player1_id"`
	Player2ID    *string   `json:"player2_id,omitempty"`
	Beast1ID     *string   `json:"beast1_id,omitempty"`
	Beast2ID     *string   `json:"beast2_id,omitempty"`
	Beast1Locked bool      `json:"beast1_locked"`
	Beast2Locked bool      `json:"beast2_locked"`
	Status       string    `json:"status"`
	CurrentTurn  *string   `json:"current_turn,omitempty"`
	WinnerID     *string   `json:"winner_id,omitempty"`
	RewardAmount int64     `json:"reward_amount"`
	RewardStatus string    `json:"reward_status"`
	CreatedAt    time.Time `json:"created_at"`
}

type Move struct {
	ID                string    `json:"id"`
	BattleID          string    `json:"battle_id"`
	PlayerID          string    `json:"player_id"`
	MoveID            string    `json:"move_id"`
	TurnNumber        int       `json:"turn_number"`
	DamageDealt       int       `json:"damage_dealt"`
	TargetHPRemaining int       `json:"target_hp_remaining"`
	CreatedAt         time.Time `json:"created_at"`
}

type Beast struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OwnerID      string `json:"owner_id"`
	OwnerAddress string `json:"owner_address"`
	HP           int    `json:"hp"`
	Attack       int    `json:"attack"`
	Defense      int    `json:"defense"`
	Speed        int    `json:"speed"`
}

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address"`
}

type MoveDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Power int    `json:"power"`
}

// BattlePatch is the set of columns a conditional update may write.
// Nil fields are left untouched.
type BattlePatch struct {
	Player2ID    *string
	Beast1ID     *string
	Beast2ID     *string
	Beast1Locked *bool
	Beast2Locked *bool
	Status       *string
	CurrentTurn  *string
	WinnerID     *string
	RewardAmount *int64
	RewardStatus *string
}

// BattlePred is the predicate a conditional update is gated on. All set
// fields must hold against the stored row at the instant the write
// applies; this is the protocol's only concurrency primitive.
type BattlePred struct {
	Status        *string
	StatusNot     *string
	Player2Absent bool
	Beast1Locked  *bool
	Beast2Locked  *bool
}

func StrPtr(s string) *string { return &s }
func BoolPtr(b bool) *bool    { return &b }
func Int64Ptr(n int64) *int64 { return &n }
