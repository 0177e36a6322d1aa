package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const battleCols = "id, room_code, player1_id, player2_id, beast1_id, beast2_id, beast1_locked, beast2_locked, status, current_turn, winner_id, reward_amount, reward_status, created_at"

func scanBattle(row pgx.Row) (*Battle, error) {
	var b Battle
	err := row.Scan(&b.ID, &b.RoomCode, &b.Player1ID, &b.Player2ID, &b.Beast1ID, &b.Beast2ID,
		&b.Beast1Locked, &b.Beast2Locked, &b.Status, &b.CurrentTurn, &b.WinnerID,
		&b.RewardAmount, &b.RewardStatus, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) CreateBattle(ctx context.Context, b *Battle) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Status == "" {
		b.Status = StatusWaiting
	}
	if b.RewardStatus == "" {
		b.RewardStatus = RewardNone
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO battles (`+battleCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		b.ID, b.RoomCode, b.Player1ID, b.Player2ID, b.Beast1ID, b.Beast2ID,
		b.Beast1Locked, b.Beast2Locked, b.Status, b.CurrentTurn, b.WinnerID,
		b.RewardAmount, b.RewardStatus, b.CreatedAt)
	return err
}

func (s *Store) GetBattle(ctx context.Context, id string) (*Battle, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+battleCols+` FROM battles WHERE id = $1`, id)
	b, err := scanBattle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// FindWaitingByCode resolves a room code to its waiting battle. Codes
// are only unique among waiting rooms, so the status filter is part of
// the lookup, not an optimization.
func (s *Store) FindWaitingByCode(ctx context.Context, code string) (*Battle, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+battleCols+` FROM battles WHERE room_code = $1 AND status = $2`, code, StatusWaiting)
	b, err := scanBattle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Store) ExistsWaitingCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM battles WHERE room_code = $1 AND status = $2)`, code, StatusWaiting).Scan(&exists)
	return exists, err
}

func (s *Store) ListWaitingBattles(ctx context.Context) ([]Battle, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+battleCols+` FROM battles WHERE status = $1 ORDER BY created_at DESC`, StatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Battle, 0, 16)
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateBattleIf applies patch only if every set field of pred holds
// against the stored row at write time. The single UPDATE makes the
// predicate check and the write atomic against concurrent callers.
func (s *Store) UpdateBattleIf(ctx context.Context, id string, patch BattlePatch, pred BattlePred) (*Battle, error) {
	sets := make([]string, 0, 8)
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Player2ID != nil {
		set("player2_id", *patch.Player2ID)
	}
	if patch.Beast1ID != nil {
		set("beast1_id", *patch.Beast1ID)
	}
	if patch.Beast2ID != nil {
		set("beast2_id", *patch.Beast2ID)
	}
	if patch.Beast1Locked != nil {
		set("beast1_locked", *patch.Beast1Locked)
	}
	if patch.Beast2Locked != nil {
		set("beast2_locked", *patch.Beast2Locked)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.CurrentTurn != nil {
		set("current_turn", *patch.CurrentTurn)
	}
	if patch.WinnerID != nil {
		set("winner_id", *patch.WinnerID)
	}
	if patch.RewardAmount != nil {
		set("reward_amount", *patch.RewardAmount)
	}
	if patch.RewardStatus != nil {
		set("reward_status", *patch.RewardStatus)
	}
	if len(sets) == 0 {
		return nil, errors.New("empty patch")
	}

	where := []string{"id = $1"}
	cond := func(expr string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(expr, len(args)))
	}
	if pred.Status != nil {
		cond("status = $%d", *pred.Status)
	}
	if pred.StatusNot != nil {
		cond("status <> $%d", *pred.StatusNot)
	}
	if pred.Player2Absent {
		where = append(where, "player2_id IS NULL")
	}
	if pred.Beast1Locked != nil {
		cond("beast1_locked = $%d", *pred.Beast1Locked)
	}
	if pred.Beast2Locked != nil {
		cond("beast2_locked = $%d", *pred.Beast2Locked)
	}

	q := "UPDATE battles SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(where, " AND ") + " RETURNING " + battleCols
	row := s.Pool.QueryRow(ctx, q, args...)
	b, err := scanBattle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := s.GetBattle(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, ErrPredicateFailed
	}
	return b, err
}

func (s *Store) DeleteBattle(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM battles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStaleWaiting removes waiting battles created before cutoff and
// returns their ids so the caller can fan out deletion notices.
func (s *Store) DeleteStaleWaiting(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `DELETE FROM battles WHERE status = $1 AND created_at < $2 RETURNING id`, StatusWaiting, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
