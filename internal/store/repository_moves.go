package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const moveCols = "id, battle_id, player_id, move_id, turn_number, damage_dealt, target_hp_remaining, created_at"

// AppendMove writes one immutable ledger entry. Moves are never
// updated or deleted except as a cascade of battle deletion.
func (s *Store) AppendMove(ctx context.Context, m *Move) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO moves (`+moveCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.BattleID, m.PlayerID, m.MoveID, m.TurnNumber, m.DamageDealt, m.TargetHPRemaining, m.CreatedAt)
	return err
}

func (s *Store) ListMoves(ctx context.Context, battleID string) ([]Move, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+moveCols+` FROM moves WHERE battle_id = $1 ORDER BY turn_number ASC, created_at ASC`, battleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Move, 0, 16)
	for rows.Next() {
		var m Move
		if err := rows.Scan(&m.ID, &m.BattleID, &m.PlayerID, &m.MoveID, &m.TurnNumber, &m.DamageDealt, &m.TargetHPRemaining, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMoveDef(ctx context.Context, id string) (*MoveDef, error) {
	var d MoveDef
	err := s.Pool.QueryRow(ctx, `SELECT id, name, power FROM move_defs WHERE id = $1`, id).Scan(&d.ID, &d.Name, &d.Power)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
