package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory mirrors the postgres store's semantics over an in-process map.
// Unit tests and handler tests use it for deterministic conditional
// update arbitration without a live database.
type Memory struct {
	mu       sync.Mutex
	battles  map[string]*Battle
	moves    map[string][]Move
	beasts   map[string]*Beast
	users    map[string]*User
	moveDefs map[string]*MoveDef
}

func NewMemory() *Memory {
	return &Memory{
		battles:  map[string]*Battle{},
		moves:    map[string][]Move{},
		beasts:   map[string]*Beast{},
		users:    map[string]*User{},
		moveDefs: map[string]*MoveDef{},
	}
}

func (m *Memory) CreateBattle(_ context.Context, b *Battle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	cp := *b
	m.battles[b.ID] = &cp
	return nil
}

func (m *Memory) GetBattle(_ context.Context, id string) (*Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) FindWaitingByCode(_ context.Context, code string) (*Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.battles {
		if b.Status == StatusWaiting && b.RoomCode != nil && *b.RoomCode == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ExistsWaitingCode(ctx context.Context, code string) (bool, error) {
	_, err := m.FindWaitingByCode(ctx, code)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *Memory) ListWaitingBattles(_ context.Context) ([]Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Battle, 0, len(m.battles))
	for _, b := range m.battles {
		if b.Status == StatusWaiting {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateBattleIf(_ context.Context, id string, patch BattlePatch, pred BattlePred) (*Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if pred.Status != nil && b.Status != *pred.Status {
		return nil, ErrPredicateFailed
	}
	if pred.StatusNot != nil && b.Status == *pred.StatusNot {
		return nil, ErrPredicateFailed
	}
	if pred.Player2Absent && b.Player2ID != nil {
		return nil, ErrPredicateFailed
	}
	if pred.Beast1Locked != nil && b.Beast1Locked != *pred.Beast1Locked {
		return nil, ErrPredicateFailed
	}
	if pred.Beast2Locked != nil && b.Beast2Locked != *pred.Beast2Locked {
		return nil, ErrPredicateFailed
	}
	if patch.Player2ID != nil {
		v := *patch.Player2ID
		b.Player2ID = &v
	}
	if patch.Beast1ID != nil {
		v := *patch.Beast1ID
		b.Beast1ID = &v
	}
	if patch.Beast2ID != nil {
		v := *patch.Beast2ID
		b.Beast2ID = &v
	}
	if patch.Beast1Locked != nil {
		b.Beast1Locked = *patch.Beast1Locked
	}
	if patch.Beast2Locked != nil {
		b.Beast2Locked = *patch.Beast2Locked
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	if patch.CurrentTurn != nil {
		v := *patch.CurrentTurn
		b.CurrentTurn = &v
	}
	if patch.WinnerID != nil {
		v := *patch.WinnerID
		b.WinnerID = &v
	}
	if patch.RewardAmount != nil {
		b.RewardAmount = *patch.RewardAmount
	}
	if patch.RewardStatus != nil {
		b.RewardStatus = *patch.RewardStatus
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) DeleteBattle(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.battles[id]; !ok {
		return ErrNotFound
	}
	delete(m.battles, id)
	delete(m.moves, id)
	return nil
}

func (m *Memory) DeleteStaleWaiting(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, b := range m.battles {
		if b.Status == StatusWaiting && b.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(m.battles, id)
		delete(m.moves, id)
	}
	return ids, nil
}

func (m *Memory) AppendMove(_ context.Context, mv *Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv.ID == "" {
		mv.ID = NewID()
	}
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = time.Now().UTC()
	}
	m.moves[mv.BattleID] = append(m.moves[mv.BattleID], *mv)
	return nil
}

func (m *Memory) ListMoves(_ context.Context, battleID string) ([]Move, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.moves[battleID]
	out := make([]Move, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

func (m *Memory) GetBeast(_ context.Context, id string) (*Beast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetMoveDef(_ context.Context, id string) (*MoveDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.moveDefs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// Seed helpers for tests and local runs.

func (m *Memory) PutBeast(b Beast) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beasts[b.ID] = &b
}

func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

func (m *Memory) PutMoveDef(d MoveDef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveDefs[d.ID] = &d
}
