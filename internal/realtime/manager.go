package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/notify"
	"beast-arena/internal/store"
)

// DefaultPollInterval is the safety-net poll cadence that runs
// alongside push delivery the whole time, not only when push is down.
const DefaultPollInterval = 2 * time.Second

type UpdateKind string

const (
	// UpdateSnapshot carries the battle state after every refresh.
	UpdateSnapshot UpdateKind = "snapshot"
	// One-shot transition notices, each emitted at most once per sync.
	UpdateOpponentJoined   UpdateKind = "opponent_joined"
	UpdateOpponentSelected UpdateKind = "opponent_beast_selected"
	UpdateBattleStarted    UpdateKind = "battle_started"
	UpdateBattleCompleted  UpdateKind = "battle_completed"
	UpdateBattleGone       UpdateKind = "battle_gone"
	// UpdateMove is one new ledger entry with recomputed HP.
	UpdateMove UpdateKind = "move"
	// UpdateConnection reports push link state changes.
	UpdateConnection UpdateKind = "connection"
)

type Update struct {
	Kind       UpdateKind
	Battle     *store.Battle
	Move       *store.Move
	MyHP       int
	OpponentHP int
	ConnState  string
}

// RoomSync keeps one client's view of a battle current. Push events and
// a fixed-interval poll run concurrently; every inbound battle or move
// is folded through the same dedupe state, so whichever path delivers
// first wins and the other is a no-op.
type RoomSync struct {
	battleID  string
	playerID  string
	fetch     Fetcher
	subs      notify.Subscriber
	pollEvery time.Duration

	updates   chan Update
	evCh      chan notify.Event
	reconnect *ReconnectManager

	mu          sync.Mutex
	battle      *store.Battle
	myHP        int
	oppHP       int
	hpSeeded    bool
	seenMoves   map[string]bool
	myTurn      int
	oppTurn     int
	sawOpponent bool
	sawSelected bool
	sawStarted  bool
	sawDone     bool
	sawGone     bool
	sub         notify.Subscription

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewRoomSync(fetch Fetcher, subs notify.Subscriber, battleID, playerID string) *RoomSync {
	s := &RoomSync{
		battleID:  battleID,
		playerID:  playerID,
		fetch:     fetch,
		subs:      subs,
		pollEvery: DefaultPollInterval,
		updates:   make(chan Update, 32),
		evCh:      make(chan notify.Event, 32),
		seenMoves: make(map[string]bool),
	}
	s.reconnect = NewReconnectManager(s.dial, func(state string) {
		s.emit(Update{Kind: UpdateConnection, ConnState: state})
	})
	return s
}

// Updates is the stream the UI consumes. It closes after Stop.
func (s *RoomSync) Updates() <-chan Update { return s.updates }

func (s *RoomSync) ConnState() string { return s.reconnect.State() }

// Start seeds state with one authoritative fetch, opens the push
// subscription, and launches the sync loop.
func (s *RoomSync) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if err := s.refresh(s.ctx); err != nil {
		s.cancel()
		return err
	}
	s.dial()
	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop tears the sync down and closes the update stream.
func (s *RoomSync) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.reconnect.Cleanup()
		s.mu.Lock()
		sub := s.sub
		s.sub = nil
		s.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		s.wg.Wait()
		close(s.updates)
	})
}

func (s *RoomSync) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.evCh:
			s.handleEvent(ev)
		case <-ticker.C:
			if err := s.refresh(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Debug().Err(err).Str("battle_id", s.battleID).Msg("battle poll failed")
			}
		}
	}
}

// dial opens the push subscription. Called initially and by the
// reconnect timer.
func (s *RoomSync) dial() {
	if s.ctx.Err() != nil {
		return
	}
	sub, err := s.subs.SubscribeBattle(s.ctx, s.battleID)
	if err != nil {
		log.Warn().Err(err).Str("battle_id", s.battleID).Msg("push subscribe failed")
		s.reconnect.HandleDisconnect()
		return
	}
	s.mu.Lock()
	old := s.sub
	s.sub = sub
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.reconnect.HandleConnect()
	s.wg.Add(1)
	go s.pump(sub)
}

// pump forwards push events into the sync loop until the stream drops.
func (s *RoomSync) pump(sub notify.Subscription) {
	defer s.wg.Done()
	for ev := range sub.Events() {
		select {
		case s.evCh <- ev:
		case <-s.ctx.Done():
			return
		}
	}
	if s.ctx.Err() == nil {
		s.reconnect.HandleDisconnect()
	}
}

func (s *RoomSync) handleEvent(ev notify.Event) {
	switch ev.Type {
	case notify.EventBattleDeleted:
		s.markGone()
	case notify.EventMoveAppended:
		if ev.Move != nil {
			// Fast path: fold the pushed move straight in, no ledger
			// re-fetch. The seen-id check dedupes against the poll.
			s.applyMove(*ev.Move)
			return
		}
		if err := s.refresh(s.ctx); err != nil {
			log.Debug().Err(err).Str("battle_id", s.battleID).Msg("refresh after move event failed")
		}
	case notify.EventBattleCreated, notify.EventBattleUpdated:
		if ev.Battle != nil {
			s.apply(ev.Battle)
		}
	}
}

// refresh pulls the authoritative battle and ledger and folds them in.
func (s *RoomSync) refresh(ctx context.Context) error {
	b, err := s.fetch.Battle(ctx, s.battleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.markGone()
			return nil
		}
		return err
	}
	s.apply(b)

	moves, err := s.fetch.Moves(ctx, s.battleID)
	if err != nil {
		return err
	}
	s.applyMoves(moves)
	return nil
}

// apply folds one battle observation into state, emitting the one-shot
// transition notices the first time each threshold is crossed.
func (s *RoomSync) apply(b *store.Battle) {
	s.mu.Lock()
	s.battle = b
	var out []Update
	if !s.sawOpponent && b.Player2ID != nil {
		s.sawOpponent = true
		out = append(out, Update{Kind: UpdateOpponentJoined, Battle: b})
	}
	if !s.sawSelected && s.opponentLocked(b) {
		s.sawSelected = true
		out = append(out, Update{Kind: UpdateOpponentSelected, Battle: b})
	}
	if !s.sawStarted && b.Status == store.StatusInProgress {
		s.sawStarted = true
		out = append(out, Update{Kind: UpdateBattleStarted, Battle: b})
	}
	if !s.sawDone && b.Status == store.StatusCompleted {
		s.sawDone = true
		out = append(out, Update{Kind: UpdateBattleCompleted, Battle: b})
	}
	out = append(out, Update{Kind: UpdateSnapshot, Battle: b, MyHP: s.myHP, OpponentHP: s.oppHP})
	s.mu.Unlock()
	for _, u := range out {
		s.emit(u)
	}
}

// applyMoves folds a fetched ledger in. Entries already seen via push
// are skipped by id, so poll and push never double-report a move.
func (s *RoomSync) applyMoves(moves []store.Move) {
	if len(moves) == 0 {
		return
	}
	s.ensureHPSeeded(s.ctx)
	s.mu.Lock()
	var out []Update
	for i := range moves {
		if u, ok := s.applyMoveLocked(moves[i]); ok {
			out = append(out, u)
		}
	}
	s.mu.Unlock()
	for _, u := range out {
		s.emit(u)
	}
}

// applyMove folds one pushed move in directly, from its payload alone.
func (s *RoomSync) applyMove(m store.Move) {
	s.ensureHPSeeded(s.ctx)
	s.mu.Lock()
	u, ok := s.applyMoveLocked(m)
	s.mu.Unlock()
	if ok {
		s.emit(u)
	}
}

// applyMoveLocked recomputes HP from one unseen move. A move by the
// opponent sets my remaining HP; a move of mine sets the opponent's.
// The per-mover turn guard keeps a late-delivered old entry from
// rolling HP backwards.
func (s *RoomSync) applyMoveLocked(m store.Move) (Update, bool) {
	if s.seenMoves[m.ID] {
		return Update{}, false
	}
	s.seenMoves[m.ID] = true
	if m.PlayerID == s.playerID {
		if m.TurnNumber >= s.myTurn {
			s.myTurn = m.TurnNumber
			s.oppHP = m.TargetHPRemaining
		}
	} else {
		if m.TurnNumber >= s.oppTurn {
			s.oppTurn = m.TurnNumber
			s.myHP = m.TargetHPRemaining
		}
	}
	mv := m
	return Update{Kind: UpdateMove, Move: &mv, MyHP: s.myHP, OpponentHP: s.oppHP}, true
}

// ensureHPSeeded initialises both HP counters from the locked beasts'
// base stats before the first move is folded in. The beast fetches run
// outside the state lock.
func (s *RoomSync) ensureHPSeeded(ctx context.Context) {
	s.mu.Lock()
	if s.hpSeeded || s.battle == nil {
		s.mu.Unlock()
		return
	}
	myBeastID, oppBeastID := s.battle.Beast1ID, s.battle.Beast2ID
	if s.battle.Player2ID != nil && *s.battle.Player2ID == s.playerID {
		myBeastID, oppBeastID = oppBeastID, myBeastID
	}
	s.mu.Unlock()
	if myBeastID == nil || oppBeastID == nil {
		return
	}
	mine, err := s.fetch.Beast(ctx, *myBeastID)
	if err != nil {
		return
	}
	theirs, err := s.fetch.Beast(ctx, *oppBeastID)
	if err != nil {
		return
	}
	s.mu.Lock()
	if !s.hpSeeded {
		s.myHP = mine.HP
		s.oppHP = theirs.HP
		s.hpSeeded = true
	}
	s.mu.Unlock()
}

func (s *RoomSync) opponentLocked(b *store.Battle) bool {
	if b.Player2ID != nil && *b.Player2ID == s.playerID {
		return b.Beast1Locked
	}
	return b.Beast2Locked
}

func (s *RoomSync) markGone() {
	s.mu.Lock()
	if s.sawGone {
		s.mu.Unlock()
		return
	}
	s.sawGone = true
	b := s.battle
	s.mu.Unlock()
	s.emit(Update{Kind: UpdateBattleGone, Battle: b})
}

// emit never blocks the sync loop; a slow consumer loses oldest-first
// semantics rather than stalling delivery.
func (s *RoomSync) emit(u Update) {
	select {
	case s.updates <- u:
	default:
		log.Debug().Str("battle_id", s.battleID).Str("kind", string(u.Kind)).Msg("update dropped, consumer lagging")
	}
}
