package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	appbattle "beast-arena/internal/app/battle"
	"beast-arena/internal/config"
	"beast-arena/internal/logging"
	"beast-arena/internal/realtime"
	"beast-arena/internal/store"
)

// Seeded move catalogue; the bot picks uniformly.
var movePowers = map[string]int{
	"tackle":   40,
	"slash":    55,
	"fireball": 70,
	"thunder":  85,
}

type bot struct {
	cfg        config.BotConfig
	client     *http.Client
	fetch      *realtime.HTTPFetcher
	rng        *rand.Rand
	myBeast    *store.Beast
	oppHP      int
	oppDefense int
	turn       int
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	if cfg.BeastID == "" {
		log.Fatal().Msg("BEAST_ID is required")
	}

	b := &bot{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		fetch:  realtime.NewHTTPFetcher(cfg.APIBase, 10*time.Second),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	ctx := context.Background()

	battle, err := b.enter(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("enter battle failed")
	}
	log.Info().Str("battle_id", battle.ID).Str("status", battle.Status).Msg("bot seated")

	mine, err := b.fetch.Beast(ctx, cfg.BeastID)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch own beast failed")
	}
	b.myBeast = mine

	sync := realtime.NewRoomSync(b.fetch, realtime.NewWSSubscriber(cfg.WSBase), battle.ID, cfg.PlayerID)
	if err := sync.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start sync failed")
	}
	defer sync.Stop()

	b.play(ctx, battle, sync)
}

// enter joins the configured room, or opens one and waits for an
// opponent.
func (b *bot) enter(ctx context.Context) (*store.Battle, error) {
	if b.cfg.RoomCode != "" {
		var battle store.Battle
		err := b.postJSON(ctx, "/api/battles/join", map[string]string{
			"room_code": b.cfg.RoomCode,
			"player_id": b.cfg.PlayerID,
			"beast_id":  b.cfg.BeastID,
		}, &battle)
		return &battle, err
	}
	var battle store.Battle
	err := b.postJSON(ctx, "/api/battles", map[string]string{
		"player_id": b.cfg.PlayerID,
		"beast_id":  b.cfg.BeastID,
	}, &battle)
	if err != nil {
		return nil, err
	}
	if battle.RoomCode != nil {
		log.Info().Str("room_code", *battle.RoomCode).Msg("waiting for an opponent")
	}
	return &battle, nil
}

func (b *bot) play(ctx context.Context, battle *store.Battle, sync *realtime.RoomSync) {
	if battle.Status == store.StatusInProgress && battle.CurrentTurn != nil && *battle.CurrentTurn == b.cfg.PlayerID {
		b.seedOpponentHP(ctx, battle)
		b.act(ctx, battle.ID)
	}
	for u := range sync.Updates() {
		switch u.Kind {
		case realtime.UpdateBattleStarted:
			log.Info().Msg("battle started")
			b.seedOpponentHP(ctx, u.Battle)
			if u.Battle.CurrentTurn != nil && *u.Battle.CurrentTurn == b.cfg.PlayerID {
				b.act(ctx, u.Battle.ID)
			}
		case realtime.UpdateMove:
			if u.Move.PlayerID == b.cfg.PlayerID {
				continue
			}
			log.Info().Int("my_hp", u.MyHP).Int("opp_hp", u.OpponentHP).Msg("opponent moved")
			b.oppHP = u.OpponentHP
			if u.MyHP > 0 {
				b.act(ctx, u.Move.BattleID)
			}
		case realtime.UpdateBattleCompleted:
			winner := ""
			if u.Battle.WinnerID != nil {
				winner = *u.Battle.WinnerID
			}
			log.Info().Str("winner", winner).Msg("battle over")
			return
		case realtime.UpdateBattleGone:
			log.Warn().Msg("battle room disappeared")
			return
		case realtime.UpdateConnection:
			log.Info().Str("state", u.ConnState).Msg("push link state changed")
		}
	}
}

func (b *bot) seedOpponentHP(ctx context.Context, battle *store.Battle) {
	if b.oppHP > 0 || battle == nil {
		return
	}
	oppBeastID := battle.Beast1ID
	if battle.Beast1ID != nil && *battle.Beast1ID == b.cfg.BeastID {
		oppBeastID = battle.Beast2ID
	}
	if oppBeastID == nil {
		return
	}
	opp, err := b.fetch.Beast(ctx, *oppBeastID)
	if err != nil {
		log.Warn().Err(err).Msg("fetch opponent beast failed")
		return
	}
	b.oppHP = opp.HP
	b.oppDefense = opp.Defense
}

// act picks a move, computes its damage locally, and submits the
// resulting ledger entry.
func (b *bot) act(ctx context.Context, battleID string) {
	moveID := b.pickMove()
	dmg := appbattle.Damage(b.myBeast.Attack, b.oppDefense, movePowers[moveID], appbattle.DamageMultiplier(b.rng))
	b.oppHP = appbattle.ReduceHP(b.oppHP, dmg)
	b.turn++

	var res appbattle.AppendMoveResult
	err := b.postJSON(ctx, "/api/battles/"+battleID+"/moves", appbattle.AppendMoveRequest{
		PlayerID:          b.cfg.PlayerID,
		MoveID:            moveID,
		TurnNumber:        b.turn,
		DamageDealt:       dmg,
		TargetHPRemaining: b.oppHP,
	}, &res)
	if err != nil {
		log.Error().Err(err).Msg("submit move failed")
		return
	}
	log.Info().Str("move", moveID).Int("damage", dmg).Int("opp_hp", b.oppHP).Bool("ended", res.BattleEnded).Msg("move submitted")
}

func (b *bot) pickMove() string {
	ids := make([]string, 0, len(movePowers))
	for id := range movePowers {
		ids = append(ids, id)
	}
	return ids[b.rng.Intn(len(ids))]
}

func (b *bot) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.APIBase+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
