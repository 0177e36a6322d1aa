package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Redis carries events across processes over pub/sub. Delivery is
// at-most-once; the client's poll path covers anything the channel
// drops, which is why poll and push always run together.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, BattleChannel(ev.BattleID), payload).Err(); err != nil {
		return err
	}
	return r.client.Publish(ctx, WaitingChannel, payload).Err()
}

func (r *Redis) SubscribeBattle(ctx context.Context, battleID string) (Subscription, error) {
	return r.subscribe(ctx, BattleChannel(battleID))
}

func (r *Redis) SubscribeWaiting(ctx context.Context) (Subscription, error) {
	return r.subscribe(ctx, WaitingChannel)
}

func (r *Redis) subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	sub := &redisSub{pubsub: pubsub, ch: make(chan Event, 32)}
	go sub.pump(channel)
	return sub, nil
}

type redisSub struct {
	pubsub    *redis.PubSub
	ch        chan Event
	closeOnce sync.Once
}

func (s *redisSub) pump(channel string) {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		ev, err := ParseEvent([]byte(msg.Payload))
		if err != nil {
			log.Warn().Str("channel", channel).Msg("dropping malformed notification")
			continue
		}
		select {
		case s.ch <- ev:
		default:
			log.Warn().Str("channel", channel).Str("type", ev.Type).Msg("dropping notification, watcher behind")
		}
	}
}

func (s *redisSub) Events() <-chan Event { return s.ch }

func (s *redisSub) Close() {
	s.closeOnce.Do(func() {
		_ = s.pubsub.Close()
	})
}
