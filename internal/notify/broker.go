package notify

import (
	"context"
	"sync"
)

// Broker is the in-process carrier: same contract as the redis one,
// used by tests and by single-process deployments. Slow watchers drop
// frames instead of blocking the publisher; the poll path covers them.
type Broker struct {
	mu       sync.Mutex
	watchers map[string]map[chan Event]struct{}
	closed   bool
}

func NewBroker() *Broker {
	return &Broker{watchers: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, ch := range []string{BattleChannel(ev.BattleID), WaitingChannel} {
		for w := range b.watchers[ch] {
			select {
			case w <- ev:
			default:
			}
		}
	}
	return nil
}

func (b *Broker) SubscribeBattle(_ context.Context, battleID string) (Subscription, error) {
	return b.subscribe(BattleChannel(battleID)), nil
}

func (b *Broker) SubscribeWaiting(_ context.Context) (Subscription, error) {
	return b.subscribe(WaitingChannel), nil
}

func (b *Broker) subscribe(channel string) *brokerSub {
	ch := make(chan Event, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return &brokerSub{broker: b, channel: channel, ch: ch, closed: true}
	}
	if b.watchers[channel] == nil {
		b.watchers[channel] = map[chan Event]struct{}{}
	}
	b.watchers[channel][ch] = struct{}{}
	return &brokerSub{broker: b, channel: channel, ch: ch}
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.watchers {
		for ch := range subs {
			close(ch)
		}
	}
	b.watchers = map[string]map[chan Event]struct{}{}
}

type brokerSub struct {
	broker  *Broker
	channel string
	ch      chan Event

	mu     sync.Mutex
	closed bool
}

func (s *brokerSub) Events() <-chan Event { return s.ch }

func (s *brokerSub) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if subs, ok := s.broker.watchers[s.channel]; ok {
		if _, ok := subs[s.ch]; ok {
			delete(subs, s.ch)
			close(s.ch)
		}
		if len(subs) == 0 {
			delete(s.broker.watchers, s.channel)
		}
	}
}
