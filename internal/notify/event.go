package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"beast-arena/internal/store"
)

// SchemaVersion tags every event payload so clients can drop frames
// from a server they no longer understand.
const SchemaVersion = 1

const (
	EventBattleCreated = "battle_created"
	EventBattleUpdated = "battle_updated"
	EventBattleDeleted = "battle_deleted"
	EventMoveAppended  = "move_appended"
)

var ErrBadEvent = errors.New("bad_event")

type Event struct {
	SchemaVer int           `json:"schema_version"`
	Type      string        `json:"type"`
	BattleID  string        `json:"battle_id"`
	ServerTS  int64         `json:"server_ts"`
	Battle    *store.Battle `json:"battle,omitempty"`
	Move      *store.Move   `json:"move,omitempty"`
}

func NewEvent(typ, battleID string) Event {
	return Event{
		SchemaVer: SchemaVersion,
		Type:      typ,
		BattleID:  battleID,
		ServerTS:  time.Now().UnixMilli(),
	}
}

// ParseEvent decodes and validates an incoming notification payload.
// Anything malformed, untyped, or from an unknown schema version is
// rejected rather than trusted.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, ErrBadEvent
	}
	if ev.SchemaVer != SchemaVersion {
		return Event{}, ErrBadEvent
	}
	switch ev.Type {
	case EventBattleCreated, EventBattleUpdated, EventBattleDeleted, EventMoveAppended:
	default:
		return Event{}, ErrBadEvent
	}
	if ev.BattleID == "" {
		return Event{}, ErrBadEvent
	}
	return ev, nil
}

// Channel names shared by the redis carrier and its subscribers.

const WaitingChannel = "battles:waiting"

func BattleChannel(battleID string) string {
	return "battle:" + battleID
}

// Publisher fans an event out to everyone watching its room and the
// waiting-room list. List watchers re-fetch wholesale, so every room
// event goes to both channels.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription is one live event stream. Close is safe to call twice.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Subscriber opens push streams for a single battle or for the
// waiting-room list.
type Subscriber interface {
	SubscribeBattle(ctx context.Context, battleID string) (Subscription, error)
	SubscribeWaiting(ctx context.Context) (Subscription, error)
}
