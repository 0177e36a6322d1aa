package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"beast-arena/internal/store"
)

func recvEvent(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed early")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBrokerFansOutToRoomAndWaiting(t *testing.T) {
	ctx := context.Background()
	b := NewBroker()
	defer b.Close()

	room, err := b.SubscribeBattle(ctx, "b1")
	if err != nil {
		t.Fatalf("subscribe battle: %v", err)
	}
	defer room.Close()
	lobby, err := b.SubscribeWaiting(ctx)
	if err != nil {
		t.Fatalf("subscribe waiting: %v", err)
	}
	defer lobby.Close()
	other, err := b.SubscribeBattle(ctx, "b2")
	if err != nil {
		t.Fatalf("subscribe other: %v", err)
	}
	defer other.Close()

	ev := NewEvent(EventBattleUpdated, "b1")
	if err := b.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := recvEvent(t, room); got.BattleID != "b1" {
		t.Fatalf("room got %q", got.BattleID)
	}
	if got := recvEvent(t, lobby); got.Type != EventBattleUpdated {
		t.Fatalf("lobby got %q", got.Type)
	}
	select {
	case got := <-other.Events():
		t.Fatalf("other room received %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerSubCloseIdempotent(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	sub, _ := b.SubscribeBattle(context.Background(), "b1")
	sub.Close()
	sub.Close()
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestParseEvent(t *testing.T) {
	valid := NewEvent(EventMoveAppended, "b1")
	valid.Move = &store.Move{BattleID: "b1", PlayerID: "p1", TurnNumber: 1}
	raw, _ := json.Marshal(valid)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: string(raw)},
		{name: "not json", payload: "nope", wantErr: true},
		{name: "wrong schema", payload: `{"schema_version":99,"type":"battle_updated","battle_id":"b1"}`, wantErr: true},
		{name: "unknown type", payload: `{"schema_version":1,"type":"mystery","battle_id":"b1"}`, wantErr: true},
		{name: "missing battle id", payload: `{"schema_version":1,"type":"battle_updated"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
