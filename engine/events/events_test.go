package events

import (
	"reflect"
	"testing"

	"github.com/nathoo/agtcore/types"
)

func TestDispatch_MatchesEventType(t *testing.T) {
	b := NewBus()
	var got []string
	b.On(Sound, func(ev types.Event) { got = append(got, "sound") })
	b.On(PlayerDied, func(ev types.Event) { got = append(got, "died") })
	b.On(Sound, func(ev types.Event) { got = append(got, "sound2") })

	calls := b.Dispatch([]types.Event{{Type: Sound, Data: map[string]any{"id": 3}}})
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
	if want := []string{"sound", "sound2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDispatch_SkipsNonMatchingEventType(t *testing.T) {
	b := NewBus()
	b.On(Picture, func(types.Event) { t.Error("picture handler called") })
	if calls := b.Dispatch([]types.Event{{Type: ObjectMoved}}); calls != 0 {
		t.Fatalf("expected 0 calls, got %d", calls)
	}
}

func TestDispatch_Filter(t *testing.T) {
	b := NewBus()
	var rooms []int
	b.When(RoomEntered, func(ev types.Event) bool {
		r, _ := Int(ev, "room")
		return r > 3
	}, func(ev types.Event) {
		r, _ := Int(ev, "room")
		rooms = append(rooms, r)
	})

	b.Dispatch([]types.Event{
		{Type: RoomEntered, Data: map[string]any{"room": 3}},
		{Type: RoomEntered, Data: map[string]any{"room": 4}},
	})
	if !reflect.DeepEqual(rooms, []int{4}) {
		t.Errorf("rooms = %v, want [4]", rooms)
	}
}

func TestDispatch_Wildcard(t *testing.T) {
	b := NewBus()
	var seen []string
	b.On(Wildcard, func(ev types.Event) { seen = append(seen, ev.Type) })
	b.Dispatch([]types.Event{{Type: Sound}, {Type: GameWon}})
	if want := []string{Sound, GameWon}; !reflect.DeepEqual(seen, want) {
		t.Errorf("got %v, want %v", seen, want)
	}
}

func TestDispatch_SinglePass(t *testing.T) {
	b := NewBus()
	calls := 0
	// A handler subscribing during dispatch is not called for this batch.
	b.On(Sound, func(types.Event) {
		calls++
		b.On(Sound, func(types.Event) { calls += 100 })
	})
	b.Dispatch([]types.Event{{Type: Sound}})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDispatch_NilBus(t *testing.T) {
	var b *Bus
	if calls := b.Dispatch([]types.Event{{Type: Sound}}); calls != 0 {
		t.Fatalf("expected 0 calls on nil bus, got %d", calls)
	}
}

func TestTypes(t *testing.T) {
	b := NewBus()
	b.On(Sound, func(types.Event) {})
	b.On(Picture, func(types.Event) {})
	b.On(Sound, func(types.Event) {})
	if got, want := b.Types(), []string{Picture, Sound}; !reflect.DeepEqual(got, want) {
		t.Errorf("Types = %v, want %v", got, want)
	}
}
