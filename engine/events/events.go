// Package events implements single-pass hook dispatch for the events raised
// by action tokens and the turn driver (sounds, pictures, deaths, room
// changes). Handlers never see events emitted while a dispatch runs.
package events

import (
	"sort"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.events")

// Event types raised by the interpreter.
const (
	RoomEntered = "room_entered"
	ObjectMoved = "object_moved"
	Sound       = "sound"
	Picture     = "picture"
	PlayerDied  = "player_died"
	GameWon     = "game_won"
	ScoreChange = "score_changed"
	Restored    = "restored"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Handler reacts to one event.
type Handler func(ev types.Event)

// Filter decides whether a handler sees an event. A nil filter accepts all.
type Filter func(ev types.Event) bool

type subscription struct {
	eventType string
	when      Filter
	handle    Handler
}

// Bus holds the subscriptions in registration order.
type Bus struct {
	subs []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// On subscribes h to events of eventType, or to every event for Wildcard.
func (b *Bus) On(eventType string, h Handler) {
	b.When(eventType, nil, h)
}

// When subscribes h to events of eventType that pass when.
func (b *Bus) When(eventType string, when Filter, h Handler) {
	b.subs = append(b.subs, subscription{eventType: eventType, when: when, handle: h})
}

// Dispatch runs the matching handlers for each event, in event order and
// then registration order. It returns the number of handler calls.
// Single pass: the slice is fixed before the first handler runs.
func (b *Bus) Dispatch(evs []types.Event) int {
	if b == nil || len(evs) == 0 {
		return 0
	}
	evs = append([]types.Event(nil), evs...)
	subs := append([]subscription(nil), b.subs...)
	calls := 0
	for _, ev := range evs {
		for _, s := range subs {
			if s.eventType != Wildcard && s.eventType != ev.Type {
				continue
			}
			if s.when != nil && !s.when(ev) {
				continue
			}
			s.handle(ev)
			calls++
		}
	}
	log.Debug("dispatched events", "events", len(evs), "calls", calls)
	return calls
}

// Types returns the distinct event types with at least one subscriber,
// sorted. The wildcard is included when subscribed.
func (b *Bus) Types() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range b.subs {
		if !seen[s.eventType] {
			seen[s.eventType] = true
			out = append(out, s.eventType)
		}
	}
	sort.Strings(out)
	return out
}

// Int reads an integer field of ev.Data.
func Int(ev types.Event, key string) (int, bool) {
	v, ok := ev.Data[key].(int)
	return v, ok
}
