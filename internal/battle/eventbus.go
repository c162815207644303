package battle

import (
	"sort"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
)

// EventCategory selects how the event bus combines the results its
// listeners return.
type EventCategory int

const (
	// CategoryRelay threads a single running value through every listener
	// in order, each one free to transform it (damage modifiers, base
	// power modifiers); the final value is the event's result.
	CategoryRelay EventCategory = iota
	// CategoryVote short-circuits on the first listener that returns a
	// defined falsy value and returns it; otherwise the result is the last
	// defined value returned. Used for yes/no gate events like TryHit,
	// where any "no" ends the search.
	CategoryVote
	// CategoryCollect gathers every listener's defined return value into a
	// list without stopping early.
	CategoryCollect
	// CategoryFirst returns the first listener's defined value and stops,
	// without the "false means stop" semantics of Vote.
	CategoryFirst
)

// Value is a thin alias kept local to this file so eventbus.go reads
// naturally; it is exactly fxlang.Value.
type Value = fxlang.Value

// EventBus gathers every interested effect's callback for a named event,
// orders them, and dispatches in that order, combining results per
// category. It holds no state of its own beyond a reference to the owning
// battle and its effect manager.
type EventBus struct {
	b *Battle
}

// NewEventBus returns a bus bound to battle b.
func NewEventBus(b *Battle) *EventBus { return &EventBus{b: b} }

// sourceEffect bundles what a listener needs to actually run: the content
// id (for caching), the fxlang source, the effect-state its Context should
// carry, and its order/priority/speed sort keys.
type sourceEffect struct {
	id          content.Id
	source      string
	effectState *EffectState
	order       int
	priority    int
	speed       int
}

// Dispatch runs callback name across every currently-relevant listener for
// it, in priority order, combining results per category. relay is the
// running value for CategoryRelay (ignored otherwise). listeners is built
// by the caller (move pipeline, turn controller, ...) from whichever
// carriers are relevant to this specific event, since "relevant" varies a
// great deal by event (a status's callback only matters for its own mon; a
// weather's callback matters for everyone).
func (bus *EventBus) Dispatch(name string, cat EventCategory, relay Value, listeners []sourceEffect, bind func(sourceEffect) *fxlang.Context) (Value, error) {
	ordered := make([]sourceEffect, len(listeners))
	copy(ordered, listeners)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.order != b.order {
			return a.order < b.order
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.speed != b.speed {
			return a.speed > b.speed
		}
		return false
	})
	bus.breakSpeedTies(ordered)

	result := relay
	var collected []Value
	for _, se := range ordered {
		ctx := bind(se)
		ctx.Event = name
		if cat == CategoryRelay {
			ctx.Relay = result
		}
		v, ok, err := bus.b.EffectManager.RunCallback(se.id, se.source, name, ctx)
		if err != nil {
			return fxlang.Undefined(), err
		}
		if !ok {
			continue
		}
		switch cat {
		case CategoryRelay:
			result = v
		case CategoryVote:
			if v.Kind != fxlang.KindUndefined && !v.Truthy() {
				return v, nil
			}
			if v.Kind != fxlang.KindUndefined {
				result = v
			}
		case CategoryCollect:
			collected = append(collected, v)
		case CategoryFirst:
			if v.Kind != fxlang.KindUndefined {
				return v, nil
			}
		}
	}
	if cat == CategoryCollect {
		return fxlang.List(collected), nil
	}
	return result, nil
}

// breakSpeedTies resolves groups of listeners sharing order/priority/speed
// by shuffling each group with the PRNG, matching how simultaneous-speed
// actions are broken elsewhere in the engine.
func (bus *EventBus) breakSpeedTies(ordered []sourceEffect) {
	i := 0
	for i < len(ordered) {
		j := i + 1
		for j < len(ordered) && ordered[j].order == ordered[i].order &&
			ordered[j].priority == ordered[i].priority && ordered[j].speed == ordered[i].speed {
			j++
		}
		if j-i > 1 {
			bus.b.PRNG.Shuffle(j-i, func(x, y int) {
				ordered[i+x], ordered[i+y] = ordered[i+y], ordered[i+x]
			})
		}
		i = j
	}
}
