// Package battle implements the battle execution engine itself: the data
// model (sides, players, mons, field, active moves), the effect-state
// connectors, the effect manager and event bus, the action scheduler, the
// move pipeline, the turn controller, the log emitter, the external effect
// injector, and the public Battle Host entry points. These stay in one
// package because each of them reaches deeply into the others' state.
package battle

// MonHandle is a stable reference to a Mon: an index into the owning
// Player's team. References from effect state to a mon use this handle,
// never a pointer, so a fainted or otherwise-gone mon can still be named
// without the reader dereferencing a dangling pointer.
type MonHandle struct {
	Side  int
	Player int
	Index int // index into Player.Team
}

// Valid reports whether h names a real slot (handles are never nil; a
// zero-value handle is Side=0,Player=0,Index=0, which is why code that
// might hold "no mon" uses a separate bool rather than a sentinel handle).
func (h MonHandle) Valid(b *Battle) bool {
	return b.monAt(h) != nil
}

// SideHandle references one side of the battle by index.
type SideHandle int

// PositionHandle names one active slot: a side plus a 0-based position
// within that side (0 = leftmost from that side's perspective).
type PositionHandle struct {
	Side     int
	Position int
}
