package battle

import "github.com/battlecore/battlecore/internal/content"

// Player is one trainer's team and pending choice within a side. A side can
// hold more than one player in multi-battle formats; the built-in formats
// use exactly one player per side.
type Player struct {
	Side  int
	Index int
	ID    string
	Team  []*Mon

	// Bag holds items available for ChoiceItem decisions. Consumed on
	// use; not restocked.
	Bag map[content.Id]int

	// Choices holds the decision SetPlayerChoice most recently accepted
	// for this player, one per active position (length format.ActivePerSide),
	// consumed and cleared once the turn materializes actions from them.
	Choices []*Choice
	// Ready latches once the player has submitted a usable choice for
	// every position for the current decision point; the turn
	// controller's wait phase polls this.
	Ready bool

	// TeamOrder is the pending team-preview ordering, consumed when the
	// preview phase resolves.
	TeamOrder []int

	// MegaUsed/Terastallized latch the once-per-battle player-level
	// gestures.
	MegaUsed      bool
	Terastallized bool

	// Protagonist marks the human-controlled player for disobedience/catch
	// semantics the content store doesn't exercise today but the data
	// model reserves.
	Protagonist bool
}

// MonAt returns the player's team member at team index i, or nil if i is
// out of range.
func (p *Player) MonAt(i int) *Mon {
	if i < 0 || i >= len(p.Team) {
		return nil
	}
	return p.Team[i]
}

// FirstUsable returns the index of the first non-fainted, non-active team
// member, or -1 if none remain. Used to validate and to auto-fill forced
// switches when only one replacement is legal.
func (p *Player) FirstUsable() int {
	for i, m := range p.Team {
		if !m.Fainted && !m.Active {
			return i
		}
	}
	return -1
}

// AllFainted reports whether every mon on the player's team has fainted,
// the per-player half of the battle-end condition.
func (p *Player) AllFainted() bool {
	for _, m := range p.Team {
		if !m.Fainted {
			return false
		}
	}
	return true
}
