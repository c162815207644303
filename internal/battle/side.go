package battle

// Side is one of the two (or more, in future free-for-all formats) teams'
// battle-facing state: its players, its active positions, and the side
// conditions (Reflect, Spikes, ...) that apply to every mon on it.
type Side struct {
	Index      int
	Players    []*Player
	Positions  []MonHandle // index = position on this side, 0-based
	Conditions map[string]*EffectState
}

// NewSide allocates a side with n active positions (1 for Singles, 2 for
// Doubles) and no players yet.
func NewSide(index, positions int) *Side {
	return &Side{
		Index:      index,
		Positions:  make([]MonHandle, positions),
		Conditions: map[string]*EffectState{},
	}
}

// ActiveAt returns the mon occupying position pos on this side, or nil if
// the slot is empty (all mons on that side have fainted and none remain).
func (s *Side) ActiveAt(b *Battle, pos int) *Mon {
	if pos < 0 || pos >= len(s.Positions) {
		return nil
	}
	h := s.Positions[pos]
	m := b.monAt(h)
	if m == nil || h.Side != s.Index || !m.Active || m.Position != pos {
		return nil
	}
	return m
}

// AllActive returns every non-nil mon currently occupying a position on
// this side, left to right.
func (s *Side) AllActive(b *Battle) []*Mon {
	out := make([]*Mon, 0, len(s.Positions))
	for pos := range s.Positions {
		if m := s.ActiveAt(b, pos); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// FoeSide returns the side's opponent, assuming the standard two-side
// layout; free-for-all formats are a non-goal.
func (s *Side) FoeSide(b *Battle) *Side {
	for _, other := range b.Sides {
		if other.Index != s.Index {
			return other
		}
	}
	return nil
}
