package battle

import "github.com/battlecore/battlecore/internal/content"

// Mon is one creature on a team. Its handle never changes once the battle
// starts; everything that can happen to a mon (faint, switch out, status
// cure) mutates this struct in place rather than replacing it, so handles
// taken earlier in the turn stay meaningful.
type Mon struct {
	Species content.SpeciesData
	Nickname string
	Level    int
	Gender   string

	BaseStats  content.StatTable
	IVs        content.StatTable
	EVs        content.StatTable
	Stats      content.StatTable // computed from base/IV/EV/level/nature
	Nature     string

	Ability     content.Id
	AbilityState *EffectState

	Item         content.Id
	ItemState    *EffectState
	ItemKnockedOff bool

	Moves []MonMove

	CurHP int
	MaxHP int

	Status      content.Id
	StatusState *EffectState
	ToxicCounter int

	Volatiles map[string]*EffectState

	Boosts content.BoostTable

	// TeraType is the type this mon changes to if its player
	// terastallizes it; Terastallized latches once that happens (it
	// survives switching out, per the once-per-battle gesture rule).
	TeraType      string
	Terastallized bool

	// Fainted is latched the instant HP reaches zero; it never reverts,
	// even though CurHP and Position can later be reused by a revive-style
	// effect in formats that allow it (none of the built-in content does).
	Fainted bool

	// Active reports whether this mon is on the field; Position holds the
	// position it occupies, valid only while Active is true.
	Active   bool
	Position int

	// TimesSwitchedIn counts how many times this mon has taken the field,
	// used by abilities like Slow Start that key off "just switched in".
	TimesSwitchedIn int
}

// MonMove is one of a mon's known moves together with its remaining PP.
type MonMove struct {
	Move    content.Id
	PP      int
	MaxPP   int
	Disabled bool
}

// HPFraction returns current HP and max HP as a pair, unreduced, for
// "48/100"-style log text.
func (m *Mon) HPFraction() (cur, max int) { return m.CurHP, m.MaxHP }

// Damage reduces CurHP by amt, never below zero, returning the amount
// actually subtracted (which can be less than amt near zero HP).
func (m *Mon) Damage(amt int) int {
	if amt < 0 {
		amt = 0
	}
	if amt > m.CurHP {
		amt = m.CurHP
	}
	m.CurHP -= amt
	if m.CurHP == 0 {
		m.Fainted = true
	}
	return amt
}

// Heal increases CurHP by amt, never past MaxHP and never on a fainted mon,
// returning the amount actually restored.
func (m *Mon) Heal(amt int) int {
	if m.Fainted || amt <= 0 {
		return 0
	}
	if m.CurHP+amt > m.MaxHP {
		amt = m.MaxHP - m.CurHP
	}
	m.CurHP += amt
	return amt
}

// Trapped reports whether the mon is prevented from switching out or
// escaping by a trapping volatile (Mean Look, a binding move's "trapped"
// condition). Ghost types ignore trapping.
func (m *Mon) Trapped() bool {
	if _, ok := m.Volatiles["trapped"]; !ok {
		return false
	}
	for _, t := range m.Species.Types {
		if t == "ghost" {
			return false
		}
	}
	return true
}

// HasAbility reports whether the mon's current ability matches id. It is a
// raw identity check: ability-suppressing effects are not consulted
// (callers that need suppression-awareness check the relevant volatile
// themselves).
func (m *Mon) HasAbility(id content.Id) bool { return m.Ability == id }

// HasItem reports whether the mon currently holds item id.
func (m *Mon) HasItem(id content.Id) bool { return m.Item == id && !m.ItemKnockedOff }

// BoostMultiplier gives the regular stat-stage multiplier as a fraction
// for a boost in [-6,6], following the standard "(2+n)/2" and "2/(2-n)"
// staging used for atk/def/spa/spd/spe.
func BoostMultiplier(stage int) (num, den int) {
	if stage > 6 {
		stage = 6
	}
	if stage < -6 {
		stage = -6
	}
	if stage >= 0 {
		return 2 + stage, 2
	}
	return 2, 2 - stage
}

// AccuracyStageMultiplier gives the accuracy/evasion stage multiplier,
// which uses the base-3 table ("(3+n)/3" up, "3/(3-n)" down: +1 is 4/3,
// -1 is 3/4) rather than the base-2 table regular stats use.
func AccuracyStageMultiplier(stage int) (num, den int) {
	if stage > 6 {
		stage = 6
	}
	if stage < -6 {
		stage = -6
	}
	if stage >= 0 {
		return 3 + stage, 3
	}
	return 3, 3 - stage
}
