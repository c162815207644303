// Package content defines the read-only content-store collaborator the
// battle engine consumes (species, moves, items, abilities, the type
// chart) and a local in-memory implementation of it. Content is never
// mutated by a battle; many battles may share one Store concurrently.
package content

import "fmt"

// Id is a normalized content identifier: lowercase, no punctuation, e.g.
// "willowisp" for "Will-O-Wisp". Callers normalize display names to Id with
// NormalizeId before lookup.
type Id string

// NormalizeId lowercases s and strips everything but letters and digits, the
// convention the source material uses so "Will-O-Wisp", "will-o-wisp", and
// "WILLOWISP" all resolve to the same entry.
func NormalizeId(s string) Id {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		}
	}
	return Id(out)
}

// Category classifies how a move deals with damage.
type Category string

const (
	CategoryPhysical Category = "physical"
	CategorySpecial  Category = "special"
	CategoryStatus   Category = "status"
)

// Target classifies which positions a move can be aimed at.
type Target string

const (
	TargetSelf          Target = "self"
	TargetNormal        Target = "normal"
	TargetAllyOrSelf    Target = "allyorself"
	TargetAdjacentFoe   Target = "adjacentfoe"
	TargetAllAdjacent   Target = "alladjacent"
	TargetAllAdjFoes    Target = "alladjacentfoes"
	TargetRandomFoe     Target = "randomfoe"
	TargetAll           Target = "all"
	TargetAllySide      Target = "allyside"
	TargetFoeSide       Target = "foeside"
	TargetScripted      Target = "scripted"
)

// Accuracy is either "always hits" or a percent chance in (0,100].
type Accuracy struct {
	Always  bool
	Percent int
}

// MultihitKind distinguishes a fixed hit count from a ranged one.
type MultihitKind int

const (
	MultihitNone MultihitKind = iota
	MultihitStatic
	MultihitRange
)

// Multihit describes how many times a move strikes its target(s).
type Multihit struct {
	Kind MultihitKind
	N    int // used when Kind == MultihitStatic
	Lo   int // used when Kind == MultihitRange
	Hi   int
}

// BoostTable holds stat stage deltas for the seven boostable stats: the
// five battle stats plus accuracy and evasion.
type BoostTable struct {
	Atk, Def, SpA, SpD, Spe, Accuracy, Evasion int
}

// HitEffect is the declarative bundle of state changes a move applies when
// it connects: boosts, a status to set, a volatile to add, a side/field
// condition to start, healing, or a forced switch.
type HitEffect struct {
	Boost           *BoostTable
	Status          Id
	Volatile        Id
	SideCondition   Id
	PseudoWeather   Id
	Weather         Id
	Terrain         Id
	HealPercent     int // heals the target this fraction of its max HP (0-100)
	ForceSwitch     bool
}

// SecondaryEffectData is one possible secondary outcome of a hit, applied
// with probability Chance (out of 100) independent of the main hit-effect.
type SecondaryEffectData struct {
	Chance int
	Target *HitEffect // applied to the move's target
	Self   *HitEffect // applied to the user
}

// MoveFlags is the set of boolean tags a move carries (contact, sound,
// powder, ...), consulted by immunity and interaction callbacks.
type MoveFlags struct {
	Contact   bool
	Sound     bool
	Powder    bool
	Heal      bool
	Bullet    bool
	Bite      bool
	Pulse     bool
	Punch     bool
	Authentic bool // bypasses Substitute
}

// MoveData is the static definition of a move as the content store returns
// it. The Effect and Condition fields are opaque fxlang source: Effect
// encodes the move's own callbacks (TryHit, BasePower, ...); Condition
// encodes the behavior of the volatile/status the move installs, when it
// installs one (e.g. a move that confuses carries a Condition script for
// the "confusion" volatile it adds).
type MoveData struct {
	Name             string
	Category         Category
	Type             string
	BasePower        int
	Accuracy         Accuracy
	PP               int
	Priority         int
	Target           Target
	Flags            MoveFlags
	OhkoType         string
	ThawsTarget      bool
	UserSwitch       bool
	SelfDestruct     string // "", "ifhit", or "always"
	RecoilPercent    int
	DrainPercent     int
	HitEffect        *HitEffect
	UserEffect       *HitEffect
	SecondaryEffects []SecondaryEffectData
	OverrideOffensiveStat string // "", "atk", "spa" - if set, overrides category default
	OverrideDefensiveStat string
	CritRatio        int
	WillCrit         bool // always a critical hit, no roll
	NoRandomTarget   bool
	Multihit         Multihit
	MultiAccuracy    bool
	NoPPBoosts       bool
	Effect           string // fxlang source for the move's own callbacks
	Condition        string // fxlang source for the installed volatile/status
}

// AbilityData is the static definition of an ability.
type AbilityData struct {
	Name   string
	Rating float64
	Effect string // fxlang source
}

// ItemData is the static definition of a held or usable item.
type ItemData struct {
	Name       string
	IsBerry    bool
	IsChoice   bool
	MegaStone  string
	UsableFromBag bool
	Effect     string // fxlang source

	// BoostStat/BoostAmount declare the stat this item raises when used
	// from the bag (e.g. X Attack -> "atk", 2), mirroring the declarative
	// HitEffect.Boost a move carries. Choice validation consults these
	// fields directly rather than running the use_item script, so a
	// bag-item choice can be rejected before it ever reaches the queue.
	BoostStat   string
	BoostAmount int
}

// SpeciesData is the static definition of a species/forme.
type SpeciesData struct {
	Name       string
	Types      []string
	BaseStats  StatTable
	Abilities  []string
	Weight     float64
}

// StatTable is the six core stats (HP, Atk, Def, SpA, SpD, Spe).
type StatTable struct {
	HP, Atk, Def, SpA, SpD, Spe int
}

// ConditionData is a standalone condition definition (weather, terrain,
// side condition, field condition, or a volatile/status not installed by
// any single move, e.g. "brn" itself).
type ConditionData struct {
	Name     string
	Duration int // 0 means no automatic duration countdown
	Effect   string
}

// ClauseData is a named format rule; the core never evaluates these itself
// (team validation is out of scope) but the content store can still
// describe them for a format-aware host.
type ClauseData struct {
	Name string
}

// TypeChart maps an attacking type to a defending type to its
// effectiveness multiplier (0, 0.5, 1, or 2).
type TypeChart map[string]map[string]float64

// Effectiveness returns the multiplier of atk hitting def, defaulting to 1
// for unknown pairs instead of panicking — content gaps should not corrupt
// battle state.
func (tc TypeChart) Effectiveness(atk, def string) float64 {
	if row, ok := tc[atk]; ok {
		if v, ok := row[def]; ok {
			return v
		}
	}
	return 1
}

// Store is the read-only content collaborator the battle engine consumes.
// Implementations must be safe for concurrent use by many battles.
type Store interface {
	TypeChart() TypeChart
	Move(id Id) (*MoveData, bool)
	Ability(id Id) (*AbilityData, bool)
	Item(id Id) (*ItemData, bool)
	Species(id Id) (*SpeciesData, bool)
	Condition(id Id) (*ConditionData, bool)
	Clause(id Id) (*ClauseData, bool)
	// TranslateAlias resolves a historical/alternate id to its canonical
	// one (e.g. an old move rename); ok is false if id has no alias.
	TranslateAlias(id Id) (Id, bool)
}

// ErrNotFound is returned by lookups that accept an error-returning variant
// (MustX helpers below) when an id has no entry.
type ErrNotFound struct {
	Kind string
	Id   Id
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("content: no %s with id %q", e.Kind, e.Id)
}
