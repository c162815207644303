package battle

import "github.com/battlecore/battlecore/internal/content"

// MonSpec is the bag of choices a caller makes when fielding a mon: species,
// level, nickname, moveset, and the individual/effort values that feed stat
// computation. It is the input to NewMon; Mon itself stays a pure data
// struct the engine mutates in place.
type MonSpec struct {
	Species  content.Id
	Nickname string
	Level    int
	Gender   string
	Nature   string
	Ability  content.Id
	Item     content.Id
	Moves    []content.Id
	TeraType string

	IVs content.StatTable
	EVs content.StatTable
}

// NewMon builds a battle-ready Mon from spec, looking up its species in
// store and computing derived stats with the standard
// ((2*base+iv+ev/4)*level/100)+5 formula (+level, +10 for HP).
func NewMon(store content.Store, spec MonSpec) (*Mon, error) {
	sp, ok := store.Species(spec.Species)
	if !ok {
		return nil, &content.ErrNotFound{Kind: "species", Id: spec.Species}
	}
	nickname := spec.Nickname
	if nickname == "" {
		nickname = sp.Name
	}
	level := spec.Level
	if level <= 0 {
		level = 100
	}
	ability := spec.Ability
	if ability == "" && len(sp.Abilities) > 0 {
		ability = content.Id(sp.Abilities[0])
	}
	teraType := spec.TeraType
	if teraType == "" && len(sp.Types) > 0 {
		teraType = sp.Types[0]
	}

	m := &Mon{
		Species:  *sp,
		Nickname: nickname,
		Level:    level,
		Gender:   spec.Gender,
		Nature:   spec.Nature,
		BaseStats: sp.BaseStats,
		IVs:      spec.IVs,
		EVs:      spec.EVs,
		Ability:  ability,
		Item:     spec.Item,
		TeraType: teraType,
		Position: -1,
	}
	m.Stats = computeStats(sp.BaseStats, spec.IVs, spec.EVs, level)
	m.MaxHP = m.Stats.HP
	m.CurHP = m.MaxHP

	for _, id := range spec.Moves {
		md, ok := store.Move(id)
		pp := 20
		if ok {
			pp = md.PP
		}
		m.Moves = append(m.Moves, MonMove{Move: id, PP: pp, MaxPP: pp})
	}
	return m, nil
}

func computeStat(base, iv, ev, level int, isHP bool) int {
	raw := (2*base+iv+ev/4)*level/100
	if isHP {
		if base == 1 { // Shedinja-style single-HP species; not in this seed set but kept honest
			return 1
		}
		return raw + level + 10
	}
	return raw + 5
}

func computeStats(base, iv, ev content.StatTable, level int) content.StatTable {
	return content.StatTable{
		HP:  computeStat(base.HP, iv.HP, ev.HP, level, true),
		Atk: computeStat(base.Atk, iv.Atk, ev.Atk, level, false),
		Def: computeStat(base.Def, iv.Def, ev.Def, level, false),
		SpA: computeStat(base.SpA, iv.SpA, ev.SpA, level, false),
		SpD: computeStat(base.SpD, iv.SpD, ev.SpD, level, false),
		Spe: computeStat(base.Spe, iv.Spe, ev.Spe, level, false),
	}
}
