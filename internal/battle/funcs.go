package battle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
)

// funcs builds the standard function surface fxlang scripts call into.
// Every move/ability/item/condition effect script in the content store
// resolves its function calls through this table; nothing here is
// fxlang-package knowledge, so the interpreter stays battle-agnostic.
func (b *Battle) funcs() fxlang.Funcs {
	return fxlang.Funcs{
		"damage":        b.fnDamage,
		"heal":          b.fnHeal,
		"boost":         b.fnBoost,
		"unboost":       b.fnUnboost,
		"set_status":    b.fnSetStatus,
		"cure_status":   b.fnCureStatus,
		"add_volatile":  b.fnAddVolatile,
		"remove_volatile": b.fnRemoveVolatile,
		"side_condition": b.fnSideCondition,
		"weather":       b.fnWeather,
		"terrain":       b.fnTerrain,
		"pseudo_weather": b.fnPseudoWeather,
		"chance":        b.fnChance,
		"random_range":  b.fnRandomRange,
		"sample":        b.fnSample,
		"log":           b.fnLog,
		"log_activate":  b.fnLogActivate,
		"log_cant":      b.fnLogCant,
		"faint":         b.fnFaint,
		"switch":        b.fnSwitch,
		"force_switch":  b.fnForceSwitch,
		"calculate_damage": b.fnCalculateDamage,
		"types_of":      b.fnTypesOf,
		"type_effectiveness": b.fnTypeEffectiveness,
		"move_makes_contact": b.fnMoveMakesContact,
		"move_flag":    b.fnMoveFlag,
		"has_ability":   b.fnHasAbility,
		"has_item":      b.fnHasItem,
		"is_fainted":    b.fnIsFainted,
		"all_active_mons": b.fnAllActiveMons,
		"foes":          b.fnFoes,
		"allies":        b.fnAllies,
		"adjacent_foes": b.fnAdjacentFoes,
		"position_of":   b.fnPositionOf,
		"effect_state_of": b.fnEffectStateOf,
		"pp_of":         b.fnPPOf,
		"deduct_pp":     b.fnDeductPP,
		"mon_at":        b.fnMonAt,
		"battle_turn":   b.fnBattleTurn,
		"is_raining":    b.fnIsRaining,
		"hp_of":         b.fnHPOf,
		"max_hp_of":     b.fnMaxHPOf,
		"duration_of":   b.fnDurationOf,
		"toxic_counter": b.fnToxicCounter,
		"set_toxic_counter": b.fnSetToxicCounter,
		"remove_item":   b.fnRemoveItem,
		"use_move":      b.fnUseMove,
		"field_environment": b.fnFieldEnvironment,
		"try_hit":       b.fnTryHit,
	}
}

func monArg(v fxlang.Value) (MonHandle, bool) {
	if v.Kind == fxlang.KindObject && v.Tag == "monref" {
		h, ok := v.Ref.(MonHandle)
		return h, ok
	}
	return MonHandle{}, false
}

func (b *Battle) mustMon(args []fxlang.Value, i int) *Mon {
	if i >= len(args) {
		return nil
	}
	h, ok := monArg(args[i])
	if !ok {
		return nil
	}
	return b.monAt(h)
}

// runDamageEvent dispatches the "damage" event across target's ability,
// item, status, and volatile listeners, letting one of them adjust the
// incoming amount before it's applied — e.g. Focus Sash clamping a lethal
// hit to 1 HP. Every path that reduces a mon's HP (the `damage` builtin a
// script calls directly, and the move pipeline's own hit damage) routes
// through this so an item/ability reacts the same way regardless of
// whether the damage came from a script or a move's main hit.
func (b *Battle) runDamageEvent(targetH MonHandle, amount int64, source fxlang.Value) (int64, error) {
	target := b.monAt(targetH)
	if target == nil || target.Fainted {
		return 0, nil
	}
	listeners := b.monListeners(targetH)
	if len(listeners) == 0 {
		return amount, nil
	}
	bus := NewEventBus(b)
	result, err := bus.Dispatch("damage", CategoryRelay, fxlang.Int(amount), listeners, func(se sourceEffect) *fxlang.Context {
		return &fxlang.Context{
			Funcs:       b.funcs(),
			EffectState: fxlang.Object("effectstate", se.effectState),
			Source:      source,
			Target:      fxlang.Object("monref", targetH),
			Host:        b,
		}
	})
	if err != nil {
		return amount, err
	}
	out := result.AsInt()
	if out < 0 {
		out = 0
	}
	return out, nil
}

// fnDamage implements the `damage` function: raw HP loss routed through the
// target's Damage-event listeners (so e.g. Focus Sash can clamp a lethal
// hit to 1 before it lands) before it is actually applied.
func (b *Battle) fnDamage(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 2 {
		return fxlang.Undefined(), fmt.Errorf("fxlang: damage requires 2 args")
	}
	targetH, ok := monArg(args[0])
	if !ok {
		return fxlang.Undefined(), fmt.Errorf("fxlang: damage: not a mon")
	}
	target := b.monAt(targetH)
	if target == nil || target.Fainted {
		return fxlang.Int(0), nil
	}
	amount, err := b.runDamageEvent(targetH, args[1].AsInt(), ctx.Source)
	if err != nil {
		return fxlang.Undefined(), err
	}
	if amount < 0 {
		amount = 0
	}
	dealt := target.Damage(int(amount))
	b.Log.AddSplit(b.Turn, targetH.Side,
		fmt.Sprintf("%s took damage! (%d%%)", target.Nickname, hpPercent(target)),
		fmt.Sprintf("%s took damage! (%d/%d)", target.Nickname, target.CurHP, target.MaxHP))
	if target.Fainted {
		b.Log.Add(b.Turn, "%s fainted!", target.Nickname)
	}
	return fxlang.Int(int64(dealt)), nil
}

// fnHeal implements `heal`: restores HP, clamped to max, no-op on a
// fainted mon.
func (b *Battle) fnHeal(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Int(0), nil
	}
	healed := m.Heal(int(args[1].AsInt()))
	if healed > 0 {
		b.Log.AddSplit(b.Turn, monHandleOf(b, m).Side,
			fmt.Sprintf("%s regained health! (%d%%)", m.Nickname, hpPercent(m)),
			fmt.Sprintf("%s regained health! (%d/%d)", m.Nickname, m.CurHP, m.MaxHP))
	}
	return fxlang.Int(int64(healed)), nil
}

// boostStageOf reads a mon's current stage for a named stat, used by
// choice validation to reject a boost-item use that would have no effect
// (the stat already sits at the +6 cap) without running its script.
func boostStageOf(m *Mon, stat string) int {
	switch stat {
	case "atk":
		return m.Boosts.Atk
	case "def":
		return m.Boosts.Def
	case "spa":
		return m.Boosts.SpA
	case "spd":
		return m.Boosts.SpD
	case "spe":
		return m.Boosts.Spe
	case "accuracy":
		return m.Boosts.Accuracy
	case "evasion":
		return m.Boosts.Evasion
	}
	return 0
}

func statDelta(m *Mon, stat string, delta int) {
	switch stat {
	case "atk":
		m.Boosts.Atk = clampBoost(m.Boosts.Atk + delta)
	case "def":
		m.Boosts.Def = clampBoost(m.Boosts.Def + delta)
	case "spa":
		m.Boosts.SpA = clampBoost(m.Boosts.SpA + delta)
	case "spd":
		m.Boosts.SpD = clampBoost(m.Boosts.SpD + delta)
	case "spe":
		m.Boosts.Spe = clampBoost(m.Boosts.Spe + delta)
	case "accuracy":
		m.Boosts.Accuracy = clampBoost(m.Boosts.Accuracy + delta)
	case "evasion":
		m.Boosts.Evasion = clampBoost(m.Boosts.Evasion + delta)
	}
}

// fnBoost implements `boost: $target 'statname' n`, raising a single stat
// stage by n (clamped to +6).
func (b *Battle) fnBoost(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 3 {
		return fxlang.Undefined(), nil
	}
	stat := strings.ToLower(args[1].String())
	statDelta(m, stat, int(args[2].AsInt()))
	b.Log.Add(b.Turn, "%s's %s rose!", m.Nickname, stat)
	return fxlang.Undefined(), nil
}

// fnUnboost implements `unboost`, the mirror of boost for negative stages
// expressed as a positive magnitude argument.
func (b *Battle) fnUnboost(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 3 {
		return fxlang.Undefined(), nil
	}
	stat := strings.ToLower(args[1].String())
	statDelta(m, stat, -int(args[2].AsInt()))
	b.Log.Add(b.Turn, "%s's %s fell!", m.Nickname, stat)
	return fxlang.Undefined(), nil
}

// applyStatus installs a primary status on m, rolling sleep's 1-3 turn
// duration and resetting the toxic counter. It fails if the mon already
// carries a different status.
func (b *Battle) applyStatus(m *Mon, id content.Id) bool {
	if m.Status != "" && m.Status != id {
		return false
	}
	m.Status = id
	m.StatusState = NewEffectState()
	m.ToxicCounter = 0
	if id == "slp" {
		m.StatusState.Duration = 1 + b.PRNG.Sample(3)
		m.StatusState.HasDuration = true
	} else if cond, ok := b.Content.Condition(id); ok && cond.Duration > 0 {
		m.StatusState.Duration = cond.Duration
		m.StatusState.HasDuration = true
	}
	b.Log.Add(b.Turn, "%s was afflicted with %s!", m.Nickname, id)
	return true
}

// fnSetStatus implements `set_status`, the scripting face of applyStatus.
func (b *Battle) fnSetStatus(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Bool(false), nil
	}
	return fxlang.Bool(b.applyStatus(m, content.Id(args[1].String()))), nil
}

// fnCureStatus implements `cure_status`, clearing whatever primary status
// the mon currently holds.
func (b *Battle) fnCureStatus(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || m.Status == "" {
		return fxlang.Undefined(), nil
	}
	prev := m.Status
	m.Status = ""
	m.StatusState = nil
	m.ToxicCounter = 0
	b.Log.Add(b.Turn, "%s was cured of its %s!", m.Nickname, prev)
	return fxlang.Undefined(), nil
}

// fnAddVolatile implements `add_volatile`: installs a fresh effect-state
// for id unless the mon already carries it, per the volatile invariant
// (adding an existing one either extends or no-ops; this engine no-ops).
func (b *Battle) fnAddVolatile(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Bool(false), nil
	}
	id := args[1].String()
	if m.Volatiles == nil {
		m.Volatiles = map[string]*EffectState{}
	}
	if es, ok := m.Volatiles[id]; ok {
		return fxlang.Object("effectstate", es), nil
	}
	es := NewEffectState()
	if cond, ok := b.Content.Condition(content.Id(id)); ok && cond.Duration > 0 {
		es.Duration = cond.Duration
		es.HasDuration = true
	}
	m.Volatiles[id] = es
	return fxlang.Object("effectstate", es), nil
}

// fnRemoveVolatile implements `remove_volatile`.
func (b *Battle) fnRemoveVolatile(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Undefined(), nil
	}
	delete(m.Volatiles, args[1].String())
	return fxlang.Undefined(), nil
}

func sideArg(b *Battle, v fxlang.Value) *Side {
	if v.Kind == fxlang.KindObject && v.Tag == "sideref" {
		if idx, ok := v.Ref.(int); ok {
			return b.sideAt(idx)
		}
	}
	if h, ok := monArg(v); ok {
		return b.sideAt(h.Side)
	}
	return nil
}

// fnSideCondition implements `side_condition: $side_or_mon 'id'`, starting
// a side condition (Reflect, Spikes, ...) on the named side.
func (b *Battle) fnSideCondition(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 2 {
		return fxlang.Undefined(), nil
	}
	side := sideArg(b, args[0])
	if side == nil {
		return fxlang.Undefined(), nil
	}
	b.startSideCondition(side.Index, args[1].String())
	return fxlang.Undefined(), nil
}

func (b *Battle) fnWeather(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 1 {
		return fxlang.Str(b.Field.Weather), nil
	}
	b.startWeather(args[0].String())
	return fxlang.Undefined(), nil
}

func (b *Battle) fnTerrain(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 1 {
		return fxlang.Str(b.Field.Terrain), nil
	}
	b.startTerrain(args[0].String())
	return fxlang.Undefined(), nil
}

func (b *Battle) fnPseudoWeather(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 1 {
		return fxlang.Undefined(), nil
	}
	b.startPseudoWeather(args[0].String())
	return fxlang.Undefined(), nil
}

// fnChance implements `chance(num, den)`, a direct PRNG query.
func (b *Battle) fnChance(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 2 {
		return fxlang.Bool(false), nil
	}
	return fxlang.Bool(b.PRNG.Chance(uint64(args[0].AsInt()), uint64(args[1].AsInt()))), nil
}

// fnRandomRange implements `random_range(min, max)`, a half-open PRNG draw.
func (b *Battle) fnRandomRange(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 2 {
		return fxlang.Int(0), nil
	}
	lo, hi := args[0].AsInt(), args[1].AsInt()
	if hi <= lo {
		return fxlang.Int(lo), nil
	}
	return fxlang.Int(lo + int64(b.PRNG.Sample(int(hi-lo)))), nil
}

// fnSample implements `sample(list)`, picking one element uniformly.
func (b *Battle) fnSample(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 1 || args[0].Kind != fxlang.KindList || len(args[0].List) == 0 {
		return fxlang.Undefined(), nil
	}
	list := args[0].List
	idx := 0
	if len(list) > 1 {
		idx = b.PRNG.Sample(len(list))
	}
	return list[idx], nil
}

// fnLog implements `log: 'event' 'key' value 'key' value ...`, the generic
// structured-log escape hatch content scripts use for their own events.
func (b *Battle) fnLog(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) == 0 {
		return fxlang.Undefined(), nil
	}
	var sb strings.Builder
	sb.WriteString(args[0].String())
	for i := 1; i+1 < len(args); i += 2 {
		sb.WriteString("|")
		sb.WriteString(args[i].String())
		sb.WriteString(":")
		sb.WriteString(args[i+1].String())
	}
	b.Log.Add(b.Turn, "%s", sb.String())
	return fxlang.Undefined(), nil
}

func (b *Battle) fnLogActivate(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return b.fnLog(ctx, append([]fxlang.Value{fxlang.Str("activate")}, args...))
}

func (b *Battle) fnLogCant(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return b.fnLog(ctx, append([]fxlang.Value{fxlang.Str("cant")}, args...))
}

// fnFaint implements `faint`, immediately fainting the named mon whether or
// not its HP has actually reached zero (e.g. Perish Song's counter).
func (b *Battle) fnFaint(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || m.Fainted {
		return fxlang.Undefined(), nil
	}
	m.CurHP = 0
	m.Fainted = true
	b.Log.Add(b.Turn, "%s fainted!", m.Nickname)
	return fxlang.Undefined(), nil
}

// fnSwitch implements `switch: $mon $team_index`, pulling a benched mon
// into the fainted/departing mon's position.
func (b *Battle) fnSwitch(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	h, ok := monArg(args[0])
	if !ok || len(args) < 2 {
		return fxlang.Bool(false), nil
	}
	p := b.playerAt(h.Side, h.Player)
	m := b.monAt(h)
	if p == nil || m == nil || m.Position < 0 {
		return fxlang.Bool(false), nil
	}
	idx := int(args[1].AsInt())
	return fxlang.Bool(b.switchIn(p, h.Side, idx, m.Position) == nil), nil
}

// fnForceSwitch implements `force_switch: $mon`, marking mon for a
// mandatory switch the turn controller will request at the next pause
// point (it cannot pick the replacement itself — that needs a player
// choice).
func (b *Battle) fnForceSwitch(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	h, ok := monArg(args[0])
	if !ok {
		return fxlang.Undefined(), nil
	}
	b.pendingForceSwitch = append(b.pendingForceSwitch, h)
	return fxlang.Undefined(), nil
}

// fnCalculateDamage implements `calculate_damage: $attacker $target [move]`,
// running the standard damage formula (stats, boosts, STAB, type
// effectiveness, weather, screens, crit and damage rolls) without applying
// the result. The move defaults to the one currently executing; naming a
// third argument computes for that move instead.
func (b *Battle) fnCalculateDamage(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	attacker := b.mustMon(args, 0)
	target := b.mustMon(args, 1)
	if attacker == nil || target == nil {
		return fxlang.Undefined(), fmt.Errorf("fxlang: calculate_damage requires an attacker and a target mon")
	}
	am := b.CurrentActiveMove()
	if len(args) >= 3 {
		id := content.Id(args[2].String())
		md, ok := b.Content.Move(id)
		if !ok {
			return fxlang.Undefined(), fmt.Errorf("fxlang: calculate_damage: no move %q", id)
		}
		user, _ := monArg(args[0])
		am = &ActiveMove{
			ID:          id,
			Data:        md,
			User:        user,
			Targets:     []MonHandle{monHandleOf(b, target)},
			BasePower:   md.BasePower,
			EffectState: NewEffectState(),
		}
	}
	if am == nil || am.Data.Category == content.CategoryStatus {
		return fxlang.Int(0), nil
	}
	eff := b.Content.TypeChart().Effectiveness(am.Data.Type, primaryType(target))
	for _, t := range typesOf(target)[1:] {
		eff *= b.Content.TypeChart().Effectiveness(am.Data.Type, t)
	}
	if eff == 0 {
		return fxlang.Int(0), nil
	}
	dmg, _ := NewMovePipeline(b).calculateDamage(am, attacker, target, eff)
	return fxlang.Int(int64(dmg)), nil
}

func (b *Battle) fnTypesOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil {
		return fxlang.List(nil), nil
	}
	out := make([]fxlang.Value, len(m.Species.Types))
	for i, t := range m.Species.Types {
		out[i] = fxlang.Str(t)
	}
	return fxlang.List(out), nil
}

func (b *Battle) fnTypeEffectiveness(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 2 {
		return fxlang.Fraction(1, 1), nil
	}
	eff := b.Content.TypeChart().Effectiveness(args[0].String(), args[1].String())
	num := int64(eff * 4)
	return fxlang.Fraction(num, 4), nil
}

// fnMoveMakesContact reports whether the move currently executing carries
// the contact flag.
func (b *Battle) fnMoveMakesContact(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	am := b.CurrentActiveMove()
	return fxlang.Bool(am != nil && am.Data.Flags.Contact), nil
}

// fnMoveFlag reports whether the move currently executing carries the
// named boolean flag (sound, powder, bullet, bite, pulse, punch, heal).
func (b *Battle) fnMoveFlag(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	am := b.CurrentActiveMove()
	if am == nil || len(args) < 1 {
		return fxlang.Bool(false), nil
	}
	switch strings.ToLower(args[0].String()) {
	case "contact":
		return fxlang.Bool(am.Data.Flags.Contact), nil
	case "sound":
		return fxlang.Bool(am.Data.Flags.Sound), nil
	case "powder":
		return fxlang.Bool(am.Data.Flags.Powder), nil
	case "heal":
		return fxlang.Bool(am.Data.Flags.Heal), nil
	case "bullet":
		return fxlang.Bool(am.Data.Flags.Bullet), nil
	case "bite":
		return fxlang.Bool(am.Data.Flags.Bite), nil
	case "pulse":
		return fxlang.Bool(am.Data.Flags.Pulse), nil
	case "punch":
		return fxlang.Bool(am.Data.Flags.Punch), nil
	case "authentic":
		return fxlang.Bool(am.Data.Flags.Authentic), nil
	}
	return fxlang.Bool(false), nil
}

func (b *Battle) fnHasAbility(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Bool(false), nil
	}
	return fxlang.Bool(m.HasAbility(content.Id(args[1].String()))), nil
}

func (b *Battle) fnHasItem(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Bool(false), nil
	}
	return fxlang.Bool(m.HasItem(content.Id(args[1].String()))), nil
}

func (b *Battle) fnIsFainted(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	return fxlang.Bool(m == nil || m.Fainted), nil
}

func monsToValues(b *Battle, mons []*Mon) fxlang.Value {
	out := make([]fxlang.Value, 0, len(mons))
	for _, m := range mons {
		out = append(out, fxlang.Object("monref", monHandleOf(b, m)))
	}
	return fxlang.List(out)
}

func (b *Battle) fnAllActiveMons(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return monsToValues(b, b.AllActiveMons()), nil
}

func (b *Battle) fnFoes(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	h, ok := monArg(args[0])
	if !ok {
		return fxlang.List(nil), nil
	}
	side := b.sideAt(h.Side)
	if side == nil {
		return fxlang.List(nil), nil
	}
	foe := side.FoeSide(b)
	if foe == nil {
		return fxlang.List(nil), nil
	}
	return monsToValues(b, foe.AllActive(b)), nil
}

func (b *Battle) fnAllies(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	h, ok := monArg(args[0])
	if !ok {
		return fxlang.List(nil), nil
	}
	side := b.sideAt(h.Side)
	if side == nil {
		return fxlang.List(nil), nil
	}
	var out []*Mon
	for _, m := range side.AllActive(b) {
		if monHandleOf(b, m) != h {
			out = append(out, m)
		}
	}
	return monsToValues(b, out), nil
}

func (b *Battle) fnAdjacentFoes(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return b.fnFoes(ctx, args)
}

func (b *Battle) fnPositionOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil {
		return fxlang.Undefined(), nil
	}
	return fxlang.Int(int64(m.Position)), nil
}

// fnEffectStateOf implements `effect_state_of($mon, 'carrier')`, returning
// the connector for the named carrier on the target (ability/item/status).
func (b *Battle) fnEffectStateOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	h, ok := monArg(args[0])
	if !ok || len(args) < 2 {
		return fxlang.Undefined(), nil
	}
	var conn Connector
	switch strings.ToLower(args[1].String()) {
	case "ability":
		conn = MonAbilityConnector{Mon: h}
	case "item":
		conn = MonItemConnector{Mon: h}
	case "status":
		conn = MonStatusConnector{Mon: h}
	default:
		conn = MonVolatileConnector{Mon: h, ID: args[1].String()}
	}
	return fxlang.Object("connector", conn), nil
}

func (b *Battle) fnPPOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Int(0), nil
	}
	id := content.Id(args[1].String())
	for _, mv := range m.Moves {
		if mv.Move == id {
			return fxlang.Int(int64(mv.PP)), nil
		}
	}
	return fxlang.Int(0), nil
}

func (b *Battle) fnDeductPP(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Undefined(), nil
	}
	id := content.Id(args[1].String())
	n := int64(1)
	if len(args) >= 3 {
		n = args[2].AsInt()
	}
	for i := range m.Moves {
		if m.Moves[i].Move == id {
			m.Moves[i].PP -= int(n)
			if m.Moves[i].PP < 0 {
				m.Moves[i].PP = 0
			}
		}
	}
	return fxlang.Undefined(), nil
}

func (b *Battle) fnMonAt(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 2 {
		return fxlang.Undefined(), nil
	}
	side := b.sideAt(int(args[0].AsInt()))
	if side == nil {
		return fxlang.Undefined(), nil
	}
	m := side.ActiveAt(b, int(args[1].AsInt()))
	if m == nil {
		return fxlang.Undefined(), nil
	}
	return fxlang.Object("monref", monHandleOf(b, m)), nil
}

func (b *Battle) fnBattleTurn(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return fxlang.Int(int64(b.Turn)), nil
}

func (b *Battle) fnIsRaining(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return fxlang.Bool(b.Field.Weather == "rain" || b.Field.Weather == "raindance"), nil
}

func (b *Battle) fnHPOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil {
		return fxlang.Int(0), nil
	}
	return fxlang.Int(int64(m.CurHP)), nil
}

func (b *Battle) fnMaxHPOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil {
		return fxlang.Int(0), nil
	}
	return fxlang.Int(int64(m.MaxHP)), nil
}

// fnDurationOf reads the `duration` key off an effect-state connector
// value, used by scripts that log a counting-down effect (Perish Song,
// Sleep).
func (b *Battle) fnDurationOf(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 1 {
		return fxlang.Undefined(), nil
	}
	es := effectStateOfValue(args[0])
	if es == nil {
		return fxlang.Undefined(), nil
	}
	return es.Get("duration"), nil
}

func effectStateOfValue(v fxlang.Value) *EffectState {
	if v.Kind != fxlang.KindObject {
		return nil
	}
	switch v.Tag {
	case "effectstate":
		es, _ := v.Ref.(*EffectState)
		return es
	}
	return nil
}

func (b *Battle) fnToxicCounter(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil {
		return fxlang.Int(0), nil
	}
	return fxlang.Int(int64(m.ToxicCounter)), nil
}

func (b *Battle) fnSetToxicCounter(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || len(args) < 2 {
		return fxlang.Undefined(), nil
	}
	m.ToxicCounter = int(args[1].AsInt())
	return fxlang.Undefined(), nil
}

func (b *Battle) fnRemoveItem(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	m := b.mustMon(args, 0)
	if m == nil || m.Item == "" {
		return fxlang.Bool(false), nil
	}
	lost := m.Item
	m.Item = ""
	m.ItemState = nil
	m.ItemKnockedOff = true
	b.Log.Add(b.Turn, "%s's %s was consumed!", m.Nickname, lost)
	return fxlang.Bool(true), nil
}

// fnUseMove implements `use_move: 'id'`, recursively invoking the move
// pipeline for the currently-executing move's user against its current
// targets — how Metronome and Nature Power resolve to a concrete move.
func (b *Battle) fnUseMove(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	if len(args) < 1 {
		return fxlang.Undefined(), nil
	}
	am := b.CurrentActiveMove()
	if am == nil {
		return fxlang.Undefined(), nil
	}
	id := content.Id(args[0].String())
	data, ok := b.Content.Move(id)
	if !ok {
		return fxlang.Undefined(), nil
	}
	var target PositionHandle
	hasTarget := false
	if len(am.Targets) > 0 {
		target = PositionHandle{Side: am.Targets[0].Side, Position: b.monAt(am.Targets[0]).Position}
		hasTarget = true
	}
	outcome, err := NewMovePipeline(b).executeAs(am.User, id, data, target, hasTarget)
	if err != nil {
		return fxlang.Undefined(), err
	}
	return fxlang.Bool(outcome.AnyHit), nil
}

// fnFieldEnvironment implements `field_environment()`, read by Nature
// Power to pick which move it becomes.
func (b *Battle) fnFieldEnvironment(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return fxlang.Str(b.Field.Environment), nil
}

// fnTryHit is the bare-call form some effect scripts use to re-enter the
// try-hit gate explicitly; the content set never calls it directly today
// (try_hit is always a callback name, not a function), but it is kept as a
// no-op that returns true, so a script calling it passes the gate instead
// of failing with "unknown function".
func (b *Battle) fnTryHit(ctx *fxlang.Context, args []fxlang.Value) (fxlang.Value, error) {
	return fxlang.Bool(true), nil
}

// sortedVolatileIDs returns m's volatile ids in lexical order. Volatile
// storage is a map, and Go map iteration order changes run to run; every
// reader that dispatches callbacks or logs per volatile walks this sorted
// view instead, so a replay with the same seed visits carriers in the same
// order.
func sortedVolatileIDs(m *Mon) []string {
	ids := make([]string, 0, len(m.Volatiles))
	for id := range m.Volatiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sortedConditionIDs is sortedVolatileIDs for a string-keyed effect-state
// map (side conditions, pseudo-weathers, field conditions).
func sortedConditionIDs(conds map[string]*EffectState) []string {
	ids := make([]string, 0, len(conds))
	for id := range conds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// monListeners gathers the relay-event listener set for a single mon: its
// ability, held item, primary status, and volatiles, in that order. This is
// a focused subset of the full gather: side conditions, weather, terrain,
// and allies are gathered separately by the call sites that need them (the
// move pipeline's base-power dispatch, the residual phase).
func (b *Battle) monListeners(h MonHandle) []sourceEffect {
	m := b.monAt(h)
	if m == nil {
		return nil
	}
	var out []sourceEffect
	if m.Ability != "" {
		if ab, ok := b.Content.Ability(m.Ability); ok && ab.Effect != "" {
			out = append(out, sourceEffect{id: m.Ability, source: ab.Effect, effectState: m.AbilityState})
		}
	}
	if m.Item != "" {
		if it, ok := b.Content.Item(m.Item); ok && it.Effect != "" {
			out = append(out, sourceEffect{id: m.Item, source: it.Effect, effectState: m.ItemState})
		}
	}
	if m.Status != "" {
		if cond, ok := b.Content.Condition(m.Status); ok && cond.Effect != "" {
			out = append(out, sourceEffect{id: m.Status, source: cond.Effect, effectState: m.StatusState})
		}
	}
	for _, id := range sortedVolatileIDs(m) {
		if cond, ok := b.Content.Condition(content.Id(id)); ok && cond.Effect != "" {
			out = append(out, sourceEffect{id: content.Id(id), source: cond.Effect, effectState: m.Volatiles[id]})
		}
	}
	return out
}
