package battle

import (
	"fmt"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
)

// ActiveMove is the live, mutable instance of a move being used this
// action: a copy of its static data plus the bookkeeping that changes hit
// to hit (current base power after modifiers, which hit number a multihit
// move is on, its own effect-state for scripts that stash per-use data).
// It is discarded once the action finishes.
type ActiveMove struct {
	ID       content.Id
	Data     *content.MoveData
	User     MonHandle
	Targets  []MonHandle
	HitNum   int
	BasePower int
	TotalDamageDealt int

	EffectState *EffectState

	// missed records targets whose single per-use accuracy roll failed;
	// moves flagged multiaccuracy bypass this and re-roll every hit.
	missed map[MonHandle]bool
}

// MovePipeline drives a single move action through its full lifecycle:
// before-move gates, PP, targeting,
// accuracy, the hit loop, and the post-hit bookkeeping (recoil, drain,
// self-destruct, user-switch).
type MovePipeline struct {
	b   *Battle
	bus *EventBus
}

// NewMovePipeline returns a pipeline bound to b.
func NewMovePipeline(b *Battle) *MovePipeline { return &MovePipeline{b: b, bus: NewEventBus(b)} }

// MoveOutcome reports what happened so the turn controller can react: a
// self-destructing or recoil-KO'd user, a move that asks the user to
// switch out afterward, and whether the move actually struck anything.
type MoveOutcome struct {
	Failed      bool
	FailReason  string
	UserFainted bool
	UserSwitch  bool
	AnyHit      bool
}

// Execute runs the move named by moveSlot on user at a target position. If
// the move's target class doesn't need an explicit target (self, side,
// field), targetPos/hasTarget are ignored.
func (mp *MovePipeline) Execute(user MonHandle, moveSlot int, targetPos PositionHandle, hasTarget bool) (MoveOutcome, error) {
	b := mp.b
	mon := b.monAt(user)
	if mon == nil || mon.Fainted {
		return MoveOutcome{Failed: true, FailReason: "no_mon"}, nil
	}
	if moveSlot < 0 || moveSlot >= len(mon.Moves) {
		return MoveOutcome{Failed: true, FailReason: ReasonUnknownMove}, nil
	}
	slot := &mon.Moves[moveSlot]
	moveData, ok := b.Content.Move(slot.Move)
	if !ok {
		return MoveOutcome{Failed: true, FailReason: ReasonUnknownMove}, nil
	}

	if blocked, reason, err := mp.beforeMoveGate(user, mon); err != nil {
		return MoveOutcome{}, err
	} else if blocked {
		if reason != "" {
			b.Log.Add(b.Turn, "%s", reason)
		}
		return MoveOutcome{Failed: true, FailReason: "cant"}, nil
	}

	if slot.PP <= 0 {
		return MoveOutcome{Failed: true, FailReason: ReasonNoPP}, nil
	}
	slot.PP--

	return mp.runMove(user, slot.Move, moveData, targetPos, hasTarget)
}

// executeAs runs a move a script called by id (Metronome's chosen move,
// Nature Power's resolved move) without the PP/before-move gate a
// player-chosen move goes through — those only apply to the move the
// player actually selected, not one called on their behalf.
func (mp *MovePipeline) executeAs(user MonHandle, id content.Id, moveData *content.MoveData, targetPos PositionHandle, hasTarget bool) (MoveOutcome, error) {
	return mp.runMove(user, id, moveData, targetPos, hasTarget)
}

// runMove is the shared tail of Execute/executeAs: instantiate the
// ActiveMove, resolve targets, try-move gate, the hit loop, and the
// post-move bookkeeping (self-destruct, recoil, drain already applied
// per-hit, user-switch).
func (mp *MovePipeline) runMove(user MonHandle, id content.Id, moveData *content.MoveData, targetPos PositionHandle, hasTarget bool) (MoveOutcome, error) {
	b := mp.b
	mon := b.monAt(user)
	if mon == nil || mon.Fainted {
		return MoveOutcome{Failed: true, FailReason: "no_mon"}, nil
	}

	b.Log.Add(b.Turn, "%s used %s!", mon.Nickname, moveData.Name)

	targets, err := mp.resolveTargets(user, moveData, targetPos, hasTarget)
	if err != nil {
		return MoveOutcome{}, err
	}

	am := &ActiveMove{
		ID:          id,
		Data:        moveData,
		User:        user,
		Targets:     targets,
		BasePower:   moveData.BasePower,
		EffectState: NewEffectState(),
	}
	b.pushActiveMove(am)
	defer b.popActiveMove()

	if ok, reason := mp.tryMove(am); !ok {
		if reason != "" {
			b.Log.Add(b.Turn, "%s", reason)
		}
		return MoveOutcome{Failed: true, FailReason: reason}, nil
	}

	// Accuracy rolls once per target per use; only a multiaccuracy move
	// re-rolls on every hit of a multihit sequence.
	am.missed = map[MonHandle]bool{}
	if !moveData.MultiAccuracy {
		for _, t := range targets {
			tm := b.monAt(t)
			if tm == nil || tm.Fainted {
				continue
			}
			if !mp.checkAccuracy(am, mon, tm) {
				am.missed[t] = true
				b.Log.Add(b.Turn, "%s's attack missed!", mon.Nickname)
			}
		}
	}

	outcome := MoveOutcome{}
	if len(targets) == 0 && moveData.HitEffect != nil {
		// Side- and field-scoped moves (Reflect, Rain Dance) resolve to no
		// concrete mon targets; their effect lands via the user's side, or
		// the foe's for a foe-side hazard.
		ref := mon
		if moveData.Target == content.TargetFoeSide {
			if foe := b.sideAt(user.Side).FoeSide(b); foe != nil {
				if act := foe.AllActive(b); len(act) > 0 {
					ref = act[0]
				} else {
					ref = nil
				}
			}
		}
		if ref != nil {
			mp.applyHitEffect(am, mon, ref, moveData.HitEffect)
			outcome.AnyHit = true
		}
	}

	hitCount := mp.hitCountFor(moveData)
	for hit := 0; hit < hitCount; hit++ {
		am.HitNum = hit + 1
		anyAlive := false
		for _, t := range am.Targets {
			if tm := b.monAt(t); tm != nil && !tm.Fainted {
				anyAlive = true
			}
		}
		if !anyAlive {
			break
		}
		landed, err := mp.resolveHit(am)
		if err != nil {
			return outcome, err
		}
		outcome.AnyHit = outcome.AnyHit || landed
	}

	if moveData.SelfDestruct == "always" || (moveData.SelfDestruct == "ifhit" && outcome.AnyHit) {
		if mon.Damage(mon.CurHP) > 0 || mon.CurHP == 0 {
			mon.Fainted = true
		}
		outcome.UserFainted = true
		b.Log.Add(b.Turn, "%s fainted from recoil of its own move!", mon.Nickname)
	}
	if moveData.RecoilPercent > 0 && outcome.AnyHit && !outcome.UserFainted {
		base := am.TotalDamageDealt
		if id == "struggle" {
			base = mon.MaxHP
		}
		recoil := base * moveData.RecoilPercent / 100
		if recoil < 1 && base > 0 {
			recoil = 1
		}
		mon.Damage(recoil)
		b.Log.Add(b.Turn, "%s is hit with recoil!", mon.Nickname)
		if mon.Fainted {
			outcome.UserFainted = true
		}
	}
	if moveData.UserSwitch && outcome.AnyHit && !outcome.UserFainted {
		outcome.UserSwitch = true
	}

	return outcome, nil
}

// beforeMoveGate dispatches the before_move event across the mon's status
// and volatile carriers (sleep, freeze, full paralysis — their scripts log
// their own cant lines and may self-cure, e.g. a thaw roll), then applies
// the one gate with no condition script of its own: flinch, which is
// consumed whether or not anything else already blocked the move.
func (mp *MovePipeline) beforeMoveGate(h MonHandle, mon *Mon) (blocked bool, reason string, err error) {
	b := mp.b
	listeners := b.monListeners(h)
	if len(listeners) > 0 {
		v, derr := mp.bus.Dispatch("before_move", CategoryVote, fxlang.Bool(true), listeners, func(se sourceEffect) *fxlang.Context {
			return &fxlang.Context{
				Funcs:       b.funcs(),
				EffectState: fxlang.Object("effectstate", se.effectState),
				Source:      fxlang.Object("monref", h),
				Target:      fxlang.Object("monref", h),
				Host:        b,
			}
		})
		if derr != nil {
			return false, "", derr
		}
		if v.Kind != fxlang.KindUndefined && !v.Truthy() {
			delete(mon.Volatiles, "flinch")
			return true, "", nil
		}
	}
	if _, has := mon.Volatiles["flinch"]; has {
		delete(mon.Volatiles, "flinch")
		return true, fmt.Sprintf("%s flinched and couldn't move!", mon.Nickname), nil
	}
	return false, "", nil
}

func (mp *MovePipeline) hitCountFor(md *content.MoveData) int {
	switch md.Multihit.Kind {
	case content.MultihitStatic:
		return md.Multihit.N
	case content.MultihitRange:
		lo, hi := md.Multihit.Lo, md.Multihit.Hi
		if hi <= lo {
			return lo
		}
		return lo + mp.b.PRNG.Sample(hi-lo+1)
	default:
		return 1
	}
}

// resolveTargets expands a move's Target class into the concrete mon
// handles it will hit this use, honoring spread-move semantics for doubles.
func (mp *MovePipeline) resolveTargets(user MonHandle, md *content.MoveData, pos PositionHandle, hasTarget bool) ([]MonHandle, error) {
	b := mp.b
	userSide := b.sideAt(user.Side)
	foeSide := userSide.FoeSide(b)

	switch md.Target {
	case content.TargetSelf:
		return []MonHandle{user}, nil
	case content.TargetAllySide, content.TargetFoeSide, content.TargetAll:
		return nil, nil
	case content.TargetAllAdjacent, content.TargetAllAdjFoes:
		var out []MonHandle
		for _, m := range foeSide.AllActive(b) {
			out = append(out, monHandleOf(b, m))
		}
		if md.Target == content.TargetAllAdjacent {
			for _, m := range userSide.AllActive(b) {
				if monHandleOf(b, m) != user {
					out = append(out, monHandleOf(b, m))
				}
			}
		}
		return out, nil
	default:
		if hasTarget {
			side := b.sideAt(pos.Side)
			if side != nil {
				if m := side.ActiveAt(b, pos.Position); m != nil {
					return []MonHandle{monHandleOf(b, m)}, nil
				}
			}
		}
		active := foeSide.AllActive(b)
		if len(active) == 0 {
			return nil, nil
		}
		choice := 0
		if len(active) > 1 {
			choice = b.PRNG.Sample(len(active))
		}
		return []MonHandle{monHandleOf(b, active[choice])}, nil
	}
}

func monHandleOf(b *Battle, m *Mon) MonHandle {
	for si, s := range b.Sides {
		for pi, p := range s.Players {
			for ti, mon := range p.Team {
				if mon == m {
					return MonHandle{Side: si, Player: pi, Index: ti}
				}
			}
		}
	}
	return MonHandle{}
}

// tryMove runs the move's own TryHit-style gate callback, if any, giving
// the move's fxlang Effect script a chance to fail the move outright
// (e.g. Self-Destruct always succeeds, but many status moves check for an
// existing condition first) or to fully delegate to another move (Metronome,
// Nature Power) via use_move. A script that already logged something of its
// own while returning false (a delegated move, an ability-immunity notice)
// is presumed to have told its own story, so the generic failure banner is
// only printed when the callback stayed silent.
func (mp *MovePipeline) tryMove(am *ActiveMove) (ok bool, reason string) {
	if am.Data.Effect == "" {
		return true, ""
	}
	ctx := mp.moveContext(am)
	before := mp.b.Log.Len()
	v, matched, err := mp.b.EffectManager.RunCallback(am.ID, am.Data.Effect, "try_hit", ctx)
	if err != nil || (matched && !v.Truthy()) {
		if mp.b.Log.Len() > before {
			return false, ""
		}
		return false, "But it failed!"
	}
	return true, ""
}

func (mp *MovePipeline) moveContext(am *ActiveMove) *fxlang.Context {
	return &fxlang.Context{
		Funcs:       mp.b.funcs(),
		EffectState: fxlang.Object("effectstate", am.EffectState),
		Source:      fxlang.Object("monref", am.User),
		Host:        mp.b,
	}
}

// resolveHit runs one hit of the move against every still-live target:
// accuracy, substitute interception, type immunity, damage, crit, and the
// move's hit-effect/secondary-effect bundle.
func (mp *MovePipeline) resolveHit(am *ActiveMove) (anyHit bool, err error) {
	b := mp.b
	user := b.monAt(am.User)
	for _, target := range am.Targets {
		tm := b.monAt(target)
		if tm == nil || tm.Fainted {
			continue
		}
		if am.Data.MultiAccuracy {
			if !mp.checkAccuracy(am, user, tm) {
				b.Log.Add(b.Turn, "%s's attack missed!", user.Nickname)
				continue
			}
		} else if am.missed[target] {
			continue
		}
		if am.Data.Category == content.CategoryStatus {
			mp.applyHitEffect(am, user, tm, am.Data.HitEffect)
			mp.applyHitEffect(am, user, user, am.Data.UserEffect)
			anyHit = true
			continue
		}
		eff := b.Content.TypeChart().Effectiveness(am.Data.Type, primaryType(tm))
		for _, t := range typesOf(tm)[1:] {
			eff *= b.Content.TypeChart().Effectiveness(am.Data.Type, t)
		}
		if eff == 0 {
			b.Log.Add(b.Turn, "It doesn't affect %s...", tm.Nickname)
			continue
		}
		power, err := mp.modifyBasePower(am, user, tm)
		if err != nil {
			return anyHit, err
		}
		am.BasePower = power
		dmg, crit := mp.calculateDamage(am, user, tm, eff)

		_, substituted := tm.Volatiles["substitute"]
		if substituted && !am.Data.Flags.Authentic && !am.Data.Flags.Sound {
			dealt := mp.damageSubstitute(tm, dmg)
			am.TotalDamageDealt += dealt
			mp.logEffectiveness(eff, crit)
			anyHit = true
			if am.Data.DrainPercent > 0 && dealt > 0 {
				user.Heal(dealt * am.Data.DrainPercent / 100)
			}
			// Target-directed hit and secondary effects stop at the
			// substitute; the user's own still apply.
			mp.applyHitEffect(am, user, user, am.Data.UserEffect)
			for _, sec := range am.Data.SecondaryEffects {
				if sec.Self != nil && b.PRNG.Chance(uint64(sec.Chance), 100) {
					mp.applyHitEffect(am, user, user, sec.Self)
				}
			}
			continue
		}

		adjusted, err := b.runDamageEvent(target, int64(dmg), fxlang.Object("monref", am.User))
		if err != nil {
			return anyHit, err
		}
		before := tm.CurHP
		dealt := tm.Damage(int(adjusted))
		am.TotalDamageDealt += dealt
		b.Log.AddSplit(b.Turn,
			monHandleOf(b, tm).Side,
			fmt.Sprintf("%s took damage! (%d%%)", tm.Nickname, hpPercent(tm)),
			fmt.Sprintf("%s took damage! (%d/%d -> %d/%d)", tm.Nickname, before, tm.MaxHP, tm.CurHP, tm.MaxHP))
		mp.logEffectiveness(eff, crit)
		anyHit = true

		if am.Data.DrainPercent > 0 && dealt > 0 {
			heal := dealt * am.Data.DrainPercent / 100
			user.Heal(heal)
		}
		mp.applyHitEffect(am, user, tm, am.Data.HitEffect)
		mp.applyHitEffect(am, user, user, am.Data.UserEffect)
		for _, sec := range am.Data.SecondaryEffects {
			if !b.PRNG.Chance(uint64(sec.Chance), 100) {
				continue
			}
			if sec.Target != nil {
				mp.applyHitEffect(am, user, tm, sec.Target)
			}
			if sec.Self != nil {
				mp.applyHitEffect(am, user, user, sec.Self)
			}
		}
	}
	return anyHit, nil
}

// logEffectiveness emits the crit and effectiveness banner lines for one
// landed hit.
func (mp *MovePipeline) logEffectiveness(eff float64, crit bool) {
	b := mp.b
	if crit {
		b.Log.Add(b.Turn, "A critical hit!")
	}
	if eff > 1 {
		b.Log.Add(b.Turn, "It's super effective!")
	} else if eff < 1 {
		b.Log.Add(b.Turn, "It's not very effective...")
	}
}

// damageSubstitute routes dmg into the target's substitute instead of its
// HP, breaking the substitute when its hit points run out. The substitute's
// hit points are a quarter of the owner's max HP, seeded on first hit so a
// volatile installed by any path (move, script, test) behaves the same.
func (mp *MovePipeline) damageSubstitute(tm *Mon, dmg int) int {
	b := mp.b
	es := tm.Volatiles["substitute"]
	cur := int(es.Get("hp").AsInt())
	if es.Get("hp").Kind == fxlang.KindUndefined {
		cur = tm.MaxHP / 4
		if cur < 1 {
			cur = 1
		}
	}
	dealt := dmg
	if dealt > cur {
		dealt = cur
	}
	cur -= dealt
	if cur <= 0 {
		delete(tm.Volatiles, "substitute")
		b.Log.Add(b.Turn, "%s's substitute faded!", tm.Nickname)
	} else {
		es.Set("hp", fxlang.Int(int64(cur)))
		b.Log.Add(b.Turn, "The substitute took the hit for %s!", tm.Nickname)
	}
	return dealt
}

// hpPercent is the public-log view of a mon's remaining HP: a rounded
// percentage rather than the exact fraction its own side sees.
func hpPercent(m *Mon) int {
	if m.MaxHP <= 0 {
		return 0
	}
	return (m.CurHP*100 + m.MaxHP/2) / m.MaxHP
}

// modifyBasePower dispatches the base_power callback across the user's
// ability, its Slow Start volatile and the field's weather, the carriers
// whose scripts adjust a move's power before damage is computed (e.g. the
// Slow Start volatile halving it). Held items and terrain are not consulted.
func (mp *MovePipeline) modifyBasePower(am *ActiveMove, user, target *Mon) (int, error) {
	b := mp.b
	var listeners []sourceEffect
	if user.Ability != "" {
		if ab, ok := b.Content.Ability(user.Ability); ok && ab.Effect != "" {
			listeners = append(listeners, sourceEffect{id: user.Ability, source: ab.Effect, effectState: user.AbilityState})
		}
	}
	if vol, ok := user.Volatiles["slowstart"]; ok {
		if cond, ok := b.Content.Condition("slowstart"); ok && cond.Effect != "" {
			listeners = append(listeners, sourceEffect{id: "slowstart", source: cond.Effect, effectState: vol})
		}
	}
	if b.Field.Weather != "" {
		if cond, ok := b.Content.Condition(contentID(b.Field.Weather)); ok && cond.Effect != "" {
			listeners = append(listeners, sourceEffect{id: contentID(b.Field.Weather), source: cond.Effect, effectState: b.Field.WeatherState})
		}
	}
	if len(listeners) == 0 {
		return am.Data.BasePower, nil
	}
	result, err := mp.bus.Dispatch("base_power", CategoryRelay, fxlang.Int(int64(am.Data.BasePower)), listeners, func(se sourceEffect) *fxlang.Context {
		return &fxlang.Context{
			Funcs:       b.funcs(),
			EffectState: fxlang.Object("effectstate", se.effectState),
			Source:      fxlang.Object("monref", am.User),
			Target:      fxlang.Object("monref", monHandleOf(b, target)),
			Host:        b,
		}
	})
	if err != nil {
		return 0, err
	}
	if result.IsNumeric() {
		return int(result.AsInt()), nil
	}
	return am.Data.BasePower, nil
}

func contentID(s string) content.Id { return content.Id(s) }

func (mp *MovePipeline) checkAccuracy(am *ActiveMove, user, target *Mon) bool {
	if am.Data.Accuracy.Always {
		return true
	}
	acc := am.Data.Accuracy.Percent
	accNum, accDen := AccuracyStageMultiplier(user.Boosts.Accuracy)
	evaNum, evaDen := AccuracyStageMultiplier(-target.Boosts.Evasion)
	chanceNum := int64(acc) * int64(accNum) * int64(evaNum)
	chanceDen := int64(100) * int64(accDen) * int64(evaDen)
	return mp.b.PRNG.Chance(uint64(chanceNum), uint64(chanceDen))
}

// critStageFor folds together every crit-ratio source: the move's own
// ratio, the user's Focus Energy volatile (+2), and the will_crit flag
// that skips the roll entirely.
func (mp *MovePipeline) critStageFor(am *ActiveMove, user *Mon) (stage int, forced bool) {
	if am.Data.WillCrit {
		return 0, true
	}
	stage = am.Data.CritRatio
	if _, ok := user.Volatiles["focusenergy"]; ok {
		stage += 2
	}
	return stage, false
}

// critChanceDen maps a crit stage to the denominator of its 1/N chance;
// stage 3 and beyond always crits.
var critChanceDen = []int{24, 8, 2, 1}

// calculateDamage implements the standard physical/special damage formula
// (level, attack/defense ratio, base power, STAB — doubled on a matching
// tera type — type effectiveness, burn halving, weather and screen
// multipliers, a critical-hit multiplier, and a final 85-100% random
// factor).
func (mp *MovePipeline) calculateDamage(am *ActiveMove, user, target *Mon, effectiveness float64) (dmg int, crit bool) {
	b := mp.b
	stage, forced := mp.critStageFor(am, user)
	if forced {
		crit = true
	} else {
		idx := stage
		if idx < 0 {
			idx = 0
		}
		if idx >= len(critChanceDen) {
			idx = len(critChanceDen) - 1
		}
		crit = b.PRNG.Chance(1, uint64(critChanceDen[idx]))
	}

	atkStat, defStat := user.Stats.Atk, target.Stats.Def
	atkBoost, defBoost := user.Boosts.Atk, target.Boosts.Def
	if am.Data.Category == content.CategorySpecial {
		atkStat, defStat = user.Stats.SpA, target.Stats.SpD
		atkBoost, defBoost = user.Boosts.SpA, target.Boosts.SpD
	}
	// Sandstorm bolsters Rock-type SpD and snow bolsters Ice-type Def.
	switch b.Field.Weather {
	case "sandstorm":
		if am.Data.Category == content.CategorySpecial && monHasType(target, "rock") {
			defStat = defStat * 3 / 2
		}
	case "snow", "hail":
		if am.Data.Category == content.CategoryPhysical && monHasType(target, "ice") {
			defStat = defStat * 3 / 2
		}
	}
	if crit {
		if atkBoost < 0 {
			atkBoost = 0
		}
		if defBoost > 0 {
			defBoost = 0
		}
	}
	an, ad := BoostMultiplier(atkBoost)
	dn, dd := BoostMultiplier(defBoost)
	atk := atkStat * an / ad
	def := defStat * dn / dd
	if atk < 1 {
		atk = 1
	}
	if def < 1 {
		def = 1
	}

	base := float64((2*user.Level/5+2)*am.BasePower*atk/def)/50 + 2

	if len(am.Targets) > 1 {
		base *= 0.75
	}
	switch b.Field.Weather {
	case "raindance":
		if am.Data.Type == "water" {
			base *= 1.5
		} else if am.Data.Type == "fire" {
			base *= 0.5
		}
	case "sunnyday":
		if am.Data.Type == "fire" {
			base *= 1.5
		} else if am.Data.Type == "water" {
			base *= 0.5
		}
	}
	if user.Status == "brn" && am.Data.Category == content.CategoryPhysical && !user.HasAbility("guts") {
		base *= 0.5
	}
	if crit {
		base *= 1.5
	} else {
		base *= mp.screenMultiplier(am, target)
	}
	base *= mp.stabMultiplier(am, user)
	base *= effectiveness

	randFactor := float64(85+b.PRNG.Sample(16)) / 100.0
	base *= randFactor

	dmg = int(base)
	if dmg < 1 {
		dmg = 1
	}
	return dmg, crit
}

// stabMultiplier is 1.5 when the move's type matches one of the user's
// types, and 2.0 when the user is terastallized into the move's type; the
// doubled bonus never applies to a non-matching tera type.
func (mp *MovePipeline) stabMultiplier(am *ActiveMove, user *Mon) float64 {
	if user.Terastallized && user.TeraType == am.Data.Type {
		return 2.0
	}
	for _, t := range typesOf(user) {
		if t == am.Data.Type {
			return 1.5
		}
	}
	return 1.0
}

// screenMultiplier applies Reflect/Light Screen/Aurora Veil on the target's
// side: half damage in singles, two-thirds with multiple active positions.
// Critical hits bypass screens entirely (handled by the caller).
func (mp *MovePipeline) screenMultiplier(am *ActiveMove, target *Mon) float64 {
	side := mp.b.sideAt(monHandleOf(mp.b, target).Side)
	if side == nil {
		return 1.0
	}
	screened := false
	if _, ok := side.Conditions["auroraveil"]; ok {
		screened = true
	}
	if _, ok := side.Conditions["reflect"]; ok && am.Data.Category == content.CategoryPhysical {
		screened = true
	}
	if _, ok := side.Conditions["lightscreen"]; ok && am.Data.Category == content.CategorySpecial {
		screened = true
	}
	if !screened {
		return 1.0
	}
	if mp.b.Format.ActivePerSide > 1 {
		return 2.0 / 3.0
	}
	return 0.5
}

func monHasType(m *Mon, want string) bool {
	for _, t := range typesOf(m) {
		if t == want {
			return true
		}
	}
	return false
}

// applyHitEffect installs whatever a HitEffect bundle describes: boosts, a
// status, a volatile, a side condition, weather/terrain, healing, or a
// forced switch.
func (mp *MovePipeline) applyHitEffect(am *ActiveMove, user, target *Mon, he *content.HitEffect) {
	if he == nil {
		return
	}
	b := mp.b
	if he.Boost != nil {
		applyBoosts(target, *he.Boost)
	}
	if he.Status != "" && target.Status == "" {
		if statusTypeImmune(he.Status, typesOf(target)) {
			b.Log.Add(b.Turn, "%s is immune to %s!", target.Nickname, he.Status)
		} else {
			b.applyStatus(target, he.Status)
		}
	}
	if he.Volatile != "" {
		if target.Volatiles == nil {
			target.Volatiles = map[string]*EffectState{}
		}
		if _, exists := target.Volatiles[string(he.Volatile)]; !exists {
			es := NewEffectState()
			if cond, ok := b.Content.Condition(he.Volatile); ok && cond.Duration > 0 {
				es.Duration = cond.Duration
				es.HasDuration = true
			}
			target.Volatiles[string(he.Volatile)] = es
		}
	}
	if he.SideCondition != "" {
		b.startSideCondition(monHandleOf(b, target).Side, string(he.SideCondition))
	}
	if he.Weather != "" {
		b.startWeather(string(he.Weather))
	}
	if he.Terrain != "" {
		b.startTerrain(string(he.Terrain))
	}
	if he.PseudoWeather != "" {
		b.startPseudoWeather(string(he.PseudoWeather))
	}
	if he.HealPercent != 0 {
		target.Heal(target.MaxHP * he.HealPercent / 100)
	}
}

func applyBoosts(m *Mon, delta content.BoostTable) {
	m.Boosts.Atk = clampBoost(m.Boosts.Atk + delta.Atk)
	m.Boosts.Def = clampBoost(m.Boosts.Def + delta.Def)
	m.Boosts.SpA = clampBoost(m.Boosts.SpA + delta.SpA)
	m.Boosts.SpD = clampBoost(m.Boosts.SpD + delta.SpD)
	m.Boosts.Spe = clampBoost(m.Boosts.Spe + delta.Spe)
	m.Boosts.Accuracy = clampBoost(m.Boosts.Accuracy + delta.Accuracy)
	m.Boosts.Evasion = clampBoost(m.Boosts.Evasion + delta.Evasion)
}

func clampBoost(v int) int {
	if v > 6 {
		return 6
	}
	if v < -6 {
		return -6
	}
	return v
}

// statusTypeImmune reports whether a mon of the given types can never be
// afflicted with status, independent of any type-chart move/target
// interaction (e.g. Fire types can't be burned even by a non-Fire move).
func statusTypeImmune(status content.Id, types []string) bool {
	has := func(want string) bool {
		for _, t := range types {
			if t == want {
				return true
			}
		}
		return false
	}
	switch status {
	case "brn":
		return has("fire")
	case "par":
		return has("electric")
	case "frz":
		return has("ice")
	case "psn", "tox":
		return has("poison") || has("steel")
	}
	return false
}

func typesOf(m *Mon) []string { return m.Species.Types }
func primaryType(m *Mon) string {
	if len(m.Species.Types) == 0 {
		return ""
	}
	return m.Species.Types[0]
}
