package battle

import (
	"fmt"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
)

// pendingReplacement names one position awaiting a forced-switch choice
// before the turn in progress can resume, the synchronous engine's only
// mid-turn suspension point.
type pendingReplacement struct {
	Side     int
	Player   int
	Position int
}

// NeedsReplacement reports the positions currently waiting on a forced
// switch choice. The turn controller is paused exactly when this is
// non-empty; AdvanceTurn refuses to run until every entry is resolved via
// SubmitReplacement.
func (b *Battle) NeedsReplacement() []PositionHandle {
	out := make([]PositionHandle, 0, len(b.pendingReplacements))
	for _, r := range b.pendingReplacements {
		out = append(out, PositionHandle{Side: r.Side, Position: r.Position})
	}
	return out
}

// SubmitReplacement fills one pending replacement slot by bringing team
// member teamIndex of player playerID into the field. It is an error to
// call this when no replacement is pending for that player.
func (b *Battle) SubmitReplacement(playerID string, teamIndex int) error {
	for i, r := range b.pendingReplacements {
		p := b.playerAt(r.Side, r.Player)
		if p == nil || p.ID != playerID {
			continue
		}
		if err := b.switchIn(p, r.Side, teamIndex, r.Position); err != nil {
			return &ChoiceError{Reason: ReasonInvalidSwitch, Message: err.Error()}
		}
		b.pendingReplacements = append(b.pendingReplacements[:i], b.pendingReplacements[i+1:]...)
		return nil
	}
	return &ChoiceError{Reason: ReasonNotYourTurn, Message: "no replacement pending for this player"}
}

// Start marks the battle as begun. Formats with team preview pause for
// each player's `team ...` ordering first; otherwise each player's leading
// team members take the field immediately. Call once, after every
// AddPlayer.
func (b *Battle) Start() error {
	if b.started {
		return fmt.Errorf("battle: already started")
	}
	b.started = true
	if b.Format.TeamPreview {
		b.awaitingTeam = true
		b.Log.Add(0, "teampreview")
		return nil
	}
	return b.fieldInitialMons()
}

// fieldInitialMons brings each player's leading team members into play and
// opens turn 1.
func (b *Battle) fieldInitialMons() error {
	for _, s := range b.Sides {
		for _, p := range s.Players {
			for pos := 0; pos < b.Format.ActivePerSide; pos++ {
				idx := p.FirstUsable()
				if idx < 0 {
					return fmt.Errorf("battle: player %s has no usable team member", p.ID)
				}
				if err := b.switchIn(p, s.Index, idx, pos); err != nil {
					return err
				}
			}
		}
	}
	b.Turn = 1
	b.Log.Add(b.Turn, "turn|turn:%d", b.Turn)
	return nil
}

// SetPlayerChoice parses text and, if valid,
// records it as playerID's decision for the current turn. It does not
// materialize an Action; AdvanceTurn does that once every player is Ready.
func (b *Battle) SetPlayerChoice(playerID string, text string) error {
	p, sideIdx := b.findPlayer(playerID)
	if p == nil {
		return &ChoiceError{Reason: ReasonNotYourTurn, Message: "unknown player"}
	}
	if len(b.pendingReplacements) > 0 {
		return &ChoiceError{Reason: ReasonMustSwitch, Message: "a replacement choice is pending"}
	}
	if b.awaitingTeam {
		return b.setTeamChoice(p, text)
	}
	choices, err := parseChoiceText(b, sideIdx, text)
	if err != nil {
		return err
	}
	if len(choices) != b.Format.ActivePerSide {
		return &ChoiceError{Reason: ReasonMalformed, Message: "wrong number of choices for this format"}
	}
	for i, c := range choices {
		if err := b.validateChoice(p, i, c); err != nil {
			return err
		}
	}
	p.Choices = make([]*Choice, len(choices))
	for i := range choices {
		cc := choices[i]
		p.Choices[i] = &cc
	}
	p.Ready = true
	return nil
}

func (b *Battle) findPlayer(playerID string) (*Player, int) {
	for _, s := range b.Sides {
		for _, p := range s.Players {
			if p.ID == playerID {
				return p, s.Index
			}
		}
	}
	return nil, 0
}

func (b *Battle) validateChoice(p *Player, pos int, c Choice) error {
	switch c.Kind {
	case ChoicePass, ChoiceForfeit:
		return nil
	case ChoiceEscape:
		if mon := b.sideAt(p.Side).ActiveAt(b, pos); mon != nil && mon.Trapped() {
			return &ChoiceError{Reason: ReasonCannotEscape, Message: mon.Nickname + " can't escape"}
		}
		return nil
	case ChoiceSwitch:
		if mon := b.sideAt(p.Side).ActiveAt(b, pos); mon != nil && mon.Trapped() {
			return &ChoiceError{Reason: ReasonSwitchTrapped, Message: "cannot switch: " + mon.Nickname + " is trapped"}
		}
		m := p.MonAt(c.SwitchTo)
		if m == nil {
			return &ChoiceError{Reason: ReasonInvalidSwitch, Message: "no such team member"}
		}
		if m.Fainted || m.Active {
			return &ChoiceError{Reason: ReasonInvalidSwitch, Message: "can't switch to that team member"}
		}
		return nil
	case ChoiceMove:
		side := b.sideAt(p.Side)
		mon := side.ActiveAt(b, pos)
		if mon == nil {
			return &ChoiceError{Reason: ReasonAlreadyFainted, Message: "no active mon at that position"}
		}
		if c.MoveSlot < 0 || c.MoveSlot >= len(mon.Moves) {
			return &ChoiceError{Reason: ReasonUnknownMove, Message: "no such move slot"}
		}
		if mon.Moves[c.MoveSlot].Disabled {
			return &ChoiceError{Reason: ReasonMoveDisabled, Message: "move is disabled"}
		}
		if mon.Moves[c.MoveSlot].PP <= 0 {
			return &ChoiceError{Reason: ReasonNoPP, Message: "no PP left"}
		}
		if c.Tera && p.Terastallized {
			return &ChoiceError{Reason: ReasonMalformed, Message: "already terastallized this battle"}
		}
		return nil
	case ChoiceItem:
		if p.Bag[c.ItemID] <= 0 {
			return &ChoiceError{Reason: ReasonCannotUseItem, Message: "item not in bag"}
		}
		item, ok := b.Content.Item(c.ItemID)
		if !ok || !item.UsableFromBag {
			return &ChoiceError{Reason: ReasonCannotUseItem, Message: "item can't be used this way"}
		}
		if item.BoostStat != "" {
			if !c.HasTarget {
				return &ChoiceError{Reason: ReasonItemInvalidTarget, Message: "invalid target for " + item.Name}
			}
			side := b.sideAt(c.Target.Side)
			target := side.ActiveAt(b, c.Target.Position)
			if target == nil {
				return &ChoiceError{Reason: ReasonItemInvalidTarget, Message: "invalid target for " + item.Name}
			}
			if boostStageOf(target, item.BoostStat) >= 6 {
				return &ChoiceError{Reason: ReasonCannotUseItem,
					Message: fmt.Sprintf("cannot use item: %s cannot be used on %s", item.Name, target.Nickname)}
			}
		}
		return nil
	}
	return &ChoiceError{Reason: ReasonMalformed, Message: "unrecognized choice kind"}
}

// AllReady reports whether every player on both sides has submitted a valid
// choice for the current decision point.
func (b *Battle) AllReady() bool {
	for _, s := range b.Sides {
		for _, p := range s.Players {
			if !p.Ready {
				return false
			}
		}
	}
	return true
}

// AdvanceTurn runs one full turn: materializing every player's choice into
// scheduled Actions, executing them in speed/priority order, then the
// residual phase, then incrementing the turn counter. If a move forces a
// faint or a switch-out mid-turn, AdvanceTurn returns immediately with the
// turn left in progress; the caller must resolve every entry from
// NeedsReplacement via SubmitReplacement and call AdvanceTurn again to
// resume exactly where it left off.
func (b *Battle) AdvanceTurn() error {
	if len(b.pendingReplacements) > 0 {
		return fmt.Errorf("battle: replacement choices still pending")
	}
	if b.ended {
		return fmt.Errorf("battle: already ended")
	}
	if b.awaitingTeam {
		if !b.AllReady() {
			return fmt.Errorf("battle: not every player is ready")
		}
		b.applyTeamOrders()
		b.awaitingTeam = false
		return b.fieldInitialMons()
	}
	if b.scheduler == nil {
		if !b.AllReady() {
			return fmt.Errorf("battle: not every player is ready")
		}
		if err := b.applyOutsideEffects(); err != nil {
			return err
		}
		b.buildQueue()
	}
	return b.runQueue()
}

// buildQueue materializes every player's pending Choice into a scheduled
// Action and installs a fresh scheduler, consuming and clearing the choices.
func (b *Battle) buildQueue() {
	b.scheduler = NewScheduler(b)
	for _, s := range b.Sides {
		for _, p := range s.Players {
			for pos, c := range p.Choices {
				if c == nil {
					continue
				}
				b.queueChoice(p, s.Index, pos, *c)
			}
			p.Choices = make([]*Choice, b.Format.ActivePerSide)
			p.Ready = false
		}
	}
}

func (b *Battle) queueChoice(p *Player, sideIdx, pos int, c Choice) {
	mh := p.sidePosHandle(b, sideIdx, pos)
	switch c.Kind {
	case ChoicePass:
		return
	case ChoiceForfeit:
		b.Forfeit(sideIdx)
		return
	case ChoiceEscape:
		b.Escape(sideIdx)
		return
	case ChoiceSwitch:
		b.scheduler.Add(Action{Kind: ActionSwitch, Mon: mh, SwitchTo: c.SwitchTo, Speed: b.effectiveSpeed(b.monAt(mh))})
	case ChoiceItem:
		b.scheduler.Add(Action{
			Kind: ActionItem, Mon: mh, ItemID: c.ItemID,
			Target: c.Target, HasItemTarget: c.HasTarget, ItemTarget: resolveItemTarget(b, c),
			Speed: b.effectiveSpeed(b.monAt(mh)),
		})
	case ChoiceMove:
		mon := b.monAt(mh)
		if mon == nil || c.MoveSlot < 0 || c.MoveSlot >= len(mon.Moves) {
			return
		}
		md, ok := b.Content.Move(mon.Moves[c.MoveSlot].Move)
		priority := 0
		if ok {
			priority = md.Priority
		}
		b.scheduler.Add(Action{
			Kind: ActionMove, Mon: mh, MoveID: mon.Moves[c.MoveSlot].Move,
			Target: c.Target, HasTarget: c.HasTarget, Tera: c.Tera,
			Priority: priority, Speed: b.effectiveSpeed(mon),
		})
	}
}

func resolveItemTarget(b *Battle, c Choice) MonHandle {
	if !c.HasTarget {
		return MonHandle{}
	}
	side := b.sideAt(c.Target.Side)
	if side == nil {
		return MonHandle{}
	}
	m := side.ActiveAt(b, c.Target.Position)
	if m == nil {
		return MonHandle{}
	}
	return monHandleOf(b, m)
}

func (p *Player) sidePosHandle(b *Battle, sideIdx, pos int) MonHandle {
	side := b.sideAt(sideIdx)
	if side == nil || pos < 0 || pos >= len(side.Positions) {
		return MonHandle{}
	}
	return side.Positions[pos]
}

// effectiveSpeed computes the mon's current Speed stat as modified by its
// boost stage and (per the standard halving rule) paralysis.
func (b *Battle) effectiveSpeed(m *Mon) int {
	if m == nil {
		return 0
	}
	num, den := BoostMultiplier(m.Boosts.Spe)
	spe := m.Stats.Spe * num / den
	if m.Status == "par" {
		spe /= 2
	}
	return spe
}

// runQueue pops and executes queued actions until the queue drains, the
// battle ends, or a forced replacement pauses execution. It is re-entrant:
// calling it again after the pending replacements are resolved resumes
// exactly where it stopped, since the remaining queue lives on b.scheduler.
func (b *Battle) runQueue() error {
	if b.ended {
		b.scheduler = nil
		return nil
	}
	for b.scheduler.Len() > 0 {
		action, ok := b.scheduler.Pop()
		if !ok {
			break
		}
		if err := b.runAction(action); err != nil {
			return err
		}
		b.requestReplacementsForFaintedActives()
		if b.CheckEnded() {
			b.scheduler = nil
			return nil
		}
		if len(b.pendingReplacements) > 0 {
			return nil
		}
		b.scheduler.UpdateSpeed(b.effectiveSpeed2)
	}
	return b.finishTurn()
}

// effectiveSpeed2 adapts effectiveSpeed to the func(MonHandle) int shape
// Scheduler.UpdateSpeed expects.
func (b *Battle) effectiveSpeed2(h MonHandle) int { return b.effectiveSpeed(b.monAt(h)) }

func (b *Battle) runAction(a Action) error {
	mon := b.monAt(a.Mon)
	if mon == nil || (mon.Fainted && a.Kind != ActionSwitch) {
		return nil
	}
	switch a.Kind {
	case ActionSwitch:
		p := b.playerAt(a.Mon.Side, a.Mon.Player)
		if p == nil {
			return nil
		}
		return b.switchIn(p, a.Mon.Side, a.SwitchTo, a.Mon.Index)
	case ActionItem:
		return b.runItemAction(a, mon)
	case ActionMove:
		return b.runMoveAction(a, mon)
	}
	return nil
}

func (b *Battle) runItemAction(a Action, mon *Mon) error {
	p := b.playerAt(a.Mon.Side, a.Mon.Player)
	if p == nil || p.Bag[a.ItemID] <= 0 {
		return nil
	}
	item, ok := b.Content.Item(a.ItemID)
	if !ok {
		return nil
	}
	p.Bag[a.ItemID]--
	b.Log.Add(b.Turn, "%s used %s!", mon.Nickname, item.Name)
	ctx := &fxlang.Context{
		Funcs:  b.funcs(),
		Source: fxlang.Object("monref", a.Mon),
		Host:   b,
	}
	if a.HasItemTarget {
		ctx.Target = fxlang.Object("monref", a.ItemTarget)
	} else {
		ctx.Target = fxlang.Object("monref", a.Mon)
	}
	if err := b.EffectManager.Enter(); err != nil {
		return err
	}
	_, _, err := b.EffectManager.RunCallback(a.ItemID, item.Effect, "use_item", ctx)
	b.EffectManager.Exit()
	return err
}

func (b *Battle) runMoveAction(a Action, mon *Mon) error {
	if a.Tera {
		p := b.playerAt(a.Mon.Side, a.Mon.Player)
		if p != nil && !p.Terastallized {
			p.Terastallized = true
			mon.Terastallized = true
			b.Log.Add(b.Turn, "tera|mon:%s|type:%s", mon.Nickname, mon.TeraType)
		}
	}
	slot := -1
	for i, mv := range mon.Moves {
		if mv.Move == a.MoveID {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil
	}
	outcome, err := NewMovePipeline(b).Execute(a.Mon, slot, a.Target, a.HasTarget)
	if err != nil {
		return err
	}
	if !outcome.UserFainted && outcome.UserSwitch {
		b.pendingForceSwitch = append(b.pendingForceSwitch, a.Mon)
	}
	b.drainForceSwitches()
	return nil
}

// drainForceSwitches turns every handle fnForceSwitch/runMoveAction queued
// this action into either an immediate pending-replacement request (if the
// owning player has a usable bench) or a silent no-op when nothing is
// left to send out.
func (b *Battle) drainForceSwitches() {
	pending := b.pendingForceSwitch
	b.pendingForceSwitch = nil
	for _, h := range pending {
		b.requestReplacementIfNeeded(h)
	}
}

// requestReplacementsForFaintedActives scans every position on both sides
// for a mon that has fainted while still marked active (the common case:
// any hit, not just a self-destructing or recoiling user) and opens a
// pending-replacement request for each one found.
func (b *Battle) requestReplacementsForFaintedActives() {
	for _, m := range b.AllActiveMons() {
		if m.Fainted {
			b.requestReplacementIfNeeded(monHandleOf(b, m))
		}
	}
}

func (b *Battle) requestReplacementIfNeeded(departing MonHandle) {
	m := b.monAt(departing)
	if m == nil || !m.Active {
		return
	}
	p := b.playerAt(departing.Side, departing.Player)
	if p == nil {
		return
	}
	m.Active = false
	pos := m.Position
	side := b.sideAt(departing.Side)
	if side != nil && pos >= 0 && pos < len(side.Positions) {
		side.Positions[pos] = MonHandle{}
	}
	if b.scheduler != nil {
		b.scheduler.Remove(departing)
	}
	if p.FirstUsable() < 0 {
		// No legal replacement left on the bench: the position just stays
		// empty, nothing left to request.
		return
	}
	b.pendingReplacements = append(b.pendingReplacements, pendingReplacement{
		Side: departing.Side, Player: departing.Player, Position: pos,
	})
}

// finishTurn runs the residual phase (duration ticks and each carrier's End
// callback across every still-active mon, side, and the field), checks the
// win condition, and rolls the turn counter forward.
func (b *Battle) finishTurn() error {
	if err := b.runResidual(); err != nil {
		return err
	}
	for _, m := range b.AllActiveMons() {
		delete(m.Volatiles, "flinch")
	}
	b.scheduler = nil
	if b.CheckEnded() {
		return nil
	}
	b.Turn++
	b.Log.Add(b.Turn, "turn|turn:%d", b.Turn)
	return nil
}

// runResidual dispatches the "residual" event across every mon's status and
// volatiles (poison/burn damage, Perish Song's counter, Slow Start's timer),
// then ticks and expires every duration-bearing effect-state still alive —
// mon volatiles and statuses, side conditions, weather, terrain, and
// pseudo-weathers — firing each one's "end" callback the instant it reaches
// zero. Carriers are visited in a fixed order (sides left to right,
// condition ids lexically) so two runs of the same battle tick identically.
func (b *Battle) runResidual() error {
	b.Log.Add(b.Turn, "residual")
	bus := NewEventBus(b)
	for _, m := range b.AllActiveMons() {
		if m.Fainted {
			continue
		}
		h := monHandleOf(b, m)
		listeners := b.monListeners(h)
		_, err := bus.Dispatch("residual", CategoryCollect, fxlang.Undefined(), listeners, func(se sourceEffect) *fxlang.Context {
			return &fxlang.Context{
				Funcs:       b.funcs(),
				EffectState: fxlang.Object("effectstate", se.effectState),
				Source:      fxlang.Object("monref", h),
				Target:      fxlang.Object("monref", h),
				Host:        b,
			}
		})
		if err != nil {
			return err
		}
		if m.Fainted {
			b.requestReplacementIfNeeded(h)
		}
	}
	for _, m := range b.AllActiveMons() {
		if m.Fainted {
			continue
		}
		h := monHandleOf(b, m)
		b.tickVolatile(h, m)
	}
	b.tickSidesAndField()
	b.requestReplacementsForFaintedActives()
	return nil
}

// tickVolatile expires any of m's duration-bearing volatiles and primary
// status that just reached zero, firing their "end" callback first.
func (b *Battle) tickVolatile(h MonHandle, m *Mon) {
	for _, id := range sortedVolatileIDs(m) {
		es := m.Volatiles[id]
		if es.HasDuration && es.Tick() {
			b.runEndCallback(content.Id(id), es, h)
			delete(m.Volatiles, id)
		}
	}
	if m.StatusState != nil && m.StatusState.HasDuration && m.StatusState.Tick() {
		b.runEndCallback(m.Status, m.StatusState, h)
		m.Status = ""
		m.StatusState = nil
	}
}

// tickSidesAndField counts down every duration-bearing side condition,
// the weather and terrain slots, and the pseudo-weather map, removing each
// the turn its duration runs out.
func (b *Battle) tickSidesAndField() {
	for _, s := range b.Sides {
		for _, id := range sortedConditionIDs(s.Conditions) {
			es := s.Conditions[id]
			if es.HasDuration && es.Tick() {
				b.runFieldEndCallback(content.Id(id), es)
				delete(s.Conditions, id)
				b.Log.Add(b.Turn, "sideend|side:%d|condition:%s", s.Index, id)
			}
		}
	}
	if es := b.Field.WeatherState; es != nil && es.HasDuration && es.Tick() {
		b.runFieldEndCallback(content.Id(b.Field.Weather), es)
		b.Field.ClearWeather()
		b.Log.Add(b.Turn, "weather|weather:none")
	}
	if es := b.Field.TerrainState; es != nil && es.HasDuration && es.Tick() {
		t := b.Field.Terrain
		b.runFieldEndCallback(content.Id(t), es)
		b.Field.ClearTerrain()
		b.Log.Add(b.Turn, "fieldend|terrain:%s", t)
	}
	for _, id := range sortedConditionIDs(b.Field.PseudoWeather) {
		es := b.Field.PseudoWeather[id]
		if es.HasDuration && es.Tick() {
			b.runFieldEndCallback(content.Id(id), es)
			delete(b.Field.PseudoWeather, id)
			b.Log.Add(b.Turn, "fieldend|condition:%s", id)
		}
	}
}

// runFieldEndCallback fires the end callback of a condition whose carrier
// is a side or the field rather than a mon.
func (b *Battle) runFieldEndCallback(id content.Id, es *EffectState) {
	cond, ok := b.Content.Condition(id)
	if !ok || cond.Effect == "" {
		return
	}
	ctx := &fxlang.Context{
		Funcs:       b.funcs(),
		EffectState: fxlang.Object("effectstate", es),
		Host:        b,
	}
	b.EffectManager.RunCallback(id, cond.Effect, "end", ctx)
}

func (b *Battle) runEndCallback(id content.Id, es *EffectState, h MonHandle) {
	cond, ok := b.Content.Condition(id)
	if !ok || cond.Effect == "" {
		return
	}
	ctx := &fxlang.Context{
		Funcs:       b.funcs(),
		EffectState: fxlang.Object("effectstate", es),
		Target:      fxlang.Object("monref", h),
		Host:        b,
	}
	b.EffectManager.RunCallback(id, cond.Effect, "end", ctx)
}
