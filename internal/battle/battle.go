package battle

import (
	"fmt"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
	"github.com/battlecore/battlecore/internal/prng"
)

// Format pins the handful of rules that change shape between singles and
// doubles play: how many active positions each side has and whether a
// multi-target move spreads damage at the 0.75x penalty.
type Format struct {
	Name           string
	ActivePerSide  int
	TeamSize       int

	// TeamPreview makes Start wait for each player's `team ...` ordering
	// choice before fielding anyone.
	TeamPreview bool
}

// SinglesFormat and DoublesFormat are the two built-in formats the content
// seed data is written against.
var (
	SinglesFormat = Format{Name: "singles", ActivePerSide: 1, TeamSize: 6}
	DoublesFormat = Format{Name: "doubles", ActivePerSide: 2, TeamSize: 6}
)

// Battle is the root aggregate: every side, the field, the PRNG, the
// content store, and the bookkeeping the turn controller and move pipeline
// need. Construct one with New, seed both teams
// with AddPlayer, then drive it with Start/SetPlayerChoice/Ready/Battle.
type Battle struct {
	Format  Format
	Sides   []*Side
	Field   *Field
	PRNG    prng.Source
	Content content.Store

	Turn    int
	started bool
	// awaitingTeam is set between Start and the team-preview orderings
	// arriving, when the format asks for one.
	awaitingTeam bool
	ended   bool
	winner  int // side index, or -1 for a draw
	hasWinner bool

	Log           *LogEmitter
	EffectManager *EffectManager

	// AppliedOutsideEffects records every external effect injection that
	// has run so far, in application order, for host-side audit.
	AppliedOutsideEffects []OutsideEffectRequest

	// activeMoveStack lets nested move execution (e.g. Metronome calling
	// another move) find the innermost in-progress ActiveMove.
	activeMoveStack []*ActiveMove

	subOrderCounter int

	// pendingForceSwitch collects mons a fxlang effect (Roar, Whirlwind,
	// Eject Button) has demanded be replaced; the turn controller drains
	// this after the current action and pauses for a replacement choice.
	pendingForceSwitch []MonHandle

	// pendingOutsideEffects are OutsideEffectRequests queued by a host via
	// PushOutsideEffect, applied at the start of the next turn.
	pendingOutsideEffects []OutsideEffectRequest

	// scheduler is the action queue for the turn currently executing, or
	// nil between turns. The turn controller owns its lifecycle; other
	// code (switchIn, forced-switch handling) reaches it through Scheduler
	// to drop actions belonging to a mon that just left the field.
	scheduler *Scheduler

	// pendingReplacements holds positions left empty by a mid-turn faint or
	// forced switch-out that still need a player-submitted replacement
	// before AdvanceTurn can resume.
	pendingReplacements []pendingReplacement
}

// Scheduler returns the action queue for the turn in progress, or nil if
// no turn is currently executing.
func (b *Battle) Scheduler() *Scheduler { return b.scheduler }

// New constructs an empty two-sided battle using PRNG source src and
// content store store, with default effect-manager limits. Call AddPlayer
// for each side before Start.
func New(format Format, src prng.Source, store content.Store) *Battle {
	return NewWithLimits(format, src, store, 0, 0)
}

// NewWithLimits is New with explicit effect-cache-size/recursion-depth
// bounds, the values a host loads from config.EngineConfig; either limit
// may be 0 to take the package default.
func NewWithLimits(format Format, src prng.Source, store content.Store, effectCacheSize, maxCallbackDepth int) *Battle {
	b := &Battle{
		Format:  format,
		Field:   NewField(),
		PRNG:    src,
		Content: store,
		Log:     NewLogEmitter(),
		winner:  -1,
	}
	b.Sides = []*Side{
		NewSide(0, format.ActivePerSide),
		NewSide(1, format.ActivePerSide),
	}
	b.EffectManager = NewEffectManagerWithLimits(store, b, effectCacheSize, maxCallbackDepth)
	return b
}

// AddPlayer registers a player with the given team on side index sideIdx,
// returning the player's index within that side.
func (b *Battle) AddPlayer(sideIdx int, id string, team []*Mon) (int, error) {
	if sideIdx < 0 || sideIdx >= len(b.Sides) {
		return 0, fmt.Errorf("battle: invalid side index %d", sideIdx)
	}
	s := b.Sides[sideIdx]
	p := &Player{
		Side:    sideIdx,
		Index:   len(s.Players),
		ID:      id,
		Team:    team,
		Bag:     map[content.Id]int{},
		Choices: make([]*Choice, b.Format.ActivePerSide),
	}
	s.Players = append(s.Players, p)
	return p.Index, nil
}

// GiveItem adds n copies of item id to player p's bag.
func (b *Battle) GiveItem(p *Player, id content.Id, n int) {
	if p.Bag == nil {
		p.Bag = map[content.Id]int{}
	}
	p.Bag[id] += n
}

func (b *Battle) sideAt(i int) *Side {
	if i < 0 || i >= len(b.Sides) {
		return nil
	}
	return b.Sides[i]
}

func (b *Battle) playerAt(side, idx int) *Player {
	s := b.sideAt(side)
	if s == nil || idx < 0 || idx >= len(s.Players) {
		return nil
	}
	return s.Players[idx]
}

// monAt resolves a MonHandle to its Mon, tolerating stale or out-of-range
// handles by returning nil rather than panicking.
func (b *Battle) monAt(h MonHandle) *Mon {
	p := b.playerAt(h.Side, h.Player)
	if p == nil {
		return nil
	}
	return p.MonAt(h.Index)
}

// CurrentActiveMove returns the innermost move execution in progress, or
// nil outside of one. fxlang callbacks use this to resolve "$move"/"$target"
// in their evaluation Context.
func (b *Battle) CurrentActiveMove() *ActiveMove {
	if len(b.activeMoveStack) == 0 {
		return nil
	}
	return b.activeMoveStack[len(b.activeMoveStack)-1]
}

func (b *Battle) pushActiveMove(m *ActiveMove) { b.activeMoveStack = append(b.activeMoveStack, m) }
func (b *Battle) popActiveMove() {
	if len(b.activeMoveStack) > 0 {
		b.activeMoveStack = b.activeMoveStack[:len(b.activeMoveStack)-1]
	}
}

// nextSubOrder hands out an always-increasing tiebreak counter used to keep
// otherwise-equal actions in submission order until the PRNG decides a
// genuine speed tie.
func (b *Battle) nextSubOrder() int {
	b.subOrderCounter++
	return b.subOrderCounter
}

// AllMons returns every mon across both sides' rosters, active or not, in
// side/player/team order. Used for end-of-battle and team-wide queries.
func (b *Battle) AllMons() []*Mon {
	var out []*Mon
	for _, s := range b.Sides {
		for _, p := range s.Players {
			out = append(out, p.Team...)
		}
	}
	return out
}

// AllActiveMons returns every mon currently occupying a position, left side
// first then right side, positions left to right on each.
func (b *Battle) AllActiveMons() []*Mon {
	var out []*Mon
	for _, s := range b.Sides {
		out = append(out, s.AllActive(b)...)
	}
	return out
}

// CheckEnded evaluates the win condition (one side's whole team fainted)
// and latches Ended/Winner the first time it becomes true; it is safe to
// call repeatedly.
func (b *Battle) CheckEnded() bool {
	if b.ended {
		return true
	}
	losers := make([]bool, len(b.Sides))
	for i, s := range b.Sides {
		allFainted := true
		for _, p := range s.Players {
			if !p.AllFainted() {
				allFainted = false
				break
			}
		}
		losers[i] = allFainted
	}
	switch {
	case losers[0] && losers[1]:
		b.setTie()
	case losers[0]:
		b.setWinner(1)
	case losers[1]:
		b.setWinner(0)
	}
	return b.ended
}

func (b *Battle) setWinner(side int) {
	if b.ended {
		return
	}
	b.ended = true
	b.hasWinner = true
	b.winner = side
	b.Log.Add(b.Turn, "win|side:%d", side)
}

func (b *Battle) setTie() {
	if b.ended {
		return
	}
	b.ended = true
	b.hasWinner = false
	b.winner = -1
	b.Log.Add(b.Turn, "tie")
}

// Forfeit concedes the battle on behalf of side sideIdx, awarding the win
// to the opposite side.
func (b *Battle) Forfeit(sideIdx int) {
	if b.ended {
		return
	}
	b.Log.Add(b.Turn, "forfeit|side:%d", sideIdx)
	b.setWinner(1 - sideIdx)
}

// Escape ends the battle with no winner, the wild-battle flee outcome.
func (b *Battle) Escape(sideIdx int) {
	if b.ended {
		return
	}
	b.Log.Add(b.Turn, "escaped|side:%d", sideIdx)
	b.setTie()
}

// startSideCondition installs condition id on side sideIdx with its
// content-declared duration and a sidestart log line. Adding a condition
// the side already has no-ops, per the volatile/condition invariant.
func (b *Battle) startSideCondition(sideIdx int, id string) {
	side := b.sideAt(sideIdx)
	if side == nil || id == "" {
		return
	}
	if _, ok := side.Conditions[id]; ok {
		return
	}
	es := NewEffectState()
	if cond, ok := b.Content.Condition(content.Id(id)); ok && cond.Duration > 0 {
		es.Duration = cond.Duration
		es.HasDuration = true
	}
	side.Conditions[id] = es
	b.Log.Add(b.Turn, "sidestart|side:%d|condition:%s", sideIdx, id)
}

// startWeather replaces the field's weather with id, picking up the
// condition's declared duration.
func (b *Battle) startWeather(id string) {
	es := b.Field.SetWeather(id)
	if cond, ok := b.Content.Condition(content.Id(id)); ok && cond.Duration > 0 {
		es.Duration = cond.Duration
		es.HasDuration = true
	}
	b.Log.Add(b.Turn, "weather|weather:%s", id)
}

// startTerrain replaces the field's terrain with id.
func (b *Battle) startTerrain(id string) {
	es := b.Field.SetTerrain(id)
	if cond, ok := b.Content.Condition(content.Id(id)); ok && cond.Duration > 0 {
		es.Duration = cond.Duration
		es.HasDuration = true
	}
	b.Log.Add(b.Turn, "fieldstart|terrain:%s", id)
}

// startPseudoWeather installs a field-wide pseudo-weather; re-adding an
// active one no-ops.
func (b *Battle) startPseudoWeather(id string) {
	if _, ok := b.Field.PseudoWeather[id]; ok {
		return
	}
	es := NewEffectState()
	if cond, ok := b.Content.Condition(content.Id(id)); ok && cond.Duration > 0 {
		es.Duration = cond.Duration
		es.HasDuration = true
	}
	b.Field.PseudoWeather[id] = es
	b.Log.Add(b.Turn, "fieldstart|condition:%s", id)
}

// switchIn brings player p's team member at teamIdx into position pos on
// side sideIdx, vacating whatever mon (if any) previously held it. The
// departing mon's volatiles and boosts are cleared, its position reset and
// its queued actions removed; the incoming mon starts with empty volatiles
// and boosts and its TimesSwitchedIn count goes up by one. Ability and item
// effect-state are left as they are.
func (b *Battle) switchIn(p *Player, sideIdx, teamIdx int, pos int) error {
	incoming := p.MonAt(teamIdx)
	if incoming == nil {
		return fmt.Errorf("battle: no team member at index %d", teamIdx)
	}
	if incoming.Fainted {
		return fmt.Errorf("battle: can't switch in a fainted mon")
	}
	if incoming.Active {
		return fmt.Errorf("battle: mon is already active")
	}
	side := b.sideAt(sideIdx)
	if side == nil {
		return fmt.Errorf("battle: invalid side %d", sideIdx)
	}

	if outgoing := side.ActiveAt(b, pos); outgoing != nil {
		outgoing.Active = false
		outgoing.Volatiles = map[string]*EffectState{}
		outgoing.Boosts = content.BoostTable{}
		outgoing.Position = -1
		if b.scheduler != nil {
			b.scheduler.Remove(monHandleOf(b, outgoing))
		}
	}

	incoming.Active = true
	incoming.Position = pos
	incoming.TimesSwitchedIn++
	incoming.Volatiles = map[string]*EffectState{}
	incoming.Boosts = content.BoostTable{}
	h := MonHandle{Side: sideIdx, Player: p.Index, Index: teamIdx}
	side.Positions[pos] = h

	b.Log.Add(b.Turn, "%s was sent out!", incoming.Nickname)
	b.runSwitchInAbility(incoming, h)
	return nil
}

// runSwitchInAbility fires the incoming mon's ability's switch_in callback,
// if it has one (e.g. Slow Start installing its own halving volatile the
// instant its owner takes the field).
func (b *Battle) runSwitchInAbility(m *Mon, h MonHandle) {
	if m.Ability == "" {
		return
	}
	ab, ok := b.Content.Ability(m.Ability)
	if !ok || ab.Effect == "" {
		return
	}
	ctx := &fxlang.Context{
		Funcs:  b.funcs(),
		Source: fxlang.Object("monref", h),
		Target: fxlang.Object("monref", h),
		Host:   b,
	}
	b.EffectManager.RunCallback(m.Ability, ab.Effect, "switch_in", ctx)
}

// Ended reports whether the battle has concluded.
func (b *Battle) Ended() bool { return b.ended }

// Winner returns the winning side index and true, or (-1,false) if the
// battle hasn't ended or ended in a draw.
func (b *Battle) Winner() (int, bool) { return b.winner, b.ended && b.hasWinner }
