package battle

import (
	"strings"
	"testing"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
	"github.com/battlecore/battlecore/internal/prng"
)

// newTestStore loads the embedded seed content once per test; the store is
// immutable so sharing it across subtests is safe.
func newTestStore(t *testing.T) *content.LocalStore {
	t.Helper()
	store, err := content.NewLocalStore()
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store
}

// mustMon builds a mon of the given species, level and moves against store,
// failing the test on any lookup error.
func mustMon(t *testing.T, store content.Store, species string, level int, moves ...string) *Mon {
	t.Helper()
	ids := make([]content.Id, len(moves))
	for i, m := range moves {
		ids[i] = content.Id(m)
	}
	m, err := NewMon(store, MonSpec{
		Species: content.Id(species),
		Level:   level,
		Moves:   ids,
	})
	if err != nil {
		t.Fatalf("NewMon(%s): %v", species, err)
	}
	return m
}

// newSinglesBattle wires a ready-to-start two-player singles battle with
// one mon per side, seeded deterministically.
func newSinglesBattle(t *testing.T, seed int64, p1, p2 *Mon) *Battle {
	t.Helper()
	store := newTestStore(t)
	b := New(SinglesFormat, prng.New(seed), store)
	if _, err := b.AddPlayer(0, "p1", []*Mon{p1}); err != nil {
		t.Fatalf("AddPlayer p1: %v", err)
	}
	if _, err := b.AddPlayer(1, "p2", []*Mon{p2}); err != nil {
		t.Fatalf("AddPlayer p2: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return b
}

func submitBoth(t *testing.T, b *Battle, p1Choice, p2Choice string) {
	t.Helper()
	if err := b.SetPlayerChoice("p1", p1Choice); err != nil {
		t.Fatalf("p1 choice %q: %v", p1Choice, err)
	}
	if err := b.SetPlayerChoice("p2", p2Choice); err != nil {
		t.Fatalf("p2 choice %q: %v", p2Choice, err)
	}
}

func logContains(log []string, substr string) bool {
	for _, l := range log {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// TestTackleBothSidesDealDamage: two Pikachu
// trade Tackles and both take damage before the turn advances.
func TestTackleBothSidesDealDamage(t *testing.T) {
	store := newTestStore(t)
	p1 := mustMon(t, store, "pikachu", 50, "tackle")
	p2 := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, p1, p2)

	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	if p1.CurHP >= p1.MaxHP {
		t.Errorf("p1 pikachu should have taken damage, hp=%d/%d", p1.CurHP, p1.MaxHP)
	}
	if p2.CurHP >= p2.MaxHP {
		t.Errorf("p2 pikachu should have taken damage, hp=%d/%d", p2.CurHP, p2.MaxHP)
	}
	if b.Turn != 2 {
		t.Errorf("expected turn 2 after one round, got %d", b.Turn)
	}
	log := b.FullLog(-1)
	if !logContains(log, "Tackle") {
		t.Errorf("expected a Tackle log line, got %v", log)
	}
}

// TestBurnImmuneOnFireType: Will-O-Wisp fails
// to burn a Fire-type target.
func TestBurnImmuneOnFireType(t *testing.T) {
	store := newTestStore(t)
	gengar := mustMon(t, store, "gengar", 50, "willowisp")
	charizard := mustMon(t, store, "charizard", 50, "tackle")
	b := newSinglesBattle(t, 0, gengar, charizard)

	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	if charizard.Status == "brn" {
		t.Fatalf("charizard should be immune to burn, got status %q", charizard.Status)
	}
	log := b.FullLog(-1)
	if !logContains(log, "immune") {
		t.Errorf("expected an immunity log line, got %v", log)
	}
}

// TestSlowStartHalvesDamageThenExpires:
// Regigigas's Slow Start halves its own offensive output for five turns and
// then ends.
func TestSlowStartHalvesDamageThenExpires(t *testing.T) {
	store := newTestStore(t)
	regigigas := mustMon(t, store, "regigigas", 50, "tackle")
	target := mustMon(t, store, "togepi", 100, "tackle")
	target.CurHP = target.MaxHP * 1000 // never faint, isolate the halving effect
	target.MaxHP = target.CurHP
	b := newSinglesBattle(t, 1, regigigas, target)

	if _, ok := regigigas.Volatiles["slowstart"]; !ok {
		t.Fatalf("expected Slow Start volatile installed on switch-in")
	}

	var firstDamage, laterDamage int
	for turn := 0; turn < 7 && !b.Ended(); turn++ {
		before := target.CurHP
		submitBoth(t, b, "move 0", "move 0")
		if err := b.AdvanceTurn(); err != nil {
			t.Fatalf("AdvanceTurn turn %d: %v", turn, err)
		}
		dealt := before - target.CurHP
		if turn == 0 {
			firstDamage = dealt
		}
		if turn == 6 {
			laterDamage = dealt
		}
	}
	if _, ok := regigigas.Volatiles["slowstart"]; ok {
		t.Errorf("expected Slow Start to have expired by turn 7")
	}
	if laterDamage <= firstDamage {
		t.Errorf("expected damage after Slow Start ends (%d) to exceed halved damage (%d)", laterDamage, firstDamage)
	}
}

// TestPerishSongCountersFaintTogether: Perish
// Song counts down on every other active mon and all reaching zero faint
// simultaneously, while a Soundproof target is immune outright.
func TestPerishSongCountersFaintTogether(t *testing.T) {
	store := newTestStore(t)
	gengar := mustMon(t, store, "gengar", 50, "perishsong")
	whismur := mustMon(t, store, "whismur", 50, "tackle")
	b := newSinglesBattle(t, 0, gengar, whismur)

	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if _, has := whismur.Volatiles["perishsong"]; has {
		t.Fatalf("Soundproof should block Perish Song's volatile entirely")
	}
	log := b.FullLog(-1)
	if !logContains(log, "Soundproof") {
		t.Errorf("expected a Soundproof immunity log line, got %v", log)
	}
	if _, has := gengar.Volatiles["perishsong"]; !has {
		t.Fatalf("the Perish Song user itself should carry the counter")
	}

	for i := 0; i < 3 && !b.Ended(); i++ {
		submitBoth(t, b, "pass", "pass")
		if err := b.AdvanceTurn(); err != nil {
			t.Fatalf("AdvanceTurn residual %d: %v", i, err)
		}
	}
	if !gengar.Fainted {
		t.Errorf("expected Perish Song's own user to faint once its counter reaches zero")
	}
}

// TestNaturePowerResolvesByEnvironment: Nature
// Power becomes Ice Beam when the field environment is Ice.
func TestNaturePowerResolvesByEnvironment(t *testing.T) {
	store := newTestStore(t)
	user := mustMon(t, store, "pikachu", 50, "naturepower")
	target := mustMon(t, store, "charizard", 50, "tackle")
	b := newSinglesBattle(t, 0, user, target)
	b.Field.Environment = "ice"

	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	log := b.FullLog(-1)
	if !logContains(log, "Nature Power") {
		t.Errorf("expected the Nature Power header line, got %v", log)
	}
	if !logContains(log, "Ice Beam") {
		t.Errorf("expected Nature Power to resolve into Ice Beam under Ice environment, got %v", log)
	}
}

// TestFocusSashSurvivesLethalHitAtFullHP: a
// mon at full HP holding Focus Sash survives an otherwise-lethal hit at 1
// HP and the item is consumed.
func TestFocusSashSurvivesLethalHitAtFullHP(t *testing.T) {
	store := newTestStore(t)
	attacker := mustMon(t, store, "regigigas", 100, "selfdestruct")
	defender := mustMon(t, store, "togepi", 5, "tackle")
	defender.Item = "focussash"
	b := newSinglesBattle(t, 3, attacker, defender)

	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	if defender.Fainted {
		t.Fatalf("Focus Sash should have prevented fainting from full HP")
	}
	if defender.CurHP != 1 {
		t.Errorf("expected Focus Sash to leave exactly 1 HP, got %d", defender.CurHP)
	}
}

// TestDeterminismSameSeedSameChoicesSameLog:
// two independently constructed battles given the same seed and the same
// choice sequence produce byte-identical logs.
func TestDeterminismSameSeedSameChoicesSameLog(t *testing.T) {
	run := func() []string {
		store := newTestStore(t)
		p1 := mustMon(t, store, "pikachu", 50, "tackle")
		p2 := mustMon(t, store, "gengar", 50, "willowisp")
		b := newSinglesBattle(t, 42, p1, p2)
		for i := 0; i < 3 && !b.Ended(); i++ {
			submitBoth(t, b, "move 0", "move 0")
			if err := b.AdvanceTurn(); err != nil {
				t.Fatalf("AdvanceTurn: %v", err)
			}
		}
		return b.FullLog(-1)
	}
	a := run()
	c := run()
	if len(a) != len(c) {
		t.Fatalf("log length differs: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("log entry %d differs:\n  a=%q\n  c=%q", i, a[i], c[i])
		}
	}
}

// TestPPDeductedOnUseAndBlockedAtZero covers the PP invariant:
// using a move deducts one PP, and a move with no PP left cannot be chosen.
func TestPPDeductedOnUseAndBlockedAtZero(t *testing.T) {
	store := newTestStore(t)
	p1 := mustMon(t, store, "pikachu", 50, "tackle")
	p2 := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, p1, p2)

	startPP := p1.Moves[0].PP
	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if p1.Moves[0].PP != startPP-1 {
		t.Errorf("expected PP to drop by 1, got %d -> %d", startPP, p1.Moves[0].PP)
	}

	p1.Moves[0].PP = 0
	if err := b.SetPlayerChoice("p1", "move 0"); err == nil {
		t.Errorf("expected choosing a PP-exhausted move to be rejected")
	} else if ce, ok := err.(*ChoiceError); !ok || ce.Reason != ReasonNoPP {
		t.Errorf("expected ReasonNoPP, got %v", err)
	}
}

// TestHPNeverNegativeAndFaintLatches covers the HP invariant:
// HP never drops below zero and Fainted latches exactly at zero.
func TestHPNeverNegativeAndFaintLatches(t *testing.T) {
	store := newTestStore(t)
	m := mustMon(t, store, "pikachu", 50, "tackle")
	dealt := m.Damage(m.MaxHP * 10)
	if m.CurHP != 0 {
		t.Errorf("expected HP clamped to 0, got %d", m.CurHP)
	}
	if dealt != m.MaxHP {
		t.Errorf("expected Damage to report only the HP actually removed (%d), got %d", m.MaxHP, dealt)
	}
	if !m.Fainted {
		t.Errorf("expected Fainted to latch at 0 HP")
	}
	if healed := m.Heal(10); healed != 0 {
		t.Errorf("expected Heal to no-op on a fainted mon, healed %d", healed)
	}
}

// TestSwitchClearsVolatilesAndBoosts covers the switch-out invariant: a
// departing mon's volatiles and
// boosts are cleared, and the incoming mon starts clean.
func TestSwitchClearsVolatilesAndBoosts(t *testing.T) {
	store := newTestStore(t)
	active := mustMon(t, store, "pikachu", 50, "tackle")
	bench := mustMon(t, store, "pikachu", 50, "tackle")
	foe := mustMon(t, store, "pikachu", 50, "tackle")

	b := New(SinglesFormat, prng.New(0), store)
	if _, err := b.AddPlayer(0, "p1", []*Mon{active, bench}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddPlayer(1, "p2", []*Mon{foe}); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	active.Volatiles["flinch"] = NewEffectState()
	active.Boosts.Atk = 6

	submitBoth(t, b, "switch 1", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	if len(active.Volatiles) != 0 {
		t.Errorf("expected departing mon's volatiles cleared, got %v", active.Volatiles)
	}
	if active.Boosts.Atk != 0 {
		t.Errorf("expected departing mon's boosts cleared, got %d", active.Boosts.Atk)
	}
	if active.Active {
		t.Errorf("expected the departing mon to no longer be active")
	}
	if !bench.Active || bench.Position != 0 {
		t.Errorf("expected the bench mon to take position 0, active=%v pos=%d", bench.Active, bench.Position)
	}
}

// TestAtMostOneStatusPerMon covers the status-exclusivity invariant:
// applying a status while one is already set does not
// replace it.
func TestAtMostOneStatusPerMon(t *testing.T) {
	store := newTestStore(t)
	m := mustMon(t, store, "togepi", 50, "tackle")
	m.Status = "par"
	m.StatusState = NewEffectState()

	mp := &MovePipeline{b: newSinglesBattle(t, 0, m, mustMon(t, store, "pikachu", 50, "tackle"))}
	mp.applyHitEffect(&ActiveMove{}, m, m, &content.HitEffect{Status: "brn"})

	if m.Status != "par" {
		t.Errorf("expected existing status to be preserved, got %q", m.Status)
	}
}

// TestWinConditionAllFaintedEndsBattle covers the win condition: once a side's whole team has fainted, the battle latches a winner.
func TestWinConditionAllFaintedEndsBattle(t *testing.T) {
	store := newTestStore(t)
	weak := mustMon(t, store, "togepi", 1, "tackle")
	strong := mustMon(t, store, "regigigas", 100, "tackle")
	b := newSinglesBattle(t, 0, weak, strong)

	submitBoth(t, b, "move 0", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	if !b.Ended() {
		t.Fatalf("expected the battle to end once a side's whole team fainted")
	}
	winner, ok := b.Winner()
	if !ok {
		t.Fatalf("expected a definite winner, not a draw")
	}
	if winner != 1 {
		t.Errorf("expected side 1 (the survivor) to win, got %d", winner)
	}
}

// TestSpreadDamageAppliesOnlyAtTwoOrMoreTargets: the 0.75x spread-damage multiplier applies iff at least two
// targets are hit in one use.
func TestSpreadDamageAppliesOnlyAtTwoOrMoreTargets(t *testing.T) {
	store := newTestStore(t)
	user := mustMon(t, store, "regigigas", 50, "tackle")
	single := mustMon(t, store, "togepi", 100, "tackle")

	am1 := &ActiveMove{Data: &content.MoveData{BasePower: 40, Category: content.CategoryPhysical, Type: "normal"}, Targets: []MonHandle{{}}}
	b1 := newSinglesBattle(t, 0, user, single)
	mp1 := &MovePipeline{b: b1}
	dmgSingle, _ := mp1.calculateDamage(am1, user, single, 1.0)

	am2 := &ActiveMove{Data: &content.MoveData{BasePower: 40, Category: content.CategoryPhysical, Type: "normal"}, Targets: []MonHandle{{}, {}}}
	dmgSpread, _ := mp1.calculateDamage(am2, user, single, 1.0)

	if dmgSpread >= dmgSingle {
		t.Errorf("expected spread damage (%d) to be less than single-target damage (%d)", dmgSpread, dmgSingle)
	}
}

// newDoublesBattle wires a ready-to-start two-player doubles battle, two
// mons active per side, seeded deterministically.
func newDoublesBattle(t *testing.T, seed int64, p1, p2 []*Mon) *Battle {
	t.Helper()
	store := newTestStore(t)
	b := New(DoublesFormat, prng.New(seed), store)
	if _, err := b.AddPlayer(0, "p1", p1); err != nil {
		t.Fatalf("AddPlayer p1: %v", err)
	}
	if _, err := b.AddPlayer(1, "p2", p2); err != nil {
		t.Fatalf("AddPlayer p2: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return b
}

// TestSelfDestructSpreadsDamageAndFaintsUser: a Self-Destruct in doubles
// faints its own user and spreads damage at the 0.75x multiplier across
// both remaining foes.
func TestSelfDestructSpreadsDamageAndFaintsUser(t *testing.T) {
	store := newTestStore(t)
	attacker := mustMon(t, store, "regigigas", 100, "selfdestruct")
	partner := mustMon(t, store, "togepi", 50, "tackle")
	foe1 := mustMon(t, store, "togepi", 50, "tackle")
	foe2 := mustMon(t, store, "togepi", 50, "tackle")
	b := newDoublesBattle(t, 0, []*Mon{attacker, partner}, []*Mon{foe1, foe2})

	if err := b.SetPlayerChoice("p1", "move 0;pass"); err != nil {
		t.Fatalf("p1 choice: %v", err)
	}
	if err := b.SetPlayerChoice("p2", "pass;pass"); err != nil {
		t.Fatalf("p2 choice: %v", err)
	}
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	if !attacker.Fainted {
		t.Errorf("expected Self-Destruct's own user to faint")
	}
	if foe1.CurHP == foe1.MaxHP || foe2.CurHP == foe2.MaxHP {
		t.Errorf("expected Self-Destruct to damage both adjacent foes, got hp %d/%d and %d/%d",
			foe1.CurHP, foe1.MaxHP, foe2.CurHP, foe2.MaxHP)
	}
}

// TestItemChoiceFailureTaxonomy: an X Attack
// boost is accepted up to the +6 cap, rejected by name past it, and
// rejected with an item-specific invalid-target reason when the target
// argument is zero.
func TestItemChoiceFailureTaxonomy(t *testing.T) {
	store := newTestStore(t)
	p1 := mustMon(t, store, "pikachu", 50, "tackle")
	p2 := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, p1, p2)
	p, _ := b.findPlayer("p1")
	b.GiveItem(p, "xattack", 10)

	if err := b.SetPlayerChoice("p1", "item xattack,-1"); err != nil {
		t.Fatalf("item xattack,-1: %v", err)
	}
	if err := b.SetPlayerChoice("p2", "pass"); err != nil {
		t.Fatalf("p2 pass: %v", err)
	}
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if p1.Boosts.Atk != 2 {
		t.Fatalf("expected X Attack to raise Atk by 2, got stage %d", p1.Boosts.Atk)
	}

	p1.Boosts.Atk = 6
	err := b.SetPlayerChoice("p1", "item xattack,-1")
	if err == nil {
		t.Fatalf("expected X Attack at +6 Atk to be rejected")
	}
	ce, ok := err.(*ChoiceError)
	if !ok || ce.Reason != ReasonCannotUseItem {
		t.Fatalf("expected a cannot_use_item ChoiceError, got %v", err)
	}
	if !strings.Contains(ce.Message, "X Attack") || !strings.Contains(ce.Message, p1.Nickname) {
		t.Errorf("expected the item and mon name in the rejection message, got %q", ce.Message)
	}

	err = b.SetPlayerChoice("p1", "item xattack,0")
	if err == nil {
		t.Fatalf("expected target 0 to be rejected")
	}
	ce, ok = err.(*ChoiceError)
	if !ok || ce.Reason != ReasonItemInvalidTarget {
		t.Fatalf("expected an item_invalid_target ChoiceError, got %v", err)
	}
	if !strings.Contains(ce.Message, "X Attack") {
		t.Errorf("expected the item name in the invalid-target message, got %q", ce.Message)
	}
}

// TestControlledPRNGSplicesDeterministicOutcome: the controlled PRNG lets a test pin exactly which multihit
// count (or any other draw) a scripted scenario produces.
func TestControlledPRNGSplicesDeterministicOutcome(t *testing.T) {
	c := prng.NewControlled(0)
	c.Splice(0, 0) // force Sample(n) to pick index 0 on the very first draw
	if got := c.Sample(4); got != 0 {
		t.Errorf("expected spliced draw to force index 0, got %d", got)
	}
}

// TestForfeitAwardsWinToOpponent: a forfeit choice ends the battle
// immediately with the opposing side as the winner.
func TestForfeitAwardsWinToOpponent(t *testing.T) {
	store := newTestStore(t)
	p1 := mustMon(t, store, "pikachu", 50, "tackle")
	p2 := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, p1, p2)

	submitBoth(t, b, "forfeit", "pass")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if !b.Ended() {
		t.Fatalf("expected the battle to end on forfeit")
	}
	winner, ok := b.Winner()
	if !ok || winner != 1 {
		t.Errorf("expected side 1 to win by forfeit, got winner=%d ok=%v", winner, ok)
	}
	log := b.FullLog(-1)
	if !logContains(log, "forfeit|side:0") || !logContains(log, "win|side:1") {
		t.Errorf("expected forfeit and win log entries, got %v", log)
	}
}

// TestTeraStabDoublesOnlyOnMatchingType: the 2.0 same-type bonus applies
// only to a terastallized user whose tera type matches the move.
func TestTeraStabDoublesOnlyOnMatchingType(t *testing.T) {
	store := newTestStore(t)
	user := mustMon(t, store, "pikachu", 50, "tackle") // electric; tera defaults to electric
	foe := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, user, foe)
	mp := NewMovePipeline(b)

	normalMove := &ActiveMove{Data: &content.MoveData{Type: "normal"}}
	electricMove := &ActiveMove{Data: &content.MoveData{Type: "electric"}}

	if got := mp.stabMultiplier(normalMove, user); got != 1.0 {
		t.Errorf("off-type move without tera: want 1.0, got %v", got)
	}
	if got := mp.stabMultiplier(electricMove, user); got != 1.5 {
		t.Errorf("on-type move without tera: want 1.5, got %v", got)
	}
	user.Terastallized = true
	if got := mp.stabMultiplier(electricMove, user); got != 2.0 {
		t.Errorf("matching tera type: want 2.0, got %v", got)
	}
	if got := mp.stabMultiplier(normalMove, user); got != 1.0 {
		t.Errorf("non-matching tera type: want no bonus, got %v", got)
	}
}

// TestTeraGestureOncePerPlayer: the tera flag on a move choice latches the
// player's once-per-battle gesture and rejects a second attempt.
func TestTeraGestureOncePerPlayer(t *testing.T) {
	store := newTestStore(t)
	p1 := mustMon(t, store, "pikachu", 50, "tackle")
	p2 := mustMon(t, store, "togepi", 100, "tackle")
	p2.CurHP = p2.MaxHP * 100
	p2.MaxHP = p2.CurHP
	b := newSinglesBattle(t, 0, p1, p2)

	submitBoth(t, b, "move 0,1,tera", "pass")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if !p1.Terastallized {
		t.Fatalf("expected the user to be terastallized after the gesture")
	}
	if !logContains(b.FullLog(-1), "tera|mon:Pikachu") {
		t.Errorf("expected a tera log entry, got %v", b.FullLog(-1))
	}
	err := b.SetPlayerChoice("p1", "move 0,1,tera")
	if err == nil {
		t.Fatalf("expected a second tera gesture to be rejected")
	}
}

// TestCritStagesStack: a raised-ratio move and Focus Energy stack, and the
// always-crit flag forces a critical without consuming a roll.
func TestCritStagesStack(t *testing.T) {
	store := newTestStore(t)
	user := mustMon(t, store, "pikachu", 50, "slash", "stormthrow")
	foe := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, user, foe)
	mp := NewMovePipeline(b)

	slashData, _ := store.Move("slash")
	slash := &ActiveMove{Data: slashData}
	if stage, forced := mp.critStageFor(slash, user); stage != 1 || forced {
		t.Errorf("slash alone: want stage 1, got stage=%d forced=%v", stage, forced)
	}
	user.Volatiles["focusenergy"] = NewEffectState()
	if stage, forced := mp.critStageFor(slash, user); stage != 3 || forced {
		t.Errorf("slash + focus energy: want stage 3, got stage=%d forced=%v", stage, forced)
	}
	stormData, _ := store.Move("stormthrow")
	storm := &ActiveMove{Data: stormData}
	if _, forced := mp.critStageFor(storm, user); !forced {
		t.Errorf("storm throw should force a critical hit")
	}
	// Stage 3 maps to the always-crit end of the table.
	if critChanceDen[3] != 1 {
		t.Errorf("crit table should end at a certain hit, got 1/%d", critChanceDen[3])
	}
}

// TestScreensReducePhysicalAndSpecial: Reflect halves physical damage in
// singles (two-thirds in doubles) and ignores special moves; Light Screen
// mirrors that for special moves.
func TestScreensReducePhysicalAndSpecial(t *testing.T) {
	store := newTestStore(t)
	user := mustMon(t, store, "pikachu", 50, "tackle")
	foe := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, user, foe)
	mp := NewMovePipeline(b)

	physical := &ActiveMove{Data: &content.MoveData{Category: content.CategoryPhysical, Type: "normal"}}
	special := &ActiveMove{Data: &content.MoveData{Category: content.CategorySpecial, Type: "ice"}}

	if got := mp.screenMultiplier(physical, foe); got != 1.0 {
		t.Errorf("no screens: want 1.0, got %v", got)
	}
	b.sideAt(1).Conditions["reflect"] = NewEffectState()
	if got := mp.screenMultiplier(physical, foe); got != 0.5 {
		t.Errorf("reflect vs physical in singles: want 0.5, got %v", got)
	}
	if got := mp.screenMultiplier(special, foe); got != 1.0 {
		t.Errorf("reflect vs special: want 1.0, got %v", got)
	}
	b.sideAt(1).Conditions["lightscreen"] = NewEffectState()
	if got := mp.screenMultiplier(special, foe); got != 0.5 {
		t.Errorf("light screen vs special: want 0.5, got %v", got)
	}
	b.Format.ActivePerSide = 2
	if got := mp.screenMultiplier(physical, foe); got != 2.0/3.0 {
		t.Errorf("reflect in doubles: want 2/3, got %v", got)
	}
}

// TestRainBoostsWaterAndWeakensFire: with rain up, Water-type damage rises
// and Fire-type damage falls relative to clear weather, with identical
// rolls on both sides of the comparison.
func TestRainBoostsWaterAndWeakensFire(t *testing.T) {
	store := newTestStore(t)
	calc := func(weather, moveType string) int {
		user := mustMon(t, store, "pikachu", 50, "tackle")
		foe := mustMon(t, store, "regigigas", 50, "tackle")
		b := newSinglesBattle(t, 7, user, foe)
		b.Field.Weather = weather
		mp := NewMovePipeline(b)
		am := &ActiveMove{
			Data:      &content.MoveData{Category: content.CategorySpecial, Type: moveType, BasePower: 90},
			BasePower: 90,
			Targets:   []MonHandle{{Side: 1}},
		}
		dmg, _ := mp.calculateDamage(am, user, foe, 1.0)
		return dmg
	}
	if rain, clear := calc("raindance", "water"), calc("", "water"); rain <= clear {
		t.Errorf("rain should boost water damage: rain=%d clear=%d", rain, clear)
	}
	if rain, clear := calc("raindance", "fire"), calc("", "fire"); rain >= clear {
		t.Errorf("rain should weaken fire damage: rain=%d clear=%d", rain, clear)
	}
}

// TestSubstituteAbsorbsDamageAndBreaks: damage lands on the substitute,
// leaving its owner untouched, and a hit that exhausts the substitute's
// quarter-max-HP pool removes the volatile.
func TestSubstituteAbsorbsDamageAndBreaks(t *testing.T) {
	store := newTestStore(t)
	attacker := mustMon(t, store, "regigigas", 100, "tackle")
	defender := mustMon(t, store, "togepi", 50, "tackle")
	b := newSinglesBattle(t, 0, attacker, defender)
	defender.Volatiles["substitute"] = NewEffectState()

	submitBoth(t, b, "move 0", "pass")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if defender.CurHP != defender.MaxHP {
		t.Errorf("expected the substitute to absorb the hit, owner hp=%d/%d", defender.CurHP, defender.MaxHP)
	}
	if _, has := defender.Volatiles["substitute"]; has {
		t.Errorf("expected the substitute to break under a hit bigger than its pool")
	}
	if !logContains(b.FullLog(-1), "substitute faded") {
		t.Errorf("expected a substitute-break log line, got %v", b.FullLog(-1))
	}
}

// TestTrappedBlocksSwitchAndEscape: the trapping volatile rejects both a
// switch choice and an escape choice with their own failure reasons.
func TestTrappedBlocksSwitchAndEscape(t *testing.T) {
	store := newTestStore(t)
	active := mustMon(t, store, "pikachu", 50, "tackle")
	bench := mustMon(t, store, "togepi", 50, "tackle")
	foe := mustMon(t, store, "gengar", 50, "meanlook")

	b := New(SinglesFormat, prng.New(0), store)
	if _, err := b.AddPlayer(0, "p1", []*Mon{active, bench}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddPlayer(1, "p2", []*Mon{foe}); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	submitBoth(t, b, "pass", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if _, has := active.Volatiles["trapped"]; !has {
		t.Fatalf("expected Mean Look to install the trapping volatile")
	}

	err := b.SetPlayerChoice("p1", "switch 1")
	if ce, ok := err.(*ChoiceError); !ok || ce.Reason != ReasonSwitchTrapped {
		t.Errorf("expected switch_trapped rejection, got %v", err)
	}
	err = b.SetPlayerChoice("p1", "escape")
	if ce, ok := err.(*ChoiceError); !ok || ce.Reason != ReasonCannotEscape {
		t.Errorf("expected cannot_escape rejection, got %v", err)
	}
}

// TestTeamPreviewOrdersTeams: a team-preview format waits for `team ...`
// orderings and fields each player's chosen lead.
func TestTeamPreviewOrdersTeams(t *testing.T) {
	store := newTestStore(t)
	first := mustMon(t, store, "pikachu", 50, "tackle")
	second := mustMon(t, store, "togepi", 50, "tackle")
	foe1 := mustMon(t, store, "gengar", 50, "tackle")
	foe2 := mustMon(t, store, "whismur", 50, "tackle")

	format := SinglesFormat
	format.TeamPreview = true
	b := New(format, prng.New(0), store)
	if _, err := b.AddPlayer(0, "p1", []*Mon{first, second}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddPlayer(1, "p2", []*Mon{foe1, foe2}); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	req, ok := b.Request("p1")
	if !ok || req.Kind != RequestTeam {
		t.Fatalf("expected a team request during preview, got %+v ok=%v", req, ok)
	}
	if err := b.SetPlayerChoice("p1", "team 1 0"); err != nil {
		t.Fatalf("p1 team choice: %v", err)
	}
	if err := b.SetPlayerChoice("p2", "team 0 1"); err != nil {
		t.Fatalf("p2 team choice: %v", err)
	}
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn (preview resolution): %v", err)
	}
	if !second.Active || second.Position != 0 {
		t.Errorf("expected the reordered lead to take the field, active=%v pos=%d", second.Active, second.Position)
	}
	if b.Turn != 1 {
		t.Errorf("expected turn 1 after preview resolves, got %d", b.Turn)
	}
	if err := b.SetPlayerChoice("p1", "team 1 0"); err == nil {
		t.Errorf("expected a team ordering outside preview to be rejected")
	}
}

// TestRequestListsLegalChoices: a move request names each active mon's
// moves with PP and the bench slots a switch could bring in, and flips to a
// switch request while a forced replacement is pending.
func TestRequestListsLegalChoices(t *testing.T) {
	store := newTestStore(t)
	active := mustMon(t, store, "togepi", 1, "tackle")
	bench := mustMon(t, store, "pikachu", 50, "tackle")
	foe := mustMon(t, store, "regigigas", 100, "tackle")

	b := New(SinglesFormat, prng.New(0), store)
	if _, err := b.AddPlayer(0, "p1", []*Mon{active, bench}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddPlayer(1, "p2", []*Mon{foe}); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	req, ok := b.Request("p1")
	if !ok || req.Kind != RequestMove {
		t.Fatalf("expected a move request, got %+v ok=%v", req, ok)
	}
	if len(req.Actives) != 1 || len(req.Actives[0].Moves) != 1 {
		t.Fatalf("expected one active with one move, got %+v", req.Actives)
	}
	if req.Actives[0].Moves[0].Name != "Tackle" || req.Actives[0].Moves[0].PP <= 0 {
		t.Errorf("expected a usable Tackle entry, got %+v", req.Actives[0].Moves[0])
	}
	if len(req.CanSwitch) != 1 || req.CanSwitch[0] != 1 {
		t.Errorf("expected bench slot 1 to be switchable, got %v", req.CanSwitch)
	}

	submitBoth(t, b, "pass", "move 0")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if len(b.NeedsReplacement()) == 0 {
		t.Fatalf("expected the weak lead to faint and request a replacement")
	}
	req, ok = b.Request("p1")
	if !ok || req.Kind != RequestSwitch {
		t.Fatalf("expected a switch request while a replacement is pending, got %+v", req)
	}
	if len(req.ForcedSwitches) != 1 {
		t.Errorf("expected one forced switch slot, got %v", req.ForcedSwitches)
	}
}

// TestSideConditionDurationExpires: a Reflect started by its move counts
// down over the residual phase and ends with a sideend log entry.
func TestSideConditionDurationExpires(t *testing.T) {
	store := newTestStore(t)
	user := mustMon(t, store, "pikachu", 50, "reflect")
	foe := mustMon(t, store, "togepi", 50, "tackle")
	b := newSinglesBattle(t, 0, user, foe)

	submitBoth(t, b, "move 0", "pass")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if _, has := b.sideAt(0).Conditions["reflect"]; !has {
		t.Fatalf("expected Reflect to install its side condition")
	}
	for i := 0; i < 4; i++ {
		submitBoth(t, b, "pass", "pass")
		if err := b.AdvanceTurn(); err != nil {
			t.Fatalf("AdvanceTurn %d: %v", i, err)
		}
	}
	if _, has := b.sideAt(0).Conditions["reflect"]; has {
		t.Errorf("expected Reflect to expire after five residual ticks")
	}
	if !logContains(b.FullLog(-1), "sideend|side:0|condition:reflect") {
		t.Errorf("expected a sideend log entry, got %v", b.FullLog(-1))
	}
}

// TestSleepBlocksMovesUntilItExpires: a sleeping mon logs cant instead of
// moving, and wakes within its rolled duration.
func TestSleepBlocksMovesUntilItExpires(t *testing.T) {
	store := newTestStore(t)
	sleeper := mustMon(t, store, "regigigas", 100, "tackle")
	foe := mustMon(t, store, "togepi", 50, "tackle")
	foe.CurHP = foe.MaxHP * 100
	foe.MaxHP = foe.CurHP
	b := newSinglesBattle(t, 5, sleeper, foe)
	b.applyStatus(sleeper, "slp")

	if sleeper.StatusState == nil || !sleeper.StatusState.HasDuration {
		t.Fatalf("expected sleep to carry a rolled duration")
	}

	hpBefore := foe.CurHP
	submitBoth(t, b, "move 0", "pass")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}
	if foe.CurHP != hpBefore {
		t.Errorf("expected the sleeping mon's move to be blocked")
	}
	if !logContains(b.FullLog(-1), "cant") {
		t.Errorf("expected a cant log entry, got %v", b.FullLog(-1))
	}

	for i := 0; i < 4 && sleeper.Status == "slp"; i++ {
		submitBoth(t, b, "pass", "pass")
		if err := b.AdvanceTurn(); err != nil {
			t.Fatalf("AdvanceTurn %d: %v", i, err)
		}
	}
	if sleeper.Status == "slp" {
		t.Errorf("expected sleep to expire within its 1-3 turn duration")
	}
}

// TestSplitDamageLogHidesExactHPFromPublicView: the public view of a damage
// entry carries a percentage while the defender's own side sees exact HP.
func TestSplitDamageLogHidesExactHPFromPublicView(t *testing.T) {
	store := newTestStore(t)
	p1 := mustMon(t, store, "pikachu", 50, "tackle")
	p2 := mustMon(t, store, "pikachu", 50, "tackle")
	b := newSinglesBattle(t, 0, p1, p2)

	submitBoth(t, b, "move 0", "pass")
	if err := b.AdvanceTurn(); err != nil {
		t.Fatalf("AdvanceTurn: %v", err)
	}

	public := b.FullLog(-1)
	private := b.FullLog(1)
	foundSplit := false
	for i := range public {
		if public[i] != private[i] {
			foundSplit = true
			if !strings.Contains(public[i], "%") {
				t.Errorf("public damage view should be a percentage, got %q", public[i])
			}
			if !strings.Contains(private[i], "/") {
				t.Errorf("private damage view should carry exact HP, got %q", private[i])
			}
		}
	}
	if !foundSplit {
		t.Errorf("expected at least one split damage entry between views")
	}
}

// TestAccuracyStageMultiplierUsesBase3Table: accuracy/evasion stages scale
// on the (3+n)/3 table, distinct from the (2+n)/2 table regular stats use.
func TestAccuracyStageMultiplierUsesBase3Table(t *testing.T) {
	cases := []struct {
		stage    int
		num, den int
	}{
		{0, 3, 3},
		{1, 4, 3},
		{2, 5, 3},
		{6, 9, 3},
		{-1, 3, 4},
		{-2, 3, 5},
		{-6, 3, 9},
		{9, 9, 3},
		{-9, 3, 9},
	}
	for _, c := range cases {
		if num, den := AccuracyStageMultiplier(c.stage); num != c.num || den != c.den {
			t.Errorf("AccuracyStageMultiplier(%d) = %d/%d, want %d/%d", c.stage, num, den, c.num, c.den)
		}
	}
	if num, den := BoostMultiplier(1); num != 3 || den != 2 {
		t.Errorf("BoostMultiplier(1) should stay on the base-2 table, got %d/%d", num, den)
	}
}

// TestCalculateDamageFunctionComputesRealDamage: the calculate_damage
// script function runs the full formula for a named move, and reports an
// immune matchup as zero.
func TestCalculateDamageFunctionComputesRealDamage(t *testing.T) {
	store := newTestStore(t)
	attacker := mustMon(t, store, "pikachu", 50, "tackle")
	ghost := mustMon(t, store, "gengar", 50, "tackle")
	b := newSinglesBattle(t, 0, attacker, ghost)

	ctx := &fxlang.Context{Funcs: b.funcs(), Host: b}
	atkRef := fxlang.Object("monref", monHandleOf(b, attacker))
	ghostRef := fxlang.Object("monref", monHandleOf(b, ghost))

	v, err := b.fnCalculateDamage(ctx, []fxlang.Value{atkRef, ghostRef, fxlang.Str("tackle")})
	if err != nil {
		t.Fatalf("calculate_damage (tackle vs ghost): %v", err)
	}
	if v.AsInt() != 0 {
		t.Errorf("Normal vs Ghost should calculate 0 damage, got %d", v.AsInt())
	}

	v, err = b.fnCalculateDamage(ctx, []fxlang.Value{ghostRef, atkRef, fxlang.Str("icebeam")})
	if err != nil {
		t.Fatalf("calculate_damage (ice beam): %v", err)
	}
	if v.AsInt() <= 0 {
		t.Errorf("Ice Beam into Pikachu should calculate positive damage, got %d", v.AsInt())
	}
	if ghost.CurHP != ghost.MaxHP || attacker.CurHP != attacker.MaxHP {
		t.Errorf("calculate_damage must not apply the damage it computes")
	}

	if _, err := b.fnCalculateDamage(ctx, []fxlang.Value{atkRef}); err == nil {
		t.Errorf("expected an error without both an attacker and a target")
	}
	if _, err := b.fnCalculateDamage(ctx, []fxlang.Value{atkRef, ghostRef, fxlang.Str("nosuchmove")}); err == nil {
		t.Errorf("expected an error for an unknown move id")
	}
}
