package battle

import (
	"fmt"

	"github.com/battlecore/battlecore/internal/fxlang"
)

// OutsideEffectTarget names what kind of thing a host-injected effect script
// is bound to when it runs, selecting which Context fields get populated.
type OutsideEffectTarget int

const (
	OutsideEffectField OutsideEffectTarget = iota
	OutsideEffectSide
	OutsideEffectMon
)

// OutsideEffectRequest is a single external effect injection:
// a host supplies a name and an fxlang source that isn't part of any move,
// ability, item, or condition in the content store, and asks for it to run
// once at the top of the next turn. This is the escape hatch for scripted
// scenario events (a GM-triggered weather change, a forced status, a
// ref-adjudicated field hazard) that the content data doesn't model.
type OutsideEffectRequest struct {
	Name   string
	Source string
	Target OutsideEffectTarget

	// Side/Mon select which carrier the script runs against when Target is
	// OutsideEffectSide or OutsideEffectMon; ignored for OutsideEffectField.
	Side int
	Mon  MonHandle
}

// PushOutsideEffect queues req to run the next time applyOutsideEffects is
// called, normally at the start of the next turn.
func (b *Battle) PushOutsideEffect(req OutsideEffectRequest) {
	b.pendingOutsideEffects = append(b.pendingOutsideEffects, req)
}

// applyOutsideEffects drains the queue of pending injections, running each
// one's "apply" callback against a Context built for its declared target,
// and logging a prefix entry so the injected effect is distinguishable in
// the log from anything the content data triggered on its own.
func (b *Battle) applyOutsideEffects() error {
	pending := b.pendingOutsideEffects
	b.pendingOutsideEffects = nil
	for _, req := range pending {
		ctx, err := b.outsideEffectContext(req)
		if err != nil {
			return fmt.Errorf("battle: outside effect %q: %w", req.Name, err)
		}
		prog, err := fxlang.Parse(req.Source)
		if err != nil {
			return fmt.Errorf("battle: outside effect %q: parse: %w", req.Name, err)
		}
		if err := b.EffectManager.Enter(); err != nil {
			return err
		}
		b.Log.Add(b.Turn, "outside_effect|name:%s", req.Name)
		_, _, err = fxlang.Eval(prog, "apply", ctx)
		b.EffectManager.Exit()
		if err != nil {
			return fmt.Errorf("battle: outside effect %q: %w", req.Name, err)
		}
		b.AppliedOutsideEffects = append(b.AppliedOutsideEffects, req)
	}
	return nil
}

func (b *Battle) outsideEffectContext(req OutsideEffectRequest) (*fxlang.Context, error) {
	ctx := &fxlang.Context{
		Funcs: b.funcs(),
		Host:  b,
	}
	switch req.Target {
	case OutsideEffectField:
		ctx.Target = fxlang.Object("field", b.Field)
	case OutsideEffectSide:
		side := b.sideAt(req.Side)
		if side == nil {
			return nil, fmt.Errorf("invalid side %d", req.Side)
		}
		ctx.Target = fxlang.Object("sideref", req.Side)
	case OutsideEffectMon:
		if b.monAt(req.Mon) == nil {
			return nil, fmt.Errorf("invalid mon target")
		}
		ctx.Target = fxlang.Object("monref", req.Mon)
	}
	return ctx, nil
}
