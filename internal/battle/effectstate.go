package battle

import "github.com/battlecore/battlecore/internal/fxlang"

// EffectState is the persisted per-instance data of one effect living on
// one carrier. Most keys are free-form scripting values;
// a handful are reserved and mirrored as typed fields for fast access by
// the engine itself (duration countdown, source bookkeeping) without every
// reader having to type-assert into the generic map.
type EffectState struct {
	Duration      int
	HasDuration   bool
	SourceEffect  string
	Source        MonHandle
	HasSource     bool
	SourceSide    int
	HasSourceSide bool
	SourcePosition int
	Extra         map[string]fxlang.Value
}

// NewEffectState returns an empty effect-state record.
func NewEffectState() *EffectState {
	return &EffectState{Extra: map[string]fxlang.Value{}}
}

// Get reads a free-form key, returning fxlang.Undefined() if unset.
func (es *EffectState) Get(key string) fxlang.Value {
	if es == nil {
		return fxlang.Undefined()
	}
	switch key {
	case "duration":
		if es.HasDuration {
			return fxlang.Int(int64(es.Duration))
		}
		return fxlang.Undefined()
	}
	if v, ok := es.Extra[key]; ok {
		return v
	}
	return fxlang.Undefined()
}

// Set writes a free-form key; reserved keys update their typed mirror too.
func (es *EffectState) Set(key string, v fxlang.Value) {
	switch key {
	case "duration":
		es.Duration = int(v.AsInt())
		es.HasDuration = true
		return
	}
	es.Extra[key] = v
}

// Tick decrements Duration by one if set, reporting whether it just reached
// zero (the effect's End callback should fire and the carrier should
// remove it).
func (es *EffectState) Tick() (expired bool) {
	if !es.HasDuration {
		return false
	}
	es.Duration--
	return es.Duration <= 0
}
