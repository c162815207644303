package fxlang

import "fmt"

// Func is a host-provided function fxlang scripts can call, either as a
// bare statement (`name: args`) or as a value expression (`name(args)`).
// The battle package registers the standard function surface scripts call
// out to (damage, heal, boost, chance, log, ...); this package has no
// knowledge of battle types beyond what flows through Value.Ref.
type Func func(ctx *Context, args []Value) (Value, error)

// Funcs is the function table consulted for every call in a script.
type Funcs map[string]Func

// Context carries everything one callback evaluation needs beyond the
// parsed Program: the positional call arguments, the effect-state
// connector, source/target references, the relay input for Relay-category
// events, the event name being evaluated, the function table, and an
// opaque Host pointer host functions type-assert to reach battle state.
type Context struct {
	Funcs       Funcs
	Input       []Value
	EffectState Value
	Source      Value
	Target      Value
	Relay       Value
	Event       string
	Host        interface{}
}

// ctrlReturn/ctrlContinue are sentinel control-flow signals threaded through
// statement execution; they are not user-visible errors.
type ctrlSignal int

const (
	ctrlNone ctrlSignal = iota
	ctrlReturn
	ctrlContinue
)

type execState struct {
	ctx  *Context
	vars map[string]Value
}

// Eval runs the callback named event (normalized the same way Parse keys
// callbacks) in prog against ctx. ok is false if the program has no such
// callback, matching the Effect Manager's "no result" outcome.
func Eval(prog *Program, event string, ctx *Context) (result Value, ok bool, err error) {
	body, found := prog.Callbacks[normalizeEvent(event)]
	if !found {
		return Undefined(), false, nil
	}
	es := &execState{ctx: ctx, vars: map[string]Value{}}
	sig, val, err := es.execBlock(body)
	if err != nil {
		return Undefined(), true, err
	}
	if sig == ctrlReturn {
		return val, true, nil
	}
	return Undefined(), true, nil
}

func (es *execState) execBlock(stmts []Stmt) (ctrlSignal, Value, error) {
	for _, s := range stmts {
		sig, val, err := es.exec(s)
		if err != nil {
			return ctrlNone, Undefined(), err
		}
		if sig != ctrlNone {
			return sig, val, nil
		}
	}
	return ctrlNone, Undefined(), nil
}

func (es *execState) exec(s Stmt) (ctrlSignal, Value, error) {
	switch st := s.(type) {
	case assignStmt:
		v, err := es.eval(st.value)
		if err != nil {
			return ctrlNone, Undefined(), err
		}
		es.setVar(st.target, v)
		return ctrlNone, Undefined(), nil
	case callStmt:
		_, err := es.call(st.name, st.args)
		return ctrlNone, Undefined(), err
	case ifStmt:
		for _, br := range st.branches {
			v, err := es.eval(br.cond)
			if err != nil {
				return ctrlNone, Undefined(), err
			}
			if v.Truthy() {
				return es.execBlock(br.body)
			}
		}
		if st.elseBody != nil {
			return es.execBlock(st.elseBody)
		}
		return ctrlNone, Undefined(), nil
	case foreachStmt:
		iter, err := es.eval(st.iter)
		if err != nil {
			return ctrlNone, Undefined(), err
		}
		if iter.Kind != KindList {
			return ctrlNone, Undefined(), fmt.Errorf("fxlang: foreach over non-list value")
		}
		for _, item := range iter.List {
			es.vars[st.varName] = item
			sig, val, err := es.execBlock(st.body)
			if err != nil {
				return ctrlNone, Undefined(), err
			}
			if sig == ctrlReturn {
				return sig, val, nil
			}
			if sig == ctrlContinue {
				continue
			}
		}
		return ctrlNone, Undefined(), nil
	case returnStmt:
		if st.value == nil {
			return ctrlReturn, Undefined(), nil
		}
		v, err := es.eval(st.value)
		if err != nil {
			return ctrlNone, Undefined(), err
		}
		return ctrlReturn, v, nil
	case continueStmt:
		return ctrlContinue, Undefined(), nil
	}
	return ctrlNone, Undefined(), fmt.Errorf("fxlang: unknown statement type %T", s)
}

func (es *execState) setVar(target varExpr, v Value) {
	// Only plain `$name = expr` assignment is supported; assigning through
	// a member path is not part of the language (members are read-only
	// projections of host objects).
	es.vars[target.name] = v
}

func (es *execState) eval(e Expr) (Value, error) {
	switch x := e.(type) {
	case litExpr:
		return x.v, nil
	case listExpr:
		items := make([]Value, len(x.items))
		for i, it := range x.items {
			v, err := es.eval(it)
			if err != nil {
				return Undefined(), err
			}
			items[i] = v
		}
		return List(items), nil
	case parenExpr:
		return es.eval(x.x)
	case varExpr:
		return es.evalVar(x)
	case unaryExpr:
		v, err := es.eval(x.x)
		if err != nil {
			return Undefined(), err
		}
		switch x.op {
		case "!":
			return Bool(!v.Truthy()), nil
		case "^":
			if !v.IsNumeric() {
				return Undefined(), fmt.Errorf("fxlang: unary ^ requires a numeric operand")
			}
			return Sub(Int(0), v)
		}
		return Undefined(), fmt.Errorf("fxlang: unknown unary operator %q", x.op)
	case binExpr:
		return es.evalBin(x)
	case callValueExpr:
		return es.call(x.name, x.args)
	case formatExpr:
		return es.evalFormat(x)
	}
	return Undefined(), fmt.Errorf("fxlang: unknown expression type %T", e)
}

func (es *execState) evalVar(v varExpr) (Value, error) {
	base, ok := es.lookupBase(v.name)
	if !ok {
		return Undefined(), fmt.Errorf("fxlang: undefined variable $%s", v.name)
	}
	for _, m := range v.members {
		next, ok := memberOf(base, m)
		if !ok {
			return Undefined(), fmt.Errorf("fxlang: %q has no member %q", base.Kind, m)
		}
		base = next
	}
	return base, nil
}

// lookupBase resolves the bare $name part of a variable reference: the
// positional call inputs ($0, $1, ...), a user variable assigned earlier in
// this callback (which shadows a pre-bound name, so `$relay = ...` changes
// what a later `$relay` reads), or the well-known pre-bound names
// ($effect_state, $source, $target, $relay, $event).
func (es *execState) lookupBase(name string) (Value, bool) {
	if idx, ok := positionalIndex(name); ok {
		if idx < len(es.ctx.Input) {
			return es.ctx.Input[idx], true
		}
		return Undefined(), true
	}
	if v, ok := es.vars[name]; ok {
		return v, true
	}
	switch name {
	case "effect_state":
		return es.ctx.EffectState, true
	case "source":
		return es.ctx.Source, true
	case "target":
		return es.ctx.Target, true
	case "relay":
		return es.ctx.Relay, true
	case "event":
		return Str(es.ctx.Event), true
	}
	return Undefined(), false
}

func positionalIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return 0, false
		}
		n = n*10 + int(name[i]-'0')
	}
	return n, true
}

// memberOf projects a named field out of an object-kind value. Host
// packages register object shapes by Tag; this package projects no members
// of its own, so any other value has none.
func memberOf(v Value, member string) (Value, bool) {
	if v.Kind == KindObject {
		if accessor, ok := objectMembers[v.Tag]; ok {
			return accessor(v, member)
		}
	}
	return Undefined(), false
}

// MemberAccessor lets host packages expose named fields on an Object value
// (e.g. a BoostTable's `.atk`) without this package importing battle types.
type MemberAccessor func(v Value, member string) (Value, bool)

var objectMembers = map[string]MemberAccessor{}

// RegisterObjectMembers installs a member accessor for values tagged tag.
func RegisterObjectMembers(tag string, accessor MemberAccessor) {
	objectMembers[tag] = accessor
}

func (es *execState) evalBin(x binExpr) (Value, error) {
	if x.op == "and" {
		l, err := es.eval(x.l)
		if err != nil {
			return Undefined(), err
		}
		if !l.Truthy() {
			return Bool(false), nil
		}
		r, err := es.eval(x.r)
		if err != nil {
			return Undefined(), err
		}
		return Bool(r.Truthy()), nil
	}
	if x.op == "or" {
		l, err := es.eval(x.l)
		if err != nil {
			return Undefined(), err
		}
		if l.Truthy() {
			return Bool(true), nil
		}
		r, err := es.eval(x.r)
		if err != nil {
			return Undefined(), err
		}
		return Bool(r.Truthy()), nil
	}

	l, err := es.eval(x.l)
	if err != nil {
		return Undefined(), err
	}
	r, err := es.eval(x.r)
	if err != nil {
		return Undefined(), err
	}
	switch x.op {
	case "+":
		return Add(l, r)
	case "-":
		return Sub(l, r)
	case "*":
		return Mul(l, r)
	case "/":
		return Div(l, r)
	case "%":
		return Mod(l, r)
	case "==":
		return Bool(Equal(l, r)), nil
	case "!=":
		return Bool(!Equal(l, r)), nil
	case "has":
		return Bool(Has(l, r)), nil
	case "hasany":
		return Bool(HasAny(l, r)), nil
	case "<", "<=", ">", ">=":
		c, err := Compare(l, r)
		if err != nil {
			return Undefined(), err
		}
		switch x.op {
		case "<":
			return Bool(c < 0), nil
		case "<=":
			return Bool(c <= 0), nil
		case ">":
			return Bool(c > 0), nil
		case ">=":
			return Bool(c >= 0), nil
		}
	}
	return Undefined(), fmt.Errorf("fxlang: unknown binary operator %q", x.op)
}

func (es *execState) evalFormat(x formatExpr) (Value, error) {
	args := make([]string, len(x.args))
	for i, a := range x.args {
		v, err := es.eval(a)
		if err != nil {
			return Undefined(), err
		}
		args[i] = v.String()
	}
	out := make([]byte, 0, len(x.template))
	ai := 0
	for i := 0; i < len(x.template); i++ {
		if x.template[i] == '{' && i+1 < len(x.template) && x.template[i+1] == '}' {
			if ai < len(args) {
				out = append(out, args[ai]...)
				ai++
			}
			i++
			continue
		}
		out = append(out, x.template[i])
	}
	return Str(string(out)), nil
}

func (es *execState) call(name string, argExprs []Expr) (Value, error) {
	fn, ok := es.ctx.Funcs[name]
	if !ok {
		return Undefined(), fmt.Errorf("fxlang: unknown function %q", name)
	}
	args := make([]Value, len(argExprs))
	for i, a := range argExprs {
		v, err := es.eval(a)
		if err != nil {
			return Undefined(), err
		}
		args[i] = v
	}
	return fn(es.ctx, args)
}
