package fxlang

import "testing"

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return p
}

func TestArithmeticPrecedence(t *testing.T) {
	prog := mustParse(t, "try_hit:\n  return 2 + 3 * 4\n")
	ctx := &Context{Funcs: Funcs{}}
	v, ok, err := Eval(prog, "try_hit", ctx)
	if err != nil || !ok {
		t.Fatalf("eval: ok=%v err=%v", ok, err)
	}
	if v.Kind != KindInt || v.Num != 14 {
		t.Fatalf("got %v, want 14", v)
	}
}

func TestIntegerDivisionTruncates(t *testing.T) {
	prog := mustParse(t, "try_hit:\n  return 7 / 2\n")
	v, _, err := Eval(prog, "try_hit", &Context{Funcs: Funcs{}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindInt || v.Num != 3 {
		t.Fatalf("got %v, want 3", v)
	}
}

func TestFractionDivisionByZeroIsError(t *testing.T) {
	prog := mustParse(t, "try_hit:\n  return 1/2 / 0\n")
	_, _, err := Eval(prog, "try_hit", &Context{Funcs: Funcs{}})
	if err == nil {
		t.Fatal("expected division-by-zero error in fraction context")
	}
}

func TestIntegerDivisionByZeroIsZero(t *testing.T) {
	prog := mustParse(t, "try_hit:\n  return 5 / 0\n")
	v, _, err := Eval(prog, "try_hit", &Context{Funcs: Funcs{}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindInt || v.Num != 0 {
		t.Fatalf("got %v, want 0", v)
	}
}

func TestIfElseIf(t *testing.T) {
	src := "try_hit:\n  if $0 == 1:\n    return 'one'\n  else if $0 == 2:\n    return 'two'\n  else:\n    return 'other'\n"
	prog := mustParse(t, src)
	for in, want := range map[int64]string{1: "one", 2: "two", 3: "other"} {
		ctx := &Context{Funcs: Funcs{}, Input: []Value{Int(in)}}
		v, _, err := Eval(prog, "try_hit", ctx)
		if err != nil {
			t.Fatal(err)
		}
		if v.Str != want {
			t.Fatalf("input %d: got %q, want %q", in, v.Str, want)
		}
	}
}

func TestForeachAccumulate(t *testing.T) {
	src := "residual:\n  $total = 0\n  foreach $x in [1 2 3 4]:\n    $total = $total + $x\n  return $total\n"
	prog := mustParse(t, src)
	v, _, err := Eval(prog, "residual", &Context{Funcs: Funcs{}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Num != 10 {
		t.Fatalf("got %v, want 10", v)
	}
}

func TestHasAndHasAny(t *testing.T) {
	src := "try_hit:\n  if [1 2 3] has 2 and [1 2 3] hasany [5 3]:\n    return true\n  return false\n"
	prog := mustParse(t, src)
	v, _, err := Eval(prog, "try_hit", &Context{Funcs: Funcs{}})
	if err != nil {
		t.Fatal(err)
	}
	if !v.Bool {
		t.Fatal("expected has and hasany to find members")
	}
}

func TestFunctionCallBareAndValue(t *testing.T) {
	src := "try_hit:\n  log: 'activate' 'x' 1\n  return double(21)\n"
	prog := mustParse(t, src)
	var logged bool
	ctx := &Context{Funcs: Funcs{
		"log": func(ctx *Context, args []Value) (Value, error) {
			logged = true
			return Undefined(), nil
		},
		"double": func(ctx *Context, args []Value) (Value, error) {
			return Mul(args[0], Int(2))
		},
	}}
	v, _, err := Eval(prog, "try_hit", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !logged {
		t.Fatal("expected log() to have been called")
	}
	if v.Num != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestRelayInputReadByScript(t *testing.T) {
	prog := mustParse(t, "base_power:\n  return $relay / 2\n")
	ctx := &Context{Funcs: Funcs{}, Relay: Int(100)}
	v, ok, err := Eval(prog, "base_power", ctx)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if v.Num != 50 {
		t.Fatalf("got %v, want 50", v)
	}
}

func TestUnknownEventReturnsNotOk(t *testing.T) {
	prog := mustParse(t, "try_hit:\n  return true\n")
	_, ok, err := Eval(prog, "after_move", &Context{Funcs: Funcs{}})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for a callback the program does not define")
	}
}

func TestStringFormatting(t *testing.T) {
	prog := mustParse(t, "try_hit:\n  return str('hello {} you rolled {}', 'world', 7)\n")
	v, _, err := Eval(prog, "try_hit", &Context{Funcs: Funcs{}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Str != "hello world you rolled 7" {
		t.Fatalf("got %q", v.Str)
	}
}
