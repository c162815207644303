package fxlang

import (
	"fmt"
	"strings"
)

// Parse compiles fxlang source into a Program: one statement block per
// top-level "event_name:" callback definition.
func Parse(source string) (*Program, error) {
	toks, err := lex(source)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	prog := &Program{Callbacks: map[string][]Stmt{}}
	for !p.at(tokEOF) {
		p.skipNewlines()
		if p.at(tokEOF) {
			break
		}
		name, err := p.expectIdentText()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokColon); err != nil {
			return nil, err
		}
		if err := p.expect(tokNewline); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		prog.Callbacks[normalizeEvent(name)] = body
	}
	return prog, nil
}

// normalizeEvent lowercases and strips underscores so "try_hit", "TryHit",
// and "tryhit" all key the same callback map entry.
func normalizeEvent(name string) string {
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, "_", "")
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) at(k tokenKind) bool { return p.cur().kind == k }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.at(tokNewline) {
		p.advance()
	}
}

func (p *parser) expect(k tokenKind) error {
	if !p.at(k) {
		return fmt.Errorf("fxlang: line %d: unexpected token (want kind %d, got %d %q)", p.cur().line, k, p.cur().kind, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdentText() (string, error) {
	if p.at(tokIdent) {
		return p.advance().text, nil
	}
	if p.at(tokOp) { // keywords lex as tokOp but can still name a callback, e.g. none here
		return p.advance().text, nil
	}
	return "", fmt.Errorf("fxlang: line %d: expected identifier, got %q", p.cur().line, p.cur().text)
}

// parseBlock consumes an Indent, a sequence of statements, and a Dedent.
func (p *parser) parseBlock() ([]Stmt, error) {
	if err := p.expect(tokIndent); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.at(tokDedent) || p.at(tokEOF) {
			break
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		// if/foreach end with their own block's Dedent, so the next
		// statement may follow directly.
		_, isIf := s.(ifStmt)
		_, isForeach := s.(foreachStmt)
		if !isIf && !isForeach && !p.at(tokNewline) && !p.at(tokDedent) && !p.at(tokEOF) {
			return nil, fmt.Errorf("fxlang: line %d: expected end of statement", p.cur().line)
		}
		p.skipNewlines()
	}
	if p.at(tokDedent) {
		p.advance()
	}
	return stmts, nil
}

func (p *parser) parseStmt() (Stmt, error) {
	switch {
	case p.at(tokOp) && p.cur().text == "if":
		return p.parseIf()
	case p.at(tokOp) && p.cur().text == "foreach":
		return p.parseForeach()
	case p.at(tokOp) && p.cur().text == "return":
		p.advance()
		if p.at(tokNewline) || p.at(tokDedent) || p.at(tokEOF) {
			return returnStmt{}, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return returnStmt{value: v}, nil
	case p.at(tokOp) && p.cur().text == "continue":
		p.advance()
		return continueStmt{}, nil
	case p.at(tokVariable):
		return p.parseAssign()
	case p.at(tokIdent):
		return p.parseCallStmt()
	}
	return nil, fmt.Errorf("fxlang: line %d: unexpected statement start %q", p.cur().line, p.cur().text)
}

func (p *parser) parseAssign() (Stmt, error) {
	v, err := p.parseVarExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(tokOp) || p.cur().text != "=" {
		return nil, fmt.Errorf("fxlang: line %d: expected '=' in assignment", p.cur().line)
	}
	p.advance()
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return assignStmt{target: v, value: rhs}, nil
}

func (p *parser) parseCallStmt() (Stmt, error) {
	name := p.advance().text
	if err := p.expect(tokColon); err != nil {
		return nil, err
	}
	var args []Expr
	for !p.at(tokNewline) && !p.at(tokDedent) && !p.at(tokEOF) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(tokComma) {
			p.advance()
		}
	}
	return callStmt{name: name, args: args}, nil
}

func (p *parser) parseIf() (Stmt, error) {
	var st ifStmt
	p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokColon); err != nil {
		return nil, err
	}
	if err := p.expect(tokNewline); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st.branches = append(st.branches, ifBranch{cond: cond, body: body})

	for {
		save := p.pos
		p.skipNewlines()
		if p.at(tokOp) && p.cur().text == "else" {
			p.advance()
			if p.at(tokOp) && p.cur().text == "if" {
				p.advance()
				c, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				if err := p.expect(tokColon); err != nil {
					return nil, err
				}
				if err := p.expect(tokNewline); err != nil {
					return nil, err
				}
				b, err := p.parseBlock()
				if err != nil {
					return nil, err
				}
				st.branches = append(st.branches, ifBranch{cond: c, body: b})
				continue
			}
			if err := p.expect(tokColon); err != nil {
				return nil, err
			}
			if err := p.expect(tokNewline); err != nil {
				return nil, err
			}
			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			st.elseBody = b
			break
		}
		p.pos = save
		break
	}
	return st, nil
}

func (p *parser) parseForeach() (Stmt, error) {
	p.advance() // foreach
	if !p.at(tokVariable) {
		return nil, fmt.Errorf("fxlang: line %d: expected variable after foreach", p.cur().line)
	}
	name := p.advance().text
	if !(p.at(tokOp) && p.cur().text == "in") {
		return nil, fmt.Errorf("fxlang: line %d: expected 'in' in foreach", p.cur().line)
	}
	p.advance()
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokColon); err != nil {
		return nil, err
	}
	if err := p.expect(tokNewline); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return foreachStmt{varName: name, iter: iter, body: body}, nil
}

// --- expressions, precedence low to high via recursive descent ---

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(tokOp) && p.cur().text == "or" {
		p.advance()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: "or", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (Expr, error) {
	l, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(tokOp) && p.cur().text == "and" {
		p.advance()
		r, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: "and", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseEquality() (Expr, error) {
	l, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.at(tokOp) && (p.cur().text == "==" || p.cur().text == "!=") {
		op := p.advance().text
		r, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseRel() (Expr, error) {
	l, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.at(tokOp) && isRelOp(p.cur().text) {
		op := p.advance().text
		r, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func isRelOp(s string) bool {
	switch s {
	case "<", "<=", ">", ">=", "has", "hasany":
		return true
	}
	return false
}

func (p *parser) parseAdd() (Expr, error) {
	l, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(tokOp) && (p.cur().text == "+" || p.cur().text == "-") {
		op := p.advance().text
		r, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseMul() (Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(tokOp) && (p.cur().text == "*" || p.cur().text == "/" || p.cur().text == "%") {
		op := p.advance().text
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.at(tokOp) && (p.cur().text == "!" || p.cur().text == "^") {
		op := p.advance().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		v, err := parseNumberLiteral(t.text)
		if err != nil {
			return nil, err
		}
		return litExpr{v: v}, nil
	case tokString:
		p.advance()
		return litExpr{v: Str(t.text)}, nil
	case tokLBracket:
		p.advance()
		var items []Expr
		for !p.at(tokRBracket) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if p.at(tokComma) {
				p.advance()
			}
		}
		p.advance() // ]
		return listExpr{items: items}, nil
	case tokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return parenExpr{x: e}, nil
	case tokVariable:
		return p.parseVarExpr()
	case tokOp:
		switch t.text {
		case "true":
			p.advance()
			return litExpr{v: Bool(true)}, nil
		case "false":
			p.advance()
			return litExpr{v: Bool(false)}, nil
		case "undefined":
			p.advance()
			return litExpr{v: Undefined()}, nil
		}
	case tokIdent:
		p.advance()
		if p.at(tokLParen) {
			p.advance()
			var args []Expr
			for !p.at(tokRParen) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(tokComma) {
					p.advance()
				}
			}
			p.advance() // )
			if t.text == "str" {
				var tmpl string
				if len(args) > 0 {
					if lit, ok := args[0].(litExpr); ok && lit.v.Kind == KindString {
						tmpl = lit.v.Str
					}
				}
				rest := args
				if len(args) > 0 {
					rest = args[1:]
				}
				return formatExpr{template: tmpl, args: rest}, nil
			}
			return callValueExpr{name: t.text, args: args}, nil
		}
		return litExpr{v: Str(t.text)}, nil
	}
	return nil, fmt.Errorf("fxlang: line %d: unexpected token %q in expression", t.line, t.text)
}

func (p *parser) parseVarExpr() (varExpr, error) {
	if !p.at(tokVariable) {
		return varExpr{}, fmt.Errorf("fxlang: line %d: expected variable", p.cur().line)
	}
	name := p.advance().text
	var members []string
	for p.at(tokMember) {
		members = append(members, p.advance().text)
	}
	return varExpr{name: name, members: members}, nil
}
