// Package expr evaluates the small arithmetic formulas operators may
// attach to tax and shipping rules. Only the four basic operators,
// parentheses, numeric literals and named variables are accepted, so a
// formula stored in the database can never reach anything beyond the
// values handed to Eval.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Formula is a parsed, reusable formula. Safe for concurrent Eval.
type Formula struct {
	src    string
	target string
	root   node
}

// ParseError reports where parsing stopped and why.
type ParseError struct {
	Src string
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("formula %q: position %d: %s", e.Src, e.Pos, e.Msg)
}

// EvalError reports a runtime evaluation failure, such as an unknown
// variable or a division by zero.
type EvalError struct {
	Src string
	Msg string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Src, e.Msg)
}

type node interface {
	eval(src string, vars map[string]float64) (float64, error)
}

type literal float64

func (l literal) eval(string, map[string]float64) (float64, error) {
	return float64(l), nil
}

type variable string

func (v variable) eval(src string, vars map[string]float64) (float64, error) {
	value, ok := vars[string(v)]
	if !ok {
		return 0, &EvalError{Src: src, Msg: fmt.Sprintf("unknown variable %q", string(v))}
	}
	return value, nil
}

type binary struct {
	op          byte
	left, right node
}

func (b binary) eval(src string, vars map[string]float64) (float64, error) {
	left, err := b.left.eval(src, vars)
	if err != nil {
		return 0, err
	}
	right, err := b.right.eval(src, vars)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, &EvalError{Src: src, Msg: "division by zero"}
		}
		return left / right, nil
	}
	return 0, &EvalError{Src: src, Msg: fmt.Sprintf("unknown operator %q", string(b.op))}
}

type negate struct {
	operand node
}

func (n negate) eval(src string, vars map[string]float64) (float64, error) {
	value, err := n.operand.eval(src, vars)
	if err != nil {
		return 0, err
	}
	return -value, nil
}

// Parse compiles a formula. Both the bare form "ht * 1.2" and the
// assignment form "ttc = ht * 1.2" are accepted; the assignment target
// is reported by Target. Variable sigils and a trailing semicolon, as
// found in legacy rule data, are tolerated.
func Parse(src string) (*Formula, error) {
	cleaned := strings.TrimSpace(src)
	cleaned = strings.TrimSuffix(cleaned, ";")

	target := ""
	if name, rest, ok := splitAssignment(cleaned); ok {
		target = name
		cleaned = rest
	}

	p := &parser{src: src, input: cleaned}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return nil, &ParseError{Src: src, Pos: p.pos, Msg: fmt.Sprintf("unexpected %q", p.input[p.pos:])}
	}

	return &Formula{src: src, target: target, root: root}, nil
}

// splitAssignment detects the "name = expression" form. A lone "=" at
// the top level qualifies; "==" never appears in this grammar.
func splitAssignment(input string) (name, rest string, ok bool) {
	idx := strings.IndexByte(input, '=')
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(input[:idx])
	name = strings.TrimPrefix(name, "$")
	if name == "" || !isIdentifier(name) {
		return "", "", false
	}
	return name, input[idx+1:], true
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return len(s) > 0
}

// Target returns the assignment target of the formula, empty for bare
// expressions.
func (f *Formula) Target() string {
	return f.target
}

// String returns the original formula text.
func (f *Formula) String() string {
	return f.src
}

// Eval computes the formula over the given variable bindings.
func (f *Formula) Eval(vars map[string]float64) (float64, error) {
	return f.root.eval(f.src, vars)
}

// Eval is the one-shot form of Parse followed by Formula.Eval.
func Eval(src string, vars map[string]float64) (float64, error) {
	formula, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return formula.Eval(vars)
}

// parser is a recursive descent parser over the usual precedence
// levels: expr -> term (('+'|'-') term)*, term -> factor (('*'|'/')
// factor)*, factor -> number | variable | '(' expr ')' | '-' factor.
type parser struct {
	src   string
	input string
	pos   int
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseFactor() (node, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return nil, &ParseError{Src: p.src, Pos: p.pos, Msg: "unexpected end of formula"}
	}

	switch c := p.input[p.pos]; {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, &ParseError{Src: p.src, Pos: p.pos, Msg: "missing closing parenthesis"}
		}
		p.pos++
		return inner, nil

	case c == '-':
		p.pos++
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return negate{operand: operand}, nil

	case c == '+':
		p.pos++
		return p.parseFactor()

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case c == '$':
		p.pos++
		return p.parseVariable()

	case unicode.IsLetter(rune(c)) || c == '_':
		return p.parseVariable()

	default:
		return nil, &ParseError{Src: p.src, Pos: p.pos, Msg: fmt.Sprintf("unexpected character %q", string(c))}
	}
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, &ParseError{Src: p.src, Pos: start, Msg: fmt.Sprintf("bad number %q", p.input[start:p.pos])}
	}
	return literal(value), nil
}

func (p *parser) parseVariable() (node, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return nil, &ParseError{Src: p.src, Pos: start, Msg: "empty variable name"}
	}
	return variable(p.input[start:p.pos]), nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
