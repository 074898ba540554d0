package skills

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Default returns a registry holding the built-in skills.
func Default() *Registry {
	r := NewRegistry()
	// Registering into an empty registry cannot conflict.
	_ = r.Register("evaluate_math", evaluateMathSkill,
		"Safely evaluate arithmetic expressions containing +, -, *, /, %, and **.",
		"expression")
	return r
}

func evaluateMathSkill(_ context.Context, args map[string]any) (string, error) {
	raw, ok := args["expression"]
	if !ok {
		return "", errors.New(`missing argument "expression"`)
	}
	expr, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf(`argument "expression" must be a string, got %T`, raw)
	}
	v, err := EvaluateMath(expr)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}

// EvaluateMath evaluates an arithmetic expression made of numbers, + - * / %
// and ** (right associative, binding tighter than unary signs), and
// parentheses. Anything else is rejected.
func EvaluateMath(expr string) (float64, error) {
	p := &mathParser{src: expr}
	p.next()
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.tok.kind != tokEOF {
		return 0, p.unexpected()
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.New("result is not a finite number")
	}
	return v, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokOp
	tokLParen
	tokRParen
	tokInvalid
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

type mathParser struct {
	src string
	pos int
	tok token
}

func (p *mathParser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}

	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case c == '*' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
		p.pos += 2
		p.tok = token{kind: tokOp, text: "**", pos: start}
	case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
		p.pos += 2
		p.tok = token{kind: tokInvalid, text: "//", pos: start}
	case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
		p.pos++
		p.tok = token{kind: tokOp, text: string(c), pos: start}
	case isDigit(c) || c == '.':
		p.scanNumber(start)
	default:
		p.pos++
		p.tok = token{kind: tokInvalid, text: string(c), pos: start}
	}
}

func (p *mathParser) scanNumber(start int) {
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		save := p.pos
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		if p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
			}
		} else {
			p.pos = save
		}
	}

	text := p.src[start:p.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.tok = token{kind: tokInvalid, text: text, pos: start}
		return
	}
	p.tok = token{kind: tokNum, text: text, num: v, pos: start}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (p *mathParser) unexpected() error {
	switch p.tok.kind {
	case tokEOF:
		return errors.New("unexpected end of expression")
	case tokInvalid:
		return fmt.Errorf("unsupported token %q at position %d", p.tok.text, p.tok.pos)
	default:
		return fmt.Errorf("unexpected %q at position %d", p.tok.text, p.tok.pos)
	}
}

// expr := term (('+' | '-') term)*
func (p *mathParser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

// term := unary (('*' | '/' | '%') unary)*
func (p *mathParser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/" || p.tok.text == "%") {
		op := p.tok.text
		p.next()
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, errors.New("division by zero")
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, errors.New("modulo by zero")
			}
			left = floorMod(left, right)
		}
	}
	return left, nil
}

// unary := ('+' | '-') unary | power
func (p *mathParser) unary() (float64, error) {
	if p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		neg := p.tok.text == "-"
		p.next()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if neg {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

// power := primary ('**' unary)?
func (p *mathParser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.tok.kind == tokOp && p.tok.text == "**" {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return 0, err
		}
		if base == 0 && exp < 0 {
			return 0, errors.New("zero cannot be raised to a negative power")
		}
		v := math.Pow(base, exp)
		if math.IsNaN(v) {
			return 0, errors.New("negative number cannot be raised to a fractional power")
		}
		return v, nil
	}
	return base, nil
}

// primary := number | '(' expr ')'
func (p *mathParser) primary() (float64, error) {
	switch p.tok.kind {
	case tokNum:
		v := p.tok.num
		p.next()
		return v, nil
	case tokLParen:
		p.next()
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokRParen {
			if p.tok.kind == tokEOF {
				return 0, errors.New("missing closing parenthesis")
			}
			return 0, p.unexpected()
		}
		p.next()
		return v, nil
	}
	return 0, p.unexpected()
}

// floorMod gives the remainder the sign of the divisor.
func floorMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}
