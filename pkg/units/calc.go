package units

import "strings"

// calcParser evaluates the body of a calc() expression in one pass,
// substituting view references and dimension literals as they are scanned.
//
//	expr   := term (('+' | '-') term)*
//	term   := factor (('*' | '/') factor)*
//	factor := ('+' | '-') factor | '(' expr ')' | operand
type calcParser struct {
	src  string
	pos  int
	ctx  Context
	base float64
	refs Refs
}

func (c Context) evalCalc(body string, base float64, refs Refs) (float64, error) {
	p := calcParser{src: body, ctx: c, base: base, refs: refs}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, p.fail("unexpected " + strings.TrimSpace(p.src[p.pos:]))
	}
	return v, nil
}

func (p *calcParser) fail(reason string) error {
	return &ResolutionError{Value: p.src, Reason: reason}
}

func (p *calcParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *calcParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *calcParser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *calcParser) term() (float64, error) {
	left, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.factor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, p.fail("division by zero")
		}
		left /= right
	}
}

func (p *calcParser) factor() (float64, error) {
	switch p.peek() {
	case 0:
		return 0, p.fail("unexpected end of expression")
	case '-':
		p.pos++
		v, err := p.factor()
		return -v, err
	case '+':
		p.pos++
		return p.factor()
	case '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, p.fail("missing )")
		}
		p.pos++
		return v, nil
	}
	return p.operand()
}

// operand scans up to the next operator, parenthesis or space. The token is
// a view reference (id.attr), a dimension literal, or a bare number.
func (p *calcParser) operand() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && !isDelim(p.src[p.pos]) {
		p.pos++
	}
	tok := p.src[start:p.pos]
	if tok == "" {
		return 0, p.fail("unexpected " + string(p.src[p.pos]))
	}
	if dot := strings.LastIndexByte(tok, '.'); dot > 0 && isRectAttr(tok[dot+1:]) {
		id, attr := tok[:dot], tok[dot+1:]
		if p.refs == nil {
			return 0, p.fail("no resolved view for " + id)
		}
		v, ok := p.refs.RefAttr(id, attr)
		if !ok {
			return 0, p.fail("no resolved view for " + id)
		}
		return v, nil
	}
	c := tok[len(tok)-1]
	if c == 'x' || c == '%' {
		v, err := p.ctx.literal(tok, p.base)
		if err != nil {
			return 0, p.fail(err.Error())
		}
		return v, nil
	}
	v, err := parseNumber(tok)
	if err != nil {
		return 0, p.fail(err.Error() + ": " + tok)
	}
	return v, nil
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '+', '-', '*', '/':
		return true
	}
	return false
}

func isRectAttr(s string) bool {
	switch s {
	case "left", "right", "top", "bottom", "width", "height":
		return true
	}
	return false
}
