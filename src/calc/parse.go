package calc

import (
	"math/big"
	"strconv"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokFloorDiv
	tokPow
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNum, text: s[i:j]})
			i = j
		case c == '*':
			if i+1 < len(s) && s[i+1] == '*' {
				toks = append(toks, token{kind: tokPow})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokStar})
			i++
		case c == '/':
			if i+1 < len(s) && s[i+1] == '/' {
				toks = append(toks, token{kind: tokFloorDiv})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokSlash})
			i++
		case c == '+':
			toks = append(toks, token{kind: tokPlus})
			i++
		case c == '-':
			toks = append(toks, token{kind: tokMinus})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		default:
			return nil, ErrInvalidCharacters
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

// parser is a precedence-climbing recursive descent parser:
//
//	expr   = term   { ("+" | "-") term }
//	term   = unary  { ("*" | "/" | "//") unary }
//	unary  = ("+" | "-") unary | power
//	power  = atom [ "**" unary ]
//	atom   = number | "(" expr ")"
type parser struct {
	toks  []token
	pos   int
	depth int
}

const maxDepth = 200

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (value, error) {
	left, err := p.parseTerm()
	if err != nil {
		return value{}, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return value{}, err
			}
			if left, err = add(left, right); err != nil {
				return value{}, err
			}
		case tokMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return value{}, err
			}
			if left, err = sub(left, right); err != nil {
				return value{}, err
			}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (value, error) {
	left, err := p.parseUnary()
	if err != nil {
		return value{}, err
	}
	for {
		var op func(a, b value) (value, error)
		switch p.peek().kind {
		case tokStar:
			op = mul
		case tokSlash:
			op = div
		case tokFloorDiv:
			op = floorDiv
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return value{}, err
		}
		if left, err = op(left, right); err != nil {
			return value{}, err
		}
	}
}

func (p *parser) parseUnary() (value, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return value{}, ErrSyntax
	}

	switch p.peek().kind {
	case tokPlus:
		p.next()
		return p.parseUnary()
	case tokMinus:
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return value{}, err
		}
		return negate(v), nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (value, error) {
	base, err := p.parseAtom()
	if err != nil {
		return value{}, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return value{}, err
	}
	return pow(base, exp)
}

func (p *parser) parseAtom() (value, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return parseNumber(t.text)
	case tokLParen:
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return value{}, ErrSyntax
		}
		v, err := p.parseExpr()
		if err != nil {
			return value{}, err
		}
		if p.next().kind != tokRParen {
			return value{}, ErrSyntax
		}
		return v, nil
	}
	return value{}, ErrSyntax
}

func parseNumber(text string) (value, error) {
	if strings.Count(text, ".") > 1 || text == "." {
		return value{}, ErrSyntax
	}
	if !strings.Contains(text, ".") {
		if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0") != "" {
			return value{}, ErrSyntax
		}
		i, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return value{}, ErrSyntax
		}
		return intValue(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return value{}, ErrOverflow
	}
	return floatValue(f), nil
}
