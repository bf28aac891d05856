// Package calc evaluates plain arithmetic expressions.
//
// Input is restricted to digits, the operators + - * / and parentheses, the
// decimal point, and spaces. The whitelist is checked before any parsing, so
// nothing outside that alphabet is ever interpreted.
//
// Numbers follow the usual calculator conventions: integer arithmetic is exact,
// "/" always produces a float, "//" is floor division, and "**" is
// exponentiation.
package calc

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Allowed is the full set of characters an expression may contain.
const Allowed = "0123456789+-*/(). "

var (
	ErrInvalidCharacters = errors.New("Invalid characters")
	ErrSyntax            = errors.New("invalid syntax")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrOverflow          = errors.New("numerical result out of range")
)

const (
	// maxExponent bounds integer powers.
	maxExponent = 4096
	// maxIntBits keeps integer results to at most 10000 decimal digits.
	maxIntBits = 33219
)

// Validate reports ErrInvalidCharacters if expr contains anything outside Allowed.
func Validate(expr string) error {
	for _, r := range expr {
		if !strings.ContainsRune(Allowed, r) {
			return ErrInvalidCharacters
		}
	}
	return nil
}

// Evaluate validates and evaluates expr and returns the result as text.
func Evaluate(expr string) (string, error) {
	if err := Validate(expr); err != nil {
		return "", err
	}
	toks, err := tokenize(expr)
	if err != nil {
		return "", err
	}
	p := &parser{toks: toks}
	v, err := p.parseExpr()
	if err != nil {
		return "", err
	}
	if p.peek().kind != tokEOF {
		return "", ErrSyntax
	}
	return v.String(), nil
}

// value is either an exact integer or a float.
type value struct {
	i *big.Int
	f float64
}

func intValue(i *big.Int) value   { return value{i: i} }
func floatValue(f float64) value  { return value{f: f} }
func (v value) isInt() bool       { return v.i != nil }
func (v value) float() float64 {
	if v.i == nil {
		return v.f
	}
	f, _ := new(big.Float).SetInt(v.i).Float64()
	return f
}

func (v value) String() string {
	if v.isInt() {
		return v.i.String()
	}
	return formatFloat(v.f)
}

// formatFloat renders the shortest representation that round-trips. Integral
// floats keep a trailing ".0"; very large or small magnitudes use exponent form.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func checkFloat(f float64) (value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return value{}, ErrOverflow
	}
	return floatValue(f), nil
}

func add(a, b value) (value, error) {
	if a.isInt() && b.isInt() {
		return intValue(new(big.Int).Add(a.i, b.i)), nil
	}
	return checkFloat(a.float() + b.float())
}

func sub(a, b value) (value, error) {
	if a.isInt() && b.isInt() {
		return intValue(new(big.Int).Sub(a.i, b.i)), nil
	}
	return checkFloat(a.float() - b.float())
}

func checkInt(i *big.Int) (value, error) {
	if i.BitLen() > maxIntBits {
		return value{}, ErrOverflow
	}
	return intValue(i), nil
}

func mul(a, b value) (value, error) {
	if a.isInt() && b.isInt() {
		// the product has at least BitLen(a)+BitLen(b)-1 bits
		if a.i.BitLen()+b.i.BitLen()-1 > maxIntBits {
			return value{}, ErrOverflow
		}
		return checkInt(new(big.Int).Mul(a.i, b.i))
	}
	return checkFloat(a.float() * b.float())
}

func div(a, b value) (value, error) {
	if b.float() == 0 && (!b.isInt() || b.i.Sign() == 0) {
		return value{}, ErrDivisionByZero
	}
	if a.isInt() && b.isInt() {
		q, _ := new(big.Rat).SetFrac(a.i, b.i).Float64()
		return checkFloat(q)
	}
	return checkFloat(a.float() / b.float())
}

func floorDiv(a, b value) (value, error) {
	if a.isInt() && b.isInt() {
		if b.i.Sign() == 0 {
			return value{}, ErrDivisionByZero
		}
		q, r := new(big.Int).QuoRem(a.i, b.i, new(big.Int))
		if r.Sign() != 0 && r.Sign() != b.i.Sign() {
			q.Sub(q, big.NewInt(1))
		}
		return intValue(q), nil
	}
	if b.float() == 0 {
		return value{}, ErrDivisionByZero
	}
	return checkFloat(math.Floor(a.float() / b.float()))
}

func pow(a, b value) (value, error) {
	if a.isInt() && b.isInt() && b.i.Sign() >= 0 {
		if a.i.CmpAbs(big.NewInt(1)) > 0 {
			if b.i.Cmp(big.NewInt(maxExponent)) > 0 {
				return value{}, ErrOverflow
			}
			// |a| >= 2**(BitLen-1), so the result has at least this many bits
			if int64(a.i.BitLen()-1)*b.i.Int64() > maxIntBits {
				return value{}, ErrOverflow
			}
		}
		return checkInt(new(big.Int).Exp(a.i, b.i, nil))
	}
	base, exp := a.float(), b.float()
	if base == 0 && exp < 0 {
		return value{}, fmt.Errorf("0.0 cannot be raised to a negative power")
	}
	if base < 0 && exp != math.Trunc(exp) {
		return value{}, fmt.Errorf("complex result not supported")
	}
	return checkFloat(math.Pow(base, exp))
}

func negate(v value) value {
	if v.isInt() {
		return intValue(new(big.Int).Neg(v.i))
	}
	return floatValue(-v.f)
}
