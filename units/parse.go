package units

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rmera/gotop/sym"
	"gonum.org/v1/gonum/unit"
)

// the symbolic layer has its own idea of what "deg" and "rad" could be,
// so both are renamed before parsing and renamed back on lookup.
const renamePrefix = "u_"

var renamed = regexp.MustCompile(`\b(deg|rad)\b`)

var baseDims = []unit.Dimension{
	unit.CurrentDim,
	unit.LengthDim,
	unit.LuminousIntensityDim,
	unit.MassDim,
	unit.MoleDim,
	unit.TemperatureDim,
	unit.TimeDim,
	unit.AngleDim,
}

// UnitParseError is returned when a unit string can't be turned into a Unit.
type UnitParseError struct {
	Expr   string //the unit string
	Symbol string //the offending symbol, if any
	msg    string
	deco   []string
}

func (E *UnitParseError) Error() string {
	if E.Symbol != "" {
		return fmt.Sprintf("units: can't parse %q: %s: %s", E.Expr, E.msg, E.Symbol)
	}
	return fmt.Sprintf("units: can't parse %q: %s", E.Expr, E.msg)
}

// Decorate adds deco to the error's trail, unless it is empty, and returns the trail.
func (E *UnitParseError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// Parse evaluates a unit string such as "kJ/(mol*nm**2)" and returns the
// corresponding unit. The string is a product/quotient/power expression
// over the symbols known to the package and numeric factors.
func Parse(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	if u, ok := known[s]; ok {
		return u, nil
	}
	expr, err := sym.Parse(renamed.ReplaceAllString(s, renamePrefix+"$1"))
	if err != nil {
		return Unit{}, &UnitParseError{Expr: s, msg: err.Error()}
	}
	if err := multiplicative(expr.String()); err != nil {
		return Unit{}, &UnitParseError{Expr: s, msg: err.Error()}
	}
	free := expr.FreeSymbols()
	syms := make(map[string]Unit, len(free))
	for _, v := range free {
		name := v
		if v == renamePrefix+"deg" || v == renamePrefix+"rad" {
			name = strings.TrimPrefix(v, renamePrefix)
		}
		u, ok := known[name]
		if !ok {
			return Unit{}, &UnitParseError{Expr: s, Symbol: name, msg: "unknown unit symbol"}
		}
		syms[v] = u
	}
	bind := func(f func(Unit) float64) map[string]float64 {
		b := make(map[string]float64, len(syms))
		for k, u := range syms {
			b[k] = f(u)
		}
		return b
	}
	scale, err := expr.Evaluate(bind(func(u Unit) float64 { return u.Scale() }))
	if err != nil || math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return Unit{}, &UnitParseError{Expr: s, msg: fmt.Sprintf("invalid scale factor %g (%v)", scale, err)}
	}
	//The numeric factor of the expression, with every symbol bound to 1.
	//Binding the symbols to 2^exponent for one dimension at a time then
	//gives 2^(total exponent) times that factor.
	c, err := expr.Evaluate(bind(func(Unit) float64 { return 1 }))
	if err != nil || c == 0 {
		return Unit{}, &UnitParseError{Expr: s, msg: "invalid numeric factor"}
	}
	d := make(unit.Dimensions)
	for _, dim := range baseDims {
		r, err := expr.Evaluate(bind(func(u Unit) float64 { return math.Exp2(float64(u.Dimensions()[dim])) }))
		if err != nil {
			return Unit{}, &UnitParseError{Expr: s, msg: err.Error()}
		}
		x := math.Log2(r / c)
		e := math.Round(x)
		if math.Abs(x-e) > 1e-6 {
			return Unit{}, &UnitParseError{Expr: s, msg: fmt.Sprintf("non-integer exponent %g for dimension %v", x, dim)}
		}
		if e != 0 {
			d[dim] = int(e)
		}
	}
	return New(s, scale, d), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return u
}

// multiplicative returns an error if the canonical expression contains
// a binary + or -. Unary signs are allowed (as in "nm**-2").
func multiplicative(canonical string) error {
	toks := strings.Fields(canonical)
	for i, t := range toks {
		if t != "+" && t != "-" {
			continue
		}
		if i == 0 {
			continue
		}
		switch toks[i-1] {
		case "**", "*", "/", "(":
			continue
		}
		return fmt.Errorf("additive unit expression")
	}
	return nil
}
