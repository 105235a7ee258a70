/*
 * sym.go, part of gotop.
 *
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package sym is the small symbolic-expression layer used by gotop.
// It parses free-form mathematical expressions, extracts their free symbols,
// substitutes numbers for symbols and evaluates them. Parsing and evaluation
// are delegated to govaluate; this package only normalizes the text so that
// two expressions that differ in whitespace or in the spelling of their
// numerals compare equal.
package sym

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/Knetic/govaluate"
)

// Constants are names that are never free symbols. They are bound
// automatically on evaluation.
var Constants = map[string]float64{
	"pi": math.Pi,
}

// operators that are written with two characters. The scanner returns them
// as two runes, so they are glued back together when they were adjacent in
// the original string.
var twoCharOps = []string{"**", "==", "!=", ">=", "<=", "&&", "||", "<<", ">>", "=~", "!~", "??"}

type token struct {
	text  string
	ident bool
	call  bool //identifier followed by '(' i.e. a function name
}

// Expression is a parsed mathematical expression.
// The zero value is not usable, use Parse.
type Expression struct {
	toks []token
	ev   *govaluate.EvaluableExpression
	free []string
}

// Parse reads s and returns the corresponding expression, or an error
// if s is not a valid expression.
func Parse(s string) (*Expression, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("sym: empty expression")
	}
	return build(toks)
}

// MustParse is like Parse but panics on error. Meant for package-level
// expressions that are known to be correct.
func MustParse(s string) *Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return e
}

func build(toks []token) (*Expression, error) {
	E := &Expression{toks: toks}
	for _, t := range toks {
		if t.call {
			if _, ok := functions[t.text]; !ok {
				return nil, fmt.Errorf("sym: unknown function %s", t.text)
			}
		}
	}
	grouped, err := group(toks)
	if err != nil {
		return nil, fmt.Errorf("sym: can't parse %q: %w", E.String(), err)
	}
	E.ev, err = govaluate.NewEvaluableExpressionWithFunctions(grouped, functions)
	if err != nil {
		return nil, fmt.Errorf("sym: can't parse %q: %w", E.String(), err)
	}
	seen := make(map[string]bool)
	for _, v := range E.ev.Vars() {
		if _, c := Constants[v]; c || seen[v] {
			continue
		}
		seen[v] = true
		E.free = append(E.free, v)
	}
	slices.Sort(E.free)
	return E, nil
}

// String returns the canonical form of the expression: tokens separated
// by single spaces, numerals in their shortest decimal form.
func (E *Expression) String() string {
	r := make([]string, len(E.toks))
	for i, v := range E.toks {
		r[i] = v.text
	}
	return strings.Join(r, " ")
}

// FreeSymbols returns the sorted names of the symbols in the expression
// that are neither functions nor constants.
func (E *Expression) FreeSymbols() []string {
	return slices.Clone(E.free)
}

// HasSymbol returns true if name is a free symbol of the expression.
func (E *Expression) HasSymbol(name string) bool {
	_, found := slices.BinarySearch(E.free, name)
	return found
}

// Equal returns true if both expressions have the same canonical form.
func (E *Expression) Equal(o *Expression) bool {
	if E == nil || o == nil {
		return E == o
	}
	return E.String() == o.String()
}

// Substitute returns a new expression where each symbol present in bindings
// has been replaced by its numeric value. Symbols not in bindings are kept.
func (E *Expression) Substitute(bindings map[string]float64) (*Expression, error) {
	toks := make([]token, 0, len(E.toks)+2)
	for _, t := range E.toks {
		v, ok := bindings[t.text]
		if !t.ident || t.call || !ok {
			toks = append(toks, t)
			continue
		}
		if v < 0 {
			toks = append(toks, token{text: "("}, token{text: "-"}, token{text: formatNumber(-v)}, token{text: ")"})
			continue
		}
		toks = append(toks, token{text: formatNumber(v)})
	}
	return build(toks)
}

// Evaluate returns the numeric value of the expression with the given
// bindings. Every free symbol must be bound.
func (E *Expression) Evaluate(bindings map[string]float64) (float64, error) {
	params := make(map[string]interface{}, len(bindings)+len(Constants))
	for k, v := range Constants {
		params[k] = v
	}
	for k, v := range bindings {
		params[k] = v
	}
	for _, s := range E.free {
		if _, ok := params[s]; !ok {
			return 0, fmt.Errorf("sym: symbol %s not bound in %s", s, E.String())
		}
	}
	res, err := E.ev.Evaluate(params)
	if err != nil {
		return 0, fmt.Errorf("sym: can't evaluate %s: %w", E.String(), err)
	}
	f, ok := res.(float64)
	if !ok {
		return 0, fmt.Errorf("sym: expression %s evaluates to %T, not a number", E.String(), res)
	}
	return f, nil
}

// group returns the tokens as a string for govaluate where every power and
// every negation is parenthesized. govaluate applies prefix '-' before '**'
// and reads '**' chains left to right, while -x**2 is -(x**2) and
// a**b**c is a**(b**c) in the notation force fields are written in.
func group(toks []token) (string, error) {
	g := grouper{toks: toks}
	s, i, err := g.seq(0)
	if err != nil {
		return "", err
	}
	if i < len(toks) {
		return "", fmt.Errorf("unexpected %q", toks[i].text)
	}
	return s, nil
}

type grouper struct {
	toks []token
}

// seq reads operands and binary operators from i up to an unmatched ')'
// or the end of the tokens.
func (G grouper) seq(i int) (string, int, error) {
	var r []string
	operand := true
	for i < len(G.toks) && G.toks[i].text != ")" {
		if !operand {
			r = append(r, G.toks[i].text)
			i++
			operand = true
			continue
		}
		s, j, err := G.unary(i)
		if err != nil {
			return "", j, err
		}
		r = append(r, s)
		i = j
		operand = false
	}
	return strings.Join(r, " "), i, nil
}

func (G grouper) unary(i int) (string, int, error) {
	if i < len(G.toks) {
		switch G.toks[i].text {
		case "-":
			s, j, err := G.unary(i + 1)
			return "( - " + s + " )", j, err
		case "+":
			return G.unary(i + 1)
		}
	}
	return G.power(i)
}

func (G grouper) power(i int) (string, int, error) {
	base, j, err := G.primary(i)
	if err != nil || j >= len(G.toks) || G.toks[j].text != "**" {
		return base, j, err
	}
	exp, k, err := G.unary(j + 1)
	return "( " + base + " ** " + exp + " )", k, err
}

func (G grouper) primary(i int) (string, int, error) {
	if i >= len(G.toks) {
		return "", i, fmt.Errorf("unexpected end of expression")
	}
	t := G.toks[i]
	switch {
	case t.text == "(" || t.call:
		open := i
		if t.call {
			open++
		}
		inner, j, err := G.seq(open + 1)
		if err != nil {
			return "", j, err
		}
		if j >= len(G.toks) {
			return "", j, fmt.Errorf("missing ')'")
		}
		s := "( " + inner + " )"
		if t.call {
			s = t.text + s
		}
		return s, j + 1, nil
	case t.ident, isNumber(t.text):
		return t.text, i + 1, nil
	}
	return "", i, fmt.Errorf("unexpected %q", t.text)
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// tokenize splits s with text/scanner, normalizing numerals and gluing
// two-character operators.
func tokenize(s string) ([]token, error) {
	var sc scanner.Scanner
	var scanerr error
	sc.Init(strings.NewReader(s))
	sc.Mode = scanner.ScanIdents | scanner.ScanFloats | scanner.ScanInts
	sc.Error = func(_ *scanner.Scanner, msg string) {
		if scanerr == nil {
			scanerr = fmt.Errorf("sym: can't read %q: %s", s, msg)
		}
	}
	ret := make([]token, 0, 16)
	prevEnd := -1
	for tok := sc.Scan(); tok != scanner.EOF; tok = sc.Scan() {
		text := sc.TokenText()
		start := sc.Position.Offset
		switch tok {
		case scanner.Ident:
			ret = append(ret, token{text: text, ident: true})
		case scanner.Int, scanner.Float:
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("sym: bad number %q in %q: %w", text, s, err)
			}
			ret = append(ret, token{text: formatNumber(f)})
		default:
			if text == "(" && len(ret) > 0 && ret[len(ret)-1].ident {
				ret[len(ret)-1].call = true
			}
			if len(ret) > 0 && start == prevEnd && slices.Contains(twoCharOps, ret[len(ret)-1].text+text) {
				ret[len(ret)-1].text += text
				prevEnd = start + len(text)
				continue
			}
			ret = append(ret, token{text: text})
		}
		prevEnd = start + len(text)
	}
	if scanerr != nil {
		return nil, scanerr
	}
	return ret, nil
}
