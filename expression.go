/*
 * expression.go, part of gotop.
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

package top

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/rmera/gotop/sym"
	"github.com/rmera/gotop/units"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PotentialExpression binds a mathematical expression to the symbols
// that are left free (independent variables) and the symbols that take
// fixed, unit-carrying values (parameters).
// Every free symbol of the expression is exactly one of the two.
type PotentialExpression struct {
	expr   *sym.Expression
	indep  []string //sorted
	params map[string]units.Quantity
}

// NewPotentialExpression parses expression and checks it against indep and params.
// It returns a *ConfigError if the three are not consistent.
func NewPotentialExpression(expression string, indep []string, params map[string]units.Quantity) (*PotentialExpression, error) {
	e, err := sym.Parse(expression)
	if err != nil {
		return nil, configErr("invalid expression %q: %s", expression, err)
	}
	P := &PotentialExpression{expr: e, indep: sortedUnique(indep), params: maps.Clone(params)}
	if P.params == nil {
		P.params = make(map[string]units.Quantity)
	}
	if err := P.validate(); err != nil {
		return nil, err
	}
	return P, nil
}

// ExpressionUpdate holds the fields to change in a PotentialExpression.
// Empty fields keep their current values.
type ExpressionUpdate struct {
	Expression           string
	IndependentVariables []string
	Parameters           map[string]units.Quantity
}

// IsEmpty returns true if the update would change nothing.
func (U ExpressionUpdate) IsEmpty() bool {
	return U.Expression == "" && U.IndependentVariables == nil && U.Parameters == nil
}

// Set applies the update as a single step. When the expression is not
// changed, the given parameters are merged into the current ones and must
// include at least one of them. When it is, they replace them.
// The resulting triple is validated as a whole, if it is not consistent
// a *ConfigError is returned and P is not modified.
func (P *PotentialExpression) Set(u ExpressionUpdate) error {
	cand := P.Clone()
	changed := false
	if u.Expression != "" {
		e, err := sym.Parse(u.Expression)
		if err != nil {
			return configErr("invalid expression %q: %s", u.Expression, err)
		}
		changed = !e.Equal(cand.expr)
		cand.expr = e
	}
	if u.Parameters != nil {
		if !changed {
			overlap := false
			for k := range u.Parameters {
				if _, ok := cand.params[k]; ok {
					overlap = true
					break
				}
			}
			if !overlap && len(u.Parameters) > 0 {
				return configErr("parameters %v include none of the current parameters %v", slices.Sorted(maps.Keys(u.Parameters)), slices.Sorted(maps.Keys(cand.params)))
			}
			maps.Copy(cand.params, u.Parameters)
		} else {
			cand.params = maps.Clone(u.Parameters)
		}
	}
	if u.IndependentVariables != nil {
		cand.indep = sortedUnique(u.IndependentVariables)
	}
	if err := cand.validate(); err != nil {
		return err
	}
	*P = *cand
	return nil
}

func (P *PotentialExpression) validate() error {
	free := P.expr.FreeSymbols()
	for _, v := range P.indep {
		if !identifier.MatchString(v) {
			return configErr("invalid independent variable %q", v)
		}
		if _, ok := P.params[v]; ok {
			return configErr("symbol %s is both a parameter and an independent variable", v)
		}
	}
	for k, q := range P.params {
		if q.IsZero() {
			return configErr("parameter %s has no unit", k)
		}
		if q.Len() == 0 {
			return configErr("parameter %s has no value", k)
		}
	}
	covered := make([]string, 0, len(P.indep)+len(P.params))
	covered = append(covered, P.indep...)
	for k := range P.params {
		covered = append(covered, k)
	}
	covered = sortedUnique(covered)
	if !slices.Equal(free, covered) {
		return configErr("symbols in expression %q %v don't match independent variables %v and parameters %v: missing %v, extraneous %v", P.expr, free, P.indep, slices.Sorted(maps.Keys(P.params)), difference(free, covered), difference(covered, free))
	}
	return nil
}

// Expression returns the canonical form of the expression.
func (P *PotentialExpression) Expression() string {
	return P.expr.String()
}

// Symbolic returns the parsed expression.
func (P *PotentialExpression) Symbolic() *sym.Expression {
	return P.expr
}

// IndependentVariables returns a sorted copy of the independent variables.
func (P *PotentialExpression) IndependentVariables() []string {
	return slices.Clone(P.indep)
}

// Parameters returns a copy of the parameter map.
func (P *PotentialExpression) Parameters() map[string]units.Quantity {
	return maps.Clone(P.params)
}

// Parameter returns the value of the parameter name.
func (P *PotentialExpression) Parameter(name string) (units.Quantity, bool) {
	q, ok := P.params[name]
	return q, ok
}

// Clone returns a deep copy of P.
func (P *PotentialExpression) Clone() *PotentialExpression {
	return &PotentialExpression{expr: P.expr, indep: slices.Clone(P.indep), params: maps.Clone(P.params)}
}

// Equal returns true if both expressions have the same canonical form, the same
// independent variables, and parameters with the same names and equal values.
func (P *PotentialExpression) Equal(o *PotentialExpression) bool {
	if P == nil || o == nil {
		return P == o
	}
	if !P.expr.Equal(o.expr) || !slices.Equal(P.indep, o.indep) || len(P.params) != len(o.params) {
		return false
	}
	for k, v := range P.params {
		ov, ok := o.params[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Key returns a string that identifies the value of P. Equal expressions have
// equal keys (save for values that differ beyond the ninth significant figure).
func (P *PotentialExpression) Key() string {
	var b strings.Builder
	b.WriteString(P.expr.String())
	b.WriteString("|")
	b.WriteString(strings.Join(P.indep, ","))
	for _, k := range slices.Sorted(maps.Keys(P.params)) {
		fmt.Fprintf(&b, "|%s=%s", k, P.params[k].Key())
	}
	return b.String()
}

func (P *PotentialExpression) String() string {
	return fmt.Sprintf("%s; variables %v; parameters %v", P.expr, P.indep, P.params)
}

// Evaluate returns the value of the expression for the given values of the
// independent variables. Parameters are used in the units they are stored in.
// If some parameters are series, the expression is evaluated once per element
// (scalar parameters are repeated) and the terms are added up.
func (P *PotentialExpression) Evaluate(vars map[string]float64) (float64, error) {
	terms := 1
	for _, q := range P.params {
		if q.Len() > 1 {
			if terms > 1 && q.Len() != terms {
				return 0, configErr("parameter series of different lengths in %s", P.expr)
			}
			terms = q.Len()
		}
	}
	var ret float64
	bind := make(map[string]float64, len(vars)+len(P.params))
	maps.Copy(bind, vars)
	for i := 0; i < terms; i++ {
		for k, q := range P.params {
			vals := q.Values()
			if len(vals) == 1 {
				bind[k] = vals[0]
			} else {
				bind[k] = vals[i]
			}
		}
		v, err := P.expr.Evaluate(bind)
		if err != nil {
			return 0, fmt.Errorf("evaluating %s: %w", P.expr, err)
		}
		ret += v
	}
	return ret, nil
}

func sortedUnique(s []string) []string {
	r := slices.Clone(s)
	slices.Sort(r)
	return slices.Compact(r)
}

// difference returns the elements of a not in b. Both must be sorted.
func difference(a, b []string) []string {
	var r []string
	for _, v := range a {
		if _, found := slices.BinarySearch(b, v); !found {
			r = append(r, v)
		}
	}
	return r
}
