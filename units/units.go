/*
 * units.go, part of gotop.
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

// Package units provides physical units and unit-carrying quantities
// for gotop. The dimensional bookkeeping is done by gonum's unit package:
// every Unit is a gonum *unit.Unit whose value is the factor that takes
// a number in that unit to SI, plus the symbol the unit was written with.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/unit"
)

// relative tolerance used when comparing SI values.
const Tolerance = 1e-9

// Unit is a physical unit. The zero value means "no unit" and is
// not the same as Dimensionless.
type Unit struct {
	symbol string
	u      *unit.Unit
}

// New returns a unit with the given symbol, SI scale factor and dimensions.
func New(symbol string, scale float64, d unit.Dimensions) Unit {
	return Unit{symbol: symbol, u: unit.New(scale, dimsCopy(d))}
}

// dimsCopy returns a non-nil copy of d. gonum's Mul and Div write into
// the dimension map of the receiver, so it can never be nil.
func dimsCopy(d unit.Dimensions) unit.Dimensions {
	r := make(unit.Dimensions, len(d))
	for k, v := range d {
		r[k] = v
	}
	return r
}

// IsZero returns true for the zero Unit, i.e. no unit at all.
func (U Unit) IsZero() bool {
	return U.u == nil
}

// String returns the symbol of the unit. The symbol can be given
// back to Parse to obtain an equal unit.
func (U Unit) String() string {
	if U.IsZero() {
		return ""
	}
	return U.symbol
}

// Scale returns the factor that converts a value in U to SI.
func (U Unit) Scale() float64 {
	if U.IsZero() {
		return 0
	}
	return U.u.Value()
}

// Dimensions returns a copy of the dimensions of the unit.
func (U Unit) Dimensions() unit.Dimensions {
	if U.IsZero() {
		return unit.Dimensions{}
	}
	return U.u.Dimensions()
}

// SameDimensions returns true if both units measure the same
// physical quantity kind.
func (U Unit) SameDimensions(o Unit) bool {
	if U.IsZero() || o.IsZero() {
		return U.IsZero() == o.IsZero()
	}
	return unit.DimensionsMatch(U.u, o.u)
}

// Equal returns true if both units have the same dimensions and
// SI scale, regardless of the symbol they were written with.
func (U Unit) Equal(o Unit) bool {
	if !U.SameDimensions(o) {
		return false
	}
	if U.IsZero() {
		return true
	}
	return scalar.EqualWithinRel(U.Scale(), o.Scale(), Tolerance)
}

func (U Unit) clone() *unit.Unit {
	return unit.New(U.u.Value(), dimsCopy(U.u.Dimensions()))
}

func wrap(s string) string {
	if strings.ContainsAny(s, "*/ ") {
		return "(" + s + ")"
	}
	return s
}

// Mul returns the product U*o. Neither unit is modified.
func (U Unit) Mul(o Unit) Unit {
	r := U.clone()
	r.Mul(o.u)
	return Unit{symbol: wrap(U.symbol) + "*" + wrap(o.symbol), u: r}
}

// Div returns the quotient U/o. Neither unit is modified.
func (U Unit) Div(o Unit) Unit {
	r := U.clone()
	r.Div(o.u)
	return Unit{symbol: wrap(U.symbol) + "/" + wrap(o.symbol), u: r}
}

// Pow returns U raised to the integer power n.
func (U Unit) Pow(n int) Unit {
	r := unit.New(1, unit.Dimensions{})
	for i := 0; i < abs(n); i++ {
		if n > 0 {
			r.Mul(U.u)
		} else {
			r.Div(U.u)
		}
	}
	return Unit{symbol: wrap(U.symbol) + "**" + strconv.Itoa(n), u: r}
}

// Rename returns a copy of U with a different symbol. Meant for
// composite units that deserve a shorter name.
func (U Unit) Rename(symbol string) Unit {
	return Unit{symbol: symbol, u: U.u}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Quantity is one value, or an ordered series of values, in a given unit.
type Quantity struct {
	Unit   Unit
	values []float64
}

// Q returns the scalar quantity v u.
func Q(v float64, u Unit) Quantity {
	return Quantity{Unit: u, values: []float64{v}}
}

// Series returns a quantity holding all the given values, in order, in unit u.
func Series(u Unit, v ...float64) Quantity {
	vals := make([]float64, len(v))
	copy(vals, v)
	return Quantity{Unit: u, values: vals}
}

// IsZero returns true if Q carries no unit. Such a quantity is not a valid
// potential parameter.
func (Q Quantity) IsZero() bool {
	return Q.Unit.IsZero()
}

// Value returns the first (for a scalar, the only) value of Q.
func (Q Quantity) Value() float64 {
	if len(Q.values) == 0 {
		return 0
	}
	return Q.values[0]
}

// Values returns a copy of all the values of Q.
func (Q Quantity) Values() []float64 {
	r := make([]float64, len(Q.values))
	copy(r, Q.values)
	return r
}

// Len returns the number of values in Q.
func (Q Quantity) Len() int {
	return len(Q.values)
}

// IsScalar returns true if Q holds exactly one value.
func (Q Quantity) IsScalar() bool {
	return len(Q.values) == 1
}

// SI returns the values of Q converted to SI units.
func (Q Quantity) SI() []float64 {
	r := Q.Values()
	floats.Scale(Q.Unit.Scale(), r)
	return r
}

// In returns Q expressed in the unit u, which must have the same dimensions
// as the unit of Q.
func (Q Quantity) In(u Unit) (Quantity, error) {
	if !Q.Unit.SameDimensions(u) || Q.IsZero() {
		return Quantity{}, fmt.Errorf("units: can't convert %s to %s, dimensions %v and %v", Q.Unit, u, Q.Unit.Dimensions(), u.Dimensions())
	}
	r := Q.SI()
	floats.Scale(1/u.Scale(), r)
	return Quantity{Unit: u, values: r}, nil
}

// Append returns a new quantity with the values of o after those of Q,
// in the unit of Q.
func (Q Quantity) Append(o Quantity) (Quantity, error) {
	if Q.IsZero() {
		return Series(o.Unit, o.values...), nil
	}
	vals := o.values
	if !o.Unit.Equal(Q.Unit) {
		oc, err := o.In(Q.Unit)
		if err != nil {
			return Quantity{}, err
		}
		vals = oc.values
	}
	return Series(Q.Unit, append(Q.Values(), vals...)...), nil
}

// Equal returns true if both quantities have the same dimensions and
// their SI values agree within Tolerance.
func (Q Quantity) Equal(o Quantity) bool {
	if !Q.Unit.SameDimensions(o.Unit) || len(Q.values) != len(o.values) {
		return false
	}
	a, b := Q.SI(), o.SI()
	for i := range a {
		if !scalar.EqualWithinRel(a[i], b[i], Tolerance) {
			return false
		}
	}
	return true
}

// Key returns a string that is the same for quantities that are equal
// up to rounding to 9 significant figures. Meant to be used as
// part of map keys.
func (Q Quantity) Key() string {
	vals := make([]string, 0, len(Q.values))
	for _, v := range Q.SI() {
		if v == 0 {
			v = 0 //turns -0 into 0
		}
		vals = append(vals, strconv.FormatFloat(v, 'g', 9, 64))
	}
	return fmt.Sprintf("[%s]%s", strings.Join(vals, ","), Q.Unit.Dimensions())
}

func (Q Quantity) String() string {
	if Q.IsScalar() {
		return fmt.Sprintf("%g %s", Q.values[0], Q.Unit)
	}
	return fmt.Sprintf("%v %s", Q.values, Q.Unit)
}

// IsNaN returns true if any value in Q is NaN.
func (Q Quantity) IsNaN() bool {
	for _, v := range Q.values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
