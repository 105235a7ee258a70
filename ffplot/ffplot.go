/*
 * ffplot.go, part of gotop.
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

// Package ffplot plots the energy of potentials along one of their
// independent variables.
package ffplot

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultPoints is the number of points a curve has when none is given.
const DefaultPoints = 200

// Options set the range a potential is plotted over.
type Options struct {
	//The independent variable along which the energy is computed.
	//It can be empty if the potential has only one.
	Variable string
	//Range of the variable. If both are zero, DefaultRange is used.
	From, To units.Quantity
	Points   int
	//Unit of the energy axis. kJ/mol if not given.
	Energy units.Unit
}

func (O Options) withDefaults(p top.Potential) (Options, error) {
	if O.Variable == "" {
		vars := p.IndependentVariables()
		if len(vars) != 1 {
			return O, &top.ConfigError{Msg: fmt.Sprintf("potential %s has independent variables %v, one must be chosen", p.Name(), vars)}
		}
		O.Variable = vars[0]
	}
	found := false
	for _, v := range p.IndependentVariables() {
		if v == O.Variable {
			found = true
		}
	}
	if !found {
		return O, &top.ConfigError{Msg: fmt.Sprintf("%s is not an independent variable of %s", O.Variable, p.Name())}
	}
	if O.From.IsZero() && O.To.IsZero() {
		var err error
		O.From, O.To, err = DefaultRange(p, O.Variable)
		if err != nil {
			return O, err
		}
	}
	if !O.From.Unit.SameDimensions(O.To.Unit) || O.From.IsZero() {
		return O, &top.ConfigError{Msg: fmt.Sprintf("range %s to %s is not valid", O.From, O.To)}
	}
	if O.Points <= 1 {
		O.Points = DefaultPoints
	}
	if O.Energy.IsZero() {
		O.Energy = units.KJPerMol
	}
	return O, nil
}

// DefaultRange returns a range over which the energy of p along variable
// shows its main features. Angles span the full circle (half of it for
// bond angles), distances are built from the equilibrium distance or the
// sigma parameter of p.
func DefaultRange(p top.Potential, variable string) (from, to units.Quantity, err error) {
	switch variable {
	case "theta":
		return units.Q(0, units.Degree), units.Q(180, units.Degree), nil
	case "phi", "psi":
		return units.Q(-180, units.Degree), units.Q(180, units.Degree), nil
	}
	if q, ok := p.Parameter("r_eq"); ok && q.IsScalar() {
		return units.Q(0.5*q.Value(), q.Unit), units.Q(1.5*q.Value(), q.Unit), nil
	}
	if q, ok := p.Parameter("sigma"); ok && q.IsScalar() {
		return units.Q(0.85*q.Value(), q.Unit), units.Q(3*q.Value(), q.Unit), nil
	}
	return from, to, &top.ConfigError{Msg: fmt.Sprintf("no default range for %s of %s, a range must be given", variable, p.Name())}
}

// si returns a unit with the dimensions of u and a scale of 1.
func si(u units.Unit) units.Unit {
	return units.New("SI", 1, u.Dimensions())
}

// Curve returns the energy of p, in the unit O.Energy, at O.Points evenly
// spaced values of O.Variable, given in the unit of O.From. The energy is
// computed with every quantity in SI units, so parameters can be given
// in any unit.
func Curve(p top.Potential, O Options) (plotter.XYs, error) {
	O, err := O.withDefaults(p)
	if err != nil {
		return nil, err
	}
	params := make(map[string]units.Quantity)
	for k, q := range p.Parameters() {
		params[k] = units.Series(si(q.Unit), q.SI()...)
	}
	pe, err := top.NewPotentialExpression(p.Expression(), p.IndependentVariables(), params)
	if err != nil {
		return nil, err
	}
	to, err := O.To.In(O.From.Unit)
	if err != nil {
		return nil, err
	}
	xs := floats.Span(make([]float64, O.Points), O.From.Value(), to.Value())
	scale := O.From.Unit.Scale()
	escale := O.Energy.Scale()
	vars := make(map[string]float64, len(p.IndependentVariables()))
	for _, v := range p.IndependentVariables() {
		vars[v] = 0
	}
	ret := make(plotter.XYs, len(xs))
	for i, x := range xs {
		vars[O.Variable] = x * scale
		e, err := pe.Evaluate(vars)
		if err != nil {
			return nil, fmt.Errorf("ffplot: %s at %s=%g: %w", p.Name(), O.Variable, x, err)
		}
		ret[i].X = x
		ret[i].Y = e / escale
	}
	return ret, nil
}

// Energy returns a plot with one line per potential in ps, all computed
// with the options O.
func Energy(title string, O Options, ps ...top.Potential) (*plot.Plot, error) {
	if len(ps) == 0 {
		return nil, &top.ConfigError{Msg: "no potentials to plot"}
	}
	p := plot.New()
	p.Title.Text = title
	p.Title.Padding = 3 * vg.Millimeter
	p.Add(plotter.NewGrid())
	for i, pot := range ps {
		o, err := O.withDefaults(pot)
		if err != nil {
			return nil, err
		}
		xy, err := Curve(pot, o)
		if err != nil {
			return nil, err
		}
		l, err := plotter.NewLine(xy)
		if err != nil {
			return nil, err
		}
		r, g, b := colors(i, len(ps))
		l.LineStyle.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(pot.Name(), l)
		if i == 0 {
			p.X.Label.Text = fmt.Sprintf("%s (%s)", o.Variable, o.From.Unit)
			p.Y.Label.Text = fmt.Sprintf("E (%s)", o.Energy)
		}
	}
	return p, nil
}

// Save writes p to the file name. The format is taken from the extension,
// which can be png, svg, pdf, eps, jpg or tif. Sizes are in inches.
func Save(p *plot.Plot, width, height float64, name string) error {
	return p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, name)
}

// Write writes p to w in the given format (png, svg, pdf...).
func Write(w io.Writer, p *plot.Plot, width, height float64, format string) error {
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, strings.TrimPrefix(format, "."))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Format returns the plot format for the file name.
func Format(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
