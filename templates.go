package top

import (
	"slices"
	"sort"

	"github.com/rmera/gotop/sym"
	"github.com/rmera/gotop/units"
)

// Template is a named expression with its independent variables, but no
// parameter values. Potentials are built from templates by supplying
// the parameters. Templates are immutable.
type Template struct {
	name  string
	expr  *sym.Expression
	indep []string
}

// NewTemplate returns a template. Every independent variable must appear
// in the expression.
func NewTemplate(name, expression string, indep ...string) (*Template, error) {
	e, err := sym.Parse(expression)
	if err != nil {
		return nil, configErr("template %s: invalid expression %q: %s", name, expression, err)
	}
	iv := sortedUnique(indep)
	for _, v := range iv {
		if !e.HasSymbol(v) {
			return nil, configErr("template %s: independent variable %s is not in %q", name, v, expression)
		}
	}
	return &Template{name: name, expr: e, indep: iv}, nil
}

func mustTemplate(name, expression string, indep ...string) *Template {
	t, err := NewTemplate(name, expression, indep...)
	if err != nil {
		panic(err.Error())
	}
	return t
}

func (T *Template) Name() string { return T.name }

// Expression returns the canonical form of the template's expression.
func (T *Template) Expression() string { return T.expr.String() }

func (T *Template) IndependentVariables() []string { return slices.Clone(T.indep) }

// Parameters returns the names of the symbols that need values.
func (T *Template) Parameters() []string {
	return difference(T.expr.FreeSymbols(), T.indep)
}

// Matches returns true if p has the same expression and independent
// variables as the template.
func (T *Template) Matches(p Potential) bool {
	e := p.base().expr
	return e.expr.Equal(T.expr) && slices.Equal(e.indep, T.indep)
}

func (T *Template) valid() bool {
	return T != nil && T.expr != nil
}

// options returns the potential options to build a potential of the template
// with the given parameters.
func (T *Template) options(params map[string]units.Quantity, top *Topology) (PotentialOptions, error) {
	if !T.valid() {
		return PotentialOptions{}, validationErr("%v is not a valid potential template, build templates with NewTemplate", T)
	}
	return PotentialOptions{
		Name:                 T.name,
		Expression:           T.expr.String(),
		IndependentVariables: T.IndependentVariables(),
		Parameters:           params,
		Topology:             top,
	}, nil
}

// The library of templates.
var (
	LennardJones             = mustTemplate("LennardJonesPotential", "4*epsilon*((sigma/r)**12 - (sigma/r)**6)", "r")
	Mie                      = mustTemplate("MiePotential", "(n/(n-m)) * (n/m)**(m/(n-m)) * epsilon * ((sigma/r)**n - (sigma/r)**m)", "r")
	Buckingham               = mustTemplate("BuckinghamPotential", "a*exp(-b*r) - c*r**-6", "r")
	HarmonicBond             = mustTemplate("HarmonicBondPotential", "0.5 * k * (r-r_eq)**2", "r")
	HarmonicAngle            = mustTemplate("HarmonicAnglePotential", "0.5 * k * (theta-theta_eq)**2", "theta")
	HarmonicTorsion          = mustTemplate("HarmonicTorsionPotential", "0.5 * k * (phi - phi_eq)**2", "phi")
	PeriodicTorsion          = mustTemplate("PeriodicTorsionPotential", "k * (1 + cos(n * phi - phi_eq))", "phi")
	OPLSTorsion              = mustTemplate("OPLSTorsionPotential", "0.5 * k0 + 0.5 * k1 * (1 + cos(phi)) + 0.5 * k2 * (1 - cos(2*phi)) + 0.5 * k3 * (1 + cos(3*phi)) + 0.5 * k4 * (1 - cos(4*phi))", "phi")
	RyckaertBellemansTorsion = mustTemplate("RyckaertBellemansTorsionPotential", "c0 * cos(phi)**0 + c1 * cos(phi)**1 + c2 * cos(phi)**2 + c3 * cos(phi)**3 + c4 * cos(phi)**4 + c5 * cos(phi)**5", "phi")
	HarmonicImproper         = mustTemplate("HarmonicImproperPotential", "0.5 * k * (phi - phi_eq)**2", "phi")
)

var library = map[string]*Template{}

func init() {
	for _, t := range []*Template{LennardJones, Mie, Buckingham, HarmonicBond, HarmonicAngle, HarmonicTorsion,
		PeriodicTorsion, OPLSTorsion, RyckaertBellemansTorsion, HarmonicImproper} {
		library[t.name] = t
	}
}

// LookupTemplate returns the library template with the given name.
func LookupTemplate(name string) (*Template, bool) {
	t, ok := library[name]
	return t, ok
}

// Templates returns the library templates sorted by name.
func Templates() []*Template {
	r := make([]*Template, 0, len(library))
	for _, t := range library {
		r = append(r, t)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].name < r[j].name })
	return r
}

// FromTemplate builds a generic potential from the template T and the
// given parameters. It returns a *ValidationError if T was not built
// with NewTemplate.
func FromTemplate(T *Template, params map[string]units.Quantity, top *Topology) (*ParametricPotential, error) {
	o, err := T.options(params, top)
	if err != nil {
		return nil, err
	}
	return NewParametricPotential(o)
}

func AtomTypeFromTemplate(T *Template, params map[string]units.Quantity, top *Topology) (*AtomType, error) {
	o, err := T.options(params, top)
	if err != nil {
		return nil, err
	}
	return NewAtomType(AtomTypeOptions{PotentialOptions: o})
}

func BondTypeFromTemplate(T *Template, params map[string]units.Quantity, top *Topology) (*BondType, error) {
	o, err := T.options(params, top)
	if err != nil {
		return nil, err
	}
	return NewBondType(ConnectionTypeOptions{PotentialOptions: o})
}

func AngleTypeFromTemplate(T *Template, params map[string]units.Quantity, top *Topology) (*AngleType, error) {
	o, err := T.options(params, top)
	if err != nil {
		return nil, err
	}
	return NewAngleType(ConnectionTypeOptions{PotentialOptions: o})
}

func DihedralTypeFromTemplate(T *Template, params map[string]units.Quantity, top *Topology) (*DihedralType, error) {
	o, err := T.options(params, top)
	if err != nil {
		return nil, err
	}
	return NewDihedralType(ConnectionTypeOptions{PotentialOptions: o})
}

func ImproperTypeFromTemplate(T *Template, params map[string]units.Quantity, top *Topology) (*ImproperType, error) {
	o, err := T.options(params, top)
	if err != nil {
		return nil, err
	}
	return NewImproperType(ConnectionTypeOptions{PotentialOptions: o})
}
