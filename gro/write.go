package gro

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
)

// Accepted are the templates a potential must match to be written
// to a Gromacs topology.
var Accepted = []*top.Template{
	top.LennardJones,
	top.HarmonicBond,
	top.HarmonicAngle,
	top.PeriodicTorsion,
	top.RyckaertBellemansTorsion,
	top.HarmonicImproper,
}

var sf = fmt.Sprintf

type groer interface {
	ToGro() (string, error)
}

func printGro[G ~[]E, E groer](w io.Writer, g G) error {
	for _, v := range g {
		m, e := v.ToGro()
		if e != nil {
			return e
		}
		if _, e = io.WriteString(w, m); e != nil {
			return e
		}
	}
	return nil
}

// values returns the values of the parameter name of p in the unit u.
// It panics if p lacks the parameter or it can't be converted.
func values(p top.Potential, name string, u units.Unit) []float64 {
	q, ok := p.Parameter(name)
	if !ok {
		panic(sf("potential %s has no parameter %s", p.Name(), name))
	}
	c, err := q.In(u)
	qerr(err)
	return c.Values()
}

func value(p top.Potential, name string, u units.Unit) float64 {
	return values(p, name, u)[0]
}

type atomTypeLine struct {
	*top.AtomType
}

func (A atomTypeLine) ToGro() (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gro: atom type %s: %v", A.Name(), r)
		}
	}()
	mass, err := A.Mass().In(units.GramPerMol)
	qerr(err)
	charge, err := A.Charge().In(units.ElementaryCharge)
	qerr(err)
	sigma := value(A, "sigma", units.Nanometer)
	epsilon := value(A, "epsilon", units.KJPerMol)
	name := A.Name()
	if c := A.AtomClass(); c != "" {
		name = sf("%-6s %-6s %3d", name, c, 0)
	}
	return sf("%-6s %10.4f %9.5f %2s %14.6e %14.6e\n", name, mass.Value(), charge.Value(), "A", sigma, epsilon), nil
}

// WriteAtomTypes writes an [ atomtypes ] section with the given types, which
// must be Lennard-Jones potentials. Sigma and epsilon are written, as with
// combination rules 2 and 3.
func WriteAtomTypes(w io.Writer, types []*top.AtomType) error {
	lines := make([]atomTypeLine, 0, len(types))
	for _, at := range types {
		if !top.LennardJones.Matches(at) {
			err := &top.EngineIncompatibilityError{Potential: at.Name(), Expression: at.Expression()}
			err.Decorate("WriteAtomTypes")
			return err
		}
		lines = append(lines, atomTypeLine{at})
	}
	if _, err := io.WriteString(w, "[ atomtypes ]\n; name  mass  charge  ptype  sigma  epsilon\n"); err != nil {
		return err
	}
	return printGro(w, lines)
}

type atomLine struct {
	nr int
	a  *top.Atom
}

func (L atomLine) ToGro() (string, error) {
	A := L.a
	q, _ := A.Charge()
	m, _ := A.Mass()
	qe, err := q.In(units.ElementaryCharge)
	if err != nil {
		return "", err
	}
	mg, err := m.In(units.GramPerMol)
	if err != nil {
		return "", err
	}
	resid := A.Molid
	if resid == 0 {
		resid = 1
	}
	resname := A.Molname
	if resname == "" {
		resname = "MOL"
	}
	return sf("%6d %-6s %5d %-5s %-5s %5d %9.5f %10.4f\n", L.nr, A.AtomType().Name(), resid, resname, A.Name, L.nr, qe.Value(), mg.Value()), nil
}

// term is a bonded interaction line: atom numbers, function type and parameters.
type term struct {
	ids    []int
	funct  int
	params []float64
}

func (T term) ToGro() (string, error) {
	ret := make([]string, 0, len(T.ids)+len(T.params)+1)
	for _, v := range T.ids {
		ret = append(ret, sf("%5d", v))
	}
	ret = append(ret, sf("%2d", T.funct))
	for _, v := range T.params {
		ret = append(ret, sf("%12.5f", v))
	}
	return strings.Join(ret, " ") + "\n", nil
}

type writer struct {
	index map[*top.Atom]int
	tmpl  map[top.Potential]*top.Template
}

func (W writer) ids(c top.Connection) []int {
	r := make([]int, 0, 4)
	for _, a := range c.Members() {
		r = append(r, W.index[a])
	}
	return r
}

func (W writer) bond(b *top.Bond) []term {
	t := term{ids: W.ids(b), funct: 1}
	if bt := b.BondType(); bt != nil {
		t.params = []float64{value(bt, "r_eq", units.Nanometer), value(bt, "k", bondK)}
	}
	return []term{t}
}

func (W writer) angle(a *top.Angle) []term {
	t := term{ids: W.ids(a), funct: 1}
	if at := a.AngleType(); at != nil {
		t.params = []float64{value(at, "theta_eq", units.Degree), value(at, "k", angleK)}
	}
	return []term{t}
}

// periodic returns one line per term of a periodic torsion.
func periodic(ids []int, p top.Potential, funct int) []term {
	phi := values(p, "phi_eq", units.Degree)
	k := values(p, "k", units.KJPerMol)
	n := values(p, "n", units.Dimensionless)
	terms := max(len(phi), len(k), len(n))
	at := func(v []float64, i int) float64 {
		if len(v) == 1 {
			return v[0]
		}
		return v[i]
	}
	if terms > 1 {
		funct = 9
	}
	r := make([]term, 0, terms)
	for i := 0; i < terms; i++ {
		r = append(r, term{ids: ids, funct: funct, params: []float64{at(phi, i), at(k, i), at(n, i)}})
	}
	return r
}

func (W writer) dihedral(d *top.Dihedral) []term {
	ids := W.ids(d)
	dt := d.DihedralType()
	if dt == nil {
		return []term{{ids: ids, funct: 9}}
	}
	if W.tmpl[dt] == top.RyckaertBellemansTorsion {
		c := make([]float64, 6)
		for i := range c {
			c[i] = value(dt, sf("c%d", i), units.KJPerMol)
		}
		return []term{{ids: ids, funct: 3, params: rbSigns(c)}}
	}
	return periodic(ids, dt, 1)
}

func (W writer) improper(i *top.Improper) []term {
	ids := W.ids(i)
	it := i.ImproperType()
	if it == nil {
		return []term{{ids: ids, funct: 4}}
	}
	if W.tmpl[it] == top.HarmonicImproper {
		return []term{{ids: ids, funct: 2, params: []float64{value(it, "phi_eq", units.Degree), value(it, "k", angleK)}}}
	}
	return periodic(ids, it, 4)
}

func section[C any](w io.Writer, header string, conns []C, f func(C) []term) error {
	if len(conns) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n[ "+header+" ]\n"); err != nil {
		return err
	}
	for _, c := range conns {
		if err := printGro(w, f(c)); err != nil {
			return err
		}
	}
	return nil
}

// Write writes T as a Gromacs topology with a single molecule type named
// after T. All the potentials in T must match one of the Accepted templates,
// otherwise a *top.EngineIncompatibilityError is returned and nothing is
// written.
func Write(w io.Writer, T *top.Topology) (err error) {
	tmpl, err := top.CheckCompatibility(T, Accepted)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gro: can't write topology %s: %v", T.Name, r)
		}
	}()
	W := writer{index: make(map[*top.Atom]int), tmpl: tmpl}
	atoms := make([]atomLine, 0, T.NSites())
	for i, a := range T.Sites() {
		if a.AtomType() == nil {
			return &top.ValidationError{Msg: sf("site %s has no atom type", a)}
		}
		W.index[a] = i + 1
		atoms = append(atoms, atomLine{nr: i + 1, a: a})
	}
	comb := 2
	if T.CombiningRule() == top.Geometric {
		comb = 3
	}
	bw := bufio.NewWriter(w)
	_, err = io.WriteString(bw, sf("; %s\n\n[ defaults ]\n; nbfunc comb-rule gen-pairs fudgeLJ fudgeQQ\n%d %d yes 1.0 1.0\n\n", T.Name, 1, comb))
	qerr(err)
	qerr(WriteAtomTypes(bw, T.AtomTypes()))
	_, err = io.WriteString(bw, sf("\n[ moleculetype ]\n; name nrexcl\n%s 3\n\n[ atoms ]\n", strings.ReplaceAll(T.Name, " ", "_")))
	qerr(err)
	qerr(printGro(bw, atoms))
	qerr(section(bw, "bonds", T.Bonds(), W.bond))
	qerr(section(bw, "angles", T.Angles(), W.angle))
	qerr(section(bw, "dihedrals", T.Dihedrals(), W.dihedral))
	qerr(section(bw, "dihedrals", T.Impropers(), W.improper))
	return bw.Flush()
}

// WriteFile writes T to the Gromacs topology file path.
func WriteFile(path string, T *top.Topology) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, T); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
