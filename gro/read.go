package gro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
	"go.uber.org/zap"
)

// Units used by Gromacs topologies.
var (
	bondK  = units.KJPerMol.Div(units.Nanometer.Pow(2)).Rename("kJ/(mol*nm**2)")
	angleK = units.KJPerMol.Div(units.Radian.Pow(2)).Rename("kJ/(mol*rad**2)")
)

// Defaults holds the [ defaults ] section of a topology.
type Defaults struct {
	NBFunc   int
	CombRule int //1: C6/C12 parameters, 2 and 3: sigma/epsilon
	GenPairs bool
	FudgeLJ  float64
	FudgeQQ  float64
}

// DefaultDefaults are assumed when a topology has no [ defaults ] section.
func DefaultDefaults() Defaults {
	return Defaults{NBFunc: 1, CombRule: 2, GenPairs: true, FudgeLJ: 1, FudgeQQ: 1}
}

// Reader fills a topology with the contents of Gromacs topology files.
type Reader struct {
	Defines        []string //flags considered defined for #ifdef blocks
	FollowIncludes bool
	Dir            string //directory where included files are looked for
	Defaults       Defaults
	AtomTypes      map[string]*top.AtomType

	top           *top.Topology
	header        *topHeader
	currentHeader string
	cond          *cond
	sub           *top.SubTopology
	sites         map[int]*top.Atom //of the current molecule type, by number
	dihedrals     map[[4]*top.Atom]*top.Dihedral
}

// NewReader returns a reader that adds what it reads to T. If T is nil,
// a new topology is created.
func NewReader(T *top.Topology, defines ...string) *Reader {
	if T == nil {
		T = top.NewTopology("")
	}
	return &Reader{
		Defines:   defines,
		Defaults:  DefaultDefaults(),
		AtomTypes: make(map[string]*top.AtomType),
		top:       T,
		header:    newTopHeader(),
		cond:      new(cond),
		sites:     make(map[int]*top.Atom),
		dihedrals: make(map[[4]*top.Atom]*top.Dihedral),
	}
}

// Topology returns the topology the reader fills.
func (R *Reader) Topology() *top.Topology { return R.top }

// Fill reads the topology in r, which must be in Gromacs top/itp format.
// If R.FollowIncludes is true, #include statements trigger reading the
// included files, relative to R.Dir.
// NOTE: Constraints, pairs, exclusions and virtual sites are not read.
func (R *Reader) Fill(r io.Reader) error {
	br := bufio.NewReader(r)
	var err error
	var s string
	lineno := 0
	for s, err = br.ReadString('\n'); err == nil || (errors.Is(err, io.EOF) && s != ""); s, err = br.ReadString('\n') {
		lineno++
		s = cleanString(s)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "#define") && R.cond.active() {
			if f := fi(s); len(f) > 1 {
				R.Defines = append(R.Defines, f[1])
			}
		}
		if !R.cond.read(s, R.Defines) {
			continue
		}
		if strings.HasPrefix(s, "#include") {
			if R.FollowIncludes {
				if ierr := R.include(s); ierr != nil {
					return ierr
				}
			}
			continue
		}
		if R.header.Is(s) {
			R.currentHeader = R.header.Which(s)
			continue
		}
		if perr := R.line(s); perr != nil {
			if e, ok := perr.(top.Error); ok {
				e.Decorate(fmt.Sprintf("Fill: line %d", lineno))
			}
			return fmt.Errorf("gro: can't read [ %s ] line %q: %w", R.currentHeader, s, perr)
		}
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return err
}

func (R *Reader) include(s string) error {
	f := fi(s)
	fname := strings.Trim(f[len(f)-1], "\"'<>")
	if !filepath.IsAbs(fname) && R.Dir != "" {
		fname = filepath.Join(R.Dir, fname)
	}
	file, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("gro: failed to include file %s: %w", fname, err)
	}
	defer file.Close()
	return R.Fill(file)
}

func (R *Reader) line(s string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	switch R.currentHeader {
	case "defaults":
		return R.defaults(s)
	case "atomtypes":
		return R.atomType(s)
	case "moleculetype":
		R.sub = R.top.AddSubTopology(fi(s)[0])
		R.sites = make(map[int]*top.Atom)
		return nil
	case "atoms":
		return R.atom(s)
	case "bonds":
		return R.bond(s)
	case "angles":
		return R.angle(s)
	case "dihedrals", "impropers":
		return R.dihedral(s)
	}
	return nil
}

func (R *Reader) defaults(s string) error {
	f := fi(s)
	ints, err := parseints(f[:2]...)
	if err != nil {
		return err
	}
	d := DefaultDefaults()
	d.NBFunc, d.CombRule = ints[0], ints[1]
	if len(f) > 2 {
		d.GenPairs = strings.HasPrefix(strings.ToLower(f[2]), "y")
	}
	if len(f) > 4 {
		fudge, err := parsefloats(f[3:5]...)
		if err != nil {
			return err
		}
		d.FudgeLJ, d.FudgeQQ = fudge[0], fudge[1]
	}
	R.Defaults = d
	rule := top.Geometric
	if d.CombRule == 2 {
		rule = top.Lorentz
	}
	return R.top.SetCombiningRule(rule)
}

func c6c12ToSigmaEpsilon(c6, c12 float64) (sigma float64, epsilon float64) {
	if c6 == 0 || c12 == 0 {
		return 0, 0
	}
	return math.Pow(c12/c6, 1.0/6), c6 * c6 / (4 * c12)
}

// templateOptions returns the options to build a potential of template t.
func templateOptions(t *top.Template, name string, params map[string]units.Quantity) top.PotentialOptions {
	return top.PotentialOptions{
		Name:                 name,
		Expression:           t.Expression(),
		IndependentVariables: t.IndependentVariables(),
		Parameters:           params,
	}
}

// atomType reads a line in one of the forms
//
//	name [bond_type] [at.num] mass charge ptype V W
//
// V and W are sigma and epsilon, or C6 and C12 if the combination rule is 1.
func (R *Reader) atomType(s string) error {
	f := fi(s)
	if len(f) < 6 {
		return fmt.Errorf("atom type needs at least 6 fields, got %d", len(f))
	}
	n := len(f)
	vals, err := parsefloats(f[n-5], f[n-4], f[n-2], f[n-1])
	if err != nil {
		return err
	}
	sigma, epsilon := vals[2], vals[3]
	if R.Defaults.CombRule == 1 {
		sigma, epsilon = c6c12ToSigmaEpsilon(sigma, epsilon)
	}
	o := top.AtomTypeOptions{
		PotentialOptions: templateOptions(top.LennardJones, f[0], map[string]units.Quantity{
			"sigma":   units.Q(sigma, units.Nanometer),
			"epsilon": units.Q(epsilon, units.KJPerMol),
		}),
		Mass:   units.Q(vals[0], units.GramPerMol),
		Charge: units.Q(vals[1], units.ElementaryCharge),
	}
	if n == 8 {
		o.AtomClass = f[1]
	}
	at, err := top.NewAtomType(o)
	if err != nil {
		return err
	}
	R.AtomTypes[f[0]] = at
	return nil
}

// atom reads a line
//
//	nr type resnr residue atom cgnr [charge [mass]]
func (R *Reader) atom(s string) error {
	f := fi(s)
	if len(f) < 6 {
		return fmt.Errorf("atom needs at least 6 fields, got %d", len(f))
	}
	nr, err := strconv.Atoi(f[0])
	qerr(err)
	at, ok := R.AtomTypes[f[1]]
	if !ok {
		return &top.ValidationError{Msg: fmt.Sprintf("atom %s %s has undeclared atom type %s", f[0], f[4], f[1])}
	}
	a := top.NewAtom(f[4], at)
	a.Molname = f[3]
	a.Molid, err = strconv.Atoi(f[2])
	qerr(err)
	if len(f) > 6 {
		q, err := strconv.ParseFloat(f[6], 64)
		qerr(err)
		if c := units.Q(q, units.ElementaryCharge); !c.Equal(at.Charge()) {
			a.SetCharge(c)
		}
	}
	if len(f) > 7 {
		m, err := strconv.ParseFloat(f[7], 64)
		qerr(err)
		if q := units.Q(m, units.GramPerMol); !q.Equal(at.Mass()) {
			a.SetMass(q)
		}
	}
	if R.sub != nil {
		err = R.sub.AddSite(a)
	} else {
		err = R.top.AddSite(a)
	}
	if err != nil {
		return err
	}
	R.sites[nr] = a
	return nil
}

// members returns the atoms with the first n numbers in f, and
// their type names.
func (R *Reader) members(f []string, n int) ([]*top.Atom, []string, error) {
	if len(f) < n+1 {
		return nil, nil, fmt.Errorf("need at least %d fields, got %d", n+1, len(f))
	}
	ids, err := parseints(f[:n]...)
	if err != nil {
		return nil, nil, err
	}
	atoms := make([]*top.Atom, n)
	types := make([]string, n)
	for i, id := range ids {
		a, ok := R.sites[id]
		if !ok {
			return nil, nil, &top.ValidationError{Msg: fmt.Sprintf("atom %d not in [ atoms ]", id)}
		}
		atoms[i] = a
		types[i] = a.AtomType().Name()
	}
	return atoms, types, nil
}

func unsupported(header string, funct int) error {
	return &top.ValidationError{Msg: fmt.Sprintf("function type %d in [ %s ] not supported", funct, header)}
}

// bond reads a line
//
//	ai aj funct [b0 kb]
func (R *Reader) bond(s string) error {
	f := fi(s)
	atoms, types, err := R.members(f, 2)
	if err != nil {
		return err
	}
	funct, err := strconv.Atoi(f[2])
	qerr(err)
	var bt *top.BondType
	if len(f) > 3 {
		if funct != 1 {
			return unsupported("bonds", funct)
		}
		p, err := parsefloats(f[3:5]...)
		qerr(err)
		bt, err = top.NewBondType(top.ConnectionTypeOptions{
			PotentialOptions: templateOptions(top.HarmonicBond, "BondType", map[string]units.Quantity{
				"r_eq": units.Q(p[0], units.Nanometer),
				"k":    units.Q(p[1], bondK),
			}),
			MemberTypes: types,
		})
		if err != nil {
			return err
		}
	}
	b, err := top.NewBond(atoms[0], atoms[1], bt)
	if err != nil {
		return err
	}
	_, err = R.top.AddConnection(b)
	return err
}

// angle reads a line
//
//	ai aj ak funct [theta k]
func (R *Reader) angle(s string) error {
	f := fi(s)
	atoms, types, err := R.members(f, 3)
	if err != nil {
		return err
	}
	funct, err := strconv.Atoi(f[3])
	qerr(err)
	var at *top.AngleType
	if len(f) > 4 {
		if funct != 1 {
			return unsupported("angles", funct)
		}
		p, err := parsefloats(f[4:6]...)
		qerr(err)
		at, err = top.NewAngleType(top.ConnectionTypeOptions{
			PotentialOptions: templateOptions(top.HarmonicAngle, "AngleType", map[string]units.Quantity{
				"theta_eq": units.Q(p[0], units.Degree),
				"k":        units.Q(p[1], angleK),
			}),
			MemberTypes: types,
		})
		if err != nil {
			return err
		}
	}
	a, err := top.NewAngle(atoms[0], atoms[1], atoms[2], at)
	if err != nil {
		return err
	}
	_, err = R.top.AddConnection(a)
	return err
}

// rbSigns turns Ryckaert-Bellemans coefficients from the polymer convention
// of Gromacs (psi = phi - 180) to the IUPAC one, and back.
func rbSigns(c []float64) []float64 {
	r := make([]float64, len(c))
	for i, v := range c {
		if i%2 == 1 {
			v = -v
		}
		r[i] = v
	}
	return r
}

func periodicParams(p []float64) map[string]units.Quantity {
	return map[string]units.Quantity{
		"phi_eq": units.Q(p[0], units.Degree),
		"k":      units.Q(p[1], units.KJPerMol),
		"n":      units.Q(p[2], units.Dimensionless),
	}
}

// dihedral reads a line
//
//	ai aj ak al funct [params]
//
// with funct 1 or 9 (periodic, phi k mult), 3 (Ryckaert-Bellemans, C0..C5),
// 2 (harmonic improper, xi k) or 4 (periodic improper, phi k mult). Lines
// with funct 9 for the same atoms add terms to the same dihedral.
func (R *Reader) dihedral(s string) error {
	f := fi(s)
	atoms, types, err := R.members(f, 4)
	if err != nil {
		return err
	}
	funct, err := strconv.Atoi(f[4])
	qerr(err)
	var p []float64
	if len(f) > 5 {
		p, err = parsefloats(f[5:]...)
		qerr(err)
	}
	switch funct {
	case 2, 4:
		var it *top.ImproperType
		if len(p) > 0 {
			o := top.ConnectionTypeOptions{MemberTypes: types}
			if funct == 2 {
				o.PotentialOptions = templateOptions(top.HarmonicImproper, "ImproperType", map[string]units.Quantity{
					"phi_eq": units.Q(p[0], units.Degree),
					"k":      units.Q(p[1], angleK),
				})
			} else {
				o.PotentialOptions = templateOptions(top.PeriodicTorsion, "ImproperType", periodicParams(p))
			}
			if it, err = top.NewImproperType(o); err != nil {
				return err
			}
		}
		imp, err := top.NewImproper(atoms[0], atoms[1], atoms[2], atoms[3], it)
		if err != nil {
			return err
		}
		_, err = R.top.AddConnection(imp)
		return err
	case 1, 3, 9:
	default:
		return unsupported(R.currentHeader, funct)
	}
	var params map[string]units.Quantity
	tmpl := top.PeriodicTorsion
	if funct == 3 && len(p) > 0 {
		if len(p) != 6 {
			return fmt.Errorf("Ryckaert-Bellemans term with %d parameters instead of 6", len(p))
		}
		tmpl = top.RyckaertBellemansTorsion
		params = make(map[string]units.Quantity)
		for i, c := range rbSigns(p) {
			params["c"+strconv.Itoa(i)] = units.Q(c, units.KJPerMol)
		}
	} else if len(p) > 0 {
		params = periodicParams(p)
	}
	key := [4]*top.Atom{atoms[0], atoms[1], atoms[2], atoms[3]}
	prev, ok := R.dihedrals[key]
	if ok && funct == 9 && params != nil && prev.DihedralType() != nil {
		return R.addTerm(prev, params)
	}
	var dt *top.DihedralType
	if params != nil {
		dt, err = top.NewDihedralType(top.ConnectionTypeOptions{
			PotentialOptions: templateOptions(tmpl, "DihedralType", params),
			MemberTypes:      types,
		})
		if err != nil {
			return err
		}
	}
	d, err := top.NewDihedral(atoms[0], atoms[1], atoms[2], atoms[3], dt)
	if err != nil {
		return err
	}
	c, err := R.top.AddConnection(d)
	if err != nil {
		return err
	}
	if c != top.Connection(d) {
		top.Logger().Warn("repeated dihedral ignored", zap.Stringer("dihedral", d))
		return nil
	}
	R.dihedrals[key] = d
	return nil
}

// addTerm gives d a new type with the terms of its current one plus the
// one in params. The current type is left alone, as other dihedrals can
// share it.
func (R *Reader) addTerm(d *top.Dihedral, params map[string]units.Quantity) error {
	old := d.DihedralType()
	merged := old.Parameters()
	for k, v := range params {
		q, ok := merged[k]
		if !ok {
			return &top.ValidationError{Msg: fmt.Sprintf("can't add parameter %s to the terms of %s", k, d)}
		}
		q, err := q.Append(v)
		if err != nil {
			return err
		}
		merged[k] = q
	}
	dt, err := top.NewDihedralType(top.ConnectionTypeOptions{
		PotentialOptions: top.PotentialOptions{
			Name:                 old.Name(),
			Expression:           old.Expression(),
			IndependentVariables: old.IndependentVariables(),
			Parameters:           merged,
		},
		MemberTypes: old.MemberTypes(),
	})
	if err != nil {
		return err
	}
	d.SetDihedralType(dt)
	return nil
}

// Read reads a Gromacs topology from r into a new topology.
func Read(r io.Reader, defines ...string) (*top.Topology, error) {
	R := NewReader(nil, defines...)
	if err := R.Fill(r); err != nil {
		R.top.Close()
		return nil, err
	}
	return R.top, nil
}

// ReadFile reads the Gromacs topology in path into a new topology named
// after the file. Included files are read if followIncludes is true.
func ReadFile(path string, followIncludes bool, defines ...string) (*top.Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	R := NewReader(top.NewTopology(name), defines...)
	R.FollowIncludes = followIncludes
	R.Dir = filepath.Dir(path)
	if err := R.Fill(f); err != nil {
		R.top.Close()
		return nil, err
	}
	return R.top, nil
}
