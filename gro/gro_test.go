package gro

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ethane = `; ethane, OPLS-like
[ defaults ]
; nbfunc comb-rule gen-pairs fudgeLJ fudgeQQ
1 2 yes 0.5 0.8333

[ atomtypes ]
;name  bond_type at.num  mass   charge ptype  sigma    epsilon
opls_135  CT  6  12.011  -0.18  A  3.5e-01  2.76144e-01
opls_140  HC  1   1.008   0.06  A  2.5e-01  1.25520e-01

[ moleculetype ]
; name nrexcl
ETH 3

[ atoms ]
    1  opls_135  1  ETH  C1   1  -0.18  12.011
    2  opls_140  1  ETH  H11  1   0.06
    3  opls_140  1  ETH  H12  1   0.06
    4  opls_135  1  ETH  C2   2  -0.18
    5  opls_140  1  ETH  H21  2   0.10 ; not the type's charge
#ifdef EXTRA
    6  opls_140  1  ETH  H22  2   0.06
#endif

[ bonds ]
    1  2  1  0.1090  284512.0
    1  3  1  0.1090  284512.0
    1  4  1  0.1529  224262.4
    4  5  1  0.1090  284512.0

[ angles ]
    2  1  3  1  107.8  276.144
    2  1  4  1  110.7  313.8

[ dihedrals ]
    2  1  4  5  3  0.6276  1.8828  0.0  -2.5104  0.0  0.0
    3  1  4  5  9  0.0    0.0     1
    3  1  4  5  9  180.0  0.0     2
    3  1  4  5  9  0.0    0.6276  3
    1  2  3  4  2  0.0    4.6
`

func read(Te *testing.T, s string, defines ...string) *top.Topology {
	T, err := Read(strings.NewReader(s), defines...)
	require.NoError(Te, err)
	Te.Cleanup(T.Close)
	return T
}

func TestRead(Te *testing.T) {
	T := read(Te, ethane)
	assert.Equal(Te, 5, T.NSites())
	assert.Equal(Te, top.Lorentz, T.CombiningRule())
	require.Len(Te, T.SubTopologies(), 1)
	assert.Equal(Te, "ETH", T.SubTopologies()[0].Name)

	ats := T.AtomTypes()
	require.Len(Te, ats, 2)
	var ct *top.AtomType
	for _, at := range ats {
		if at.Name() == "opls_135" {
			ct = at
		}
	}
	require.NotNil(Te, ct)
	assert.Equal(Te, "CT", ct.AtomClass())
	assert.True(Te, top.LennardJones.Matches(ct))
	sigma, _ := ct.Parameter("sigma")
	assert.True(Te, sigma.Equal(units.Q(0.35, units.Nanometer)))

	sites := T.Sites()
	q, _ := sites[1].Charge()
	assert.True(Te, q.Equal(units.Q(0.06, units.ElementaryCharge)))
	q, _ = sites[4].Charge()
	assert.True(Te, q.Equal(units.Q(0.10, units.ElementaryCharge)))
	assert.Equal(Te, "ETH", sites[0].Molname)

	assert.Len(Te, T.Bonds(), 4)
	assert.Len(Te, T.BondTypes(), 2) //equal types are shared
	assert.Len(Te, T.Angles(), 2)
	assert.Len(Te, T.AngleTypes(), 2)

	ds := T.Dihedrals()
	require.Len(Te, ds, 2)
	rb := ds[0].DihedralType()
	require.NotNil(Te, rb)
	assert.True(Te, top.RyckaertBellemansTorsion.Matches(rb))
	c1, _ := rb.Parameter("c1")
	assert.InDelta(Te, -1.8828, c1.Value(), 1e-9)
	c3, _ := rb.Parameter("c3")
	assert.InDelta(Te, 2.5104, c3.Value(), 1e-9)

	pt := ds[1].DihedralType()
	require.NotNil(Te, pt)
	k, _ := pt.Parameter("k")
	assert.Equal(Te, []float64{0, 0, 0.6276}, k.Values())
	n, _ := pt.Parameter("n")
	assert.Equal(Te, []float64{1, 2, 3}, n.Values())
	assert.Len(Te, T.DihedralTypes(), 2) //the single-term type was replaced

	imps := T.Impropers()
	require.Len(Te, imps, 1)
	assert.True(Te, top.HarmonicImproper.Matches(imps[0].ImproperType()))
	assert.True(Te, T.IsTyped())

	T2 := read(Te, ethane, "EXTRA")
	assert.Equal(Te, 6, T2.NSites())
}

func TestReadErrors(Te *testing.T) {
	var ve *top.ValidationError
	_, err := Read(strings.NewReader("[ atoms ]\n1 nosuchtype 1 MOL X 1 0.0\n"))
	assert.True(Te, errors.As(err, &ve))

	bad := strings.Replace(ethane, "1  2  1  0.1090", "1  2  3  0.1090", 1)
	_, err = Read(strings.NewReader(bad))
	assert.True(Te, errors.As(err, &ve))

	_, err = Read(strings.NewReader("[ atomtypes ]\nC 12.0 zero A 0.3 0.3\n"))
	assert.Error(Te, err)
}

func TestC6C12(Te *testing.T) {
	sigma, epsilon := 0.35, 0.276144
	c6, c12 := 4*epsilon*math.Pow(sigma, 6), 4*epsilon*math.Pow(sigma, 12)
	s := fmt.Sprintf("[ defaults ]\n1 1 no 1.0 1.0\n\n[ atomtypes ]\nCT 12.011 0.0 A %g %g\n", c6, c12)
	R := NewReader(nil)
	require.NoError(Te, R.Fill(strings.NewReader(s)))
	defer R.Topology().Close()
	assert.Equal(Te, 1, R.Defaults.CombRule)
	assert.False(Te, R.Defaults.GenPairs)
	assert.Equal(Te, top.Geometric, R.Topology().CombiningRule())
	at := R.AtomTypes["CT"]
	require.NotNil(Te, at)
	sq, _ := at.Parameter("sigma")
	eq, _ := at.Parameter("epsilon")
	assert.InDelta(Te, sigma, sq.Value(), 1e-6)
	assert.InDelta(Te, epsilon, eq.Value(), 1e-6)
}

func TestInclude(Te *testing.T) {
	dir := Te.TempDir()
	i := strings.Index(ethane, "[ moleculetype ]")
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "types.itp"), []byte(ethane[:i]), 0o644))
	main := "#include \"types.itp\"\n\n" + ethane[i:]
	path := filepath.Join(dir, "ethane.top")
	require.NoError(Te, os.WriteFile(path, []byte(main), 0o644))

	T, err := ReadFile(path, true)
	require.NoError(Te, err)
	defer T.Close()
	assert.Equal(Te, "ethane", T.Name)
	assert.Equal(Te, 5, T.NSites())

	_, err = ReadFile(path, false)
	var ve *top.ValidationError
	assert.True(Te, errors.As(err, &ve)) //no atom types
}

func TestWrite(Te *testing.T) {
	T := read(Te, ethane)
	var b bytes.Buffer
	require.NoError(Te, Write(&b, T))
	out := b.String()
	assert.Contains(Te, out, "[ atomtypes ]")
	assert.Contains(Te, out, "[ moleculetype ]")
	assert.Equal(Te, 3, strings.Count(out, " 9 "))

	T2 := read(Te, out)
	assert.Equal(Te, T.NSites(), T2.NSites())
	assert.Len(Te, T2.Bonds(), 4)
	assert.Len(Te, T2.BondTypes(), 2)
	assert.Len(Te, T2.Angles(), 2)
	require.Len(Te, T2.Dihedrals(), 2)
	require.Len(Te, T2.Impropers(), 1)
	k, _ := T2.Dihedrals()[1].DihedralType().Parameter("k")
	assert.Equal(Te, []float64{0, 0, 0.6276}, k.Values())
	c3, _ := T2.Dihedrals()[0].DihedralType().Parameter("c3")
	assert.InDelta(Te, 2.5104, c3.Value(), 1e-9)
	q, _ := T2.Sites()[4].Charge()
	assert.True(Te, q.Equal(units.Q(0.10, units.ElementaryCharge)))
	assert.Equal(Te, top.Lorentz, T2.CombiningRule())

	path := filepath.Join(Te.TempDir(), "out.top")
	require.NoError(Te, WriteFile(path, T))
	T3, err := ReadFile(path, false)
	require.NoError(Te, err)
	defer T3.Close()
	assert.Equal(Te, T.NSites(), T3.NSites())
}

func TestWriteIncompatible(Te *testing.T) {
	T := read(Te, ethane)
	bt, err := top.NewBondType(top.ConnectionTypeOptions{
		PotentialOptions: top.PotentialOptions{
			Name:                 "linear",
			Expression:           "k*r",
			IndependentVariables: []string{"r"},
			Parameters:           map[string]units.Quantity{"k": units.Q(1, units.KJPerMol)},
		},
	})
	require.NoError(Te, err)
	T.Bonds()[0].SetBondType(bt)
	var b bytes.Buffer
	var ie *top.EngineIncompatibilityError
	require.True(Te, errors.As(Write(&b, T), &ie))
	assert.Equal(Te, "linear", ie.Potential)
	assert.Zero(Te, b.Len())

	mie, err := top.AtomTypeFromTemplate(top.Mie, map[string]units.Quantity{
		"n":       units.Q(12, units.Dimensionless),
		"m":       units.Q(6, units.Dimensionless),
		"epsilon": units.Q(1, units.KJPerMol),
		"sigma":   units.Q(0.3, units.Nanometer),
	}, nil)
	require.NoError(Te, err)
	assert.True(Te, errors.As(WriteAtomTypes(&b, []*top.AtomType{mie}), &ie))
}
