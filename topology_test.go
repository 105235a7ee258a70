package top

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rmera/gotop/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kbond(k float64) map[string]units.Quantity {
	return map[string]units.Quantity{"k": units.Q(k, units.KJ.Div(units.Nanometer.Pow(2)))}
}

// bonded returns a topology with a bond of type bt between two new atoms.
func bonded(Te *testing.T, bt *BondType) (*Topology, *Bond) {
	T := NewTopology("bonded")
	Te.Cleanup(T.Close)
	b, err := NewBond(NewAtom("C1", nil), NewAtom("H1", nil), bt)
	require.NoError(Te, err)
	_, err = T.AddConnection(b)
	require.NoError(Te, err)
	return T, b
}

func TestBookkeepingRoundTrip(Te *testing.T) {
	bt, err := NewBondType(ConnectionTypeOptions{MemberTypes: []string{"CT", "HC"}})
	require.NoError(Te, err)
	T, b := bonded(Te, bt)
	S := T.Store()
	require.True(Te, S.Holds(bt))
	assert.Equal(Te, T, bt.Topology())

	oldKey := bt.Key()
	require.NoError(Te, bt.SetParameters(kbond(500)))
	assert.NotEqual(Te, oldKey, bt.Key())
	_, ok := S.Get(BondTypeSet, oldKey)
	assert.False(Te, ok)
	assert.True(Te, S.Holds(bt))
	assert.Equal(Te, []Member{b}, S.Associations(bt))
	assert.Equal(Te, []*BondType{bt}, T.BondTypes())

	require.NoError(Te, bt.SetMemberTypes([]string{"CT", "CT"}))
	assert.True(Te, S.Holds(bt))
	assert.Equal(Te, []Member{b}, S.Associations(bt))
	require.NoError(Te, bt.SetName("CT-CT"))
	assert.True(Te, S.Holds(bt))
	assert.Equal(Te, bt, b.BondType())
}

func TestBookkeepingFailedMutation(Te *testing.T) {
	bt, err := NewBondType(ConnectionTypeOptions{MemberTypes: []string{"CT", "HC"}})
	require.NoError(Te, err)
	T, b := bonded(Te, bt)
	S := T.Store()
	key := bt.Key()

	var verr *ValidationError
	err = bt.SetMemberTypes([]string{"CT"})
	require.True(Te, errors.As(err, &verr))
	var cerr *ConfigError
	err = bt.SetParameters(map[string]units.Quantity{"nope": dimless(1)})
	require.True(Te, errors.As(err, &cerr))

	assert.Equal(Te, key, bt.Key())
	assert.True(Te, S.Holds(bt))
	assert.Equal(Te, []Member{b}, S.Associations(bt))

	assert.Panics(Te, func() {
		S.Update(bt, func() error { panic("mutation failed") })
	})
	assert.True(Te, S.Holds(bt))
	assert.Equal(Te, []Member{b}, S.Associations(bt))
}

func TestTwoPhaseMutation(Te *testing.T) {
	bt, err := NewBondType(ConnectionTypeOptions{})
	require.NoError(Te, err)
	T, b := bonded(Te, bt)
	S := T.Store()

	tok := S.BeginMutation(bt)
	assert.False(Te, S.Holds(bt))
	assert.Equal(Te, bt.Key(), tok.OldKey())
	assert.Equal(Te, []Member{b}, tok.Associations())
	S.AbortMutation(tok)
	assert.True(Te, S.Holds(bt))
	//settled tokens do nothing
	S.CommitMutation(tok)
	assert.True(Te, S.Holds(bt))

	tok = S.BeginMutation(bt)
	require.NoError(Te, bt.expr.Set(ExpressionUpdate{Parameters: kbond(10)}))
	S.CommitMutation(tok)
	assert.True(Te, S.Holds(bt))
	assert.NotEqual(Te, tok.OldKey(), bt.Key())
	assert.Equal(Te, []Member{b}, S.Associations(bt))
}

func TestMutationCollision(Te *testing.T) {
	bt1, err := NewBondType(ConnectionTypeOptions{MemberTypes: []string{"CT", "HC"}})
	require.NoError(Te, err)
	bt2, err := BondTypeFromTemplate(HarmonicBond, map[string]units.Quantity{
		"k":    units.Q(500, units.KJ.Div(units.Nanometer.Pow(2))),
		"r_eq": units.Q(0.14, units.Nanometer),
	}, nil)
	require.NoError(Te, err)
	require.NoError(Te, bt2.SetName("BondType"))
	require.NoError(Te, bt2.SetMemberTypes([]string{"CT", "HC"}))

	T, b1 := bonded(Te, bt1)
	b2, err := NewBond(NewAtom("C2", nil), NewAtom("H2", nil), bt2)
	require.NoError(Te, err)
	_, err = T.AddConnection(b2)
	require.NoError(Te, err)
	require.Len(Te, T.BondTypes(), 2)

	//bt2 becomes equal to bt1 and takes its place
	require.NoError(Te, bt2.SetParameters(kbond(1000)))
	assert.Equal(Te, bt1.Key(), bt2.Key())
	assert.Equal(Te, []*BondType{bt2}, T.BondTypes())
	assert.Equal(Te, bt2, b1.BondType())
	assert.Equal(Te, bt2, b2.BondType())
	assert.Len(Te, T.Store().Associations(bt2), 2)
	assert.Nil(Te, bt1.Topology())
}

func TestDeduplication(Te *testing.T) {
	T := NewTopology("dedupe")
	defer T.Close()
	at1, err := NewAtomType(AtomTypeOptions{PotentialOptions: PotentialOptions{Name: "CT"}})
	require.NoError(Te, err)
	at2, err := NewAtomType(AtomTypeOptions{PotentialOptions: PotentialOptions{Name: "CT"}})
	require.NoError(Te, err)
	a1, a2 := NewAtom("C1", at1), NewAtom("C2", at2)
	require.NoError(Te, T.AddSite(a1))
	require.NoError(Te, T.AddSite(a2))
	assert.Equal(Te, []*AtomType{at1}, T.AtomTypes())
	assert.Same(Te, at1, a2.AtomType())
	assert.True(Te, T.IsTyped())

	//a different type for one atom, then back
	at3, err := NewAtomType(AtomTypeOptions{PotentialOptions: PotentialOptions{Name: "CA"}})
	require.NoError(Te, err)
	a2.SetAtomType(at3)
	assert.Len(Te, T.AtomTypes(), 2)
	a2.SetAtomType(nil)
	assert.Equal(Te, []*AtomType{at1}, T.AtomTypes())
	a1.SetAtomType(nil)
	assert.Empty(Te, T.AtomTypes())
	assert.False(Te, T.IsTyped())
}

func TestOwnershipTransfer(Te *testing.T) {
	T1, T2 := NewTopology("one"), NewTopology("two")
	defer T1.Close()
	defer T2.Close()
	at, err := NewAtomType(AtomTypeOptions{})
	require.NoError(Te, err)
	require.NoError(Te, T1.AddSite(NewAtom("A", at)))
	assert.Equal(Te, T1, at.Topology())
	require.NoError(Te, T2.AddSite(NewAtom("B", at)))
	assert.Equal(Te, T2, at.Topology())
	assert.False(Te, T1.Store().Holds(at))
	assert.True(Te, T2.Store().Holds(at))

	//a site can't be in two topologies
	a := T1.Sites()[0]
	var verr *ValidationError
	assert.True(Te, errors.As(T2.AddSite(a), &verr))
}

func TestConnections(Te *testing.T) {
	T := NewTopology("connections")
	defer T.Close()
	a, b, c, d := NewAtom("A", nil), NewAtom("B", nil), NewAtom("C", nil), NewAtom("D", nil)

	ang, err := NewAngle(a, b, c, nil)
	require.NoError(Te, err)
	got, err := T.AddConnection(ang)
	require.NoError(Te, err)
	assert.Equal(Te, Connection(ang), got)
	assert.Equal(Te, 3, T.NSites())

	rev, err := NewAngle(c, b, a, nil)
	require.NoError(Te, err)
	got, err = T.AddConnection(rev)
	require.NoError(Te, err)
	assert.Equal(Te, Connection(ang), got)
	assert.Len(Te, T.Angles(), 1)

	imp, err := NewImproper(a, b, c, d, nil)
	require.NoError(Te, err)
	_, err = T.AddConnection(imp)
	require.NoError(Te, err)
	imp2, err := NewImproper(a, c, b, d, nil)
	require.NoError(Te, err)
	got, err = T.AddConnection(imp2)
	require.NoError(Te, err)
	assert.Equal(Te, Connection(imp), got)
	imp3, err := NewImproper(b, a, c, d, nil)
	require.NoError(Te, err)
	got, err = T.AddConnection(imp3)
	require.NoError(Te, err)
	assert.Equal(Te, Connection(imp3), got)
	assert.Len(Te, T.Impropers(), 2)

	var verr *ValidationError
	_, err = NewBond(a, a, nil)
	assert.True(Te, errors.As(err, &verr))
	_, err = NewDihedral(a, b, nil, d, nil)
	assert.True(Te, errors.As(err, &verr))

	T.RemoveSite(b)
	assert.Equal(Te, 3, T.NSites())
	assert.Empty(Te, T.Connections())
	assert.Nil(Te, b.Topology())
}

func TestConnectionTypesInTopology(Te *testing.T) {
	T := NewTopology("types")
	defer T.Close()
	a, b, c := NewAtom("A", nil), NewAtom("B", nil), NewAtom("C", nil)
	bt, err := NewBondType(ConnectionTypeOptions{})
	require.NoError(Te, err)
	at, err := NewAngleType(ConnectionTypeOptions{})
	require.NoError(Te, err)
	b1, _ := NewBond(a, b, bt)
	b2, _ := NewBond(b, c, nil)
	ang, _ := NewAngle(a, b, c, at)
	for _, v := range []Connection{b1, b2, ang} {
		_, err := T.AddConnection(v)
		require.NoError(Te, err)
	}
	assert.Len(Te, T.ConnectionTypes(), 2)
	b2.SetBondType(bt)
	assert.Len(Te, T.Store().Associations(bt), 2)
	assert.Equal(Te, []string{bt.Expression()}, T.Expressions(BondTypeSet))
	assert.Len(Te, T.ConnectionTypeExpressions(), 2)

	T.RemoveConnection(b1)
	assert.Len(Te, T.Store().Associations(bt), 1)
	assert.Len(Te, T.Bonds(), 1)
	ang.SetAngleType(nil)
	assert.Empty(Te, T.AngleTypes())
}

func TestUpdateTopology(Te *testing.T) {
	logs := observe(Te)
	T := NewTopology("update")
	defer T.Close()
	at, err := NewAtomType(AtomTypeOptions{})
	require.NoError(Te, err)
	typed, untyped := NewAtom("A", at), NewAtom("B", nil)
	b, err := NewBond(typed, untyped, nil)
	require.NoError(Te, err)
	_, err = T.AddConnection(b)
	require.NoError(Te, err)

	T.UpdateTopology()
	assert.Equal(Te, 2, logs.Len())
	assert.Equal(Te, "non-parametrized site detected", logs.All()[0].Message)
	assert.Equal(Te, "non-parametrized connection detected", logs.All()[1].Message)
	assert.Equal(Te, []*AtomType{at}, T.AtomTypes())
	assert.True(Te, T.IsTyped())
}

func TestTopologySettings(Te *testing.T) {
	T := NewTopology("")
	defer T.Close()
	assert.Equal(Te, "Topology", T.Name)
	assert.Equal(Te, Lorentz, T.CombiningRule())
	require.NoError(Te, T.SetCombiningRule(Geometric))
	var verr *ValidationError
	assert.True(Te, errors.As(T.SetCombiningRule("arithmetic"), &verr))
	assert.Equal(Te, Geometric, T.CombiningRule())

	T.SetBox(NewBox([3]float64{3, 3, 4}))
	assert.Equal(Te, [3]float64{90, 90, 90}, T.Box().Angles)

	s := T.AddSubTopology("SOL")
	o := NewAtom("OW", nil)
	o.Position = [3]float64{0.1, 0.2, 0.3}
	require.NoError(Te, s.AddSite(o))
	require.NoError(Te, s.AddSite(o))
	assert.Equal(Te, 1, s.NSites())
	assert.Equal(Te, T, s.Parent())
	assert.Equal(Te, [][3]float64{{0.1, 0.2, 0.3}}, T.Positions())
	T.RemoveSite(o)
	assert.Equal(Te, 0, s.NSites())
}

func TestSiteChargeAndMass(Te *testing.T) {
	at, err := NewAtomType(AtomTypeOptions{Charge: units.Q(0.5, units.ElementaryCharge), Mass: units.Q(12, units.GramPerMol)})
	require.NoError(Te, err)
	a := NewAtom("C", at)
	q, ok := a.Charge()
	require.True(Te, ok)
	assert.Equal(Te, 0.5, q.Value())
	a.SetCharge(units.Q(-0.25, units.ElementaryCharge))
	q, _ = a.Charge()
	assert.Equal(Te, -0.25, q.Value())
	m, ok := a.Mass()
	require.True(Te, ok)
	assert.Equal(Te, 12.0, m.Value())

	_, ok = NewAtom("X", nil).Charge()
	assert.False(Te, ok)
}

// butane-like chain plus a water molecule.
func TestMolecules(Te *testing.T) {
	T := NewTopology("graph")
	defer T.Close()
	c := []*Atom{NewAtom("C1", nil), NewAtom("C2", nil), NewAtom("C3", nil), NewAtom("C4", nil)}
	o, h1, h2 := NewAtom("OW", nil), NewAtom("HW1", nil), NewAtom("HW2", nil)
	pairs := [][2]*Atom{{c[0], c[1]}, {c[1], c[2]}, {c[2], c[3]}, {o, h1}, {o, h2}}
	for _, p := range pairs {
		b, err := NewBond(p[0], p[1], nil)
		require.NoError(Te, err)
		_, err = T.AddConnection(b)
		require.NoError(Te, err)
	}
	lone := NewAtom("NA", nil)
	require.NoError(Te, T.AddSite(lone))

	mols := T.Molecules()
	require.Len(Te, mols, 3)
	assert.Equal(Te, c, mols[0])
	assert.Equal(Te, []*Atom{o, h1, h2}, mols[1])
	assert.Equal(Te, []*Atom{lone}, mols[2])

	na, nd, err := T.IdentifyConnections()
	require.NoError(Te, err)
	assert.Equal(Te, 3, na)
	assert.Equal(Te, 1, nd)
	assert.Equal(Te, []*Atom{c[0], c[1], c[2], c[3]}, T.Dihedrals()[0].Members())

	na, nd, err = T.IdentifyConnections()
	require.NoError(Te, err)
	assert.Zero(Te, na)
	assert.Zero(Te, nd)
}

func TestCheckCompatibility(Te *testing.T) {
	T := NewTopology("compat")
	defer T.Close()
	at, err := NewAtomType(AtomTypeOptions{})
	require.NoError(Te, err)
	bt, err := NewBondType(ConnectionTypeOptions{})
	require.NoError(Te, err)
	b, err := NewBond(NewAtom("A", at), NewAtom("B", at), bt)
	require.NoError(Te, err)
	_, err = T.AddConnection(b)
	require.NoError(Te, err)

	m, err := CheckCompatibility(T, []*Template{LennardJones, HarmonicBond})
	require.NoError(Te, err)
	assert.Equal(Te, HarmonicBond, m[bt])
	assert.Equal(Te, LennardJones, m[at])

	_, err = CheckCompatibility(T, []*Template{LennardJones})
	var eerr *EngineIncompatibilityError
	require.True(Te, errors.As(err, &eerr))
	assert.Equal(Te, "BondType", eerr.Potential)
}

func TestClose(Te *testing.T) {
	bt, err := NewBondType(ConnectionTypeOptions{MemberTypes: []string{"CT", "HC"}})
	require.NoError(Te, err)
	T, b := bonded(Te, bt)
	require.Equal(Te, T.ID(), bt.TopologyHandle())
	T.Close()
	assert.Equal(Te, uuid.Nil, bt.TopologyHandle())
	assert.Nil(Te, bt.Topology())
	assert.False(Te, T.Store().Holds(bt))
	assert.Zero(Te, T.Store().Len(BondTypeSet))
	//the bond keeps its type, which can still be changed
	assert.Equal(Te, bt, b.BondType())
	require.NoError(Te, bt.SetParameters(kbond(500)))
	assert.Zero(Te, T.Store().Len(BondTypeSet))
	T.Close()
}
