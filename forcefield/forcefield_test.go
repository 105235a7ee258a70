package forcefield

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const carbon = `<?xml version="1.0" encoding="UTF-8"?>
<ForceField name="Carbon" version="0.0.1">
  <FFMetaData electrostatics14Scale="0.5" nonBonded14Scale="0.67">
    <Units energy="kJ/mol" distance="nm" mass="g/mol" charge="elementary_charge"/>
  </FFMetaData>
  <AtomTypes expression="ep * ((sigma/r)**12 - (sigma/r)**6)">
    <ParametersUnitDef parameter="ep" unit="kJ/mol"/>
    <ParametersUnitDef parameter="sigma" unit="nm"/>
    <AtomType name="C" atomclass="CT" mass="12.011" charge="-0.18" definition="[C;X4]" description="alkane carbon" doi="10.1021/ja9621760">
      <Parameters>
        <Parameter name="ep" value="0.276144"/>
        <Parameter name="sigma" value="0.35"/>
      </Parameters>
    </AtomType>
    <AtomType name="H" atomclass="HC" mass="1.008" charge="0.06" overrides="H0,H1">
      <Parameters>
        <Parameter name="ep" value="0.12552"/>
        <Parameter name="sigma" value="0.25"/>
      </Parameters>
    </AtomType>
  </AtomTypes>
  <BondTypes expression="0.5 * k * (r-r_eq)**2">
    <ParametersUnitDef parameter="k" unit="kJ/(mol*nm**2)"/>
    <ParametersUnitDef parameter="r_eq" unit="nm"/>
    <BondType name="BondType-C-H" type1="C" type2="H">
      <Parameters>
        <Parameter name="k" value="284512.0"/>
        <Parameter name="r_eq" value="0.109"/>
      </Parameters>
    </BondType>
    <BondType name="BondType-C-C" class1="CT" class2="CT">
      <Parameters>
        <Parameter name="k" value="224262.4"/>
        <Parameter name="r_eq" value="0.1529"/>
      </Parameters>
    </BondType>
  </BondTypes>
  <AngleTypes expression="0.5 * k * (theta-theta_eq)**2">
    <ParametersUnitDef parameter="k" unit="kJ/(mol*rad**2)"/>
    <ParametersUnitDef parameter="theta_eq" unit="deg"/>
    <AngleType name="AngleType-H-C-H" type1="H" type2="C" type3="H">
      <Parameters>
        <Parameter name="k" value="276.144"/>
        <Parameter name="theta_eq" value="107.8"/>
      </Parameters>
    </AngleType>
  </AngleTypes>
  <DihedralTypes expression="k * (1 + cos(n * phi - phi_eq))">
    <ParametersUnitDef parameter="k1" unit="kJ/mol"/>
    <ParametersUnitDef parameter="k2" unit="kJ/mol"/>
    <ParametersUnitDef parameter="k3" unit="kJ/mol"/>
    <ParametersUnitDef parameter="n1" unit="dimensionless"/>
    <ParametersUnitDef parameter="n2" unit="dimensionless"/>
    <ParametersUnitDef parameter="n3" unit="dimensionless"/>
    <ParametersUnitDef parameter="phi_eq1" unit="deg"/>
    <ParametersUnitDef parameter="phi_eq2" unit="deg"/>
    <ParametersUnitDef parameter="phi_eq3" unit="deg"/>
    <DihedralType name="DihedralType-HC-CT-CT-HC" class1="HC" class2="CT" class3="CT" class4="">
      <Parameters>
        <Parameter name="k1" value="0.0"/>
        <Parameter name="k2" value="0.0"/>
        <Parameter name="k3" value="0.6276"/>
        <Parameter name="n1" value="1"/>
        <Parameter name="n2" value="2"/>
        <Parameter name="n3" value="3"/>
        <Parameter name="phi_eq1" value="0"/>
        <Parameter name="phi_eq2" value="180"/>
        <Parameter name="phi_eq3" value="0"/>
      </Parameters>
    </DihedralType>
  </DihedralTypes>
  <ImproperTypes expression="k * (1 + cos(n * phi - phi_eq))">
    <ParametersUnitDef parameter="k" unit="kJ/mol"/>
    <ParametersUnitDef parameter="n" unit="dimensionless"/>
    <ParametersUnitDef parameter="phi_eq" unit="deg"/>
    <ImproperType name="ImproperType-C-H-H-H" type1="C" type2="H" type3="H" type4="H">
      <Parameters>
        <Parameter name="k" value="4.6"/>
        <Parameter name="n" value="2"/>
        <Parameter name="phi_eq" value="180"/>
      </Parameters>
    </ImproperType>
  </ImproperTypes>
</ForceField>
`

// minimal builds a document with atom types A and B and the given
// connection type groups.
func minimal(groups string) string {
	return `<ForceField name="Minimal" version="1.0">
  <AtomTypes>
    <AtomType name="A" atomclass="CA"/>
    <AtomType name="B"/>
  </AtomTypes>` + groups + `
</ForceField>`
}

func load(Te *testing.T, doc string) *ForceField {
	F, err := Load(strings.NewReader(doc), DefaultLoadOptions())
	require.NoError(Te, err)
	return F
}

func document(Te *testing.T, s string) *etree.Document {
	doc := etree.NewDocument()
	require.NoError(Te, doc.ReadFromString(s))
	return doc
}

func TestLoad(Te *testing.T) {
	F := load(Te, carbon)
	assert.Equal(Te, "Carbon", F.Name)
	assert.Equal(Te, "0.0.1", F.Version)
	assert.Equal(Te, 0.5, F.ScalingFactors[Electrostatics14])
	assert.Equal(Te, 0.67, F.ScalingFactors[NonBonded14])
	assert.True(Te, F.Units[Energy].Equal(units.KJPerMol))
	assert.True(Te, F.Units[Time].Equal(units.PS)) //not declared, default

	require.Len(Te, F.AtomTypes, 2)
	C := F.AtomTypes["C"]
	require.NotNil(Te, C)
	assert.True(Te, C.Mass().Equal(units.Q(12.011, units.GramPerMol)))
	assert.True(Te, C.Charge().Equal(units.Q(-0.18, units.ElementaryCharge)))
	assert.Equal(Te, "CT", C.AtomClass())
	assert.Equal(Te, "[C;X4]", C.Definition())
	assert.Equal(Te, "alkane carbon", C.Description())
	assert.Equal(Te, "10.1021/ja9621760", C.Doi())
	assert.Equal(Te, []string{"r"}, C.IndependentVariables())
	sigma, ok := C.Parameter("sigma")
	require.True(Te, ok)
	assert.True(Te, sigma.Equal(units.Q(3.5, units.Angstrom)))
	assert.Equal(Te, []string{"H0", "H1"}, F.AtomTypes["H"].Overrides())

	require.Len(Te, F.BondTypes, 2)
	ch := F.BondTypes["C~H"]
	require.NotNil(Te, ch)
	assert.Equal(Te, "BondType-C-H", ch.Name())
	assert.Equal(Te, []string{"C", "H"}, ch.MemberTypes())
	k, _ := ch.Parameter("k")
	assert.True(Te, k.Equal(units.Q(284512, units.KJPerMol.Div(units.Nanometer.Pow(2)))))
	assert.Contains(Te, F.BondTypes, "CT~CT")

	hch := F.AngleTypes["H~C~H"]
	require.NotNil(Te, hch)
	theta, _ := hch.Parameter("theta_eq")
	assert.True(Te, theta.Equal(units.Q(107.8, units.Degree)))

	dt := F.DihedralTypes["HC~CT~CT~*"]
	require.NotNil(Te, dt)
	kd, _ := dt.Parameter("k")
	assert.Equal(Te, []float64{0, 0, 0.6276}, kd.Values())
	n, _ := dt.Parameter("n")
	assert.Equal(Te, []float64{1, 2, 3}, n.Values())
	assert.Len(Te, dt.Parameters(), 3)

	it := F.ImproperTypes["C~H~H~H"]
	require.NotNil(Te, it)
	ki, _ := it.Parameter("k")
	assert.True(Te, ki.IsScalar())
	assert.Contains(Te, F.String(), "2 atom types, 2 bond types")
}

func TestConsolidateParameters(Te *testing.T) {
	kj := units.KJPerMol
	params := map[string]units.Quantity{
		"k1":     units.Q(1, kj),
		"k2":     units.Q(2, kj),
		"k10":    units.Q(10, kj),
		"n1":     units.Q(1, units.Dimensionless),
		"phi_eq": units.Q(180, units.Degree),
	}
	expr := "k * (1 + cos(n * phi - phi_eq))"
	c, err := ConsolidateParameters(params, expr)
	require.NoError(Te, err)
	require.Len(Te, c, 3)
	assert.Equal(Te, []float64{1, 2, 10}, c["k"].Values())
	assert.Equal(Te, []float64{1}, c["n"].Values())
	assert.True(Te, c["phi_eq"].IsScalar())
	assert.Len(Te, params, 5) //the input is not modified

	again, err := ConsolidateParameters(c, expr)
	require.NoError(Te, err)
	require.Len(Te, again, len(c))
	for name, q := range c {
		assert.True(Te, q.Equal(again[name]), name)
	}

	_, err = ConsolidateParameters(params, "")
	var fe *top.ForceFieldError
	assert.True(Te, errors.As(err, &fe))

	//different dimensions can't share a series
	_, err = ConsolidateParameters(map[string]units.Quantity{"k1": units.Q(1, kj), "k2": units.Q(1, units.Nanometer)}, expr)
	var pe *top.ParseError
	assert.True(Te, errors.As(err, &pe))
}

func TestStrictValidation(Te *testing.T) {
	one := minimal(`
  <BondTypes>
    <BondType type1="A" type2="C"/>
  </BondTypes>`)
	err := Validate(document(Te, one), ValidateOptions{Strict: true, Greedy: false})
	var me *top.MissingAtomTypesError
	require.True(Te, errors.As(err, &me))
	assert.Equal(Te, []string{"C"}, me.Missing)
	assert.False(Te, me.Greedy)

	two := minimal(`
  <BondTypes>
    <BondType type1="A" type2="C"/>
    <BondType class1="CA" class2=""/>
  </BondTypes>
  <AngleTypes>
    <AngleType type1="D" type2="B" type3="C"/>
  </AngleTypes>`)
	err = Validate(document(Te, two), ValidateOptions{Strict: true, Greedy: true})
	require.True(Te, errors.As(err, &me))
	assert.Equal(Te, []string{"C", "D"}, me.Missing)
	assert.True(Te, me.Greedy)

	err = Validate(document(Te, two), DefaultValidateOptions())
	require.True(Te, errors.As(err, &me))
	assert.Equal(Te, []string{"C"}, me.Missing)

	assert.NoError(Te, Validate(document(Te, two), ValidateOptions{Strict: false}))

	//loading fails the same way, and nothing is returned
	F, err := Load(strings.NewReader(two), DefaultLoadOptions())
	assert.Nil(Te, F)
	assert.True(Te, errors.As(err, &me))
	F, err = Load(strings.NewReader(two), LoadOptions{})
	require.NoError(Te, err)
	assert.Len(Te, F.BondTypes, 2)
	assert.Contains(Te, F.BondTypes, "CA~*")
	assert.Len(Te, F.AngleTypes, 1)

	//typeN wins over classN, and impropers are not checked
	three := minimal(`
  <BondTypes>
    <BondType type1="A" type2="B" class1="XX" class2="YY"/>
    <BondType class1="CA" class2="ZZ"/>
  </BondTypes>
  <ImproperTypes>
    <ImproperType type1="A" type2="Q" type3="Q" type4="Q"/>
  </ImproperTypes>`)
	err = Validate(document(Te, three), ValidateOptions{Strict: true, Greedy: true})
	require.True(Te, errors.As(err, &me))
	assert.Equal(Te, []string{"ZZ"}, me.Missing)
	assert.Equal(Te, []string{"ZZ"}, MissingAtomTypes(document(Te, three).Root(), true))
}

func TestSchemaViolations(Te *testing.T) {
	var pe *top.ParseError
	for name, doc := range map[string]string{
		"unknown element": minimal(`<Bogus/>`),
		"bad number":      `<ForceField name="x" version="1"><AtomTypes><AtomType name="A" mass="heavy"/></AtomTypes></ForceField>`,
		"no version":      `<ForceField name="x"/>`,
		"wrong root":      `<FF name="x" version="1"/>`,
	} {
		err := ValidateSchema(document(Te, doc))
		require.True(Te, errors.As(err, &pe), name)
		assert.NotEmpty(Te, pe.Violations, name)
	}
	assert.NoError(Te, ValidateSchema(document(Te, carbon)))
	tree := Tree(document(Te, carbon).Root())
	assert.Equal(Te, "Carbon", tree["name"])
	assert.Len(Te, tree["BondTypes"], 1)
	assert.NotEmpty(Te, Schema())
}

func TestParseErrors(Te *testing.T) {
	var pe *top.ParseError
	var ue *units.UnitParseError
	_, err := Load(strings.NewReader(minimal(`
  <BondTypes>
    <ParametersUnitDef parameter="k" unit="zzz"/>
    <ParametersUnitDef parameter="r_eq" unit="nm"/>
    <BondType type1="A" type2="B"/>
  </BondTypes>`)), DefaultLoadOptions())
	require.True(Te, errors.As(err, &pe))
	assert.True(Te, errors.As(err, &ue))

	//a parameter with no declared unit
	_, err = Load(strings.NewReader(minimal(`
  <BondTypes expression="0.5 * k * (r-r_eq)**2">
    <ParametersUnitDef parameter="k" unit="kJ/mol"/>
    <BondType type1="A" type2="B">
      <Parameters>
        <Parameter name="k" value="1"/>
        <Parameter name="r_eq" value="1"/>
      </Parameters>
    </BondType>
  </BondTypes>`)), DefaultLoadOptions())
	assert.True(Te, errors.As(err, &pe))

	//a declared unit with no parameter
	_, err = Load(strings.NewReader(minimal(`
  <BondTypes expression="0.5 * k * (r-r_eq)**2">
    <ParametersUnitDef parameter="k" unit="kJ/mol"/>
    <ParametersUnitDef parameter="r_eq" unit="nm"/>
    <BondType type1="A" type2="B">
      <Parameters>
        <Parameter name="k" value="1"/>
      </Parameters>
    </BondType>
  </BondTypes>`)), DefaultLoadOptions())
	assert.True(Te, errors.As(err, &pe))

	var fe *top.ForceFieldError
	_, err = Load(strings.NewReader(`<ForceField name="x" version="1"><AtomTypes><AtomType name="C~1"/></AtomTypes></ForceField>`), DefaultLoadOptions())
	assert.True(Te, errors.As(err, &fe))

	var ve *top.ValidationError
	_, err = ParseConnectionTypes(etree.NewElement("BondTypes"), "BondTypo")
	assert.True(Te, errors.As(err, &ve))

	_, err = ParseMetadata(document(Te, `<FFMetaData><Units energy="zzz"/></FFMetaData>`).Root())
	assert.True(Te, errors.As(err, &ue))
}

func TestDefaultTypes(Te *testing.T) {
	F := load(Te, minimal(`
  <BondTypes>
    <BondType name="ab" type1="A" type2="B"/>
  </BondTypes>
  <DihedralTypes>
    <DihedralType name="ghost"/>
  </DihedralTypes>`))
	ab := F.BondTypes["A~B"]
	require.NotNil(Te, ab)
	def, err := top.NewBondType(top.ConnectionTypeOptions{})
	require.NoError(Te, err)
	assert.True(Te, def.PotentialExpression().Equal(ab.PotentialExpression()))
	//no member types, keyed by name
	assert.Contains(Te, F.DihedralTypes, "ghost")
	A := F.AtomTypes["A"]
	assert.True(Te, A.Mass().Equal(units.Q(0, units.GramPerMol)))
	assert.Equal(Te, "CA", A.AtomClass())

	//a declared expression with no parameters keeps the expression
	F = load(Te, minimal(`
  <BondTypes expression="k*r">
    <BondType type1="A" type2="A"/>
  </BondTypes>
  <AngleTypes>
    <AngleType type1="A" type2="B" type3="A" expression="k*theta**2"/>
  </AngleTypes>`))
	aa := F.BondTypes["A~A"]
	require.NotNil(Te, aa)
	assert.Equal(Te, "k * r", aa.Expression())
	assert.Empty(Te, aa.Parameters())
	assert.ElementsMatch(Te, []string{"k", "r"}, aa.IndependentVariables())
	aba := F.AngleTypes["A~B~A"]
	require.NotNil(Te, aba)
	assert.Empty(Te, aba.Parameters())
	assert.ElementsMatch(Te, []string{"k", "theta"}, aba.IndependentVariables())
}

func TestGroups(Te *testing.T) {
	F := load(Te, carbon)
	classes := F.AtomClassGroups()
	require.Len(Te, classes, 2)
	assert.Equal(Te, "C", classes["CT"][0].Name())
	assert.Equal(Te, "H", classes["HC"][0].Name())

	byExpr := F.GroupByExpression(top.AtomTypeSet)
	require.Len(Te, byExpr, 1)
	assert.Equal(Te, []string{"C", "H"}, byExpr[F.AtomTypes["C"].Expression()])
	bonds := F.GroupByExpression(top.BondTypeSet)
	assert.Equal(Te, []string{"CT~CT", "C~H"}, bonds[F.BondTypes["C~H"].Expression()])
	assert.Empty(Te, F.GroupByExpression("no_such_set"))
}

// sameForceField checks that both force fields hold equal types.
func sameForceField(Te *testing.T, a, b *ForceField) {
	Te.Helper()
	assert.Equal(Te, a.Name, b.Name)
	assert.Equal(Te, a.Version, b.Version)
	assert.Equal(Te, a.ScalingFactors, b.ScalingFactors)
	require.Len(Te, b.AtomTypes, len(a.AtomTypes))
	for k, at := range a.AtomTypes {
		bt := b.AtomTypes[k]
		require.NotNil(Te, bt, k)
		assert.True(Te, at.PotentialExpression().Equal(bt.PotentialExpression()), k)
		assert.True(Te, at.Mass().Equal(bt.Mass()), k)
		assert.True(Te, at.Charge().Equal(bt.Charge()), k)
		assert.Equal(Te, at.AtomClass(), bt.AtomClass())
		assert.Equal(Te, at.Overrides(), bt.Overrides())
	}
	for _, g := range groups {
		ca, cb := a.connectionTypes(g.tag), b.connectionTypes(g.tag)
		require.Len(Te, cb, len(ca), g.tag)
		for k, ct := range ca {
			o := cb[k]
			require.NotNil(Te, o, k)
			assert.Equal(Te, ct.Name(), o.Name())
			assert.True(Te, ct.PotentialExpression().Equal(o.PotentialExpression()), k)
		}
	}
}

func TestWriteXML(Te *testing.T) {
	F := load(Te, carbon)
	var b bytes.Buffer
	require.NoError(Te, F.WriteXML(&b))
	assert.True(Te, strings.HasPrefix(b.String(), "<?xml"))
	assert.Contains(Te, b.String(), `parameter="k3"`)
	G := load(Te, b.String())
	sameForceField(Te, F, G)

	//series can only be written for dihedral-like types
	bt, err := top.NewBondType(top.ConnectionTypeOptions{
		PotentialOptions: top.PotentialOptions{
			Name:                 "multi",
			Expression:           "k*r",
			IndependentVariables: []string{"r"},
			Parameters:           map[string]units.Quantity{"k": units.Series(units.KJPerMol, 1, 2)},
		},
		MemberTypes: []string{"C", "C"},
	})
	require.NoError(Te, err)
	F.BondTypes["C~C"] = bt
	var fe *top.ForceFieldError
	assert.True(Te, errors.As(F.WriteXML(&b), &fe))
}

func TestSave(Te *testing.T) {
	F := load(Te, carbon)
	dir := Te.TempDir()
	for _, name := range []string{"carbon.xml", "carbon.xml.gz", "carbon.xml.zst"} {
		path := filepath.Join(dir, name)
		require.NoError(Te, F.Save(path, false), name)
		var fe *top.ForceFieldError
		assert.True(Te, errors.As(F.Save(path, false), &fe), name)
		require.NoError(Te, F.Save(path, true), name)
		G, err := FromXML(path)
		require.NoError(Te, err, name)
		sameForceField(Te, F, G)
		assert.NoError(Te, ValidateFile(path, DefaultValidateOptions()))
	}

	core, logs := observer.New(zap.WarnLevel)
	prev := top.Logger()
	top.SetLogger(zap.New(core))
	defer top.SetLogger(prev)
	require.NoError(Te, F.Save(filepath.Join(dir, "carbon.txt"), false))
	assert.Equal(Te, 1, logs.FilterMessageSnippet("extension").Len())
	_, err := os.Stat(filepath.Join(dir, "carbon.txt.xml"))
	assert.NoError(Te, err)
}

const hydroxyl = `<ForceField name="Hydroxyl" version="2.0">
  <FFMetaData>
    <Units mass="g/mol"/>
  </FFMetaData>
  <AtomTypes>
    <AtomType name="C" atomclass="CT" mass="13.0"/>
    <AtomType name="O" atomclass="OH" mass="15.999"/>
  </AtomTypes>
  <BondTypes>
    <BondType type1="C" type2="O"/>
  </BondTypes>
</ForceField>`

func TestFromXMLMany(Te *testing.T) {
	dir := Te.TempDir()
	p1, p2 := filepath.Join(dir, "carbon.xml"), filepath.Join(dir, "hydroxyl.xml")
	require.NoError(Te, os.WriteFile(p1, []byte(carbon), 0o644))
	require.NoError(Te, os.WriteFile(p2, []byte(hydroxyl), 0o644))
	F, err := FromXML(p1, p2)
	require.NoError(Te, err)
	assert.Equal(Te, "Carbon", F.Name)
	assert.Len(Te, F.AtomTypes, 3)
	assert.Equal(Te, 13.0, F.AtomTypes["C"].Mass().Value())
	assert.Len(Te, F.BondTypes, 3)
	assert.Len(Te, F.DihedralTypes, 1)

	_, err = FromXML()
	var fe *top.ForceFieldError
	assert.True(Te, errors.As(err, &fe))
	_, err = FromXML(filepath.Join(dir, "nothere.xml"))
	assert.Error(Te, err)
}
