package ffstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/gotop/forcefield"
	"github.com/rmera/gotop/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const water = `<ForceField name="Water" version="0.1">
  <FFMetaData>
    <Units energy="kJ/mol" distance="nm" mass="g/mol" charge="elementary_charge"/>
  </FFMetaData>
  <AtomTypes expression="4*epsilon*((sigma/r)**12 - (sigma/r)**6)">
    <ParametersUnitDef parameter="epsilon" unit="kJ/mol"/>
    <ParametersUnitDef parameter="sigma" unit="nm"/>
    <AtomType name="OW" atomclass="OW" mass="15.999" charge="-0.834">
      <Parameters>
        <Parameter name="epsilon" value="0.636386"/>
        <Parameter name="sigma" value="0.315061"/>
      </Parameters>
    </AtomType>
    <AtomType name="HW" atomclass="HW" mass="1.008" charge="0.417">
      <Parameters>
        <Parameter name="epsilon" value="0.0"/>
        <Parameter name="sigma" value="0.1"/>
      </Parameters>
    </AtomType>
  </AtomTypes>
  <BondTypes expression="0.5 * k * (r-r_eq)**2">
    <ParametersUnitDef parameter="k" unit="kJ/(mol*nm**2)"/>
    <ParametersUnitDef parameter="r_eq" unit="nm"/>
    <BondType name="OW-HW" type1="OW" type2="HW">
      <Parameters>
        <Parameter name="k" value="462750.4"/>
        <Parameter name="r_eq" value="0.09572"/>
      </Parameters>
    </BondType>
  </BondTypes>
</ForceField>`

func water3(Te *testing.T) *forcefield.ForceField {
	F, err := forcefield.Load(strings.NewReader(water), forcefield.DefaultLoadOptions())
	require.NoError(Te, err)
	return F
}

func open(Te *testing.T) *Store {
	S, err := Open(context.Background(), filepath.Join(Te.TempDir(), "lib.db"))
	require.NoError(Te, err)
	Te.Cleanup(func() { S.Close() })
	return S
}

func TestPutGet(Te *testing.T) {
	ctx := context.Background()
	S := open(Te)
	F := water3(Te)
	require.NoError(Te, S.Put(ctx, F))

	G, ok, err := S.Get(ctx, "Water")
	require.NoError(Te, err)
	require.True(Te, ok)
	assert.Equal(Te, "0.1", G.Version)
	require.Len(Te, G.AtomTypes, 2)
	ow := G.AtomTypes["OW"]
	require.NotNil(Te, ow)
	assert.True(Te, ow.Charge().Equal(units.Q(-0.834, units.ElementaryCharge)))
	assert.True(Te, ow.PotentialExpression().Equal(F.AtomTypes["OW"].PotentialExpression()))
	require.Len(Te, G.BondTypes, 1)
	assert.NotNil(Te, G.BondTypes["OW~HW"])

	_, ok, err = S.Get(ctx, "Argon")
	assert.NoError(Te, err)
	assert.False(Te, ok)
}

func TestListReplaceDelete(Te *testing.T) {
	ctx := context.Background()
	S := open(Te)
	F := water3(Te)
	require.NoError(Te, S.Put(ctx, F))
	F.Name = "Another"
	require.NoError(Te, S.Put(ctx, F))
	F.Version = "0.2"
	require.NoError(Te, S.Put(ctx, F))

	list, err := S.List(ctx)
	require.NoError(Te, err)
	require.Len(Te, list, 2)
	assert.Equal(Te, "Another", list[0].Name)
	assert.Equal(Te, "0.2", list[0].Version)
	assert.Equal(Te, 2, list[0].AtomTypes)
	assert.Equal(Te, 1, list[0].ConnectionTypes)
	assert.Equal(Te, "Water", list[1].Name)
	assert.False(Te, list[1].Updated.IsZero())

	ok, err := S.Delete(ctx, "Water")
	require.NoError(Te, err)
	assert.True(Te, ok)
	ok, err = S.Delete(ctx, "Water")
	require.NoError(Te, err)
	assert.False(Te, ok)
	list, err = S.List(ctx)
	require.NoError(Te, err)
	assert.Len(Te, list, 1)
}

func TestPersistence(Te *testing.T) {
	ctx := context.Background()
	path := filepath.Join(Te.TempDir(), "lib.db")
	S, err := Open(ctx, path)
	require.NoError(Te, err)
	require.NoError(Te, S.Put(ctx, water3(Te)))
	require.NoError(Te, S.Close())
	require.NoError(Te, S.Close())
	assert.Error(Te, S.Put(ctx, water3(Te)))

	S, err = Open(ctx, path)
	require.NoError(Te, err)
	defer S.Close()
	assert.Equal(Te, path, S.Path())
	_, ok, err := S.Get(ctx, "Water")
	require.NoError(Te, err)
	assert.True(Te, ok)
}

func TestMemory(Te *testing.T) {
	ctx := context.Background()
	S, err := Open(ctx, ":memory:")
	require.NoError(Te, err)
	defer S.Close()
	require.NoError(Te, S.Put(ctx, water3(Te)))
	list, err := S.List(ctx)
	require.NoError(Te, err)
	assert.Len(Te, list, 1)

	_, err = Open(ctx, "")
	assert.Error(Te, err)
}
