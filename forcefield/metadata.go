package forcefield

import (
	"maps"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
)

// Quantity kinds with a default unit in a force field.
const (
	Energy      = "energy"
	Distance    = "distance"
	Mass        = "mass"
	Charge      = "charge"
	Time        = "time"
	Temperature = "temperature"
	Angle       = "angle"
)

// Scaling factors for 1-4 interactions.
const (
	Electrostatics14 = "electrostatics14Scale"
	NonBonded14      = "nonBonded14Scale"
)

// Metadata holds the default units and the scaling factors of a force field.
type Metadata struct {
	Units          map[string]units.Unit
	ScalingFactors map[string]float64
}

// DefaultUnits returns the units assumed when a force field doesn't declare
// them: kcal/mol, nm, g/mol, coulomb, ps, K and rad.
func DefaultUnits() map[string]units.Unit {
	return map[string]units.Unit{
		Energy:      units.KCalPerMol,
		Distance:    units.Nanometer,
		Mass:        units.GramPerMol,
		Charge:      units.Coulomb,
		Time:        units.PS,
		Temperature: units.Kelvin,
		Angle:       units.Radian,
	}
}

func defaultScalingFactors() map[string]float64 {
	return map[string]float64{Electrostatics14: 1.0, NonBonded14: 1.0}
}

// DefaultMetadata returns the default units and scaling factors of 1.
func DefaultMetadata() Metadata {
	return Metadata{Units: DefaultUnits(), ScalingFactors: defaultScalingFactors()}
}

// Clone returns a deep copy of M.
func (M Metadata) Clone() Metadata {
	return Metadata{Units: maps.Clone(M.Units), ScalingFactors: maps.Clone(M.ScalingFactors)}
}

// ParseMetadata reads an FFMetaData element. The default units are overridden
// by the attributes of its Units child, if any. el can be nil, in which case
// the defaults are returned.
func ParseMetadata(el *etree.Element) (Metadata, error) {
	M := DefaultMetadata()
	if el == nil {
		return M, nil
	}
	for key := range M.ScalingFactors {
		v := el.SelectAttrValue(key, "")
		if v == "" {
			continue
		}
		f, err := parseNumber(v, "scaling factor "+key)
		if err != nil {
			return M, err
		}
		M.ScalingFactors[key] = f
	}
	if u := el.SelectElement("Units"); u != nil {
		for _, a := range u.Attr {
			unit, err := parseUnit(a.Value, "default unit of "+a.Key)
			if err != nil {
				return M, err
			}
			M.Units[a.Key] = unit
		}
	}
	return M, nil
}

func parseNumber(s, what string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &top.ParseError{Msg: "malformed number for " + what, Err: err}
	}
	return f, nil
}

func parseUnit(s, what string) (units.Unit, error) {
	u, err := units.Parse(s)
	if err != nil {
		return units.Unit{}, &top.ParseError{Msg: "bad unit for " + what, Err: err}
	}
	return u, nil
}
