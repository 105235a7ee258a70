/*
 * atomtype.go, part of gotop.
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

package top

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/rmera/gotop/units"
	"go.uber.org/zap"
)

var atomDefaults = potentialDefaults{
	name: "AtomType",
	expr: "4*epsilon*((sigma/r)**12 - (sigma/r)**6)",
	params: map[string]units.Quantity{
		"sigma":   units.Q(0.3, units.Nanometer),
		"epsilon": units.Q(0.3, units.KJ),
	},
	indep: []string{"r"},
}

// AtomTypeOptions are the arguments to build an atom type.
// A Mass or Charge with no values takes the default, 0 g/mol and 0 e.
type AtomTypeOptions struct {
	PotentialOptions
	Mass        units.Quantity
	Charge      units.Quantity
	AtomClass   string
	Doi         string
	Overrides   []string //names of the atom types this one overrides
	Definition  string   //usually a SMARTS string
	Description string
}

// AtomType describes the non-bonded interactions of a site, plus
// its mass and charge.
type AtomType struct {
	ParametricPotential
	mass        units.Quantity
	charge      units.Quantity
	atomClass   string
	doi         string
	overrides   []string //sorted, unique
	definition  string
	description string
}

// NewAtomType returns an atom type. With no options, it is a 12-6 Lennard-Jones
// potential with sigma=0.3 nm and epsilon=0.3 kJ, with no mass and no charge.
func NewAtomType(o AtomTypeOptions) (*AtomType, error) {
	A := new(AtomType)
	if err := A.ParametricPotential.init(o.PotentialOptions, atomDefaults, AtomTypeSet, A); err != nil {
		return nil, err
	}
	A.mass = validMass(o.Mass, o.Name)
	A.charge = validCharge(o.Charge, o.Name)
	ov, err := validOverrides(o.Overrides)
	if err != nil {
		return nil, err
	}
	A.overrides = ov
	A.atomClass = o.AtomClass
	A.doi = o.Doi
	A.definition = o.Definition
	A.description = o.Description
	return A, nil
}

// validMass returns m if it is a mass per mole. Numbers with no unit, or with
// the wrong one, are taken as g/mol.
func validMass(m units.Quantity, name string) units.Quantity {
	if m.Len() == 0 {
		return units.Q(0, units.GramPerMol)
	}
	if !m.Unit.SameDimensions(units.GramPerMol) {
		Logger().Warn("masses are assumed to be g/mol", zap.String("potential", name), zap.Stringer("value", m))
		return units.Series(units.GramPerMol, m.Values()...)
	}
	return m
}

// validCharge is the same as validMass, for charges in elementary charge units.
func validCharge(c units.Quantity, name string) units.Quantity {
	if c.Len() == 0 {
		return units.Q(0, units.ElementaryCharge)
	}
	if !c.Unit.SameDimensions(units.ElementaryCharge) {
		Logger().Warn("charges are assumed to be elementary charge", zap.String("potential", name), zap.Stringer("value", c))
		return units.Series(units.ElementaryCharge, c.Values()...)
	}
	return c
}

func validOverrides(o []string) ([]string, error) {
	for _, v := range o {
		if strings.TrimSpace(v) == "" {
			return nil, validationErr("overrides %q contain an empty atom type name", o)
		}
	}
	return sortedUnique(o), nil
}

// Key identifies the value of the atom type: name, mass, charge and
// potential expression.
func (A *AtomType) Key() string {
	return "AtomType|" + A.name + "|" + A.mass.Key() + "|" + A.charge.Key() + "|" + A.expr.Key()
}

func (A *AtomType) Mass() units.Quantity   { return A.mass }
func (A *AtomType) Charge() units.Quantity { return A.charge }
func (A *AtomType) AtomClass() string      { return A.atomClass }
func (A *AtomType) Doi() string            { return A.doi }
func (A *AtomType) Definition() string     { return A.definition }
func (A *AtomType) Description() string    { return A.description }

// Overrides returns the sorted names of the atom types overridden by A.
func (A *AtomType) Overrides() []string { return slices.Clone(A.overrides) }

// SetMass sets the mass. See NewAtomType for the handling of units.
func (A *AtomType) SetMass(m units.Quantity) error {
	return A.mutate(func() error {
		A.mass = validMass(m, A.name)
		return nil
	})
}

// SetCharge sets the charge. See NewAtomType for the handling of units.
func (A *AtomType) SetCharge(c units.Quantity) error {
	return A.mutate(func() error {
		A.charge = validCharge(c, A.name)
		return nil
	})
}

func (A *AtomType) SetAtomClass(c string) error {
	return A.mutate(func() error {
		A.atomClass = c
		return nil
	})
}

func (A *AtomType) SetDoi(doi string) error {
	return A.mutate(func() error {
		A.doi = doi
		return nil
	})
}

func (A *AtomType) SetDefinition(def string) error {
	return A.mutate(func() error {
		A.definition = def
		return nil
	})
}

func (A *AtomType) SetDescription(desc string) error {
	return A.mutate(func() error {
		A.description = desc
		return nil
	})
}

// SetOverrides replaces the set of overridden atom type names.
func (A *AtomType) SetOverrides(o []string) error {
	return A.mutate(func() error {
		ov, err := validOverrides(o)
		if err != nil {
			return err
		}
		A.overrides = ov
		return nil
	})
}

type jsonAtomType struct {
	jsonPotential
	Mass        units.Quantity `json:"mass"`
	Charge      units.Quantity `json:"charge"`
	AtomClass   string         `json:"atomclass,omitempty"`
	Doi         string         `json:"doi,omitempty"`
	Overrides   []string       `json:"overrides,omitempty"`
	Definition  string         `json:"definition,omitempty"`
	Description string         `json:"description,omitempty"`
}

func (A *AtomType) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonAtomType{
		jsonPotential: A.toJSON(),
		Mass:          A.mass,
		Charge:        A.charge,
		AtomClass:     A.atomClass,
		Doi:           A.doi,
		Overrides:     A.overrides,
		Definition:    A.definition,
		Description:   A.description,
	})
}

func (A *AtomType) UnmarshalJSON(b []byte) error {
	var j jsonAtomType
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	A.setRef, A.owner = AtomTypeSet, A
	if err := A.fromJSON(j.jsonPotential); err != nil {
		return err
	}
	ov, err := validOverrides(j.Overrides)
	if err != nil {
		return err
	}
	A.mass = validMass(j.Mass, A.name)
	A.charge = validCharge(j.Charge, A.name)
	A.overrides = ov
	A.atomClass = j.AtomClass
	A.doi = j.Doi
	A.definition = j.Definition
	A.description = j.Description
	return nil
}
