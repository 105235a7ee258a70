/*
 * conntype.go, part of gotop.
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

// Wildcard matches any atom type or class in member types.
const Wildcard = "*"

// ConnectionType is implemented by BondType, AngleType, DihedralType
// and ImproperType.
type ConnectionType interface {
	Potential
	MemberTypes() []string
	SetMemberTypes([]string) error
	Arity() int
}

// ConnectionTypeOptions are the arguments to build a bond, angle,
// dihedral or improper type.
type ConnectionTypeOptions struct {
	PotentialOptions
	MemberTypes []string //atom type or class names, or empty.
}

// connectionType holds what is common to the typed potentials
// of connections: a tuple of member type names of fixed arity.
type connectionType struct {
	ParametricPotential
	kind    string
	arity   int
	members []string
}

func (C *connectionType) setup(o ConnectionTypeOptions, d potentialDefaults, setRef, kind string, arity int, owner Potential) error {
	C.kind = kind
	C.arity = arity
	if err := C.ParametricPotential.init(o.PotentialOptions, d, setRef, owner); err != nil {
		return err
	}
	m, err := validateMemberTypes(kind, arity, o.MemberTypes)
	if err != nil {
		return err
	}
	C.members = m
	return nil
}

// MemberTypes returns a copy of the member type names.
func (C *connectionType) MemberTypes() []string {
	return slices.Clone(C.members)
}

// Arity returns the number of member types the connection type takes.
func (C *connectionType) Arity() int {
	return C.arity
}

// SetMemberTypes replaces the member type names. Changing the member types of an
// existing connection type is allowed but unusual, so a warning is logged when
// they differ from the current ones. The new types must be exactly Arity()
// non-empty names, or none.
func (C *connectionType) SetMemberTypes(types []string) error {
	if !slices.Equal(C.members, types) {
		Logger().Warn("changing the constituent member types of a "+C.kind,
			zap.String("potential", C.name), zap.Strings("old", C.members), zap.Strings("new", types))
	}
	return C.mutate(func() error {
		m, err := validateMemberTypes(C.kind, C.arity, types)
		if err != nil {
			return err
		}
		C.members = m
		return nil
	})
}

func (C *connectionType) Key() string {
	return C.kind + "|" + C.name + "|" + strings.Join(C.members, "~") + "|" + C.expr.Key()
}

func validateMemberTypes(kind string, arity int, types []string) ([]string, error) {
	if len(types) != arity && len(types) != 0 {
		return nil, validationErr("trying to create a %s with %d constituent types, it takes %d or none", kind, len(types), arity)
	}
	for i, v := range types {
		if strings.TrimSpace(v) == "" {
			return nil, validationErr("member type %d of %s is empty, types need to be atom type or class names, or %s", i+1, kind, Wildcard)
		}
	}
	return slices.Clone(types), nil
}

type jsonConnectionType struct {
	jsonPotential
	MemberTypes []string `json:"member_types"`
}

func (C *connectionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonConnectionType{jsonPotential: C.toJSON(), MemberTypes: C.MemberTypes()})
}

func (C *connectionType) unmarshal(b []byte) error {
	var j jsonConnectionType
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	m, err := validateMemberTypes(C.kind, C.arity, j.MemberTypes)
	if err != nil {
		return err
	}
	if err := C.fromJSON(j.jsonPotential); err != nil {
		return err
	}
	C.members = m
	return nil
}

var (
	bondDefaults = potentialDefaults{
		name: "BondType",
		expr: "0.5 * k * (r-r_eq)**2",
		params: map[string]units.Quantity{
			"k":    units.Q(1000, units.KJ.Div(units.Nanometer.Pow(2))),
			"r_eq": units.Q(0.14, units.Nanometer),
		},
		indep: []string{"r"},
	}
	angleDefaults = potentialDefaults{
		name: "AngleType",
		expr: "0.5 * k * (theta-theta_eq)**2",
		params: map[string]units.Quantity{
			"k":        units.Q(1000, units.KJ.Div(units.Radian.Pow(2))),
			"theta_eq": units.Q(109.5, units.Degree),
		},
		indep: []string{"theta"},
	}
	dihedralDefaults = potentialDefaults{
		name: "DihedralType",
		expr: "k * (1 + cos(n * phi - phi_eq))",
		params: map[string]units.Quantity{
			"k":      units.Q(1000, units.KJ),
			"n":      units.Q(1, units.Dimensionless),
			"phi_eq": units.Q(180, units.Degree),
		},
		indep: []string{"phi"},
	}
	improperDefaults = potentialDefaults{
		name: "ImproperType",
		expr: "k * (1 + cos(n * phi - phi_eq))",
		params: map[string]units.Quantity{
			"k":      units.Q(4.6, units.KJ),
			"n":      units.Q(2, units.Dimensionless),
			"phi_eq": units.Q(180, units.Degree),
		},
		indep: []string{"phi"},
	}
)

// BondType is the potential of a bond between sites with the given
// atom types or classes.
type BondType struct {
	connectionType
}

// NewBondType returns a bond type. With no options, it is a harmonic bond with
// k=1000 kJ/nm^2 and r_eq=0.14 nm.
func NewBondType(o ConnectionTypeOptions) (*BondType, error) {
	B := new(BondType)
	if err := B.setup(o, bondDefaults, BondTypeSet, "BondType", 2, B); err != nil {
		return nil, err
	}
	return B, nil
}

func (B *BondType) UnmarshalJSON(b []byte) error {
	B.kind, B.arity, B.setRef, B.owner = "BondType", 2, BondTypeSet, B
	return B.unmarshal(b)
}

// AngleType is the potential of an angle between three sites.
type AngleType struct {
	connectionType
}

// NewAngleType returns an angle type. With no options, it is a harmonic angle with
// k=1000 kJ/rad^2 and theta_eq=109.5 deg.
func NewAngleType(o ConnectionTypeOptions) (*AngleType, error) {
	A := new(AngleType)
	if err := A.setup(o, angleDefaults, AngleTypeSet, "AngleType", 3, A); err != nil {
		return nil, err
	}
	return A, nil
}

func (A *AngleType) UnmarshalJSON(b []byte) error {
	A.kind, A.arity, A.setRef, A.owner = "AngleType", 3, AngleTypeSet, A
	return A.unmarshal(b)
}

// DihedralType is the potential of a proper dihedral.
type DihedralType struct {
	connectionType
}

// NewDihedralType returns a dihedral type. With no options, it is a periodic torsion
// with k=1000 kJ, n=1 and phi_eq=180 deg.
func NewDihedralType(o ConnectionTypeOptions) (*DihedralType, error) {
	D := new(DihedralType)
	if err := D.setup(o, dihedralDefaults, DihedralTypeSet, "DihedralType", 4, D); err != nil {
		return nil, err
	}
	return D, nil
}

func (D *DihedralType) UnmarshalJSON(b []byte) error {
	D.kind, D.arity, D.setRef, D.owner = "DihedralType", 4, DihedralTypeSet, D
	return D.unmarshal(b)
}

// ImproperType is the potential of an improper dihedral. The first member
// type is the central one.
type ImproperType struct {
	connectionType
}

// NewImproperType returns an improper type. With no options, it is a periodic
// torsion with k=4.6 kJ, n=2 and phi_eq=180 deg.
func NewImproperType(o ConnectionTypeOptions) (*ImproperType, error) {
	I := new(ImproperType)
	if err := I.setup(o, improperDefaults, ImproperTypeSet, "ImproperType", 4, I); err != nil {
		return nil, err
	}
	return I, nil
}

func (I *ImproperType) UnmarshalJSON(b []byte) error {
	I.kind, I.arity, I.setRef, I.owner = "ImproperType", 4, ImproperTypeSet, I
	return I.unmarshal(b)
}
