/*
 * site.go, part of gotop.
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
	"fmt"

	"github.com/rmera/gotop/units"
)

// Atom is a site of a topology.
type Atom struct {
	Name     string
	Element  string
	Molname  string //residue or molecule name
	Molid    int
	Position [3]float64 //nm
	charge   units.Quantity
	mass     units.Quantity
	atomType *AtomType
	top      *Topology
}

// NewAtom returns an atom with the given name and atom type,
// which can be nil.
func NewAtom(name string, at *AtomType) *Atom {
	return &Atom{Name: name, atomType: at}
}

func (A *Atom) String() string {
	if A == nil {
		return "<nil atom>"
	}
	return fmt.Sprintf("<Atom %s %s%d>", A.Name, A.Molname, A.Molid)
}

// Type returns the atom type of the atom as a Potential, or nil.
func (A *Atom) Type() Potential {
	if A.atomType == nil {
		return nil
	}
	return A.atomType
}

func (A *Atom) setType(p Potential) {
	if p == nil {
		A.atomType = nil
		return
	}
	A.atomType = p.(*AtomType)
}

// AtomType returns the atom type of the atom, or nil.
func (A *Atom) AtomType() *AtomType {
	return A.atomType
}

// SetAtomType assigns an atom type to the atom. If the atom belongs to a
// topology, the topology's bookkeeping is updated, and the atom may end up
// with an atom type that is equal to, but not the same object as, at.
func (A *Atom) SetAtomType(at *AtomType) {
	if A.top == nil {
		A.atomType = at
		return
	}
	var p Potential
	if at != nil {
		p = at
	}
	A.top.retype(A, p)
}

// Topology returns the topology the atom belongs to, or nil.
func (A *Atom) Topology() *Topology {
	return A.top
}

// Charge returns the charge of the atom. If the atom has no charge of its
// own, that of its atom type is returned. The second value is false if
// neither is available.
func (A *Atom) Charge() (units.Quantity, bool) {
	if A.charge.Len() > 0 {
		return A.charge, true
	}
	if A.atomType != nil {
		return A.atomType.Charge(), true
	}
	return units.Quantity{}, false
}

// SetCharge sets the charge of the atom itself. Values with no unit, or the
// wrong one, are taken as elementary charges.
func (A *Atom) SetCharge(q units.Quantity) {
	A.charge = validCharge(q, A.Name)
}

// Mass works as Charge.
func (A *Atom) Mass() (units.Quantity, bool) {
	if A.mass.Len() > 0 {
		return A.mass, true
	}
	if A.atomType != nil {
		return A.atomType.Mass(), true
	}
	return units.Quantity{}, false
}

// SetMass sets the mass of the atom itself. Values with no unit, or the
// wrong one, are taken as g/mol.
func (A *Atom) SetMass(q units.Quantity) {
	A.mass = validMass(q, A.Name)
}
