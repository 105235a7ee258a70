/*
 * connection.go, part of gotop.
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
	"slices"
	"strings"
)

// Connection is a bond, angle, dihedral or improper.
type Connection interface {
	Member
	// Members returns the sites of the connection, in order.
	Members() []*Atom
	// Equivalent returns the orderings of the members that describe
	// the same connection.
	Equivalent() [][]*Atom
	ConnectionType() ConnectionType
	kind() string
}

type connection struct {
	members []*Atom
	ctype   ConnectionType
	top     *Topology
}

func newConnection(kind string, members ...*Atom) (connection, error) {
	for i, a := range members {
		if a == nil {
			return connection{}, validationErr("member %d of %s is nil", i+1, kind)
		}
		if slices.Index(members, a) != i {
			return connection{}, validationErr("%s with repeated member %s", kind, a)
		}
	}
	return connection{members: members}, nil
}

func (C *connection) Members() []*Atom {
	return slices.Clone(C.members)
}

// Type returns the connection type as a Potential, or nil.
func (C *connection) Type() Potential {
	if C.ctype == nil {
		return nil
	}
	return C.ctype
}

// ConnectionType returns the connection type, or nil.
func (C *connection) ConnectionType() ConnectionType {
	return C.ctype
}

func (C *connection) setType(p Potential) {
	if p == nil {
		C.ctype = nil
		return
	}
	C.ctype = p.(ConnectionType)
}

func (C *connection) describe(kind string) string {
	names := make([]string, len(C.members))
	for i, v := range C.members {
		names[i] = v.Name
	}
	return fmt.Sprintf("<%s %s>", kind, strings.Join(names, "-"))
}

// assign sets the connection type of self, which embeds C.
func (C *connection) assign(self Connection, ct ConnectionType) {
	if C.top == nil {
		C.ctype = ct
		return
	}
	var p Potential
	if ct != nil {
		p = ct
	}
	C.top.retype(self, p)
}

// Bond is a connection between two sites.
type Bond struct {
	connection
}

// NewBond returns a bond between a1 and a2, with an optional bond type.
func NewBond(a1, a2 *Atom, bt *BondType) (*Bond, error) {
	c, err := newConnection("bond", a1, a2)
	if err != nil {
		return nil, err
	}
	B := &Bond{connection: c}
	if bt != nil {
		B.ctype = bt
	}
	return B, nil
}

func (B *Bond) kind() string   { return "Bond" }
func (B *Bond) String() string { return B.describe("Bond") }

// Equivalent returns [a1 a2] and [a2 a1].
func (B *Bond) Equivalent() [][]*Atom {
	m := B.members
	return [][]*Atom{{m[0], m[1]}, {m[1], m[0]}}
}

// BondType returns the bond type, or nil.
func (B *Bond) BondType() *BondType {
	bt, _ := B.ctype.(*BondType)
	return bt
}

// SetBondType sets the bond type. See Atom.SetAtomType.
func (B *Bond) SetBondType(bt *BondType) {
	var ct ConnectionType
	if bt != nil {
		ct = bt
	}
	B.assign(B, ct)
}

// Angle is a connection between three sites, the second one being
// the vertex.
type Angle struct {
	connection
}

func NewAngle(a1, a2, a3 *Atom, at *AngleType) (*Angle, error) {
	c, err := newConnection("angle", a1, a2, a3)
	if err != nil {
		return nil, err
	}
	A := &Angle{connection: c}
	if at != nil {
		A.ctype = at
	}
	return A, nil
}

func (A *Angle) kind() string   { return "Angle" }
func (A *Angle) String() string { return A.describe("Angle") }

// Equivalent returns the members in order and reversed.
func (A *Angle) Equivalent() [][]*Atom {
	m := A.members
	return [][]*Atom{{m[0], m[1], m[2]}, {m[2], m[1], m[0]}}
}

func (A *Angle) AngleType() *AngleType {
	at, _ := A.ctype.(*AngleType)
	return at
}

func (A *Angle) SetAngleType(at *AngleType) {
	var ct ConnectionType
	if at != nil {
		ct = at
	}
	A.assign(A, ct)
}

// Dihedral is a proper dihedral over four consecutive sites.
type Dihedral struct {
	connection
}

func NewDihedral(a1, a2, a3, a4 *Atom, dt *DihedralType) (*Dihedral, error) {
	c, err := newConnection("dihedral", a1, a2, a3, a4)
	if err != nil {
		return nil, err
	}
	D := &Dihedral{connection: c}
	if dt != nil {
		D.ctype = dt
	}
	return D, nil
}

func (D *Dihedral) kind() string   { return "Dihedral" }
func (D *Dihedral) String() string { return D.describe("Dihedral") }

// Equivalent returns the members in order and reversed.
func (D *Dihedral) Equivalent() [][]*Atom {
	m := D.members
	return [][]*Atom{{m[0], m[1], m[2], m[3]}, {m[3], m[2], m[1], m[0]}}
}

func (D *Dihedral) DihedralType() *DihedralType {
	dt, _ := D.ctype.(*DihedralType)
	return dt
}

func (D *Dihedral) SetDihedralType(dt *DihedralType) {
	var ct ConnectionType
	if dt != nil {
		ct = dt
	}
	D.assign(D, ct)
}

// Improper is an improper dihedral. The first member is the central site,
// the other three are bonded to it:
//
//	   m2
//	   |
//	   m1
//	  /  \
//	m3    m4
type Improper struct {
	connection
}

func NewImproper(a1, a2, a3, a4 *Atom, it *ImproperType) (*Improper, error) {
	c, err := newConnection("improper", a1, a2, a3, a4)
	if err != nil {
		return nil, err
	}
	I := &Improper{connection: c}
	if it != nil {
		I.ctype = it
	}
	return I, nil
}

func (I *Improper) kind() string   { return "Improper" }
func (I *Improper) String() string { return I.describe("Improper") }

// Equivalent returns [i j k l] and [i k j l]: the second and third
// members can be swapped.
func (I *Improper) Equivalent() [][]*Atom {
	m := I.members
	return [][]*Atom{{m[0], m[1], m[2], m[3]}, {m[0], m[2], m[1], m[3]}}
}

func (I *Improper) ImproperType() *ImproperType {
	it, _ := I.ctype.(*ImproperType)
	return it
}

func (I *Improper) SetImproperType(it *ImproperType) {
	var ct ConnectionType
	if it != nil {
		ct = it
	}
	I.assign(I, ct)
}

type connKey struct {
	kind    string
	members [4]*Atom
}

func keyOf(kind string, members []*Atom) connKey {
	k := connKey{kind: kind}
	copy(k.members[:], members)
	return k
}
