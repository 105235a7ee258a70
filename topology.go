/*
 * topology.go, part of gotop.
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
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Combining rules for the non-bonded parameters of pairs of atom types.
const (
	Lorentz   = "lorentz"
	Geometric = "geometric"
)

// Open topologies, by handle. Potentials refer to their topology through
// this registry.
var registry = struct {
	sync.RWMutex
	tops map[uuid.UUID]*Topology
}{tops: make(map[uuid.UUID]*Topology)}

func lookupTopology(id uuid.UUID) *Topology {
	registry.RLock()
	defer registry.RUnlock()
	return registry.tops[id]
}

// LookupTopology returns the open topology with handle id.
func LookupTopology(id uuid.UUID) (*Topology, bool) {
	T := lookupTopology(id)
	return T, T != nil
}

// Box is a simulation box.
type Box struct {
	Lengths [3]float64 //nm
	Angles  [3]float64 //degrees
}

// NewBox returns a rectangular box with the given side lengths in nm.
func NewBox(lengths [3]float64) *Box {
	return &Box{Lengths: lengths, Angles: [3]float64{90, 90, 90}}
}

// Topology is a set of sites and the connections between them, with the
// bookkeeping of the typed potentials they use.
// A Topology is not safe for concurrent use, except for the mutation of the
// potentials it holds, which is serialized by its Store.
type Topology struct {
	Name          string
	id            uuid.UUID
	box           *Box
	sites         []*Atom
	siteSet       map[*Atom]struct{}
	bonds         []*Bond
	angles        []*Angle
	dihedrals     []*Dihedral
	impropers     []*Improper
	conns         map[connKey]Connection
	subtops       []*SubTopology
	typed         bool
	combiningRule string
	store         *Store
}

// NewTopology returns an empty, open topology. Close it when it is no
// longer needed.
func NewTopology(name string) *Topology {
	if name == "" {
		name = "Topology"
	}
	T := &Topology{
		Name:          name,
		id:            uuid.New(),
		siteSet:       make(map[*Atom]struct{}),
		conns:         make(map[connKey]Connection),
		combiningRule: Lorentz,
		store:         NewStore(),
	}
	registry.Lock()
	registry.tops[T.id] = T
	registry.Unlock()
	return T
}

// ID returns the handle of the topology.
func (T *Topology) ID() uuid.UUID { return T.id }

// Close removes the topology from the registry and empties its store.
// Potentials that referred to it are left with no topology, and sites and
// connections keep the potentials assigned to them. A closed topology
// should not be used again.
func (T *Topology) Close() {
	registry.Lock()
	delete(registry.tops, T.id)
	registry.Unlock()
	T.store.release(T.id)
}

// Store returns the bookkeeping store of the topology.
func (T *Topology) Store() *Store { return T.store }

func (T *Topology) Box() *Box { return T.box }
func (T *Topology) SetBox(b *Box) { T.box = b }
func (T *Topology) CombiningRule() string { return T.combiningRule }

// SetCombiningRule sets the combining rule, Lorentz or Geometric.
func (T *Topology) SetCombiningRule(rule string) error {
	if rule != Lorentz && rule != Geometric {
		return validationErr("combining rule must be %s or %s, not %q", Lorentz, Geometric, rule)
	}
	T.combiningRule = rule
	return nil
}

// AddSite adds a to the topology, with its atom type, if any.
// Adding a site already in the topology does nothing. A site can only be
// in one topology.
func (T *Topology) AddSite(a *Atom) error {
	if a == nil {
		return validationErr("can't add a nil site to topology %s", T.Name)
	}
	if _, ok := T.siteSet[a]; ok {
		return nil
	}
	if a.top != nil && a.top != T {
		return validationErr("site %s already belongs to topology %s", a, a.top.Name)
	}
	T.sites = append(T.sites, a)
	T.siteSet[a] = struct{}{}
	a.top = T
	if p := a.Type(); p != nil {
		T.attach(a, p)
	}
	T.typed = T.IsTyped()
	return nil
}

// HasSite returns true if a is in the topology.
func (T *Topology) HasSite(a *Atom) bool {
	_, ok := T.siteSet[a]
	return ok
}

// RemoveSite removes a from the topology, along with every connection it is part of.
func (T *Topology) RemoveSite(a *Atom) {
	if !T.HasSite(a) {
		return
	}
	for _, c := range T.Connections() {
		if slices.Contains(c.Members(), a) {
			T.RemoveConnection(c)
		}
	}
	if p := a.Type(); p != nil {
		T.store.Remove(p, a)
	}
	T.sites = slices.DeleteFunc(T.sites, func(b *Atom) bool { return b == a })
	delete(T.siteSet, a)
	for _, s := range T.subtops {
		s.sites = slices.DeleteFunc(s.sites, func(b *Atom) bool { return b == a })
	}
	a.top = nil
	T.typed = T.IsTyped()
}

// AddConnection adds c to the topology. Members of c that are not in the
// topology are added too. If an equivalent connection is already in the
// topology, c is not added and the existing one is returned.
func (T *Topology) AddConnection(c Connection) (Connection, error) {
	for _, eq := range c.Equivalent() {
		if old, ok := T.conns[keyOf(c.kind(), eq)]; ok {
			return old, nil
		}
	}
	for _, a := range c.Members() {
		if err := T.AddSite(a); err != nil {
			return nil, err
		}
	}
	T.conns[keyOf(c.kind(), c.Members())] = c
	switch v := c.(type) {
	case *Bond:
		T.bonds = append(T.bonds, v)
		v.top = T
	case *Angle:
		T.angles = append(T.angles, v)
		v.top = T
	case *Dihedral:
		T.dihedrals = append(T.dihedrals, v)
		v.top = T
	case *Improper:
		T.impropers = append(T.impropers, v)
		v.top = T
	}
	if p := c.Type(); p != nil {
		T.attach(c, p)
	}
	T.typed = T.IsTyped()
	return c, nil
}

// RemoveConnection removes c from the topology. Its members stay.
func (T *Topology) RemoveConnection(c Connection) {
	key := keyOf(c.kind(), c.Members())
	if T.conns[key] != c {
		return
	}
	delete(T.conns, key)
	if p := c.Type(); p != nil {
		T.store.Remove(p, c)
	}
	switch v := c.(type) {
	case *Bond:
		T.bonds = slices.DeleteFunc(T.bonds, func(b *Bond) bool { return b == v })
		v.top = nil
	case *Angle:
		T.angles = slices.DeleteFunc(T.angles, func(b *Angle) bool { return b == v })
		v.top = nil
	case *Dihedral:
		T.dihedrals = slices.DeleteFunc(T.dihedrals, func(b *Dihedral) bool { return b == v })
		v.top = nil
	case *Improper:
		T.impropers = slices.DeleteFunc(T.impropers, func(b *Improper) bool { return b == v })
		v.top = nil
	}
	T.typed = T.IsTyped()
}

// attach puts p in the bookkeeping as used by m. If an equal potential is
// already there, m gets that one instead. Otherwise p is moved to this
// topology, leaving the bookkeeping of the one it belonged to, if any.
func (T *Topology) attach(m Member, p Potential) {
	if canon, ok := T.store.Get(p.SetRef(), p.Key()); ok {
		T.store.Add(canon, m)
		m.setType(canon)
		return
	}
	b := p.base()
	if b.topology != uuid.Nil && b.topology != T.id {
		if other := lookupTopology(b.topology); other != nil {
			other.store.Detach(p)
		}
	}
	b.topology = T.id
	T.store.Add(p, m)
}

// retype changes the potential of m, which is in the topology, to p (which can be nil).
func (T *Topology) retype(m Member, p Potential) {
	if old := m.Type(); old != nil {
		T.store.Remove(old, m)
	}
	m.setType(p)
	if p != nil {
		T.attach(m, p)
	}
	T.typed = T.IsTyped()
}

// UpdateTopology rebuilds the bookkeeping from the sites and connections.
// Equal potentials are merged into one, and members with no potential are
// reported with a warning.
func (T *Topology) UpdateTopology() {
	T.store.mu.Lock()
	T.store.reset()
	T.store.mu.Unlock()
	for _, a := range T.sites {
		p := a.Type()
		if p == nil {
			Logger().Warn("non-parametrized site detected", zap.Stringer("site", a), zap.String("topology", T.Name))
			continue
		}
		T.attach(a, p)
	}
	for _, c := range T.Connections() {
		p := c.Type()
		if p == nil {
			Logger().Warn("non-parametrized connection detected", zap.Stringer("connection", c), zap.String("topology", T.Name))
			continue
		}
		T.attach(c, p)
	}
	T.typed = T.IsTyped()
}

// IsTyped returns true if the topology holds any atom or connection types.
func (T *Topology) IsTyped() bool {
	n := 0
	for _, ref := range []string{AtomTypeSet, BondTypeSet, AngleTypeSet, DihedralTypeSet, ImproperTypeSet} {
		n += T.store.Len(ref)
	}
	return n > 0
}

func (T *Topology) NSites() int { return len(T.sites) }
func (T *Topology) NConnections() int { return len(T.conns) }

// Sites returns the sites in the order they were added.
func (T *Topology) Sites() []*Atom { return slices.Clone(T.sites) }
func (T *Topology) Bonds() []*Bond { return slices.Clone(T.bonds) }
func (T *Topology) Angles() []*Angle { return slices.Clone(T.angles) }
func (T *Topology) Dihedrals() []*Dihedral { return slices.Clone(T.dihedrals) }
func (T *Topology) Impropers() []*Improper { return slices.Clone(T.impropers) }
func (T *Topology) SubTopologies() []*SubTopology { return slices.Clone(T.subtops) }

// Connections returns bonds, angles, dihedrals and impropers, in that order.
func (T *Topology) Connections() []Connection {
	r := make([]Connection, 0, len(T.conns))
	for _, v := range T.bonds {
		r = append(r, v)
	}
	for _, v := range T.angles {
		r = append(r, v)
	}
	for _, v := range T.dihedrals {
		r = append(r, v)
	}
	for _, v := range T.impropers {
		r = append(r, v)
	}
	return r
}

// Positions returns the positions of the sites, in nm.
func (T *Topology) Positions() [][3]float64 {
	r := make([][3]float64, len(T.sites))
	for i, a := range T.sites {
		r[i] = a.Position
	}
	return r
}

func typedSet[P Potential](S *Store, ref string) []P {
	ps := S.Potentials(ref)
	r := make([]P, 0, len(ps))
	for _, p := range ps {
		r = append(r, p.(P))
	}
	return r
}

// AtomTypes returns the distinct atom types in the topology, sorted by key.
func (T *Topology) AtomTypes() []*AtomType { return typedSet[*AtomType](T.store, AtomTypeSet) }

func (T *Topology) BondTypes() []*BondType { return typedSet[*BondType](T.store, BondTypeSet) }

func (T *Topology) AngleTypes() []*AngleType { return typedSet[*AngleType](T.store, AngleTypeSet) }

func (T *Topology) DihedralTypes() []*DihedralType {
	return typedSet[*DihedralType](T.store, DihedralTypeSet)
}

func (T *Topology) ImproperTypes() []*ImproperType {
	return typedSet[*ImproperType](T.store, ImproperTypeSet)
}

// ConnectionTypes returns all the distinct bond, angle, dihedral and improper types.
func (T *Topology) ConnectionTypes() []ConnectionType {
	var r []ConnectionType
	for _, ref := range []string{BondTypeSet, AngleTypeSet, DihedralTypeSet, ImproperTypeSet} {
		r = append(r, typedSet[ConnectionType](T.store, ref)...)
	}
	return r
}

// Expressions returns the distinct expressions, in canonical form, used by the
// potentials in the set setRef.
func (T *Topology) Expressions(setRef string) []string {
	var r []string
	for _, p := range T.store.Potentials(setRef) {
		r = append(r, p.base().Expression())
	}
	return sortedUnique(r)
}

func (T *Topology) AtomTypeExpressions() []string { return T.Expressions(AtomTypeSet) }

func (T *Topology) ConnectionTypeExpressions() []string {
	var r []string
	for _, ref := range []string{BondTypeSet, AngleTypeSet, DihedralTypeSet, ImproperTypeSet} {
		r = append(r, T.Expressions(ref)...)
	}
	return sortedUnique(r)
}

// SubTopology is a named group of sites of a topology, such as a molecule
// or a residue.
type SubTopology struct {
	Name   string
	parent *Topology
	sites  []*Atom
}

// AddSubTopology creates a subtopology of T.
func (T *Topology) AddSubTopology(name string) *SubTopology {
	s := &SubTopology{Name: name, parent: T}
	T.subtops = append(T.subtops, s)
	return s
}

// Parent returns the topology the subtopology belongs to.
func (S *SubTopology) Parent() *Topology { return S.parent }

// AddSite adds a to the subtopology and to its parent topology.
func (S *SubTopology) AddSite(a *Atom) error {
	if err := S.parent.AddSite(a); err != nil {
		return err
	}
	if !slices.Contains(S.sites, a) {
		S.sites = append(S.sites, a)
	}
	return nil
}

func (S *SubTopology) Sites() []*Atom { return slices.Clone(S.sites) }
func (S *SubTopology) NSites() int { return len(S.sites) }
