/*
 * graph.go, part of gotop.
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
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	gtopo "gonum.org/v1/gonum/graph/topo"
)

// siteNode implements gonum's graph.Node. The ID is the index of the
// site in the topology.
type siteNode struct {
	*Atom
	id int64
}

func (N siteNode) ID() int64 { return N.id }

// BondGraph returns the undirected graph of the bonds in the topology.
// Node IDs are the indexes of the sites, as given by Sites.
func (T *Topology) BondGraph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	index := make(map[*Atom]int64, len(T.sites))
	for i, a := range T.sites {
		index[a] = int64(i)
		g.AddNode(siteNode{Atom: a, id: int64(i)})
	}
	for _, b := range T.bonds {
		m := b.members
		g.SetEdge(g.NewEdge(g.Node(index[m[0]]), g.Node(index[m[1]])))
	}
	return g
}

func sortedNeighbors(g graph.Undirected, id int64) []int64 {
	var r []int64
	it := g.From(id)
	for it.Next() {
		r = append(r, it.Node().ID())
	}
	sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
	return r
}

// Molecules returns the groups of sites connected by bonds, each one in
// the order of Sites, and sorted by their first site.
func (T *Topology) Molecules() [][]*Atom {
	comps := gtopo.ConnectedComponents(T.BondGraph())
	r := make([][]*Atom, 0, len(comps))
	for _, c := range comps {
		ids := make([]int64, len(c))
		for i, n := range c {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		mol := make([]*Atom, len(ids))
		for i, id := range ids {
			mol[i] = T.sites[id]
		}
		r = append(r, mol)
	}
	sort.Slice(r, func(i, j int) bool {
		return T.siteIndex(r[i][0]) < T.siteIndex(r[j][0])
	})
	return r
}

func (T *Topology) siteIndex(a *Atom) int {
	for i, v := range T.sites {
		if v == a {
			return i
		}
	}
	return -1
}

// IdentifyConnections adds to the topology all the angles and proper
// dihedrals implied by its bonds, with no types. Those already
// present are left alone. It returns the number of angles and dihedrals added.
func (T *Topology) IdentifyConnections() (nangles, ndihedrals int, err error) {
	g := T.BondGraph()
	s := T.sites
	for j := range s {
		nb := sortedNeighbors(g, int64(j))
		for x := 0; x < len(nb); x++ {
			for y := x + 1; y < len(nb); y++ {
				ang, err := NewAngle(s[nb[x]], s[j], s[nb[y]], nil)
				if err != nil {
					return nangles, ndihedrals, err
				}
				added, err := T.AddConnection(ang)
				if err != nil {
					return nangles, ndihedrals, err
				}
				if added == Connection(ang) {
					nangles++
				}
			}
		}
	}
	for _, b := range T.Bonds() {
		j, k := int64(T.siteIndex(b.members[0])), int64(T.siteIndex(b.members[1]))
		for _, i := range sortedNeighbors(g, j) {
			if i == k {
				continue
			}
			for _, l := range sortedNeighbors(g, k) {
				if l == j || l == i {
					continue
				}
				dih, err := NewDihedral(s[i], s[j], s[k], s[l], nil)
				if err != nil {
					return nangles, ndihedrals, err
				}
				added, err := T.AddConnection(dih)
				if err != nil {
					return nangles, ndihedrals, err
				}
				if added == Connection(dih) {
					ndihedrals++
				}
			}
		}
	}
	return nangles, ndihedrals, nil
}
