/*
 * store.go, part of gotop.
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
	"sync"

	"github.com/google/uuid"
)

// Member is a site or connection of a topology, which can be
// assigned a typed potential.
type Member interface {
	// Type returns the typed potential of the member, or nil.
	Type() Potential
	String() string
	setType(Potential)
}

type memberSet map[Member]struct{}

// Store is the bookkeeping of the typed potentials used in a topology.
// For each set reference it keeps the distinct potentials in use, indexed
// by their keys, and the members of the topology that use each of them.
//
// The key of a potential changes when the potential is modified, so
// potentials in a store must only be modified through Update, or through
// BeginMutation and then CommitMutation or AbortMutation. The setters of
// the potentials do that on their own.
//
// The store doesn't validate anything.
type Store struct {
	mu           sync.Mutex
	members      map[string]map[string]Potential
	associations map[string]map[string]memberSet
}

// NewStore returns an empty store.
func NewStore() *Store {
	S := new(Store)
	S.reset()
	return S
}

func (S *Store) reset() {
	S.members = make(map[string]map[string]Potential)
	S.associations = make(map[string]map[string]memberSet)
	for _, ref := range []string{AtomTypeSet, BondTypeSet, AngleTypeSet, DihedralTypeSet, ImproperTypeSet} {
		S.members[ref] = make(map[string]Potential)
		S.associations[ref] = make(map[string]memberSet)
	}
}

// release empties the store. The potentials that pointed to the topology
// with handle id are left with no topology.
func (S *Store) release(id uuid.UUID) {
	S.mu.Lock()
	defer S.mu.Unlock()
	for _, ps := range S.members {
		for _, p := range ps {
			if b := p.base(); b.topology == id {
				b.topology = uuid.Nil
			}
		}
	}
	S.reset()
}

func (S *Store) category(ref string) (map[string]Potential, map[string]memberSet) {
	if _, ok := S.members[ref]; !ok {
		S.members[ref] = make(map[string]Potential)
		S.associations[ref] = make(map[string]memberSet)
	}
	return S.members[ref], S.associations[ref]
}

// Add registers p as used by m. If a potential equal to p (i.e. with
// the same key) is already in the store, p is not added and the one already
// there is associated with m instead. Add returns the potential in the store.
// m can be nil, in which case p is only registered.
func (S *Store) Add(p Potential, m Member) Potential {
	S.mu.Lock()
	defer S.mu.Unlock()
	return S.add(p, m)
}

func (S *Store) add(p Potential, m Member) Potential {
	members, assoc := S.category(p.SetRef())
	key := p.Key()
	canon, ok := members[key]
	if !ok {
		members[key] = p
		canon = p
	}
	if m != nil {
		if assoc[key] == nil {
			assoc[key] = make(memberSet)
		}
		assoc[key][m] = struct{}{}
	}
	return canon
}

// Remove dissociates m from the potential equal to p. When no member uses that
// potential anymore, it is removed from the store.
func (S *Store) Remove(p Potential, m Member) {
	S.mu.Lock()
	defer S.mu.Unlock()
	members, assoc := S.category(p.SetRef())
	key := p.Key()
	if _, ok := members[key]; !ok {
		return
	}
	delete(assoc[key], m)
	if len(assoc[key]) == 0 {
		delete(assoc, key)
		delete(members, key)
	}
}

// Detach removes p, if it is in the store, and returns the members that used it.
func (S *Store) Detach(p Potential) []Member {
	S.mu.Lock()
	defer S.mu.Unlock()
	members, assoc := S.category(p.SetRef())
	key := p.Key()
	if members[key] != p {
		return nil
	}
	r := setToSlice(assoc[key])
	delete(members, key)
	delete(assoc, key)
	return r
}

// Get returns the potential with the given key in the set setRef.
func (S *Store) Get(setRef, key string) (Potential, bool) {
	S.mu.Lock()
	defer S.mu.Unlock()
	members, _ := S.category(setRef)
	p, ok := members[key]
	return p, ok
}

// Contains returns true if the store holds a potential equal to p.
func (S *Store) Contains(p Potential) bool {
	_, ok := S.Get(p.SetRef(), p.Key())
	return ok
}

// Holds returns true if p itself, not just an equal potential, is in the store.
func (S *Store) Holds(p Potential) bool {
	q, ok := S.Get(p.SetRef(), p.Key())
	return ok && q == p
}

// Len returns the number of distinct potentials in setRef.
func (S *Store) Len(setRef string) int {
	S.mu.Lock()
	defer S.mu.Unlock()
	members, _ := S.category(setRef)
	return len(members)
}

// Potentials returns the potentials in setRef, sorted by key.
func (S *Store) Potentials(setRef string) []Potential {
	S.mu.Lock()
	defer S.mu.Unlock()
	members, _ := S.category(setRef)
	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := make([]Potential, 0, len(keys))
	for _, k := range keys {
		r = append(r, members[k])
	}
	return r
}

// Associations returns the members that use the potential equal to p, in no
// particular order.
func (S *Store) Associations(p Potential) []Member {
	S.mu.Lock()
	defer S.mu.Unlock()
	_, assoc := S.category(p.SetRef())
	return setToSlice(assoc[p.Key()])
}

func setToSlice(s memberSet) []Member {
	r := make([]Member, 0, len(s))
	for m := range s {
		r = append(r, m)
	}
	return r
}

// MutationToken is what BeginMutation captures of a potential
// that is about to be modified.
type MutationToken struct {
	p       Potential
	setRef  string
	oldKey  string
	held    bool //p itself was in the store
	assoc   memberSet
	settled bool
}

// OldKey returns the key the potential had before the mutation.
func (M *MutationToken) OldKey() string { return M.oldKey }

// Associations returns the members that used the potential before the mutation.
func (M *MutationToken) Associations() []Member { return setToSlice(M.assoc) }

// BeginMutation takes p out of the store, remembering the members that use it.
// The caller must then modify p and call CommitMutation, or AbortMutation if
// the modification failed. If p is not in the store, the token does nothing.
// Prefer Update, which does all that in one critical section.
func (S *Store) BeginMutation(p Potential) *MutationToken {
	S.mu.Lock()
	defer S.mu.Unlock()
	return S.begin(p)
}

func (S *Store) begin(p Potential) *MutationToken {
	members, assoc := S.category(p.SetRef())
	tok := &MutationToken{p: p, setRef: p.SetRef(), oldKey: p.Key(), assoc: make(memberSet)}
	if members[tok.oldKey] != p {
		return tok
	}
	tok.held = true
	if a, ok := assoc[tok.oldKey]; ok {
		tok.assoc = a
	}
	delete(members, tok.oldKey)
	delete(assoc, tok.oldKey)
	return tok
}

// CommitMutation puts the potential of tok back in the store, under its new key,
// with the members it had. If an equal potential is already there, the mutated
// one takes its place and the members of both are merged.
func (S *Store) CommitMutation(tok *MutationToken) {
	S.mu.Lock()
	defer S.mu.Unlock()
	S.commit(tok)
}

func (S *Store) commit(tok *MutationToken) {
	if tok.settled || !tok.held {
		tok.settled = true
		return
	}
	tok.settled = true
	members, assoc := S.category(tok.setRef)
	key := tok.p.Key()
	merged := tok.assoc
	if old, ok := members[key]; ok && old != tok.p {
		for m := range assoc[key] {
			m.setType(tok.p)
			merged[m] = struct{}{}
		}
		old.base().topology = uuid.Nil
	}
	members[key] = tok.p
	if len(merged) > 0 {
		assoc[key] = merged
	}
}

// AbortMutation puts the potential of tok back in the store, under its old key,
// with the members it had. The potential must not have been modified.
func (S *Store) AbortMutation(tok *MutationToken) {
	S.mu.Lock()
	defer S.mu.Unlock()
	S.abort(tok)
}

func (S *Store) abort(tok *MutationToken) {
	if tok.settled || !tok.held {
		tok.settled = true
		return
	}
	tok.settled = true
	members, assoc := S.category(tok.setRef)
	members[tok.oldKey] = tok.p
	if len(tok.assoc) > 0 {
		assoc[tok.oldKey] = tok.assoc
	}
}

// Update applies fn, which modifies p, keeping the store consistent: p is
// taken out of the store before fn runs and put back under its new key after.
// If fn returns an error or panics, p is restored under its old key.
// fn must not modify p when it fails. The whole operation runs with the store
// locked, so fn must not use the store.
func (S *Store) Update(p Potential, fn func() error) (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	tok := S.begin(p)
	defer func() {
		if r := recover(); r != nil {
			S.abort(tok)
			panic(r)
		}
	}()
	if err = fn(); err != nil {
		S.abort(tok)
		return err
	}
	S.commit(tok)
	return nil
}
