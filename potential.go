/*
 * potential.go, part of gotop.
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
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/rmera/gotop/units"
)

// Set references, i.e. the bookkeeping categories of a topology.
const (
	AtomTypeSet     = "atom_type_set"
	BondTypeSet     = "bond_type_set"
	AngleTypeSet    = "angle_type_set"
	DihedralTypeSet = "dihedral_type_set"
	ImproperTypeSet = "improper_type_set"
)

// Potential is implemented by ParametricPotential and by all
// the typed potentials that embed it.
type Potential interface {
	Name() string
	SetRef() string
	// Key identifies the value of the potential. Two potentials with the
	// same key are interchangeable, and a topology keeps only one of them.
	Key() string
	PotentialExpression() *PotentialExpression
	Expression() string
	Parameters() map[string]units.Quantity
	Parameter(name string) (units.Quantity, bool)
	IndependentVariables() []string
	TopologyHandle() uuid.UUID
	Topology() *Topology
	base() *ParametricPotential
}

// PotentialOptions are the arguments for building a potential. Either
// PotentialExpression, or any of Expression, Parameters and
// IndependentVariables, can be given, not both. Fields left empty take
// the defaults of the kind of potential being built.
type PotentialOptions struct {
	Name                 string
	Expression           string
	Parameters           map[string]units.Quantity
	IndependentVariables []string
	PotentialExpression  *PotentialExpression
	Topology             *Topology //optional
}

type potentialDefaults struct {
	name   string
	expr   string
	params map[string]units.Quantity
	indep  []string
}

var parametricDefaults = potentialDefaults{
	name:   "ParametricPotential",
	expr:   "a*x+b",
	params: map[string]units.Quantity{"a": units.Q(1, units.Dimensionless), "b": units.Q(1, units.Dimensionless)},
	indep:  []string{"x"},
}

// ParametricPotential is an interaction given by a mathematical expression
// with fixed parameters. It is embedded by all the typed potentials.
//
// A potential can belong to the bookkeeping of a topology. It only stores a
// handle for it, so its lifetime does not depend on the topology's.
// The mutating methods keep that bookkeeping current.
type ParametricPotential struct {
	name     string
	expr     *PotentialExpression
	topology uuid.UUID
	setRef   string
	owner    Potential //the typed potential embedding this one, or itself.
}

// NewParametricPotential builds a generic potential. With no options it is
// a*x+b with a=b=1 (dimensionless).
func NewParametricPotential(o PotentialOptions) (*ParametricPotential, error) {
	P := new(ParametricPotential)
	if err := P.init(o, parametricDefaults, "", P); err != nil {
		return nil, err
	}
	return P, nil
}

func (P *ParametricPotential) init(o PotentialOptions, d potentialDefaults, setRef string, owner Potential) error {
	if o.PotentialExpression != nil && (o.Expression != "" || o.Parameters != nil || o.IndependentVariables != nil) {
		return configErr("when giving a potential expression, expression, parameters and independent variables can't be given")
	}
	P.name = o.Name
	if P.name == "" {
		P.name = d.name
	}
	P.setRef = setRef
	P.owner = owner
	if o.PotentialExpression != nil {
		P.expr = o.PotentialExpression.Clone()
	} else {
		expr, params, indep := o.Expression, o.Parameters, o.IndependentVariables
		if expr == "" {
			expr = d.expr
		}
		if params == nil {
			params = maps.Clone(d.params)
		}
		if indep == nil {
			indep = d.indep
		}
		var err error
		P.expr, err = NewPotentialExpression(expr, indep, params)
		if err != nil {
			return err
		}
	}
	if o.Topology != nil {
		P.topology = o.Topology.ID()
	}
	return nil
}

func (P *ParametricPotential) base() *ParametricPotential { return P }

// Name returns the name of the potential. Names are not unique.
func (P *ParametricPotential) Name() string { return P.name }

// SetRef returns the bookkeeping category of the potential, empty for
// a generic ParametricPotential.
func (P *ParametricPotential) SetRef() string { return P.setRef }

// PotentialExpression returns a copy of the potential's expression.
func (P *ParametricPotential) PotentialExpression() *PotentialExpression { return P.expr.Clone() }

// Expression returns the canonical form of the potential's expression.
func (P *ParametricPotential) Expression() string { return P.expr.Expression() }

// Parameters returns a copy of the parameters.
func (P *ParametricPotential) Parameters() map[string]units.Quantity { return P.expr.Parameters() }

// Parameter returns the value of one parameter.
func (P *ParametricPotential) Parameter(name string) (units.Quantity, bool) {
	return P.expr.Parameter(name)
}

// IndependentVariables returns the independent variables, sorted.
func (P *ParametricPotential) IndependentVariables() []string { return P.expr.IndependentVariables() }

// Key identifies the value of a generic potential.
func (P *ParametricPotential) Key() string {
	return "ParametricPotential|" + P.name + "|" + P.expr.Key()
}

// Evaluate returns the value of the potential's expression for the given
// independent variables.
func (P *ParametricPotential) Evaluate(vars map[string]float64) (float64, error) {
	return P.expr.Evaluate(vars)
}

// TopologyHandle returns the handle of the topology the potential belongs to,
// or uuid.Nil.
func (P *ParametricPotential) TopologyHandle() uuid.UUID { return P.topology }

// Topology returns the topology the potential belongs to, or nil if it
// belongs to none or the topology has been closed.
func (P *ParametricPotential) Topology() *Topology {
	if P.topology == uuid.Nil {
		return nil
	}
	return lookupTopology(P.topology)
}

// SetTopology sets the topology of the potential. nil means no topology.
// It does not add the potential to the topology's bookkeeping, that
// happens when the potential is assigned to a site or connection.
func (P *ParametricPotential) SetTopology(T *Topology) {
	if T == nil {
		P.topology = uuid.Nil
		return
	}
	P.topology = T.ID()
}

// SetTopologyHandle is like SetTopology but takes a handle. It returns a
// *ValidationError if the handle belongs to no open topology.
func (P *ParametricPotential) SetTopologyHandle(id uuid.UUID) error {
	if id == uuid.Nil {
		P.topology = id
		return nil
	}
	if lookupTopology(id) == nil {
		return validationErr("%s is not the handle of an open topology", id)
	}
	P.topology = id
	return nil
}

// mutate applies fn. If the potential sits in the bookkeeping of its
// topology, it is taken out before and put back after, under its new key.
func (P *ParametricPotential) mutate(fn func() error) error {
	T := P.Topology()
	if T == nil {
		return fn()
	}
	return T.store.Update(P.owner, fn)
}

// SetName renames the potential.
func (P *ParametricPotential) SetName(name string) error {
	return P.mutate(func() error {
		P.name = name
		return nil
	})
}

// SetExpression changes any of the expression, parameters and independent
// variables in one step. See PotentialExpression.Set.
func (P *ParametricPotential) SetExpression(u ExpressionUpdate) error {
	return P.mutate(func() error {
		return P.expr.Set(u)
	})
}

// SetParameters updates the values of some or all parameters.
func (P *ParametricPotential) SetParameters(params map[string]units.Quantity) error {
	return P.SetExpression(ExpressionUpdate{Parameters: params})
}

// SetIndependentVariables replaces the independent variables.
func (P *ParametricPotential) SetIndependentVariables(vars []string) error {
	return P.SetExpression(ExpressionUpdate{IndependentVariables: vars})
}

func (P *ParametricPotential) String() string {
	return fmt.Sprintf("<%s %s: %s>", kindName(P.owner), P.name, P.expr.Expression())
}

type jsonPotential struct {
	Name                 string                    `json:"name"`
	Expression           string                    `json:"expression"`
	IndependentVariables []string                  `json:"independent_variables"`
	Parameters           map[string]units.Quantity `json:"parameters"`
}

func (P *ParametricPotential) toJSON() jsonPotential {
	return jsonPotential{
		Name:                 P.name,
		Expression:           P.expr.Expression(),
		IndependentVariables: P.expr.IndependentVariables(),
		Parameters:           P.expr.Parameters(),
	}
}

func (P *ParametricPotential) fromJSON(j jsonPotential) error {
	e, err := NewPotentialExpression(j.Expression, j.IndependentVariables, j.Parameters)
	if err != nil {
		return err
	}
	P.name = j.Name
	P.expr = e
	return nil
}

// MarshalJSON writes the portable part of the potential: the topology
// and the set reference are bookkeeping and are left out.
func (P *ParametricPotential) MarshalJSON() ([]byte, error) {
	return json.Marshal(P.toJSON())
}

// UnmarshalJSON reads the format written by MarshalJSON. The potential
// is left with no topology.
func (P *ParametricPotential) UnmarshalJSON(b []byte) error {
	var j jsonPotential
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	if P.owner == nil {
		P.owner = P
	}
	return P.fromJSON(j)
}

func kindName(p Potential) string {
	switch p.(type) {
	case *AtomType:
		return "AtomType"
	case *BondType:
		return "BondType"
	case *AngleType:
		return "AngleType"
	case *DihedralType:
		return "DihedralType"
	case *ImproperType:
		return "ImproperType"
	default:
		return "ParametricPotential"
	}
}
