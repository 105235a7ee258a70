/*
 * parse.go, part of gotop.
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
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 */

package forcefield

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/sym"
	"github.com/rmera/gotop/units"
)

// KeySeparator joins the member types of a connection type into its key
// in a force field. It can't be used in type names.
const KeySeparator = "~"

// Tags of the elements for each kind of connection type.
const (
	BondTag     = "BondType"
	AngleTag    = "AngleType"
	DihedralTag = "DihedralType"
	ImproperTag = "ImproperType"
)

var arities = map[string]int{BondTag: 2, AngleTag: 3, DihedralTag: 4, ImproperTag: 4}

func checkName(name string) error {
	if strings.Contains(name, KeySeparator) {
		return &top.ForceFieldError{Msg: fmt.Sprintf("please do not use %s in type string %q", KeySeparator, name)}
	}
	return nil
}

// independent returns the free symbols of expression that are not parameters.
func independent(expression string, params map[string]units.Quantity) ([]string, error) {
	e, err := sym.Parse(expression)
	if err != nil {
		return nil, &top.ParseError{Msg: "bad expression " + expression, Err: err}
	}
	r := []string{}
	for _, s := range e.FreeSymbols() {
		if _, ok := params[s]; !ok {
			r = append(r, s)
		}
	}
	return r, nil
}

// defaultExpression is the expression a type takes when none is given.
func defaultExpression(tag string) string {
	var p top.Potential
	switch tag {
	case BondTag:
		p, _ = top.NewBondType(top.ConnectionTypeOptions{})
	case AngleTag:
		p, _ = top.NewAngleType(top.ConnectionTypeOptions{})
	case DihedralTag:
		p, _ = top.NewDihedralType(top.ConnectionTypeOptions{})
	case ImproperTag:
		p, _ = top.NewImproperType(top.ConnectionTypeOptions{})
	default:
		p, _ = top.NewAtomType(top.AtomTypeOptions{})
	}
	return p.PotentialExpression().Expression()
}

// potentialOptions builds the options of a type. given is the expression in
// the document, if any, expr the one to use. Only with neither an expression
// nor parameters are the defaults of the type used. A given expression
// without parameters takes all its symbols as independent variables.
func potentialOptions(name, given, expr string, params map[string]units.Quantity) (top.PotentialOptions, error) {
	o := top.PotentialOptions{Name: name}
	if given == "" && len(params) == 0 {
		return o, nil
	}
	if params == nil {
		params = make(map[string]units.Quantity)
	}
	indep, err := independent(expr, params)
	if err != nil {
		return o, err
	}
	o.Expression = expr
	o.Parameters = params
	o.IndependentVariables = indep
	return o, nil
}

// ParseAtomTypes reads an AtomTypes element into atom types, by name. Masses
// and charges are taken in the default units of meta.
func ParseAtomTypes(el *etree.Element, meta Metadata) (map[string]*top.AtomType, error) {
	r := make(map[string]*top.AtomType)
	groupExpr := el.SelectAttrValue("expression", "")
	unitDefs, err := parseUnitDefs(el)
	if err != nil {
		return nil, err
	}
	for _, at := range el.SelectElements("AtomType") {
		name := at.SelectAttrValue("name", "AtomType")
		if err := checkName(name); err != nil {
			return nil, err
		}
		given := at.SelectAttrValue("expression", groupExpr)
		expr := given
		if expr == "" {
			expr = defaultExpression("AtomType")
		}
		params, err := parseParams(at, unitDefs, false, expr)
		if err != nil {
			return nil, decorate(err, "ParseAtomTypes: "+name)
		}
		po, err := potentialOptions(name, given, expr, params)
		if err != nil {
			return nil, err
		}
		o := top.AtomTypeOptions{
			PotentialOptions: po,
			AtomClass:        at.SelectAttrValue("atomclass", ""),
			Doi:              at.SelectAttrValue("doi", ""),
			Definition:       at.SelectAttrValue("definition", ""),
			Description:      at.SelectAttrValue("description", ""),
		}
		if v := at.SelectAttrValue("mass", ""); v != "" {
			m, err := parseNumber(v, "mass of "+name)
			if err != nil {
				return nil, err
			}
			o.Mass = units.Q(m, meta.Units[Mass])
		}
		if v := at.SelectAttrValue("charge", ""); v != "" {
			c, err := parseNumber(v, "charge of "+name)
			if err != nil {
				return nil, err
			}
			o.Charge = units.Q(c, meta.Units[Charge])
		}
		for _, ov := range strings.Split(at.SelectAttrValue("overrides", ""), ",") {
			if ov = strings.TrimSpace(ov); ov != "" {
				o.Overrides = append(o.Overrides, ov)
			}
		}
		t, err := top.NewAtomType(o)
		if err != nil {
			return nil, decorate(err, "ParseAtomTypes: "+name)
		}
		r[t.Name()] = t
	}
	return r, nil
}

// memberTypes returns the type or class names of the members of a connection
// type element. Empty names are taken as the wildcard.
func memberTypes(el *etree.Element) []string {
	var r []string
	for i := 1; i <= 4; i++ {
		n := strconv.Itoa(i)
		a := el.SelectAttr("type" + n)
		if a == nil {
			a = el.SelectAttr("class" + n)
		}
		if a == nil {
			continue
		}
		if a.Value == "" {
			r = append(r, top.Wildcard)
		} else {
			r = append(r, a.Value)
		}
	}
	return r
}

// ParseConnectionTypes reads the elements with the given tag (BondTag,
// AngleTag, DihedralTag or ImproperTag) in a BondTypes, AngleTypes,
// DihedralTypes or ImproperTypes element. The types are returned keyed by
// their member types joined with KeySeparator, or by name if they have none.
// The parameters of dihedrals and impropers are consolidated (see
// ConsolidateParameters).
func ParseConnectionTypes(el *etree.Element, tag string) (map[string]top.ConnectionType, error) {
	if _, ok := arities[tag]; !ok {
		return nil, &top.ValidationError{Msg: fmt.Sprintf("%q is not a connection type tag", tag)}
	}
	r := make(map[string]top.ConnectionType)
	groupExpr := el.SelectAttrValue("expression", "")
	unitDefs, err := parseUnitDefs(el)
	if err != nil {
		return nil, err
	}
	consolidate := tag == DihedralTag || tag == ImproperTag
	for _, ct := range el.SelectElements(tag) {
		name := ct.SelectAttrValue("name", tag)
		members := memberTypes(ct)
		for _, m := range append([]string{name}, members...) {
			if err := checkName(m); err != nil {
				return nil, err
			}
		}
		key := strings.Join(members, KeySeparator)
		if key == "" {
			key = name
		}
		given := ct.SelectAttrValue("expression", groupExpr)
		expr := given
		if expr == "" {
			expr = defaultExpression(tag)
		}
		params, err := parseParams(ct, unitDefs, consolidate, expr)
		if err != nil {
			return nil, decorate(err, "ParseConnectionTypes: "+key)
		}
		po, err := potentialOptions(name, given, expr, params)
		if err != nil {
			return nil, err
		}
		o := top.ConnectionTypeOptions{PotentialOptions: po, MemberTypes: members}
		var t top.ConnectionType
		switch tag {
		case BondTag:
			t, err = top.NewBondType(o)
		case AngleTag:
			t, err = top.NewAngleType(o)
		case DihedralTag:
			t, err = top.NewDihedralType(o)
		case ImproperTag:
			t, err = top.NewImproperType(o)
		}
		if err != nil {
			return nil, decorate(err, "ParseConnectionTypes: "+key)
		}
		r[key] = t
	}
	return r, nil
}

// decorate adds info to the trail of err, if it has one.
func decorate(err error, info string) error {
	if e, ok := err.(top.Error); ok {
		e.Decorate(info)
	}
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
