package forcefield

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/sym"
	"github.com/rmera/gotop/units"
)

// parseUnitDefs reads the ParametersUnitDef children of a group element.
func parseUnitDefs(group *etree.Element) (map[string]units.Unit, error) {
	r := make(map[string]units.Unit)
	for _, d := range group.SelectElements("ParametersUnitDef") {
		name := d.SelectAttrValue("parameter", "")
		u, err := parseUnit(d.SelectAttrValue("unit", ""), "parameter "+name)
		if err != nil {
			return nil, err
		}
		r[name] = u
	}
	return r, nil
}

// parseParams reads the Parameters child of el, with the units in unitDefs.
// Parameters of dihedral-like types are consolidated against expression.
// Every parameter with a unit must be given a value.
func parseParams(el *etree.Element, unitDefs map[string]units.Unit, consolidate bool, expression string) (map[string]units.Quantity, error) {
	params := make(map[string]units.Quantity)
	pel := el.SelectElement("Parameters")
	if pel == nil {
		return params, nil
	}
	for _, p := range pel.SelectElements("Parameter") {
		name := p.SelectAttrValue("name", "")
		u, ok := unitDefs[name]
		if !ok {
			return nil, &top.ParseError{Msg: fmt.Sprintf("parameter %s with unknown units found", name)}
		}
		v, err := parseNumber(p.SelectAttrValue("value", ""), "parameter "+name)
		if err != nil {
			return nil, err
		}
		params[name] = units.Q(v, u)
	}
	required := slices.Collect(maps.Keys(unitDefs))
	if consolidate {
		var err error
		params, err = ConsolidateParameters(params, expression)
		if err != nil {
			return nil, err
		}
		required, err = consolidatedNames(required, expression)
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(required)
	for _, name := range required {
		if _, ok := params[name]; !ok {
			return nil, &top.ParseError{Msg: fmt.Sprintf("parameter %s is in units but cannot be found in parameters list", name)}
		}
	}
	return params, nil
}

// numberedMatcher returns a regexp that matches the names made of one of the
// free symbols of expression followed by a number.
func numberedMatcher(expression string) (*regexp.Regexp, []string, error) {
	if expression == "" {
		return nil, nil, &top.ForceFieldError{Msg: "cannot consolidate parameters without an expression"}
	}
	e, err := sym.Parse(expression)
	if err != nil {
		return nil, nil, &top.ParseError{Msg: "bad expression " + expression, Err: err}
	}
	free := e.FreeSymbols()
	alts := make([]string, len(free))
	for i, s := range free {
		alts[i] = regexp.QuoteMeta(s)
	}
	//longest first, so phi_eq1 is not taken for phi.
	sort.Slice(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	return regexp.MustCompile(`^(` + strings.Join(alts, "|") + `)([0-9]+)$`), free, nil
}

type numbered struct {
	name string
	n    int
}

// groupNumbered returns, for each base symbol, the names that consolidate into
// it, sorted by their number.
func groupNumbered(names []string, expression string) (map[string][]numbered, error) {
	re, free, err := numberedMatcher(expression)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]numbered)
	for _, name := range names {
		if slices.Contains(free, name) {
			continue
		}
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[2])
		groups[m[1]] = append(groups[m[1]], numbered{name: name, n: n})
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].n < g[j].n })
	}
	return groups, nil
}

// ConsolidateParameters groups the parameters named after a free symbol of
// expression plus a number (k1, k2, k3... for a symbol k) into a single
// series parameter named after the symbol, ordered by number. Other
// parameters are kept as they are, so consolidating twice changes nothing.
// A new map is returned.
func ConsolidateParameters(params map[string]units.Quantity, expression string) (map[string]units.Quantity, error) {
	groups, err := groupNumbered(slices.Collect(maps.Keys(params)), expression)
	if err != nil {
		return nil, err
	}
	r := maps.Clone(params)
	for base, g := range groups {
		series := params[g[0].name]
		delete(r, g[0].name)
		for _, v := range g[1:] {
			series, err = series.Append(params[v.name])
			if err != nil {
				return nil, &top.ParseError{Msg: "can't consolidate parameter " + v.name + " into " + base, Err: err}
			}
			delete(r, v.name)
		}
		if old, ok := r[base]; ok {
			series, err = old.Append(series)
			if err != nil {
				return nil, &top.ParseError{Msg: "can't consolidate parameters into " + base, Err: err}
			}
		}
		r[base] = series
	}
	return r, nil
}

// consolidatedNames is ConsolidateParameters for a list of names.
func consolidatedNames(names []string, expression string) ([]string, error) {
	groups, err := groupNumbered(names, expression)
	if err != nil {
		return nil, err
	}
	var r []string
	for _, name := range names {
		skip := false
		for _, g := range groups {
			if slices.ContainsFunc(g, func(v numbered) bool { return v.name == name }) {
				skip = true
				break
			}
		}
		if !skip {
			r = append(r, name)
		}
	}
	for base := range groups {
		if !slices.Contains(r, base) {
			r = append(r, base)
		}
	}
	return r, nil
}
