/*
 * forcefield.go, part of gotop.
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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/units"
	"go.uber.org/zap"
)

// LoadOptions control how force field documents are read.
type LoadOptions struct {
	Validation ValidateOptions
}

// DefaultLoadOptions returns options with the default validation.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Validation: DefaultValidateOptions()}
}

// ForceField is a collection of atom, bond, angle, dihedral and improper
// types, with the default units and 1-4 scaling factors they were
// defined with. Connection types are keyed by their member types joined
// with KeySeparator.
type ForceField struct {
	Name           string
	Version        string
	Units          map[string]units.Unit
	ScalingFactors map[string]float64
	AtomTypes      map[string]*top.AtomType
	BondTypes      map[string]top.ConnectionType
	AngleTypes     map[string]top.ConnectionType
	DihedralTypes  map[string]top.ConnectionType
	ImproperTypes  map[string]top.ConnectionType
}

// New returns an empty force field with the default units and scaling factors.
func New() *ForceField {
	meta := DefaultMetadata()
	return &ForceField{
		Name:           "ForceField",
		Version:        "1.0.0",
		Units:          meta.Units,
		ScalingFactors: meta.ScalingFactors,
		AtomTypes:      make(map[string]*top.AtomType),
		BondTypes:      make(map[string]top.ConnectionType),
		AngleTypes:     make(map[string]top.ConnectionType),
		DihedralTypes:  make(map[string]top.ConnectionType),
		ImproperTypes:  make(map[string]top.ConnectionType),
	}
}

// groups relates each group element of a document to the connection type
// tag it holds.
var groups = []struct{ group, tag string }{
	{"BondTypes", BondTag},
	{"AngleTypes", AngleTag},
	{"DihedralTypes", DihedralTag},
	{"ImproperTypes", ImproperTag},
}

func (F *ForceField) connectionTypes(tag string) map[string]top.ConnectionType {
	switch tag {
	case BondTag:
		return F.BondTypes
	case AngleTag:
		return F.AngleTypes
	case DihedralTag:
		return F.DihedralTypes
	default:
		return F.ImproperTypes
	}
}

// fromDocument validates doc and builds a force field from it. Nothing is
// returned if any step fails.
func fromDocument(doc *etree.Document, opts LoadOptions) (*ForceField, error) {
	if err := Validate(doc, opts.Validation); err != nil {
		return nil, err
	}
	root := doc.Root()
	meta, err := ParseMetadata(root.SelectElement("FFMetaData"))
	if err != nil {
		return nil, decorate(err, "fromDocument")
	}
	F := New()
	F.Name = root.SelectAttrValue("name", F.Name)
	F.Version = root.SelectAttrValue("version", F.Version)
	F.Units = meta.Units
	F.ScalingFactors = meta.ScalingFactors
	for _, el := range root.SelectElements("AtomTypes") {
		ats, err := ParseAtomTypes(el, meta)
		if err != nil {
			return nil, decorate(err, "fromDocument")
		}
		for k, v := range ats {
			F.AtomTypes[k] = v
		}
	}
	for _, g := range groups {
		for _, el := range root.SelectElements(g.group) {
			cts, err := ParseConnectionTypes(el, g.tag)
			if err != nil {
				return nil, decorate(err, "fromDocument")
			}
			dest := F.connectionTypes(g.tag)
			for k, v := range cts {
				dest[k] = v
			}
		}
	}
	return F, nil
}

// Load reads one force field XML document from r.
func Load(r io.Reader, opts LoadOptions) (*ForceField, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, &top.ParseError{Msg: "can't read XML", Err: err}
	}
	return fromDocument(doc, opts)
}

// FromXML reads the force field in the given XML files, which can be gzip
// or zstd compressed, with the default options. See FromXMLOptions.
func FromXML(paths ...string) (*ForceField, error) {
	return FromXMLOptions(DefaultLoadOptions(), paths...)
}

// FromXMLOptions reads the force field in the given XML files. Each file is
// validated and parsed with its own metadata. The name, version, units and
// scaling factors are taken from the first file, while types in later
// files replace those with the same key in earlier ones.
func FromXMLOptions(opts LoadOptions, paths ...string) (*ForceField, error) {
	if len(paths) == 0 {
		return nil, &top.ForceFieldError{Msg: "no force field files given"}
	}
	var F *ForceField
	for _, path := range paths {
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		f, err := fromDocument(doc, opts)
		if err != nil {
			return nil, decorate(err, "FromXMLOptions: "+path)
		}
		if F == nil {
			F = f
			continue
		}
		F.merge(f)
	}
	return F, nil
}

func (F *ForceField) merge(o *ForceField) {
	for k, v := range o.AtomTypes {
		F.AtomTypes[k] = v
	}
	for _, g := range groups {
		dest := F.connectionTypes(g.tag)
		for k, v := range o.connectionTypes(g.tag) {
			dest[k] = v
		}
	}
}

// AtomClassGroups returns the atom types of F by atom class, sorted by name.
// Types with no class are left out.
func (F *ForceField) AtomClassGroups() map[string][]*top.AtomType {
	r := make(map[string][]*top.AtomType)
	for _, k := range sortedKeys(F.AtomTypes) {
		at := F.AtomTypes[k]
		if c := at.AtomClass(); c != "" {
			r[c] = append(r[c], at)
		}
	}
	return r
}

// potentials returns the types of F in the set setRef (see top.AtomTypeSet
// and the like), by key.
func (F *ForceField) potentials(setRef string) map[string]top.Potential {
	r := make(map[string]top.Potential)
	if setRef == top.AtomTypeSet {
		for k, v := range F.AtomTypes {
			r[k] = v
		}
		return r
	}
	var src map[string]top.ConnectionType
	switch setRef {
	case top.BondTypeSet:
		src = F.BondTypes
	case top.AngleTypeSet:
		src = F.AngleTypes
	case top.DihedralTypeSet:
		src = F.DihedralTypes
	case top.ImproperTypeSet:
		src = F.ImproperTypes
	}
	for k, v := range src {
		r[k] = v
	}
	return r
}

// GroupByExpression returns the keys of the types in the set setRef
// (top.AtomTypeSet, top.BondTypeSet...) grouped by their expression.
// Each group is sorted.
func (F *ForceField) GroupByExpression(setRef string) map[string][]string {
	r := make(map[string][]string)
	ps := F.potentials(setRef)
	for _, k := range sortedKeys(ps) {
		e := ps[k].Expression()
		r[e] = append(r[e], k)
	}
	return r
}

func (F *ForceField) String() string {
	return fmt.Sprintf("ForceField %s version %s: %d atom types, %d bond types, %d angle types, %d dihedral types, %d improper types",
		F.Name, F.Version, len(F.AtomTypes), len(F.BondTypes), len(F.AngleTypes), len(F.DihedralTypes), len(F.ImproperTypes))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// paramNames returns the names p's parameters are written with. Series are
// numbered from 1 when numbered is true, and are an error otherwise.
func paramNames(p top.Potential, numbered bool) (map[string]units.Quantity, error) {
	r := make(map[string]units.Quantity)
	for name, q := range p.Parameters() {
		if q.IsScalar() {
			r[name] = q
			continue
		}
		if !numbered {
			return nil, &top.ForceFieldError{Msg: fmt.Sprintf("parameter %s of %s holds %d values and can't be written", name, p.Name(), q.Len())}
		}
		for i, v := range q.Values() {
			r[name+strconv.Itoa(i+1)] = units.Q(v, q.Unit)
		}
	}
	return r, nil
}

// writeGroup adds to root one group element per expression in types, with
// the parameter units of the first type that defines each parameter.
func (F *ForceField) writeGroup(root *etree.Element, group, tag string, types map[string]top.Potential) error {
	byExpr := make(map[string][]string)
	for _, k := range sortedKeys(types) {
		e := types[k].Expression()
		byExpr[e] = append(byExpr[e], k)
	}
	numbered := tag == DihedralTag || tag == ImproperTag
	for _, expr := range sortedKeys(byExpr) {
		g := root.CreateElement(group)
		g.CreateAttr("expression", expr)
		unitDefs := make(map[string]units.Unit)
		params := make([]map[string]units.Quantity, len(byExpr[expr]))
		for i, k := range byExpr[expr] {
			ps, err := paramNames(types[k], numbered)
			if err != nil {
				return err
			}
			params[i] = ps
			for name, q := range ps {
				if _, ok := unitDefs[name]; !ok {
					unitDefs[name] = q.Unit
				}
			}
		}
		for _, name := range sortedKeys(unitDefs) {
			d := g.CreateElement("ParametersUnitDef")
			d.CreateAttr("parameter", name)
			d.CreateAttr("unit", unitDefs[name].String())
		}
		for i, k := range byExpr[expr] {
			el := g.CreateElement(tag)
			if err := F.typeAttrs(el, types[k]); err != nil {
				return err
			}
			if len(params[i]) == 0 {
				continue
			}
			pel := el.CreateElement("Parameters")
			for _, name := range sortedKeys(params[i]) {
				q, err := params[i][name].In(unitDefs[name])
				if err != nil {
					return &top.ForceFieldError{Msg: fmt.Sprintf("parameter %s of %s: %v", name, types[k].Name(), err)}
				}
				pe := pel.CreateElement("Parameter")
				pe.CreateAttr("name", name)
				pe.CreateAttr("value", formatNumber(q.Value()))
			}
		}
	}
	return nil
}

func (F *ForceField) typeAttrs(el *etree.Element, p top.Potential) error {
	el.CreateAttr("name", p.Name())
	switch t := p.(type) {
	case *top.AtomType:
		for _, v := range []struct {
			kind string
			q    units.Quantity
		}{{Mass, t.Mass()}, {Charge, t.Charge()}} {
			q, err := v.q.In(F.Units[v.kind])
			if err != nil {
				return &top.ForceFieldError{Msg: fmt.Sprintf("%s of %s: %v", v.kind, t.Name(), err)}
			}
			el.CreateAttr(v.kind, formatNumber(q.Value()))
		}
		for attr, val := range map[string]string{
			"atomclass":   t.AtomClass(),
			"doi":         t.Doi(),
			"definition":  t.Definition(),
			"description": t.Description(),
			"overrides":   strings.Join(t.Overrides(), ","),
		} {
			if val != "" {
				el.CreateAttr(attr, val)
			}
		}
		el.SortAttrs()
	case top.ConnectionType:
		for i, m := range t.MemberTypes() {
			el.CreateAttr("type"+strconv.Itoa(i+1), m)
		}
	}
	return nil
}

// Document returns F as a force field XML document. Types sharing an
// expression are written in the same group element. The document is checked
// against the schema before it is returned.
func (F *ForceField) Document() (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("ForceField")
	root.CreateAttr("name", F.Name)
	root.CreateAttr("version", F.Version)
	meta := root.CreateElement("FFMetaData")
	for _, k := range sortedKeys(F.ScalingFactors) {
		meta.CreateAttr(k, formatNumber(F.ScalingFactors[k]))
	}
	u := meta.CreateElement("Units")
	for _, k := range sortedKeys(F.Units) {
		u.CreateAttr(k, F.Units[k].String())
	}
	if err := F.writeGroup(root, "AtomTypes", "AtomType", F.potentials(top.AtomTypeSet)); err != nil {
		return nil, err
	}
	for _, g := range groups {
		if err := F.writeGroup(root, g.group, g.tag, F.potentials(setRefOf(g.tag))); err != nil {
			return nil, err
		}
	}
	if err := ValidateSchema(doc); err != nil {
		return nil, decorate(err, "Document")
	}
	doc.Indent(2)
	return doc, nil
}

func setRefOf(tag string) string {
	switch tag {
	case BondTag:
		return top.BondTypeSet
	case AngleTag:
		return top.AngleTypeSet
	case DihedralTag:
		return top.DihedralTypeSet
	default:
		return top.ImproperTypeSet
	}
}

// WriteXML writes F to w as a force field XML document.
func (F *ForceField) WriteXML(w io.Writer) error {
	doc, err := F.Document()
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(w)
	return err
}

var extensions = []string{".xml", ".xml.gz", ".xml.zst"}

// Save writes F to the file path, compressed if the name ends in .gz or .zst.
// Names with some other extension get .xml appended. An existing file is
// only replaced if overwrite is true.
func (F *ForceField) Save(path string, overwrite bool) error {
	if !slices.ContainsFunc(extensions, func(e string) bool { return strings.HasSuffix(strings.ToLower(path), e) }) {
		top.Logger().Warn("unknown force field file extension, appending .xml", zap.String("path", path))
		path += ".xml"
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return &top.ForceFieldError{Msg: fmt.Sprintf("file %s already exists, set overwrite to replace it", path)}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	doc, err := F.Document()
	if err != nil {
		return err
	}
	out, err := createSink(path)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
