package forcefield

import (
	"slices"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
)

// ValidateOptions select the checks run on a force field document beyond
// the schema.
type ValidateOptions struct {
	Strict bool //every member of a connection type must be a declared atom type or class
	Greedy bool //report all the missing names, not only the first one
}

// DefaultValidateOptions returns a strict, non-greedy validation.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{Strict: true, Greedy: false}
}

// checked are the groups whose member names must be declared.
var checked = []string{"BondTypes", "AngleTypes", "DihedralTypes"}

// declaredNames returns the atom type names and atom classes of root,
// plus the wildcard.
func declaredNames(root *etree.Element) map[string]bool {
	r := map[string]bool{top.Wildcard: true}
	for _, at := range root.FindElements("./AtomTypes/AtomType") {
		if n := at.SelectAttrValue("name", ""); n != "" {
			r[n] = true
		}
		if c := at.SelectAttrValue("atomclass", ""); c != "" {
			r[c] = true
		}
	}
	return r
}

// MissingAtomTypes returns the names used by the bond, angle and dihedral
// types of root that are not declared as atom types or classes, in the order
// they first appear. Each member is read as connection types are parsed:
// typeN if present, classN otherwise. If greedy is false, at most one name
// is returned.
func MissingAtomTypes(root *etree.Element, greedy bool) []string {
	declared := declaredNames(root)
	var missing []string
	for _, group := range checked {
		for _, ct := range root.FindElements("./" + group + "/*") {
			for _, name := range memberTypes(ct) {
				if declared[name] || slices.Contains(missing, name) {
					continue
				}
				missing = append(missing, name)
				if !greedy {
					return missing
				}
			}
		}
	}
	return missing
}

// Validate checks doc against the schema and, if opts.Strict is set, checks
// that the connection types only use declared atom types or classes. The
// latter failure is a *top.MissingAtomTypesError.
func Validate(doc *etree.Document, opts ValidateOptions) error {
	if err := ValidateSchema(doc); err != nil {
		return decorate(err, "Validate")
	}
	if !opts.Strict {
		return nil
	}
	if missing := MissingAtomTypes(doc.Root(), opts.Greedy); len(missing) > 0 {
		err := &top.MissingAtomTypesError{Missing: missing, Greedy: opts.Greedy}
		err.Decorate("Validate")
		return err
	}
	return nil
}

// ValidateFile reads the force field XML in path (which can be gzip or zstd
// compressed) and validates it.
func ValidateFile(path string, opts ValidateOptions) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	return Validate(doc, opts)
}

// readDocument parses the XML file in path.
func readDocument(path string) (*etree.Document, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(src); err != nil {
		return nil, &top.ParseError{Msg: "can't read XML from " + path, Err: err}
	}
	return doc, nil
}
