package forcefield

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/beevik/etree"
	top "github.com/rmera/gotop"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/forcefield.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Schema returns the JSON schema force field documents are validated against,
// in their tree form (see Tree).
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// Tree returns the tree form of el: an object with its attributes as string
// properties and its child elements as arrays under their tags. Text that is
// not whitespace goes under "#text".
func Tree(el *etree.Element) map[string]interface{} {
	obj := make(map[string]interface{}, len(el.Attr)+4)
	for _, a := range el.Attr {
		obj[a.Key] = a.Value
	}
	for _, c := range el.ChildElements() {
		l, _ := obj[c.Tag].([]interface{})
		obj[c.Tag] = append(l, Tree(c))
	}
	if t := strings.TrimSpace(el.Text()); t != "" {
		obj["#text"] = t
	}
	return obj
}

// ValidateSchema checks doc against the force field schema. Violations are
// returned in a *top.ParseError.
func ValidateSchema(doc *etree.Document) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("forcefield: bundled schema: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return &top.ParseError{Msg: "empty force field document"}
	}
	tree := map[string]interface{}{root.Tag: Tree(root)}
	result, err := s.Validate(gojsonschema.NewGoLoader(tree))
	if err != nil {
		return &top.ParseError{Msg: "schema validation could not run", Err: err}
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &top.ParseError{Msg: "document does not match the force field schema", Violations: violations}
}
