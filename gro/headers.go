package gro

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Utility functions

// qerr panics with err, if not nil. Functions that use it recover and
// return the panic as an error.
func qerr(err error) {
	if err != nil {
		panic(err.Error())
	}
}

var fi = strings.Fields

func parseints(s ...string) ([]int, error) {
	r := make([]int, 0, len(s))
	for _, v := range s {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		r = append(r, i)
	}
	return r, nil
}

func parsefloats(s ...string) ([]float64, error) {
	r := make([]float64, 0, len(s))
	for _, v := range s {
		i, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		r = append(r, i)
	}
	return r, nil
}

// Returns a string without gromacs comments (sequences starting with ';'),
// trailing and leading spaces, tabs and newlines
func cleanString(s string) string {
	f := strings.Split(s, ";")[0]
	return strings.Trim(f, "\r\n\t ")
}

type topHeader struct {
	wany  *regexp.Regexp
	known map[string]*regexp.Regexp
}

func newTopHeader() *topHeader {
	h := func(name string) *regexp.Regexp {
		return regexp.MustCompile(`^\[\p{Zs}*` + name + `\p{Zs}*\]$`)
	}
	return &topHeader{
		wany:  regexp.MustCompile(`^\[\p{Zs}*.*\p{Zs}*\]$`),
		known: map[string]*regexp.Regexp{
			"defaults":     h("defaults"),
			"atomtypes":    h("atomtypes"),
			"moleculetype": h("moleculetype"),
			"atoms":        h("atoms"),
			"bonds":        h("bonds"),
			"angles":       h("angles"),
			"dihedrals":    h("dihedrals"),
			"impropers":    h("impropers"),
			"pairs":        h("pairs"),
			"constraints":  h("constraints"),
			"exclusions":   h("exclusions"),
			"vsitesn":      h("virtual_sites[01234n]?"),
			"system":       h("system"),
			"molecules":    h("molecules"),
		},
	}
}

// Returns true if the line is a Gromacs header. It discards comments.
func (T *topHeader) Is(line string) bool {
	return T.wany.MatchString(cleanString(line))
}

// Returns a string indicating which Gromacs top file header
// the line is, or an empty string if the line is not a header, or is
// one of those not supported.
func (T *topHeader) Which(line string) string {
	line = cleanString(line)
	if !T.wany.MatchString(line) {
		return ""
	}
	for k, v := range T.known {
		if v.MatchString(line) {
			return k
		}
	}
	return ""
}

// cond keeps track of the #ifdef/#ifndef/#else/#endif blocks of a topology.
type cond struct {
	reading []bool
}

// read returns true if line is to be processed, given the defined flags.
// Preprocessor lines themselves are never processed.
func (c *cond) read(line string, defines []string) bool {
	f := fi(line)
	switch {
	case strings.HasPrefix(line, "#ifdef"), strings.HasPrefix(line, "#ifndef"):
		defined := len(f) > 1 && slices.Contains(defines, f[1])
		if f[0] == "#ifndef" {
			defined = !defined
		}
		c.reading = append(c.reading, defined && c.active())
		return false
	case strings.HasPrefix(line, "#else"):
		if n := len(c.reading); n > 0 {
			parent := true
			if n > 1 {
				parent = c.reading[n-2]
			}
			c.reading[n-1] = !c.reading[n-1] && parent
		}
		return false
	case strings.HasPrefix(line, "#endif"):
		if n := len(c.reading); n > 0 {
			c.reading = c.reading[:n-1]
		}
		return false
	case strings.HasPrefix(line, "#define"):
		return false
	}
	return c.active()
}

func (c *cond) active() bool {
	if len(c.reading) == 0 {
		return true
	}
	return c.reading[len(c.reading)-1]
}
