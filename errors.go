/*
 * errors.go, part of gotop.
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
	"fmt"
	"strings"
)

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing its type or wrapping it around something else.
// If Decorate is given an empty string it just returns the current trail.
// Each element of the trail should be "FunctionName" or "FunctionName: Extra info".
type Error interface {
	Error() string
	Decorate(string) []string
}

type trail struct {
	deco []string
}

func (T *trail) Decorate(deco string) []string {
	if deco != "" {
		T.deco = append(T.deco, deco)
	}
	return T.deco
}

// ConfigError is returned when a potential expression is inconsistent with
// its independent variables and parameters, or when a constructor receives
// conflicting arguments.
type ConfigError struct {
	Msg string
	trail
}

func (E *ConfigError) Error() string { return "configuration error: " + E.Msg }

// ValidationError is returned for domain errors: wrong member type arity
// or content, invalid topology handles, unknown templates or combining rules.
type ValidationError struct {
	Msg string
	trail
}

func (E *ValidationError) Error() string { return "validation error: " + E.Msg }

// ParseError is returned when a force field document can't be read: schema
// violations, unknown unit symbols, parameters without declared units or
// malformed numbers.
type ParseError struct {
	Msg        string
	Violations []string //schema violations, if any
	Err        error    //the underlying cause, if any
	trail
}

func (E *ParseError) Error() string {
	s := "parse error: " + E.Msg
	if len(E.Violations) > 0 {
		s += ": " + strings.Join(E.Violations, "; ")
	}
	if E.Err != nil {
		s += ": " + E.Err.Error()
	}
	return s
}

func (E *ParseError) Unwrap() error { return E.Err }

// MissingAtomTypesError is returned by the strict validation of a force field
// when connection types refer to atom types or classes that are not declared.
// If Greedy is false, Missing holds only the first offender found.
type MissingAtomTypesError struct {
	Missing []string
	Greedy  bool
	trail
}

func (E *MissingAtomTypesError) Error() string {
	return fmt.Sprintf("atom types/classes %v are missing in the AtomTypes section but present in the BondTypes/AngleTypes/DihedralTypes/ImproperTypes sections. If this is intended, disable the strict check", E.Missing)
}

// ForceFieldError is returned for malformed force field contents that are not
// parsing problems, such as type names using the key separator.
type ForceFieldError struct {
	Msg string
	trail
}

func (E *ForceFieldError) Error() string { return "force field error: " + E.Msg }

// EngineIncompatibilityError is returned when a topology contains a potential
// that a given engine or file format can't represent.
type EngineIncompatibilityError struct {
	Potential  string //name of the offending potential
	Expression string
	trail
}

func (E *EngineIncompatibilityError) Error() string {
	return fmt.Sprintf("potential %s with expression %q matches none of the accepted templates", E.Potential, E.Expression)
}

func configErr(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func validationErr(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
