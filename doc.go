/*
 * doc.go, part of gotop.
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

/*
Package top is the main package of the goTop library. It provides typed
molecular topologies: sites and the connections between them, each one
carrying a potential given by a mathematical expression with unit-carrying
parameters.

	**goTop Capabilities**

	Potential expressions with symbolic validation of their independent
	variables and parameters.

	Atom, bond, angle, dihedral and improper types, built directly or from
	a library of templates (Lennard-Jones, harmonic, periodic, OPLS,
	Ryckaert-Bellemans...).

	Topologies that keep a single instance of each distinct type, and stay
	consistent when the types they hold are modified.

	Molecule detection and angle/dihedral identification from the bond graph.

	Compatibility checks of a topology against the potentials an engine supports.

The subpackages handle the rest: sym (symbolic expressions), units
(units and quantities), forcefield (force field XML files), gro (GROMACS
topologies), ffstore (a library of force fields in SQLite) and ffplot
(plots of potentials).
*/
package top
