/*
 * doc.go, part of gotop
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
Package gro reads and writes Gromacs topologies (top/itp files) as typed
gotop topologies. Atom types are read as Lennard-Jones potentials, bonds and
angles as harmonic ones, dihedrals as periodic (functions 1 and 9) or
Ryckaert-Bellemans (function 3) torsions and impropers (functions 2 and 4)
as harmonic or periodic impropers. Other headers, such as constraints or
virtual sites, are skipped.
*/
package gro
