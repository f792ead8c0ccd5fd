// This file is part of Rewinder.
//
// Rewinder is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Rewinder is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Rewinder.  If not, see <https://www.gnu.org/licenses/>.

// Package modalflag wraps the flag package in the standard library. It adds
// program modes, with a different set of flags for each mode.
//
// Arguments are given to NewArgs() and then parsed with Parse(). For example:
//
//	md := modalflag.Modes{Output: os.Stdout}
//	md.NewArgs(os.Args[1:])
//	md.AddSubModes("DEMO", "INFO")
//	p, err := md.Parse()
//
// After parsing, Mode() is the selected mode. The first sub-mode is the
// default and is selected if the first argument after the flags is not a
// mode. Sub-mode comparisons are case insensitive.
//
// The selected mode will usually start a new set of flags with NewMode() and
// call Parse() again, this time for the arguments following the mode. The
// sequence of modes is available with Path().
package modalflag
