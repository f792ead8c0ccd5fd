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

// Package test contains helper functions to remove common boilerplate to make
// testing easier.
//
// The Expect functions report a failure with t.Errorf() and allow the test to
// continue. The Demand functions use t.Fatalf() and should be used when
// subsequent parts of the test depend on the value being correct. For example,
// demanding that two slices are of equal length before iterating over them in
// unison.
//
// ExpectSuccess() and ExpectFailure() work with bool, error and nil values.
// The nil value is considered a success. This is because a nil error means no
// error and we need the two to be interpreted in the same way.
//
// All functions accept optional tags. Tags are printed before the failure
// message and are useful for identifying the iteration of a loop that failed.
package test
