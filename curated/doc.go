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

// Package curated is a helper package for the plain Go language error type.
// Curated errors are created with the Errorf() function, which takes a pattern
// and placeholder values in the same way as fmt.Errorf().
//
// The pattern is what identifies the error. Packages that need callers to
// react to a specific failure export the pattern as a const string and the
// caller tests for it with Is() or Has():
//
//	const NoHistoryError = "rewind: no history at or before %v"
//
//	err := curated.Errorf(NoHistoryError, target)
//	if curated.Is(err, NoHistoryError) {
//		...
//	}
//
// Has() is similar but searches the entire chain, so it still succeeds after
// the error has been wrapped by another curated error:
//
//	f := curated.Errorf("replay: %v", err)
//	curated.Has(f, NoHistoryError) // true
//	curated.Is(f, NoHistoryError)  // false
//
// The Error() implementation normalises the message by removing duplicate
// adjacent parts. Parts are separated by the sub-string ": ". This means a
// package can wrap errors with its own prefix without worrying whether the
// error already carries that prefix:
//
//	rewind: rewind: no history at or before 100
//
// is printed as:
//
//	rewind: no history at or before 100
//
// Curated errors also implement Unwrap() so errors.Is() from the standard
// library can find uncurated errors (io.ErrUnexpectedEOF for example) that were
// passed as values to Errorf().
package curated
