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

// Package delta stores the differences between machine state blobs as
// segments of changed bytes. Segments live in an arena and are referred to by
// integer ID. A SegmentSet is the list of segments that turn a base blob into
// a later blob.
//
// Segments with identical content at the same offset are shared. A reference
// count is kept for every segment and the segment is freed when the count
// drops to zero. Reference counts are only changed once an operation is known
// to succeed, so a failed Commit() or Retain() leaves the counts untouched.
//
// The region size is the granularity of the comparison between blobs. A
// smaller region size results in smaller segments but more of them.
package delta
