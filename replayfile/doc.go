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

// Package replayfile saves and loads timelines to and from replay files.
//
// A replay file is self-contained. Every checkpoint is written as a full
// state blob, regardless of how it is stored in memory. On loading, the
// checkpoints are delta encoded again.
//
// The layout of the file is (all values big-endian):
//
//	header:      magic "RWNDRPLY"
//	             format version      u16
//	             machine shape tag   u16 length, bytes
//	             machine state size  u32 (zero if variable)
//	             session ID          16 bytes
//	             re-record count     u32
//	             end time            u64
//	events:      count u32, then for each event
//	             time u64, kind u8, payload length u16, payload
//	checkpoints: count u32, then for each checkpoint
//	             time u64, sequence number u32, event count u32,
//	             blob length u32, blob
//	trailer:     xxhash64 of every preceding byte, u64
//
// Any problem with the file is reported as a CorruptFileError.
package replayfile
