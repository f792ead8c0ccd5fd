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

package checkpoints

import (
	"fmt"

	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/vclock"
)

// Checkpoint is a snapshot of the entire machine at a point in virtual time.
type Checkpoint struct {
	// sequence number. strictly increasing along with Time
	Seq int

	Time vclock.Time

	// the number of events in the event log when the checkpoint was created.
	// replay from this checkpoint starts at this position in the log
	EventCount int

	// size and content digest of the full blob
	Size   int
	Digest uint64

	// blob is only valid for full checkpoints
	full bool
	blob []byte

	// base and segments for delta checkpoints
	baseSeq  int
	segments delta.SegmentSet
}

// Full returns true if the checkpoint holds a complete state blob.
func (cp *Checkpoint) Full() bool {
	return cp.full
}

// Base returns the sequence number of the full checkpoint that the delta is
// based on. The second return value is false for full checkpoints.
func (cp *Checkpoint) Base() (int, bool) {
	if cp.Full() {
		return 0, false
	}
	return cp.baseSeq, true
}

// Segments returns the number of delta segments the checkpoint references.
func (cp *Checkpoint) Segments() int {
	return len(cp.segments)
}

func (cp *Checkpoint) String() string {
	if cp.Full() {
		return fmt.Sprintf("#%d @%v (full, events %d)", cp.Seq, cp.Time, cp.EventCount)
	}
	return fmt.Sprintf("#%d @%v (delta of #%d, %d segments, events %d)", cp.Seq, cp.Time, cp.baseSeq, len(cp.segments), cp.EventCount)
}
