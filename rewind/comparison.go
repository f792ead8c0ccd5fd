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

package rewind

import (
	"bytes"
	"fmt"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/vclock"
)

// the comparison point is a checkpoint that the current machine state can be
// compared against
type comparison struct {
	valid  bool
	seq    int
	locked bool
}

// Difference is a run of bytes that differ between the comparison state and
// the current state.
type Difference struct {
	Offset int
	Was    []byte
	Now    []byte
}

func (d Difference) String() string {
	return fmt.Sprintf("%#06x: % 02x -> % 02x", d.Offset, d.Was, d.Now)
}

// SetComparison points the comparison to the checkpoint at or before the
// specified time. The comparison checkpoint is not removed by the retention
// policy.
func (r *Rewind) SetComparison(t vclock.Time) error {
	if r.tl == nil {
		return curated.Errorf(NotCollecting)
	}
	cp, ok := r.tl.Checkpoints.FindAtOrBefore(t)
	if !ok {
		return curated.Errorf(NoHistoryError, t)
	}
	r.comparison.valid = true
	r.comparison.seq = cp.Seq
	return nil
}

// UpdateComparison points the comparison to the most recent checkpoint at or
// before the current time. Does nothing if the comparison is locked.
func (r *Rewind) UpdateComparison() {
	if r.comparison.locked || r.tl == nil {
		return
	}
	_ = r.SetComparison(r.clk.Now())
}

// LockComparison stops the comparison point from being updated.
func (r *Rewind) LockComparison(locked bool) {
	r.comparison.locked = locked
}

// ComparisonTime returns the time of the comparison checkpoint.
func (r *Rewind) ComparisonTime() (vclock.Time, bool) {
	if !r.comparison.valid || r.tl == nil {
		return 0, false
	}
	cp, ok := r.tl.Checkpoints.Get(r.comparison.seq)
	if !ok {
		return 0, false
	}
	return cp.Time, true
}

// Compare returns the differences between the comparison checkpoint and the
// current state of the machine.
func (r *Rewind) Compare() ([]Difference, error) {
	if !r.comparison.valid || r.tl == nil {
		return nil, curated.Errorf("rewind: no comparison point")
	}

	cp, ok := r.tl.Checkpoints.Get(r.comparison.seq)
	if !ok {
		r.comparison.valid = false
		return nil, curated.Errorf("rewind: comparison point is no longer in the history")
	}

	was, err := r.tl.Checkpoints.Materialize(cp)
	if err != nil {
		return nil, r.fail(err)
	}

	now, err := r.ser.Snapshot()
	if err != nil {
		return nil, curated.Errorf(SerializationFailure, err)
	}

	return diff(was, now), nil
}

// diff returns the runs of bytes that differ. if the lengths differ the
// additional bytes of the longer slice are a difference.
func diff(was []byte, now []byte) []Difference {
	var d []Difference

	n := min(len(was), len(now))
	start := -1
	for i := 0; i <= n; i++ {
		if i < n && was[i] != now[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			d = append(d, Difference{
				Offset: start,
				Was:    bytes.Clone(was[start:i]),
				Now:    bytes.Clone(now[start:i]),
			})
			start = -1
		}
	}

	if len(was) != len(now) {
		d = append(d, Difference{
			Offset: n,
			Was:    bytes.Clone(was[n:]),
			Now:    bytes.Clone(now[n:]),
		})
	}

	return d
}
