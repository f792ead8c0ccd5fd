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
	"slices"

	"github.com/jetsetilly/rewinder/checkpoints"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/vclock"
)

// SearchState looks through the checkpoints at or before the specified time
// for the most recent state where the byte at offset has the value (valueMask
// is applied to mask specific bits).
//
// Returns the time of the matching checkpoint. The boolean is false if no
// checkpoint matched. Only checkpointed states are searched. The state of
// the machine is not changed.
func (r *Rewind) SearchState(before vclock.Time, offset int, value uint8, valueMask uint8) (vclock.Time, bool, error) {
	if r.tl == nil {
		return 0, false, curated.Errorf(NotCollecting)
	}
	if r.unusable != nil {
		return 0, false, r.unusable
	}

	candidates := slices.Collect(r.tl.Checkpoints.Range(0, before))
	slices.Reverse(candidates)

	for _, cp := range candidates {
		ok, err := r.matchState(cp, offset, value, valueMask)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return cp.Time, true, nil
		}
	}

	return 0, false, nil
}

func (r *Rewind) matchState(cp *checkpoints.Checkpoint, offset int, value uint8, valueMask uint8) (bool, error) {
	blob, err := r.tl.Checkpoints.Materialize(cp)
	if err != nil {
		return false, r.fail(err)
	}
	if offset < 0 || offset >= len(blob) {
		return false, curated.Errorf("rewind: search: offset %d is outside the state (%d bytes)", offset, len(blob))
	}
	return blob[offset]&valueMask == value&valueMask, nil
}
