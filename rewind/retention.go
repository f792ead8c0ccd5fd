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

import "github.com/jetsetilly/rewinder/logger"

// retained decides whether a checkpoint should be kept. age is the number of
// sequence steps between the checkpoint and the most recent checkpoint.
//
// checkpoints younger than the dense window are always kept. older
// checkpoints are divided into levels, each level covering decay times as
// many steps as the one before. at level L only checkpoints with a sequence
// number divisible by decay^L are kept:
//
//	level 1: age in [window, window*decay)          keep seq % decay == 0
//	level 2: age in [window*decay, window*decay^2)  keep seq % decay^2 == 0
//
// and so on. the number of checkpoints grows with the logarithm of the length
// of the recording.
func retained(seq int, age int, window int, decay int) bool {
	if age < window {
		return true
	}

	bound := window
	step := 1
	for age >= bound {
		bound *= decay
		step *= decay
	}

	return seq%step == 0
}

// pruneRetention removes checkpoints according to the retention policy.
// checkpoints are only pruned while live because replay may depend on events
// that would be discarded.
func (r *Rewind) pruneRetention() {
	if r.state != Live || r.unusable != nil {
		return
	}

	last := r.tl.Checkpoints.Last()
	if last == nil {
		return
	}

	window := max(r.Prefs.DenseWindow.Get().(int), 1)
	decay := max(r.Prefs.DecayFactor.Get().(int), 2)
	limit := r.Prefs.MaxCheckpoints.Get().(int)

	var remove []int
	for cp := range r.tl.Checkpoints.All() {
		if !retained(cp.Seq, last.Seq-cp.Seq, window, decay) {
			remove = append(remove, cp.Seq)
		}
	}

	// the comparison checkpoint is kept regardless of the policy
	for _, seq := range remove {
		if r.comparison.valid && seq == r.comparison.seq {
			continue
		}
		if err := r.tl.Checkpoints.Remove(seq); err != nil {
			logger.Log(r, "rewind", r.fail(err))
			return
		}
	}

	// hard limit on the number of checkpoints. the oldest are dropped first
	// along with the events that can no longer be replayed
	if limit > 0 {
		for r.tl.Checkpoints.Len() > limit {
			first := r.tl.Checkpoints.First()
			if err := r.tl.Checkpoints.Remove(first.Seq); err != nil {
				logger.Log(r, "rewind", r.fail(err))
				return
			}
			if r.comparison.valid && first.Seq == r.comparison.seq {
				r.comparison.valid = false
			}
		}
		r.tl.Events.DiscardBefore(r.tl.Checkpoints.First().EventCount)
	}
}
