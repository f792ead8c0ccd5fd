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
	"bytes"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/vclock"
)

// OutOfOrderError is returned by Insert() if the new checkpoint does not come
// after the most recent checkpoint in the table.
const OutOfOrderError = "checkpoints: out of order: %v"

// UnknownCheckpoint is returned when a sequence number is not in the table.
const UnknownCheckpoint = "checkpoints: no checkpoint with sequence number %d"

// DefaultKeyframeSpacing is the maximum number of delta checkpoints that
// follow a full checkpoint, if no other value is specified.
const DefaultKeyframeSpacing = 16

// Table is the ordered list of checkpoints for a timeline. It is ordered by
// sequence number and by time.
type Table struct {
	store   *delta.Store
	entries []*Checkpoint

	keyframeSpacing int
}

// NewTable is the preferred method of initialisation for the Table type.
func NewTable(store *delta.Store) *Table {
	return &Table{
		store:           store,
		keyframeSpacing: DefaultKeyframeSpacing,
	}
}

// Store returns the segment store used by the table.
func (t *Table) Store() *delta.Store {
	return t.store
}

// SetKeyframeSpacing sets the maximum number of delta checkpoints that can
// follow a full checkpoint. A value of zero or less means that every
// checkpoint is full.
func (t *Table) SetKeyframeSpacing(n int) {
	t.keyframeSpacing = n
}

// Len returns the number of checkpoints in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// First returns the earliest checkpoint. Returns nil if the table is empty.
func (t *Table) First() *Checkpoint {
	if len(t.entries) == 0 {
		return nil
	}
	return t.entries[0]
}

// Last returns the most recent checkpoint. Returns nil if the table is empty.
func (t *Table) Last() *Checkpoint {
	if len(t.entries) == 0 {
		return nil
	}
	return t.entries[len(t.entries)-1]
}

// index returns the position in the entries array of the sequence number.
func (t *Table) index(seq int) (int, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Seq >= seq
	})
	if i < len(t.entries) && t.entries[i].Seq == seq {
		return i, true
	}
	return 0, false
}

// Get returns the checkpoint with the sequence number.
func (t *Table) Get(seq int) (*Checkpoint, bool) {
	i, ok := t.index(seq)
	if !ok {
		return nil, false
	}
	return t.entries[i], true
}

// lastFull returns the most recent full checkpoint and the number of
// checkpoints that follow it.
func (t *Table) lastFull() (*Checkpoint, int) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].full {
			return t.entries[i], len(t.entries) - 1 - i
		}
	}
	return nil, 0
}

// Insert adds a new checkpoint to the end of the table. The sequence number
// and time must be greater than those of the most recent checkpoint.
//
// The checkpoint is stored as a delta of the most recent full checkpoint if
// possible. It is stored as a full checkpoint if the blob size has changed,
// if the keyframe spacing has been reached or if the delta would be larger
// than half the blob.
//
// The blob is copied and can be reused by the caller.
func (t *Table) Insert(seq int, time vclock.Time, eventCount int, blob []byte) (*Checkpoint, error) {
	if last := t.Last(); last != nil {
		if seq <= last.Seq {
			return nil, curated.Errorf(OutOfOrderError, fmt.Sprintf("sequence number %d is not after %d", seq, last.Seq))
		}
		if time <= last.Time {
			return nil, curated.Errorf(OutOfOrderError, fmt.Sprintf("time %v is not after %v", time, last.Time))
		}
		if eventCount < last.EventCount {
			return nil, curated.Errorf(OutOfOrderError, fmt.Sprintf("event count %d is less than %d", eventCount, last.EventCount))
		}
	}

	cp := &Checkpoint{
		Seq:        seq,
		Time:       time,
		EventCount: eventCount,
		Size:       len(blob),
		Digest:     delta.Digest(blob),
	}

	base, since := t.lastFull()
	if base != nil && base.Size == len(blob) && since < t.keyframeSpacing {
		set, err := t.store.Commit(base.blob, blob)
		if err != nil {
			return nil, err
		}
		if t.store.Size(set) <= len(blob)/2 {
			cp.baseSeq = base.Seq
			cp.segments = set
			t.entries = append(t.entries, cp)
			return cp, nil
		}
		if err := t.store.Release(set); err != nil {
			return nil, err
		}
	}

	cp.full = true
	cp.blob = bytes.Clone(blob)
	if cp.blob == nil {
		cp.blob = []byte{}
	}
	t.entries = append(t.entries, cp)

	return cp, nil
}

// materialize the checkpoint using the specified base blob and check the
// result against the digest. the base blob is ignored for full checkpoints.
func (t *Table) materialize(cp *Checkpoint, base []byte) ([]byte, error) {
	var blob []byte

	if cp.full {
		blob = bytes.Clone(cp.blob)
	} else {
		var err error
		blob, err = t.store.Materialize(base, cp.segments)
		if err != nil {
			return nil, curated.Errorf("checkpoint #%d: %v", cp.Seq, err)
		}
	}

	if len(blob) != cp.Size || delta.Digest(blob) != cp.Digest {
		return nil, curated.Errorf(delta.InternalConsistencyError,
			fmt.Sprintf("checkpoint #%d does not match its digest", cp.Seq))
	}

	return blob, nil
}

// Materialize returns the full state blob for the checkpoint. The returned
// blob is a copy and can be modified by the caller.
func (t *Table) Materialize(cp *Checkpoint) ([]byte, error) {
	if cp.full {
		return t.materialize(cp, nil)
	}

	base, ok := t.Get(cp.baseSeq)
	if !ok || !base.full {
		return nil, curated.Errorf(delta.InternalConsistencyError,
			fmt.Sprintf("base #%d of checkpoint #%d is missing", cp.baseSeq, cp.Seq))
	}

	return t.materialize(cp, base.blob)
}

// FindAtOrBefore returns the most recent checkpoint with a time at or before
// the specified time.
func (t *Table) FindAtOrBefore(time vclock.Time) (*Checkpoint, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Time > time
	})
	if i == 0 {
		return nil, false
	}
	return t.entries[i-1], true
}

// FindAfter returns the earliest checkpoint with a time after the specified
// time.
func (t *Table) FindAfter(time vclock.Time) (*Checkpoint, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Time > time
	})
	if i >= len(t.entries) {
		return nil, false
	}
	return t.entries[i], true
}

// Range returns an iterator over the checkpoints with a time between from and
// to inclusive. The iterator can be used more than once and always reflects
// the current contents of the table. The table must not be changed while the
// iteration is in progress.
func (t *Table) Range(from vclock.Time, to vclock.Time) iter.Seq[*Checkpoint] {
	return func(yield func(*Checkpoint) bool) {
		i := sort.Search(len(t.entries), func(i int) bool {
			return t.entries[i].Time >= from
		})
		for ; i < len(t.entries) && t.entries[i].Time <= to; i++ {
			if !yield(t.entries[i]) {
				return
			}
		}
	}
}

// All returns an iterator over every checkpoint in the table.
func (t *Table) All() iter.Seq[*Checkpoint] {
	return t.Range(0, math.MaxUint64)
}

// Times returns the time of every checkpoint in the table.
func (t *Table) Times() []vclock.Time {
	times := make([]vclock.Time, len(t.entries))
	for i, cp := range t.entries {
		times[i] = cp.Time
	}
	return times
}

// Remove the checkpoint with the sequence number from the table. The
// checkpoint's segments are released.
//
// If the checkpoint is the base of any delta checkpoints, the earliest
// dependent is first promoted to a full checkpoint and the other dependents
// are re-based onto it. If any part of that fails, the table is left as it
// was.
func (t *Table) Remove(seq int) error {
	i, ok := t.index(seq)
	if !ok {
		return curated.Errorf(UnknownCheckpoint, seq)
	}
	cp := t.entries[i]

	if !cp.full {
		if err := t.store.Release(cp.segments); err != nil {
			return err
		}
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return nil
	}

	var deps []*Checkpoint
	for _, e := range t.entries[i+1:] {
		if !e.full && e.baseSeq == seq {
			deps = append(deps, e)
		}
	}

	if len(deps) > 0 {
		promoted, err := t.materialize(deps[0], cp.blob)
		if err != nil {
			return err
		}

		// prepare the new segment sets before changing anything
		sets := make([]delta.SegmentSet, 0, len(deps)-1)
		abandon := func() {
			for _, s := range sets {
				_ = t.store.Release(s)
			}
		}

		for _, d := range deps[1:] {
			b, err := t.materialize(d, cp.blob)
			if err != nil {
				abandon()
				return err
			}
			s, err := t.store.Commit(promoted, b)
			if err != nil {
				abandon()
				return err
			}
			sets = append(sets, s)
		}

		// the new sets hold references to any segments they share with the
		// old sets so releasing the old sets is safe
		old := deps[0].segments
		deps[0].full = true
		deps[0].blob = promoted
		deps[0].segments = nil
		if err := t.store.Release(old); err != nil {
			return err
		}

		for j, d := range deps[1:] {
			old := d.segments
			d.baseSeq = deps[0].Seq
			d.segments = sets[j]
			if err := t.store.Release(old); err != nil {
				return err
			}
		}
	}

	t.entries = append(t.entries[:i], t.entries[i+1:]...)

	return nil
}

// TruncateAfter removes every checkpoint with a time later than the
// specified time.
func (t *Table) TruncateAfter(time vclock.Time) error {
	for len(t.entries) > 0 && t.Last().Time > time {
		if err := t.Remove(t.Last().Seq); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every checkpoint from the table.
func (t *Table) Clear() error {
	for len(t.entries) > 0 {
		if err := t.Remove(t.Last().Seq); err != nil {
			return err
		}
	}
	return nil
}

// Memory returns an estimate of the number of bytes used by the checkpoints.
func (t *Table) Memory() int {
	n := t.store.Stats().Bytes
	for _, cp := range t.entries {
		if cp.full {
			n += len(cp.blob)
		}
	}
	return n
}

// Verify checks that every checkpoint can be materialized and that the
// reference counts in the segment store match the references held by the
// checkpoints. Any failure is an InternalConsistencyError.
func (t *Table) Verify() error {
	refs := make(map[delta.SegmentID]int)

	for _, cp := range t.entries {
		if _, err := t.Materialize(cp); err != nil {
			return err
		}
		for _, id := range cp.segments {
			refs[id]++
		}
	}

	for id, n := range refs {
		if t.store.Refs(id) != n {
			return curated.Errorf(delta.InternalConsistencyError,
				fmt.Sprintf("segment %d has %d references but %d were expected", id, t.store.Refs(id), n))
		}
	}

	for _, id := range t.store.Live() {
		if _, ok := refs[id]; !ok {
			return curated.Errorf(delta.InternalConsistencyError,
				fmt.Sprintf("segment %d is not referenced by any checkpoint", id))
		}
	}

	return nil
}
