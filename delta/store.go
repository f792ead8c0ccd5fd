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

package delta

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/jetsetilly/rewinder/curated"
)

// InternalConsistencyError indicates that a segment set can not be applied.
// This should never happen and indicates a bug in the code that manages
// segment sets, most likely in the checkpoint retention logic.
const InternalConsistencyError = "delta: internal consistency: %v"

// SizeMismatch is returned by Commit() if the two blobs are not the same size.
const SizeMismatch = "delta: blob sizes differ (%d and %d)"

// SegmentID is the index of a segment in the arena.
type SegmentID uint32

// Segment is a range of bytes that differs from the base blob.
type Segment struct {
	Offset int
	Data   []byte
}

// Len returns the number of bytes in the segment.
func (s Segment) Len() int {
	return len(s.Data)
}

// SegmentSet is a list of segments ordered by offset. The segments do not
// overlap.
type SegmentSet []SegmentID

// dedupKey is used to find segments that might be identical to a new
// segment. The hash alone is not trusted and the bytes are compared.
type dedupKey struct {
	offset int
	hash   uint64
}

// DefaultRegionSize is the granularity of comparison if no other value is
// specified.
const DefaultRegionSize = 256

// Store is the arena of segments.
type Store struct {
	regionSize int

	// arena and reference count table. both are indexed by SegmentID. an
	// entry with a reference count of zero is free and its ID is in the free
	// list
	arena []Segment
	refs  []int
	free  []SegmentID

	index map[dedupKey][]SegmentID

	dedupHits int
}

// NewStore is the preferred method of initialisation for the Store type.
func NewStore(regionSize int) *Store {
	s := &Store{
		index: make(map[dedupKey][]SegmentID),
	}
	s.SetRegionSize(regionSize)
	return s
}

// SetRegionSize changes the granularity of comparison. Existing segments are
// not affected. Values less than one select the DefaultRegionSize.
func (s *Store) SetRegionSize(size int) {
	if size < 1 {
		size = DefaultRegionSize
	}
	s.regionSize = size
}

// RegionSize returns the current granularity of comparison.
func (s *Store) RegionSize() int {
	return s.regionSize
}

// changedRanges returns the [start, end) ranges of next that differ from
// prev. adjacent changed regions are coalesced into a single range.
func (s *Store) changedRanges(prev, next []byte) [][2]int {
	var ranges [][2]int

	start := -1
	for off := 0; off < len(next); off += s.regionSize {
		end := min(off+s.regionSize, len(next))
		if bytes.Equal(prev[off:end], next[off:end]) {
			if start >= 0 {
				ranges = append(ranges, [2]int{start, off})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = off
		}
	}
	if start >= 0 {
		ranges = append(ranges, [2]int{start, len(next)})
	}

	return ranges
}

// lookup returns the ID of an existing segment with identical content.
func (s *Store) lookup(key dedupKey, data []byte) (SegmentID, bool) {
	for _, id := range s.index[key] {
		if s.arena[id].Offset == key.offset && bytes.Equal(s.arena[id].Data, data) {
			return id, true
		}
	}
	return 0, false
}

// allocate a new segment with a reference count of zero.
func (s *Store) allocate(seg Segment, key dedupKey) SegmentID {
	var id SegmentID
	if len(s.free) > 0 {
		id = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		s.arena[id] = seg
		s.refs[id] = 0
	} else {
		id = SegmentID(len(s.arena))
		s.arena = append(s.arena, seg)
		s.refs = append(s.refs, 0)
	}
	s.index[key] = append(s.index[key], id)
	return id
}

// Commit compares two blobs of the same size and returns the set of segments
// that turn prev into next. The reference count of every segment in the
// returned set has been incremented. The caller owns those references and
// must eventually pass the set to Release().
func (s *Store) Commit(prev, next []byte) (SegmentSet, error) {
	if len(prev) != len(next) {
		return nil, curated.Errorf(SizeMismatch, len(prev), len(next))
	}

	ranges := s.changedRanges(prev, next)
	set := make(SegmentSet, 0, len(ranges))

	for _, r := range ranges {
		data := next[r[0]:r[1]]
		key := dedupKey{offset: r[0], hash: xxhash.Sum64(data)}

		id, ok := s.lookup(key, data)
		if ok {
			s.dedupHits++
		} else {
			id = s.allocate(Segment{Offset: r[0], Data: bytes.Clone(data)}, key)
		}

		set = append(set, id)
	}

	// nothing past this point can fail so it's safe to take the references
	for _, id := range set {
		s.refs[id]++
	}

	return set, nil
}

// valid checks that every ID in the set refers to a live segment.
func (s *Store) valid(set SegmentSet) error {
	for _, id := range set {
		if int(id) >= len(s.arena) {
			return curated.Errorf(InternalConsistencyError, fmt.Sprintf("segment %d does not exist", id))
		}
		if s.refs[id] <= 0 {
			return curated.Errorf(InternalConsistencyError, fmt.Sprintf("segment %d has been released", id))
		}
	}
	return nil
}

// Retain increments the reference count of every segment in the set.
func (s *Store) Retain(set SegmentSet) error {
	if err := s.valid(set); err != nil {
		return err
	}
	for _, id := range set {
		s.refs[id]++
	}
	return nil
}

// Release decrements the reference count of every segment in the set.
// Segments are freed when their count reaches zero.
func (s *Store) Release(set SegmentSet) error {
	if err := s.valid(set); err != nil {
		return err
	}

	for _, id := range set {
		s.refs[id]--
		if s.refs[id] > 0 {
			continue
		}

		seg := s.arena[id]
		key := dedupKey{offset: seg.Offset, hash: xxhash.Sum64(seg.Data)}
		ids := slices.DeleteFunc(s.index[key], func(e SegmentID) bool { return e == id })
		if len(ids) == 0 {
			delete(s.index, key)
		} else {
			s.index[key] = ids
		}

		s.arena[id] = Segment{}
		s.free = append(s.free, id)
	}

	return nil
}

// Materialize applies the segment set to a copy of the base blob. The base
// blob is not modified.
func (s *Store) Materialize(base []byte, set SegmentSet) ([]byte, error) {
	if err := s.valid(set); err != nil {
		return nil, err
	}

	blob := bytes.Clone(base)
	for _, id := range set {
		seg := s.arena[id]
		if seg.Offset < 0 || seg.Offset+seg.Len() > len(blob) {
			return nil, curated.Errorf(InternalConsistencyError,
				fmt.Sprintf("segment %d (offset %d, length %d) overruns blob of %d bytes", id, seg.Offset, seg.Len(), len(blob)))
		}
		copy(blob[seg.Offset:], seg.Data)
	}

	return blob, nil
}

// Segment returns a copy of the segment information for the ID.
func (s *Store) Segment(id SegmentID) (Segment, bool) {
	if int(id) >= len(s.arena) || s.refs[id] <= 0 {
		return Segment{}, false
	}
	return s.arena[id], true
}

// Refs returns the reference count for the segment.
func (s *Store) Refs(id SegmentID) int {
	if int(id) >= len(s.refs) {
		return 0
	}
	return s.refs[id]
}

// Size returns the number of bytes in the segments of the set.
func (s *Store) Size(set SegmentSet) int {
	n := 0
	for _, id := range set {
		if int(id) < len(s.arena) {
			n += s.arena[id].Len()
		}
	}
	return n
}

// Stats summarises the contents of the store.
type Stats struct {
	Segments  int
	Bytes     int
	Refs      int
	DedupHits int
}

func (st Stats) String() string {
	return fmt.Sprintf("%d segments, %d bytes, %d refs, %d dedup hits", st.Segments, st.Bytes, st.Refs, st.DedupHits)
}

// Stats returns a summary of the current contents of the store.
func (s *Store) Stats() Stats {
	st := Stats{DedupHits: s.dedupHits}
	for id, r := range s.refs {
		if r > 0 {
			st.Segments++
			st.Bytes += s.arena[id].Len()
			st.Refs += r
		}
	}
	return st
}

// Live returns the IDs of every segment with a non-zero reference count.
func (s *Store) Live() []SegmentID {
	var ids []SegmentID
	for id, r := range s.refs {
		if r > 0 {
			ids = append(ids, SegmentID(id))
		}
	}
	return ids
}

// Digest returns the content digest of a blob. It is used to verify that a
// materialized blob is the same as the blob that was committed.
func Digest(blob []byte) uint64 {
	return xxhash.Sum64(blob)
}
