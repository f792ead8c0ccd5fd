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

package delta_test

import (
	"bytes"
	"testing"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/test"
)

func blob(size int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, size)
}

func TestCommitMaterialize(t *testing.T) {
	s := delta.NewStore(16)

	base := blob(256, 0x00)
	next := bytes.Clone(base)
	next[5] = 0x01
	next[100] = 0x02
	next[255] = 0x03

	set, err := s.Commit(base, next)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(set), 3)

	// each changed region is stored at the region granularity
	test.ExpectEquality(t, s.Size(set), 48)

	b, err := s.Materialize(base, set)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(b, next))

	// base is untouched
	test.ExpectEquality(t, base[5], uint8(0x00))
}

func TestCoalesce(t *testing.T) {
	s := delta.NewStore(4)

	base := blob(32, 0x00)
	next := bytes.Clone(base)
	for i := 4; i < 16; i++ {
		next[i] = 0xff
	}

	set, err := s.Commit(base, next)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(set), 1)

	seg, ok := s.Segment(set[0])
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, seg.Offset, 4)
	test.ExpectEquality(t, seg.Len(), 12)
}

func TestUnevenTail(t *testing.T) {
	s := delta.NewStore(16)

	base := blob(20, 0x00)
	next := bytes.Clone(base)
	next[19] = 0x01

	set, err := s.Commit(base, next)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, s.Size(set), 4)

	b, err := s.Materialize(base, set)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(b, next))
}

func TestNoChange(t *testing.T) {
	s := delta.NewStore(16)

	base := blob(64, 0x55)
	set, err := s.Commit(base, bytes.Clone(base))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(set), 0)

	b, err := s.Materialize(base, set)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(b, base))
}

func TestSharing(t *testing.T) {
	s := delta.NewStore(8)

	base := blob(64, 0x00)
	a := bytes.Clone(base)
	a[0] = 0xaa

	// b has the same change at the same offset plus another change
	b := bytes.Clone(a)
	b[40] = 0xbb

	setA, err := s.Commit(base, a)
	test.DemandSuccess(t, err)
	setB, err := s.Commit(base, b)
	test.DemandSuccess(t, err)

	test.DemandEquality(t, len(setA), 1)
	test.DemandEquality(t, len(setB), 2)
	test.ExpectEquality(t, setA[0], setB[0])
	test.ExpectEquality(t, s.Refs(setA[0]), 2)
	test.ExpectEquality(t, s.Stats().DedupHits, 1)
	test.ExpectEquality(t, s.Stats().Segments, 2)

	// the same content at a different offset is not shared
	c := bytes.Clone(base)
	c[8] = 0xaa
	setC, err := s.Commit(base, c)
	test.DemandSuccess(t, err)
	test.ExpectInequality(t, setC[0], setA[0])

	// releasing A leaves the shared segment alive for B
	test.DemandSuccess(t, s.Release(setA))
	test.ExpectEquality(t, s.Refs(setB[0]), 1)
	m, err := s.Materialize(base, setB)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(m, b))

	test.DemandSuccess(t, s.Release(setB))
	test.DemandSuccess(t, s.Release(setC))
	test.ExpectEquality(t, s.Stats().Segments, 0)
	test.ExpectEquality(t, len(s.Live()), 0)
}

func TestFreedSegmentsAreReused(t *testing.T) {
	s := delta.NewStore(8)

	base := blob(16, 0x00)
	next := bytes.Clone(base)
	next[0] = 1

	set, err := s.Commit(base, next)
	test.DemandSuccess(t, err)
	id := set[0]
	test.DemandSuccess(t, s.Release(set))

	next[0] = 2
	set, err = s.Commit(base, next)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, set[0], id)
	test.ExpectEquality(t, s.Refs(id), 1)
}

func TestRetain(t *testing.T) {
	s := delta.NewStore(8)

	base := blob(16, 0x00)
	next := bytes.Clone(base)
	next[9] = 9

	set, err := s.Commit(base, next)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, s.Retain(set))
	test.ExpectEquality(t, s.Refs(set[0]), 2)

	test.DemandSuccess(t, s.Release(set))
	test.DemandSuccess(t, s.Release(set))

	// a set with released segments can not be retained, released or
	// materialized
	test.ExpectSuccess(t, curated.Is(s.Retain(set), delta.InternalConsistencyError))
	test.ExpectSuccess(t, curated.Is(s.Release(set), delta.InternalConsistencyError))
	_, err = s.Materialize(base, set)
	test.ExpectSuccess(t, curated.Is(err, delta.InternalConsistencyError))
}

func TestInconsistentMaterialize(t *testing.T) {
	s := delta.NewStore(8)

	base := blob(64, 0x00)
	next := bytes.Clone(base)
	next[60] = 0xff

	set, err := s.Commit(base, next)
	test.DemandSuccess(t, err)

	// applying to a smaller base is a consistency error
	_, err = s.Materialize(base[:32], set)
	test.ExpectSuccess(t, curated.Is(err, delta.InternalConsistencyError))

	// unknown segment
	_, err = s.Materialize(base, delta.SegmentSet{1000})
	test.ExpectSuccess(t, curated.Is(err, delta.InternalConsistencyError))
}

func TestSizeMismatch(t *testing.T) {
	s := delta.NewStore(8)
	_, err := s.Commit(blob(8, 0), blob(16, 0))
	test.ExpectSuccess(t, curated.Is(err, delta.SizeMismatch))
	test.ExpectEquality(t, s.Stats().Segments, 0)
}

func TestDigest(t *testing.T) {
	test.ExpectEquality(t, delta.Digest(blob(16, 1)), delta.Digest(blob(16, 1)))
	test.ExpectInequality(t, delta.Digest(blob(16, 1)), delta.Digest(blob(16, 2)))
}
