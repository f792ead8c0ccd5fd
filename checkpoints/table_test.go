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

package checkpoints_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/jetsetilly/rewinder/checkpoints"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/test"
	"github.com/jetsetilly/rewinder/vclock"
)

// state produces a sequence of blobs where only a few bytes change between
// each step, much like the memory of a running machine.
type state struct {
	rnd  *rand.Rand
	blob []byte
}

func newState(size int) *state {
	return &state{
		rnd:  rand.New(rand.NewPCG(1, 2)),
		blob: make([]byte, size),
	}
}

func (s *state) step(changes int) []byte {
	for range changes {
		s.blob[s.rnd.IntN(len(s.blob))] = byte(s.rnd.IntN(256))
	}
	return bytes.Clone(s.blob)
}

func newTable(regionSize int, spacing int) *checkpoints.Table {
	tab := checkpoints.NewTable(delta.NewStore(regionSize))
	tab.SetKeyframeSpacing(spacing)
	return tab
}

func TestInsertOrder(t *testing.T) {
	tab := newTable(16, 4)
	st := newState(256)

	_, err := tab.Insert(0, 0, 0, st.step(1))
	test.DemandSuccess(t, err)
	_, err = tab.Insert(1, 10, 2, st.step(1))
	test.DemandSuccess(t, err)

	// sequence number not increasing
	_, err = tab.Insert(1, 20, 2, st.step(1))
	test.ExpectSuccess(t, curated.Is(err, checkpoints.OutOfOrderError))

	// time not increasing
	_, err = tab.Insert(2, 10, 2, st.step(1))
	test.ExpectSuccess(t, curated.Is(err, checkpoints.OutOfOrderError))

	// event count going backwards
	_, err = tab.Insert(2, 20, 1, st.step(1))
	test.ExpectSuccess(t, curated.Is(err, checkpoints.OutOfOrderError))

	// failed inserts don't leave references behind
	test.ExpectEquality(t, tab.Len(), 2)
	test.ExpectSuccess(t, tab.Verify())
}

func TestKeyframes(t *testing.T) {
	tab := newTable(16, 3)
	st := newState(1024)

	var blobs [][]byte
	for i := range 8 {
		b := st.step(2)
		blobs = append(blobs, b)
		_, err := tab.Insert(i, vclock.Time(i*100), i, b)
		test.DemandSuccess(t, err)
	}

	// full, delta, delta, delta, full, delta, delta, delta
	for cp := range tab.All() {
		test.ExpectEquality(t, cp.Full(), cp.Seq%4 == 0, cp.Seq)
		if !cp.Full() {
			base, ok := cp.Base()
			test.ExpectSuccess(t, ok)
			test.ExpectEquality(t, base, cp.Seq-cp.Seq%4, cp.Seq)
		}
	}

	for cp := range tab.All() {
		b, err := tab.Materialize(cp)
		test.DemandSuccess(t, err)
		test.ExpectSuccess(t, bytes.Equal(b, blobs[cp.Seq]), cp.Seq)
	}
}

func TestLargeDeltaBecomesFull(t *testing.T) {
	tab := newTable(16, 10)

	_, err := tab.Insert(0, 0, 0, bytes.Repeat([]byte{0}, 256))
	test.DemandSuccess(t, err)

	cp, err := tab.Insert(1, 1, 0, bytes.Repeat([]byte{1}, 256))
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, cp.Full())

	// size change
	cp, err = tab.Insert(2, 2, 0, bytes.Repeat([]byte{1}, 512))
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, cp.Full())

	test.ExpectEquality(t, tab.Store().Stats().Segments, 0)
}

func TestFindAtOrBefore(t *testing.T) {
	tab := newTable(16, 4)
	st := newState(64)

	for i := range 4 {
		_, err := tab.Insert(i, vclock.Time(i*3), i, st.step(1))
		test.DemandSuccess(t, err)
	}

	cp, ok := tab.FindAtOrBefore(5)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, cp.Time, vclock.Time(3))

	cp, ok = tab.FindAtOrBefore(6)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, cp.Time, vclock.Time(6))

	cp, ok = tab.FindAtOrBefore(100)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, cp.Time, vclock.Time(9))

	cp, ok = tab.FindAfter(3)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, cp.Time, vclock.Time(6))

	_, ok = tab.FindAfter(9)
	test.ExpectFailure(t, ok)

	// nothing before the first checkpoint
	tab2 := newTable(16, 4)
	_, err := tab2.Insert(0, 10, 0, st.step(1))
	test.DemandSuccess(t, err)
	_, ok = tab2.FindAtOrBefore(9)
	test.ExpectFailure(t, ok)
}

func TestRange(t *testing.T) {
	tab := newTable(16, 4)
	st := newState(64)

	for i := range 10 {
		_, err := tab.Insert(i, vclock.Time(i*10), i, st.step(1))
		test.DemandSuccess(t, err)
	}

	rng := tab.Range(25, 60)

	// the range can be iterated more than once
	for range 2 {
		var times []vclock.Time
		for cp := range rng {
			times = append(times, cp.Time)
		}
		test.DemandEquality(t, len(times), 4)
		test.ExpectEquality(t, times[0], vclock.Time(30))
		test.ExpectEquality(t, times[3], vclock.Time(60))
	}

	// early exit
	n := 0
	for range tab.All() {
		n++
		if n == 3 {
			break
		}
	}
	test.ExpectEquality(t, n, 3)
}

func TestRemoveBasePromotes(t *testing.T) {
	tab := newTable(16, 8)
	st := newState(512)

	var blobs [][]byte
	for i := range 5 {
		b := st.step(3)
		blobs = append(blobs, b)
		_, err := tab.Insert(i, vclock.Time(i), i, b)
		test.DemandSuccess(t, err)
	}

	first := tab.First()
	test.DemandSuccess(t, first.Full())

	test.DemandSuccess(t, tab.Remove(0))
	test.ExpectEquality(t, tab.Len(), 4)

	// checkpoint 1 is now the base for the remaining deltas
	promoted, ok := tab.Get(1)
	test.DemandSuccess(t, ok)
	test.ExpectSuccess(t, promoted.Full())
	for cp := range tab.Range(2, 4) {
		base, ok := cp.Base()
		test.ExpectSuccess(t, ok)
		test.ExpectEquality(t, base, 1)
	}

	for cp := range tab.All() {
		b, err := tab.Materialize(cp)
		test.DemandSuccess(t, err)
		test.ExpectSuccess(t, bytes.Equal(b, blobs[cp.Seq]), cp.Seq)
	}
	test.ExpectSuccess(t, tab.Verify())

	test.ExpectSuccess(t, curated.Is(tab.Remove(0), checkpoints.UnknownCheckpoint))
}

func TestTruncateAfter(t *testing.T) {
	tab := newTable(16, 8)
	st := newState(128)

	for i := range 10 {
		_, err := tab.Insert(i, vclock.Time(i*10), i, st.step(2))
		test.DemandSuccess(t, err)
	}

	test.DemandSuccess(t, tab.TruncateAfter(45))
	test.ExpectEquality(t, tab.Len(), 5)
	test.ExpectEquality(t, tab.Last().Time, vclock.Time(40))
	test.ExpectSuccess(t, tab.Verify())

	// new checkpoints can follow the truncation point
	_, err := tab.Insert(5, 50, 5, st.step(2))
	test.ExpectSuccess(t, err)

	test.DemandSuccess(t, tab.Clear())
	test.ExpectEquality(t, tab.Len(), 0)
	test.ExpectEquality(t, tab.Store().Stats().Segments, 0)
}

// after any sequence of inserts and removes every checkpoint must still be
// materializable and no segment can be left without a reference.
func TestSegmentConservation(t *testing.T) {
	tab := newTable(8, 6)
	st := newState(2048)
	rnd := rand.New(rand.NewPCG(3, 4))

	blobs := make(map[int][]byte)

	seq := 0
	for range 400 {
		if tab.Len() > 2 && rnd.IntN(3) == 0 {
			// remove a random checkpoint other than the most recent
			var victims []int
			for cp := range tab.All() {
				victims = append(victims, cp.Seq)
			}
			victim := victims[rnd.IntN(len(victims)-1)]
			test.DemandSuccess(t, tab.Remove(victim))
			delete(blobs, victim)
		} else {
			b := st.step(1 + rnd.IntN(20))
			_, err := tab.Insert(seq, vclock.Time(seq), seq, b)
			test.DemandSuccess(t, err)
			blobs[seq] = b
			seq++
		}

		test.DemandSuccess(t, tab.Verify())
	}

	for cp := range tab.All() {
		b, err := tab.Materialize(cp)
		test.DemandSuccess(t, err)
		test.ExpectSuccess(t, bytes.Equal(b, blobs[cp.Seq]), cp.Seq)
	}

	test.DemandSuccess(t, tab.Clear())
	test.ExpectEquality(t, tab.Store().Stats().Refs, 0)
}
