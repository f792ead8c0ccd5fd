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
	"io"
	"testing"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/machine"
	"github.com/jetsetilly/rewinder/test"
	"github.com/jetsetilly/rewinder/vclock"
)

func TestRetained(t *testing.T) {
	// dense window
	for age := range 10 {
		test.ExpectSuccess(t, retained(age*7+1, age, 10, 2))
	}

	// level one keeps every other checkpoint
	test.ExpectSuccess(t, retained(100, 10, 10, 2))
	test.ExpectFailure(t, retained(101, 10, 10, 2))
	test.ExpectFailure(t, retained(101, 19, 10, 2))

	// level two keeps every fourth
	test.ExpectSuccess(t, retained(100, 20, 10, 2))
	test.ExpectFailure(t, retained(102, 20, 10, 2))
	test.ExpectFailure(t, retained(102, 39, 10, 2))

	// level three with a decay of three keeps every twenty-seventh
	test.ExpectSuccess(t, retained(54, 90, 10, 3))
	test.ExpectFailure(t, retained(45, 90, 10, 3))
}

func TestStateString(t *testing.T) {
	test.ExpectEquality(t, Stopped.String(), "stopped")
	test.ExpectEquality(t, Live.String(), "live")
	test.ExpectEquality(t, Seeking.String(), "seeking")
	test.ExpectEquality(t, Replaying.String(), "replaying")
}

func TestDiff(t *testing.T) {
	d := diff([]byte{1, 2, 3, 4, 5}, []byte{1, 0, 0, 4, 6, 7})
	test.DemandEquality(t, len(d), 3)
	test.ExpectEquality(t, d[0].String(), "0x0001: 02 03 -> 00 00")
	test.ExpectEquality(t, d[1].Offset, 4)
	test.ExpectEquality(t, d[2].Offset, 5)
	test.ExpectEquality(t, len(d[2].Was), 0)

	test.ExpectEquality(t, len(diff([]byte{1, 2}, []byte{1, 2})), 0)
}

func TestInternalConsistency(t *testing.T) {
	clk := &vclock.Scheduler{}
	m := machine.NewMachine(clk, 256)
	r := NewRewind(clk, m, m, m, m.Shape())
	test.DemandSuccess(t, r.Prefs.CheckpointInterval.Set(2.0/vclock.TicksPerSecond))
	test.DemandSuccess(t, r.Prefs.RegionSize.Set(16))

	r.Start()
	m.Run(100)
	test.DemandSuccess(t, r.Verify())

	// free every segment in the store so that delta checkpoints can no
	// longer be materialized
	store := r.tl.Checkpoints.Store()
	live := store.Live()
	test.DemandSuccess(t, len(live) > 0)
	for _, id := range live {
		for store.Refs(id) > 0 {
			test.DemandSuccess(t, store.Release(delta.SegmentSet{id}))
		}
	}

	err := r.Verify()
	test.ExpectSuccess(t, curated.Has(err, InternalConsistencyError))
	test.ExpectFailure(t, r.Usable())
	test.ExpectFailure(t, r.Status().Usable)

	err = r.GoTo(50)
	test.ExpectSuccess(t, curated.Has(err, InternalConsistencyError))
	test.ExpectEquality(t, r.State(), Live)

	err = r.Save(io.Discard)
	test.ExpectSuccess(t, curated.Has(err, InternalConsistencyError))

	// the emulation and recording continue but no more checkpoints are taken
	n := len(r.CheckpointTimes())
	m.Run(100)
	test.ExpectEquality(t, len(r.CheckpointTimes()), n)
	test.ExpectSuccess(t, r.Record(clk.Now(), events.Joystick{State: 1}))

	// a new timeline is usable
	r.Stop()
	r.Start()
	test.ExpectSuccess(t, r.Usable())
	m.Run(50)
	test.ExpectSuccess(t, r.GoTo(220))
	test.ExpectEquality(t, r.CurrentTime(), vclock.Time(220))
}
