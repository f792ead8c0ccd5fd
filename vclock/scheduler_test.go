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

package vclock_test

import (
	"testing"
	"time"

	"github.com/jetsetilly/rewinder/test"
	"github.com/jetsetilly/rewinder/vclock"
)

func TestSchedulerOrder(t *testing.T) {
	var s vclock.Scheduler
	var fired []int

	s.ScheduleAt(10, func() { fired = append(fired, 10) })
	s.ScheduleAt(5, func() { fired = append(fired, 5) })
	s.ScheduleAt(10, func() { fired = append(fired, 11) })
	s.ScheduleAt(20, func() { fired = append(fired, 20) })

	s.RunUntil(10)
	test.DemandEquality(t, len(fired), 3)
	test.ExpectEquality(t, fired[0], 5)
	test.ExpectEquality(t, fired[1], 10)
	test.ExpectEquality(t, fired[2], 11)
	test.ExpectEquality(t, s.Now(), vclock.Time(10))
	test.ExpectEquality(t, s.Pending(), 1)

	s.Advance(100)
	test.ExpectEquality(t, len(fired), 4)
	test.ExpectEquality(t, s.Now(), vclock.Time(110))
}

func TestSchedulerNowDuringCallback(t *testing.T) {
	var s vclock.Scheduler
	var at vclock.Time

	s.ScheduleAt(7, func() { at = s.Now() })
	s.RunUntil(50)
	test.ExpectEquality(t, at, vclock.Time(7))
}

func TestSchedulerChained(t *testing.T) {
	var s vclock.Scheduler
	count := 0

	var tick func()
	tick = func() {
		count++
		s.ScheduleAt(s.Now()+3, tick)
	}
	s.ScheduleAt(0, tick)

	// callbacks at 0, 3, 6, 9
	s.RunUntil(9)
	test.ExpectEquality(t, count, 4)
}

func TestSchedulerReset(t *testing.T) {
	var s vclock.Scheduler
	fired := false

	s.ScheduleAt(10, func() { fired = true })
	s.RunUntil(5)
	s.Reset(2)
	test.ExpectEquality(t, s.Now(), vclock.Time(2))
	test.ExpectEquality(t, s.Pending(), 0)

	s.RunUntil(20)
	test.ExpectFailure(t, fired)
}

func TestTimeConversion(t *testing.T) {
	test.ExpectEquality(t, vclock.FromDuration(time.Second), vclock.Time(vclock.TicksPerSecond))
	test.ExpectEquality(t, vclock.FromDuration(-time.Second), vclock.Time(0))
	test.ExpectApproximate(t, vclock.Time(vclock.TicksPerSecond*2).Seconds(), 2.0, 0.001)
	test.ExpectEquality(t, vclock.Time(5).Sub(10), vclock.Time(0))
	test.ExpectEquality(t, vclock.Time(10).Sub(4), vclock.Time(6))

	// whole ticks survive the round trip through seconds
	test.ExpectEquality(t, vclock.FromSeconds(3.0/vclock.TicksPerSecond), vclock.Time(3))
	test.ExpectEquality(t, vclock.FromSeconds(0.5), vclock.Time(1789773))
	test.ExpectEquality(t, vclock.FromSeconds(-1), vclock.Time(0))
}
