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

package vclock

import (
	"container/heap"
)

// a scheduled callback. seq is the order in which the callback was
// registered and is used to order callbacks scheduled for the same instant.
type callback struct {
	at  Time
	seq uint64
	fn  func()
}

type queue []callback

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(callback)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = callback{}
	*q = old[:n-1]
	return c
}

// Scheduler is a monotonic virtual clock with one-shot callback
// registration. The zero value is ready to use and starts at Zero.
//
// Scheduler is not safe for concurrent use. Everything happens on the
// emulation thread.
type Scheduler struct {
	now     Time
	pending queue
	seq     uint64
}

// Now returns the current virtual time.
func (s *Scheduler) Now() Time {
	return s.now
}

// ScheduleAt registers a callback to be fired when the clock reaches the
// specified time. Callbacks registered for a time that has already passed are
// fired on the next call to Advance() or RunUntil().
func (s *Scheduler) ScheduleAt(at Time, fn func()) {
	heap.Push(&s.pending, callback{at: at, seq: s.seq, fn: fn})
	s.seq++
}

// Pending returns the number of callbacks waiting to be fired.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Next returns the time of the earliest pending callback.
func (s *Scheduler) Next() (Time, bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	return s.pending[0].at, true
}

// RunUntil moves the clock forward to the target time, firing every callback
// scheduled at or before the target in time order. Callbacks may register new
// callbacks, which are also fired if they fall at or before the target.
//
// The clock never moves backwards. A target earlier than the current time
// only fires overdue callbacks.
func (s *Scheduler) RunUntil(target Time) {
	for len(s.pending) > 0 && s.pending[0].at <= target {
		c := heap.Pop(&s.pending).(callback)
		if c.at > s.now {
			s.now = c.at
		}
		c.fn()
	}
	if target > s.now {
		s.now = target
	}
}

// Advance moves the clock forward by the specified number of ticks.
func (s *Scheduler) Advance(ticks Time) {
	s.RunUntil(s.now + ticks)
}

// Reset moves the clock to the specified time and forgets all pending
// callbacks. It is used when the machine is restored from a snapshot.
func (s *Scheduler) Reset(now Time) {
	s.now = now
	s.pending = s.pending[:0]
}
