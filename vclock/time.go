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

// Package vclock defines the virtual time base of the emulated machine and
// provides a simple scheduler that fires callbacks at specific virtual-clock
// instants.
//
// Virtual time is independent of wall-clock time. It is measured in ticks
// and only ever moves forward, except when the whole machine is restored from
// a snapshot. In that case the scheduler is Reset() to the restored time.
package vclock

import (
	"fmt"
	"math"
	"time"
)

// Time is a point on the virtual clock, measured in ticks since power-on.
type Time uint64

// TicksPerSecond is the resolution of the virtual clock. The rate was chosen
// to match the 3.579545MHz master clock of the machine.
const TicksPerSecond = 3579545

// Zero is the power-on time of the machine.
const Zero Time = 0

// FromDuration converts a wall-clock duration into an equivalent number of
// ticks.
func FromDuration(d time.Duration) Time {
	if d <= 0 {
		return 0
	}
	return Time(d.Seconds() * TicksPerSecond)
}

// FromSeconds converts a number of seconds into the nearest number of ticks.
func FromSeconds(s float64) Time {
	if s <= 0 {
		return 0
	}
	return Time(math.Round(s * TicksPerSecond))
}

// Seconds returns the time as a number of seconds since power-on.
func (t Time) Seconds() float64 {
	return float64(t) / TicksPerSecond
}

// Sub returns the number of ticks between t and u. The result is zero if u is
// later than t.
func (t Time) Sub(u Time) Time {
	if u > t {
		return 0
	}
	return t - u
}

func (t Time) String() string {
	return fmt.Sprintf("%d", uint64(t))
}
