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

package machine_test

import (
	"bytes"
	"testing"

	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/machine"
	"github.com/jetsetilly/rewinder/test"
	"github.com/jetsetilly/rewinder/vclock"
)

// drive runs the machine for 1000 ticks delivering input every 7 ticks
func drive(m *machine.Machine) {
	for i := range 1000 {
		m.Run(1)
		if i%7 == 0 {
			m.Dispatch(events.Joystick{Port: uint8(i % 2), State: uint8(i)})
		}
		if i%50 == 0 {
			m.Dispatch(events.Mouse{DX: int16(i), DY: -1})
		}
	}
}

func TestDeterminism(t *testing.T) {
	var clkA, clkB vclock.Scheduler
	a := machine.NewMachine(&clkA, 256)
	b := machine.NewMachine(&clkB, 256)

	drive(a)
	drive(b)

	test.ExpectEquality(t, a.Steps(), uint64(1000))
	test.ExpectSuccess(t, bytes.Equal(a.RAM(), b.RAM()))
	test.ExpectEquality(t, a.String(), b.String())

	// different input produces a different state
	var clkC vclock.Scheduler
	c := machine.NewMachine(&clkC, 256)
	drive(c)
	c.Dispatch(events.Paddle{Position: 100})
	c.Run(10)
	a.Run(10)
	test.ExpectFailure(t, bytes.Equal(a.RAM(), c.RAM()))
}

func TestSnapshotRestore(t *testing.T) {
	var clk vclock.Scheduler
	m := machine.NewMachine(&clk, 128)
	drive(m)

	state, err := m.Snapshot()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(state), m.Shape().StateSize)
	ram := m.RAM()
	steps := m.Steps()

	m.Dispatch(events.Keyboard{Row: 1, Press: 0xff})
	m.Run(500)
	test.ExpectInequality(t, m.Steps(), steps)

	// pending callbacks are forgotten on restore
	clk.ScheduleAt(clk.Now()+1, func() {})
	test.DemandSuccess(t, m.Restore(state))
	test.ExpectEquality(t, clk.Now(), vclock.Time(1000))
	test.ExpectEquality(t, clk.Pending(), 0)
	test.ExpectEquality(t, m.Steps(), steps)
	test.ExpectSuccess(t, bytes.Equal(m.RAM(), ram))

	again, err := m.Snapshot()
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(again, state))

	// state of the wrong size is rejected and nothing changes
	test.ExpectFailure(t, m.Restore(state[:10]))
	test.ExpectEquality(t, m.Steps(), steps)
}

func TestPeriodSetting(t *testing.T) {
	var clk vclock.Scheduler
	m := machine.NewMachine(&clk, 64)

	m.Run(100)
	test.ExpectEquality(t, m.Steps(), uint64(100))

	m.Dispatch(events.Setting{Name: "period", Value: "10"})
	m.Run(100)
	test.ExpectEquality(t, m.Steps(), uint64(110))

	// illegal settings are ignored
	m.Dispatch(events.Setting{Name: "period", Value: "0"})
	m.Dispatch(events.Setting{Name: "speed", Value: "fast"})
	m.Run(100)
	test.ExpectEquality(t, m.Steps(), uint64(120))
}

func TestMachineForShape(t *testing.T) {
	var clk vclock.Scheduler
	m := machine.NewMachine(&clk, 100)

	n, err := machine.NewMachineForShape(&clk, m.Shape())
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, n.Shape(), m.Shape())
	test.ExpectEquality(t, len(n.RAM()), 100)

	shape := m.Shape()
	shape.Tag = "some other machine"
	_, err = machine.NewMachineForShape(&clk, shape)
	test.ExpectFailure(t, err)

	shape = m.Shape()
	shape.StateSize = 10
	_, err = machine.NewMachineForShape(&clk, shape)
	test.ExpectFailure(t, err)
}
