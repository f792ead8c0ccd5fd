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

package machine

import (
	"encoding/binary"
	"fmt"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/replayfile"
	"github.com/jetsetilly/rewinder/vclock"
)

// Sentinal error patterns.
const (
	StateError   = "machine: state: %v"
	SettingError = "machine: setting: %v"
)

// ShapeTag identifies the machine and the version of its state format in
// replay files.
const ShapeTag = "rewinder toy machine v1"

// DefaultPeriod is the default number of ticks between steps.
const DefaultPeriod vclock.Time = 1

const numPorts = 4
const numRows = 8

type registers struct {
	A    uint8
	X    uint8
	Y    uint8
	Seed uint32

	// number of steps since power-on
	Steps uint64

	// analogue input
	MouseX   int16
	MouseY   int16
	Paddle   uint16
	TouchX   uint8
	TouchY   uint8
	Buttons  uint8
	Touching uint8
}

// Machine is the entire emulated machine.
type Machine struct {
	clk *vclock.Scheduler

	// ticks between steps
	period vclock.Time

	// the time the machine was last brought up to date
	last vclock.Time

	regs  registers
	ports [numPorts]uint8
	keys  [numRows]uint8
	ram   []byte
}

// NewMachine is the preferred method of initialisation for the Machine type.
// The machine is reset to its power-on state at the current time of the
// scheduler.
func NewMachine(clk *vclock.Scheduler, ramSize int) *Machine {
	m := &Machine{
		clk:    clk,
		period: DefaultPeriod,
		last:   clk.Now(),
		ram:    make([]byte, ramSize),
	}
	m.regs.Seed = 0x2545f491
	return m
}

// NewMachineForShape creates a machine that can load replay files with the
// specified shape.
func NewMachineForShape(clk *vclock.Scheduler, shape replayfile.Shape) (*Machine, error) {
	if shape.Tag != ShapeTag {
		return nil, curated.Errorf(StateError, fmt.Sprintf("unknown machine (%s)", shape.Tag))
	}
	if shape.StateSize < stateHeaderSize {
		return nil, curated.Errorf(StateError, fmt.Sprintf("state size too small (%d bytes)", shape.StateSize))
	}
	return NewMachine(clk, shape.StateSize-stateHeaderSize), nil
}

func (m *Machine) String() string {
	m.sync()
	return fmt.Sprintf("t=%v steps=%d A=%02x X=%02x Y=%02x seed=%08x",
		m.last, m.regs.Steps, m.regs.A, m.regs.X, m.regs.Y, m.regs.Seed)
}

// Shape returns the shape of the machine for replay files.
func (m *Machine) Shape() replayfile.Shape {
	return replayfile.Shape{Tag: ShapeTag, StateSize: stateHeaderSize + len(m.ram)}
}

// Steps returns the number of steps since power-on.
func (m *Machine) Steps() uint64 {
	m.sync()
	return m.regs.Steps
}

// RAM returns a copy of the machine's RAM.
func (m *Machine) RAM() []byte {
	m.sync()
	return append([]byte(nil), m.ram...)
}

// sync steps the machine up to the current time of the scheduler.
func (m *Machine) sync() {
	now := m.clk.Now()
	if now <= m.last {
		return
	}
	n := now/m.period - m.last/m.period
	for range n {
		m.step()
	}
	m.last = now
}

// step the machine once. a xorshift generator picks the RAM location that is
// changed and the registers decide the new value
func (m *Machine) step() {
	s := m.regs.Seed
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	m.regs.Seed = s

	m.regs.X++
	m.regs.A = m.regs.A<<1 | m.regs.A>>7
	m.regs.A ^= m.ports[m.regs.X%numPorts] ^ m.keys[m.regs.X%numRows]
	m.regs.Y += uint8(m.regs.MouseX) ^ uint8(m.regs.Paddle) ^ m.regs.TouchX

	if len(m.ram) > 0 {
		m.ram[int(s%uint32(len(m.ram)))] = m.regs.A ^ m.regs.Y
	}

	m.regs.Steps++
}

// Dispatch implements the rewind.InputDistributor interface.
func (m *Machine) Dispatch(payload events.Payload) {
	m.sync()

	switch p := payload.(type) {
	case events.Keyboard:
		r := p.Row % numRows
		m.keys[r] = (m.keys[r] | p.Press) &^ p.Release
	case events.Joystick:
		m.ports[p.Port%numPorts] = p.State
	case events.Mouse:
		m.regs.MouseX += p.DX
		m.regs.MouseY += p.DY
		m.regs.Buttons = p.Buttons
	case events.Paddle:
		m.regs.Paddle = p.Position
	case events.Touchpad:
		m.regs.TouchX = p.X
		m.regs.TouchY = p.Y
		m.regs.Touching = 0
		if p.Touch {
			m.regs.Touching = 1
		}
	case events.Setting:
		if err := m.setting(p.Name, p.Value); err != nil {
			// there is no way of returning the error to the source of the
			// event. the setting is ignored
			return
		}
	}
}

func (m *Machine) setting(name string, value string) error {
	switch name {
	case "period":
		var v uint64
		if _, err := fmt.Sscanf(value, "%d", &v); err != nil || v == 0 {
			return curated.Errorf(SettingError, fmt.Sprintf("illegal period %q", value))
		}
		m.period = vclock.Time(v)
	default:
		return curated.Errorf(SettingError, fmt.Sprintf("unknown setting %q", name))
	}
	return nil
}

// CatchUpLoop implements the rewind.Runner interface.
func (m *Machine) CatchUpLoop(target vclock.Time) error {
	m.clk.RunUntil(target)
	m.sync()
	return nil
}

// Run the machine for the number of ticks.
func (m *Machine) Run(ticks vclock.Time) {
	m.clk.Advance(ticks)
	m.sync()
}

// size of state blob without RAM:
//
//	time u64 | period u64 | A X Y u8 | seed u32 | steps u64 | mouse x/y i16 |
//	paddle u16 | touch x/y u8 | buttons u8 | touching u8 | ports | keys
const stateHeaderSize = 8 + 8 + 3 + 4 + 8 + 4 + 2 + 2 + 1 + 1 + numPorts + numRows

// Snapshot implements the rewind.Serializer interface.
func (m *Machine) Snapshot() ([]byte, error) {
	m.sync()

	b := make([]byte, 0, stateHeaderSize+len(m.ram))
	b = binary.BigEndian.AppendUint64(b, uint64(m.last))
	b = binary.BigEndian.AppendUint64(b, uint64(m.period))
	b = append(b, m.regs.A, m.regs.X, m.regs.Y)
	b = binary.BigEndian.AppendUint32(b, m.regs.Seed)
	b = binary.BigEndian.AppendUint64(b, m.regs.Steps)
	b = binary.BigEndian.AppendUint16(b, uint16(m.regs.MouseX))
	b = binary.BigEndian.AppendUint16(b, uint16(m.regs.MouseY))
	b = binary.BigEndian.AppendUint16(b, m.regs.Paddle)
	b = append(b, m.regs.TouchX, m.regs.TouchY, m.regs.Buttons, m.regs.Touching)
	b = append(b, m.ports[:]...)
	b = append(b, m.keys[:]...)
	b = append(b, m.ram...)

	return b, nil
}

// Restore implements the rewind.Serializer interface. The scheduler is reset
// to the time of the state, which forgets all pending callbacks.
func (m *Machine) Restore(state []byte) error {
	if len(state) != stateHeaderSize+len(m.ram) {
		return curated.Errorf(StateError, fmt.Sprintf("state is %d bytes, expected %d", len(state), stateHeaderSize+len(m.ram)))
	}

	last := vclock.Time(binary.BigEndian.Uint64(state[0:]))
	period := vclock.Time(binary.BigEndian.Uint64(state[8:]))
	if period == 0 {
		return curated.Errorf(StateError, "zero period")
	}

	var regs registers
	regs.A, regs.X, regs.Y = state[16], state[17], state[18]
	regs.Seed = binary.BigEndian.Uint32(state[19:])
	regs.Steps = binary.BigEndian.Uint64(state[23:])
	regs.MouseX = int16(binary.BigEndian.Uint16(state[31:]))
	regs.MouseY = int16(binary.BigEndian.Uint16(state[33:]))
	regs.Paddle = binary.BigEndian.Uint16(state[35:])
	regs.TouchX, regs.TouchY, regs.Buttons, regs.Touching = state[37], state[38], state[39], state[40]

	m.last = last
	m.period = period
	m.regs = regs
	copy(m.ports[:], state[41:])
	copy(m.keys[:], state[41+numPorts:])
	copy(m.ram, state[stateHeaderSize:])

	m.clk.Reset(last)

	return nil
}
