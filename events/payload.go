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

package events

import (
	"encoding/binary"
	"fmt"

	"github.com/jetsetilly/rewinder/curated"
)

// Kind identifies the payload type. The value is used in replay files and
// must not change for existing payload types.
type Kind uint8

// List of valid Kind values.
const (
	KindKeyboard Kind = iota + 1
	KindJoystick
	KindMouse
	KindPaddle
	KindTouchpad
	KindSetting
)

func (k Kind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindJoystick:
		return "joystick"
	case KindMouse:
		return "mouse"
	case KindPaddle:
		return "paddle"
	case KindTouchpad:
		return "touchpad"
	case KindSetting:
		return "setting"
	}
	return fmt.Sprintf("unknown kind (%d)", uint8(k))
}

// Payload is the device specific part of an InputEvent.
type Payload interface {
	fmt.Stringer
	Kind() Kind
	MarshalBinary() ([]byte, error)

	// seals the interface
	payload()
}

// Keyboard is a change to one row of the keyboard matrix. Press and Release
// are bit masks of the keys in the row that went down or came up.
type Keyboard struct {
	Row     uint8
	Press   uint8
	Release uint8
}

// Joystick is the new state of the joystick lines on a port.
type Joystick struct {
	Port  uint8
	State uint8
}

// Mouse is relative movement and button state of a mouse on a port.
type Mouse struct {
	Port    uint8
	DX      int16
	DY      int16
	Buttons uint8
}

// Paddle is the absolute position of a paddle type controller.
type Paddle struct {
	Port     uint8
	Position uint16
}

// Touchpad is the position and touch state of a touchpad.
type Touchpad struct {
	Port  uint8
	X     uint8
	Y     uint8
	Touch bool
}

// Setting is a change to a machine setting that affects emulation. For
// example, a change of the CPU frequency.
type Setting struct {
	Name  string
	Value string
}

func (Keyboard) payload() {}
func (Joystick) payload() {}
func (Mouse) payload()    {}
func (Paddle) payload()   {}
func (Touchpad) payload() {}
func (Setting) payload()  {}

func (Keyboard) Kind() Kind { return KindKeyboard }
func (Joystick) Kind() Kind { return KindJoystick }
func (Mouse) Kind() Kind    { return KindMouse }
func (Paddle) Kind() Kind   { return KindPaddle }
func (Touchpad) Kind() Kind { return KindTouchpad }
func (Setting) Kind() Kind  { return KindSetting }

func (p Keyboard) String() string {
	return fmt.Sprintf("keyboard row %d: press %08b release %08b", p.Row, p.Press, p.Release)
}

func (p Joystick) String() string {
	return fmt.Sprintf("joystick %d: %08b", p.Port, p.State)
}

func (p Mouse) String() string {
	return fmt.Sprintf("mouse %d: %d,%d buttons %02b", p.Port, p.DX, p.DY, p.Buttons)
}

func (p Paddle) String() string {
	return fmt.Sprintf("paddle %d: %d", p.Port, p.Position)
}

func (p Touchpad) String() string {
	return fmt.Sprintf("touchpad %d: %d,%d touch=%v", p.Port, p.X, p.Y, p.Touch)
}

func (p Setting) String() string {
	return fmt.Sprintf("setting %s: %s", p.Name, p.Value)
}

func (p Keyboard) MarshalBinary() ([]byte, error) {
	return []byte{p.Row, p.Press, p.Release}, nil
}

func (p Joystick) MarshalBinary() ([]byte, error) {
	return []byte{p.Port, p.State}, nil
}

func (p Mouse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 6)
	b[0] = p.Port
	binary.BigEndian.PutUint16(b[1:], uint16(p.DX))
	binary.BigEndian.PutUint16(b[3:], uint16(p.DY))
	b[5] = p.Buttons
	return b, nil
}

func (p Paddle) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3)
	b[0] = p.Port
	binary.BigEndian.PutUint16(b[1:], p.Position)
	return b, nil
}

func (p Touchpad) MarshalBinary() ([]byte, error) {
	var t uint8
	if p.Touch {
		t = 1
	}
	return []byte{p.Port, p.X, p.Y, t}, nil
}

// maximum lengths of the Setting fields
const (
	maxSettingName  = 0xff
	maxSettingValue = 0xffff
)

func (p Setting) MarshalBinary() ([]byte, error) {
	if len(p.Name) > maxSettingName {
		return nil, curated.Errorf("events: setting name too long (%d bytes)", len(p.Name))
	}
	if len(p.Value) > maxSettingValue {
		return nil, curated.Errorf("events: setting value too long (%d bytes)", len(p.Value))
	}
	b := make([]byte, 0, 3+len(p.Name)+len(p.Value))
	b = append(b, uint8(len(p.Name)))
	b = append(b, p.Name...)
	b = binary.BigEndian.AppendUint16(b, uint16(len(p.Value)))
	b = append(b, p.Value...)
	return b, nil
}

// UnknownKind is the error pattern returned by Unmarshal when the kind is not
// recognised.
const UnknownKind = "events: unknown payload kind (%d)"

// MalformedPayload is the error pattern returned by Unmarshal when the data
// does not match the layout of the payload kind.
const MalformedPayload = "events: malformed %s payload (%d bytes)"

// Unmarshal creates a Payload of the specified kind from data previously
// created with MarshalBinary().
func Unmarshal(kind Kind, data []byte) (Payload, error) {
	malformed := func() error {
		return curated.Errorf(MalformedPayload, kind, len(data))
	}

	switch kind {
	case KindKeyboard:
		if len(data) != 3 {
			return nil, malformed()
		}
		return Keyboard{Row: data[0], Press: data[1], Release: data[2]}, nil

	case KindJoystick:
		if len(data) != 2 {
			return nil, malformed()
		}
		return Joystick{Port: data[0], State: data[1]}, nil

	case KindMouse:
		if len(data) != 6 {
			return nil, malformed()
		}
		return Mouse{
			Port:    data[0],
			DX:      int16(binary.BigEndian.Uint16(data[1:])),
			DY:      int16(binary.BigEndian.Uint16(data[3:])),
			Buttons: data[5],
		}, nil

	case KindPaddle:
		if len(data) != 3 {
			return nil, malformed()
		}
		return Paddle{Port: data[0], Position: binary.BigEndian.Uint16(data[1:])}, nil

	case KindTouchpad:
		if len(data) != 4 || data[3] > 1 {
			return nil, malformed()
		}
		return Touchpad{Port: data[0], X: data[1], Y: data[2], Touch: data[3] == 1}, nil

	case KindSetting:
		if len(data) < 1 {
			return nil, malformed()
		}
		n := int(data[0])
		if len(data) < 1+n+2 {
			return nil, malformed()
		}
		name := string(data[1 : 1+n])
		v := int(binary.BigEndian.Uint16(data[1+n:]))
		if len(data) != 1+n+2+v {
			return nil, malformed()
		}
		return Setting{Name: name, Value: string(data[1+n+2:])}, nil
	}

	return nil, curated.Errorf(UnknownKind, uint8(kind))
}
