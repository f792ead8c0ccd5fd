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
	"fmt"
	"iter"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/vclock"
)

// OutOfOrderError is returned when an event can not be recorded. Either
// because the log is replaying or because the timestamp is earlier than the
// most recent event.
const OutOfOrderError = "events: out of order: %v"

// InvalidPayload is returned when an event can not be recorded because the
// payload can not be encoded.
const InvalidPayload = "events: invalid payload: %v"

// InvalidPosition is returned when a replay is requested from a position that
// is not in the log.
const InvalidPosition = "events: position %d is not in the log (%d to %d)"

// EventID is the absolute position of an event in the log. It is also the
// number of events that were recorded before it.
type EventID int

// InputEvent is a single item of input with the virtual time it was recorded.
// InputEvents are never modified once they have been recorded.
type InputEvent struct {
	Time    vclock.Time
	Payload Payload
}

func (e InputEvent) String() string {
	return fmt.Sprintf("%v: %v", e.Time, e.Payload)
}

// Log is an ordered sequence of InputEvents. Events with the same timestamp
// remain in the order they were recorded.
//
// Positions in the log are absolute. If a prefix is discarded with
// DiscardBefore() the position of the remaining events is unchanged.
type Log struct {
	events []InputEvent

	// absolute position of events[0]
	base int

	// absolute position of the next event to be returned by ReplayNext()
	cursor int

	replaying bool
}

// NewLog is the preferred method of initialisation for the Log type.
func NewLog() *Log {
	return &Log{
		events: make([]InputEvent, 0, 256),
	}
}

// Record appends an event to the log.
func (l *Log) Record(time vclock.Time, payload Payload) (EventID, error) {
	if l.replaying {
		return 0, curated.Errorf(OutOfOrderError, "cannot record while replaying")
	}
	if payload == nil {
		return 0, curated.Errorf("events: nil payload")
	}
	if _, err := payload.MarshalBinary(); err != nil {
		return 0, curated.Errorf(InvalidPayload, err)
	}
	if last, ok := l.Last(); ok && time < last.Time {
		return 0, curated.Errorf(OutOfOrderError, fmt.Sprintf("%v is earlier than previous event at %v", time, last.Time))
	}

	l.events = append(l.events, InputEvent{Time: time, Payload: payload})
	l.cursor = l.Len()

	return EventID(l.Len() - 1), nil
}

// Len returns the absolute length of the log. This is also the position of the
// next event to be recorded.
func (l *Log) Len() int {
	return l.base + len(l.events)
}

// Base returns the position of the earliest event still in the log.
func (l *Log) Base() int {
	return l.base
}

// At returns the event at the absolute position.
func (l *Log) At(id EventID) (InputEvent, bool) {
	i := int(id) - l.base
	if i < 0 || i >= len(l.events) {
		return InputEvent{}, false
	}
	return l.events[i], true
}

// Last returns the most recent event.
func (l *Log) Last() (InputEvent, bool) {
	if len(l.events) == 0 {
		return InputEvent{}, false
	}
	return l.events[len(l.events)-1], true
}

// All returns an iterator over every event in the log, with its position.
func (l *Log) All() iter.Seq2[EventID, InputEvent] {
	return func(yield func(EventID, InputEvent) bool) {
		for i, e := range l.events {
			if !yield(EventID(l.base+i), e) {
				return
			}
		}
	}
}

// Replaying returns true if the log is in replay mode.
func (l *Log) Replaying() bool {
	return l.replaying
}

// Cursor returns the position of the next event to be replayed.
func (l *Log) Cursor() int {
	return l.cursor
}

// StartReplay puts the log into replay mode with the cursor at the
// specified position.
func (l *Log) StartReplay(position int) error {
	if position < l.base || position > l.Len() {
		return curated.Errorf(InvalidPosition, position, l.base, l.Len())
	}
	l.cursor = position
	l.replaying = true
	return nil
}

// StopReplay takes the log out of replay mode. The cursor is not changed.
func (l *Log) StopReplay() {
	l.replaying = false
}

// Peek returns the next event to be replayed without advancing the cursor.
func (l *Log) Peek() (InputEvent, bool) {
	if !l.replaying {
		return InputEvent{}, false
	}
	return l.At(EventID(l.cursor))
}

// ReplayNext returns the next event in the log and advances the cursor. The
// second return value is false once the cursor has reached the live boundary,
// at which point the caller should leave replay mode.
func (l *Log) ReplayNext() (InputEvent, bool) {
	e, ok := l.Peek()
	if ok {
		l.cursor++
	}
	return e, ok
}

// TruncateAfter discards every event after the first count events. The
// discarded events can not be recovered.
func (l *Log) TruncateAfter(count int) {
	if count < l.base {
		count = l.base
	}
	if count >= l.Len() {
		return
	}

	// clear references to discarded payloads
	i := count - l.base
	clear(l.events[i:])
	l.events = l.events[:i]

	if l.cursor > count {
		l.cursor = count
	}
}

// DiscardBefore forgets every event earlier than the absolute position. It
// is used when there is no longer a checkpoint that could replay them.
func (l *Log) DiscardBefore(position int) {
	if position <= l.base {
		return
	}
	if position > l.Len() {
		position = l.Len()
	}

	n := position - l.base
	l.events = append(l.events[:0:0], l.events[n:]...)
	l.base = position

	if l.cursor < l.base {
		l.cursor = l.base
	}
}

// Reset removes all events and takes the log out of replay mode.
func (l *Log) Reset() {
	clear(l.events)
	l.events = l.events[:0]
	l.base = 0
	l.cursor = 0
	l.replaying = false
}
