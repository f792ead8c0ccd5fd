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

// Package history defines the Timeline type, the complete recorded history of
// one session: the checkpoints, the input events and the segment store that
// the checkpoints share.
//
// A Timeline is replaced wholesale when a replay file is loaded or when a new
// session is started. It is never partially merged with another Timeline.
package history

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jetsetilly/rewinder/checkpoints"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/vclock"
)

// Timeline is the recorded history of a session.
type Timeline struct {
	// Session identifies the recording. It is preserved by replay files.
	Session uuid.UUID

	Events      *events.Log
	Checkpoints *checkpoints.Table

	// the number of times the history has been branched by resuming live
	// recording part way through a replay
	ReRecordCount int

	// End is the latest time covered by the recording. It is updated when
	// replay begins and is used to decide when replay has finished. The most
	// recent event can be earlier than End.
	End vclock.Time
}

// New is the preferred method of initialisation for the Timeline type.
func New(regionSize int, keyframeSpacing int) *Timeline {
	tab := checkpoints.NewTable(delta.NewStore(regionSize))
	tab.SetKeyframeSpacing(keyframeSpacing)

	return &Timeline{
		Session:     uuid.New(),
		Events:      events.NewLog(),
		Checkpoints: tab,
	}
}

func (tl *Timeline) String() string {
	return fmt.Sprintf("session %s: %d checkpoints, %d events", tl.Session, tl.Checkpoints.Len(), tl.Events.Len()-tl.Events.Base())
}

// Empty returns true if there are no checkpoints in the timeline. An empty
// timeline can not be used for seeking.
func (tl *Timeline) Empty() bool {
	return tl.Checkpoints.Len() == 0
}

// Earliest returns the time of the earliest checkpoint.
func (tl *Timeline) Earliest() (vclock.Time, bool) {
	cp := tl.Checkpoints.First()
	if cp == nil {
		return 0, false
	}
	return cp.Time, true
}

// Latest returns the latest time covered by the timeline. This is the latest
// of the End field, the most recent event and the most recent checkpoint.
func (tl *Timeline) Latest() vclock.Time {
	t := tl.End
	if e, ok := tl.Events.Last(); ok && e.Time > t {
		t = e.Time
	}
	if cp := tl.Checkpoints.Last(); cp != nil && cp.Time > t {
		t = cp.Time
	}
	return t
}

// Verify checks the consistency of the timeline. Every checkpoint must be
// materializable and must refer to a position in the event log.
func (tl *Timeline) Verify() error {
	if err := tl.Checkpoints.Verify(); err != nil {
		return err
	}

	for cp := range tl.Checkpoints.All() {
		if cp.EventCount < tl.Events.Base() || cp.EventCount > tl.Events.Len() {
			return curated.Errorf(delta.InternalConsistencyError,
				fmt.Sprintf("checkpoint #%d refers to event %d which is not in the log", cp.Seq, cp.EventCount))
		}
		if e, ok := tl.Events.At(events.EventID(cp.EventCount - 1)); ok && e.Time > cp.Time {
			return curated.Errorf(delta.InternalConsistencyError,
				fmt.Sprintf("checkpoint #%d is earlier than the events it includes", cp.Seq))
		}
	}

	return nil
}

// Release frees all checkpoints and events. The Timeline should not be used
// afterwards.
func (tl *Timeline) Release() error {
	tl.Events.Reset()
	return tl.Checkpoints.Clear()
}
