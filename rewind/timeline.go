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
	"fmt"
	"io"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"github.com/google/uuid"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/vclock"
)

// State returns the current state of the rewind system.
func (r *Rewind) State() State {
	return r.state
}

// IsReplaying returns true if recorded events are being fed into the machine.
func (r *Rewind) IsReplaying() bool {
	return r.state == Replaying || r.state == Seeking
}

// CurrentTime returns the current time of the emulation.
func (r *Rewind) CurrentTime() vclock.Time {
	return r.clk.Now()
}

// EarliestTime returns the earliest time that can be reached with GoTo(). If
// there is no history the current time is returned.
func (r *Rewind) EarliestTime() vclock.Time {
	if r.tl == nil {
		return r.clk.Now()
	}
	if t, ok := r.tl.Earliest(); ok {
		return t
	}
	return r.clk.Now()
}

// LatestTime returns the latest time that can be reached with GoTo(). While
// live this is the current time.
func (r *Rewind) LatestTime() vclock.Time {
	if r.tl == nil || r.state == Live {
		return r.clk.Now()
	}
	return r.tl.Latest()
}

// CheckpointTimes returns the time of every checkpoint in the history, in
// order.
func (r *Rewind) CheckpointTimes() []vclock.Time {
	if r.tl == nil {
		return nil
	}
	return r.tl.Checkpoints.Times()
}

// ReRecordCount returns the number of times a new branch of history has been
// started by stopping a replay.
func (r *Rewind) ReRecordCount() int {
	if r.tl == nil {
		return 0
	}
	return r.tl.ReRecordCount
}

// Status provides a summary of the current state of the rewind system.
//
// Useful for GUIs for example, to present the range of times that are
// available in the rewind history.
type Status struct {
	State   State
	Usable  bool
	Session uuid.UUID

	Current  vclock.Time
	Earliest vclock.Time
	Latest   vclock.Time

	Checkpoints   []vclock.Time
	Events        int
	ReRecordCount int

	// estimated number of bytes used by checkpoints
	Memory   int
	Segments delta.Stats
}

func (s Status) String() string {
	b := strings.Builder{}
	b.WriteString(s.State.String())
	if s.State == Stopped {
		return b.String()
	}
	if !s.Usable {
		b.WriteString(" (unusable)")
	}
	b.WriteString(fmt.Sprintf(" %v [%v to %v]", s.Current, s.Earliest, s.Latest))
	b.WriteString(fmt.Sprintf(" %d checkpoints, %d events, %d re-records", len(s.Checkpoints), s.Events, s.ReRecordCount))
	b.WriteString(fmt.Sprintf(" %d bytes (%s)", s.Memory, s.Segments))
	return b.String()
}

// Status returns a summary of the rewind system.
func (r *Rewind) Status() Status {
	s := Status{
		State:    r.state,
		Usable:   r.Usable(),
		Current:  r.CurrentTime(),
		Earliest: r.EarliestTime(),
		Latest:   r.LatestTime(),
	}

	if r.tl != nil {
		s.Session = r.tl.Session
		s.Checkpoints = r.tl.Checkpoints.Times()
		s.Events = r.tl.Events.Len() - r.tl.Events.Base()
		s.ReRecordCount = r.tl.ReRecordCount
		s.Memory = r.tl.Checkpoints.Memory()
		s.Segments = r.tl.Checkpoints.Store().Stats()
	}

	return s
}

// Verify checks the consistency of the history. Every checkpoint is
// materialized and checked. An inconsistency makes the history unusable.
func (r *Rewind) Verify() error {
	if r.tl == nil {
		return curated.Errorf(NotCollecting)
	}
	return r.fail(r.tl.Verify())
}

// DumpStructure writes a graphviz representation of the timeline data
// structures to the writer. Only useful for debugging. Nothing is written if
// history is not being collected.
func (r *Rewind) DumpStructure(w io.Writer) {
	if r.tl == nil {
		return
	}
	memviz.Map(w, r.tl)
}
