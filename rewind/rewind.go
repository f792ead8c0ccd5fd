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

	"github.com/jetsetilly/rewinder/checkpoints"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/history"
	"github.com/jetsetilly/rewinder/logger"
	"github.com/jetsetilly/rewinder/notifications"
	"github.com/jetsetilly/rewinder/replayfile"
	"github.com/jetsetilly/rewinder/vclock"
)

// Sentinal error patterns. Errors from the events, delta and replayfile
// packages are passed through unchanged and the patterns are repeated here
// for convenience.
const (
	NoHistoryError           = "rewind: no history at or before %v"
	SerializationFailure     = "rewind: serialization failure: %v"
	NotCollecting            = "rewind: history is not being collected"
	Busy                     = "rewind: not possible while %s"
	OutOfOrderError          = events.OutOfOrderError
	InternalConsistencyError = delta.InternalConsistencyError
	CorruptFileError         = replayfile.CorruptFileError
)

// Clock is the virtual clock of the emulation.
type Clock interface {
	Now() vclock.Time

	// ScheduleAt arranges for the function to be called when the emulation
	// reaches the specified time
	ScheduleAt(at vclock.Time, fn func())
}

// Serializer converts the entire machine state to and from a blob.
type Serializer interface {
	Snapshot() ([]byte, error)

	// Restore replaces the entire machine state, including the time of the
	// Clock, with the state in the blob. If an error is returned the machine
	// state must not have changed
	Restore(state []byte) error
}

// InputDistributor delivers input events to the machine. Live and replayed
// input take the same path.
type InputDistributor interface {
	Dispatch(payload events.Payload)
}

// Runner provides the rewind package the opportunity to run the emulation.
type Runner interface {
	// CatchUpLoop implementations will run the emulation until the Clock
	// reaches the target time. Callbacks registered with ScheduleAt() must
	// be serviced
	CatchUpLoop(target vclock.Time) error
}

// State of the rewind system.
type State int

// List of valid State values.
const (
	Stopped State = iota
	Live
	Seeking
	Replaying
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Live:
		return "live"
	case Seeking:
		return "seeking"
	case Replaying:
		return "replaying"
	}
	return "unknown state"
}

// Rewind contains the history of the emulation.
type Rewind struct {
	clk    Clock
	ser    Serializer
	input  InputDistributor
	runner Runner
	shape  replayfile.Shape

	Prefs *Preferences

	state State
	tl    *history.Timeline

	// the error that made the timeline unusable. no more checkpoints are
	// taken and seeking is not possible until a new timeline is started
	unusable error

	// the time at which collection started. checkpoint sequence numbers are
	// the number of checkpoint intervals since this time
	origin vclock.Time

	// incremented whenever the state changes so that callbacks scheduled for
	// the previous state can recognise that they are stale
	generation int

	// the emulation is being run forward by the runner
	catchingUp bool

	comparison comparison

	notifier notifications.Notify
}

// NewRewind is the preferred method of initialisation for the Rewind type.
// Collection of history does not begin until Start() is called.
//
// The machine shape is written to and checked against replay files.
func NewRewind(clk Clock, ser Serializer, input InputDistributor, runner Runner, shape replayfile.Shape) *Rewind {
	r := &Rewind{
		clk:    clk,
		ser:    ser,
		input:  input,
		runner: runner,
		shape:  shape,
	}
	r.Prefs = newPreferences(r)
	return r
}

// AllowLogging implements the logger.Permission interface. Logging is
// suppressed while catching up if the QuietCatchUp preference is set.
func (r *Rewind) AllowLogging() bool {
	return !r.catchingUp || !r.Prefs.QuietCatchUp.Get().(bool)
}

func (r *Rewind) String() string {
	if r.tl == nil {
		return r.state.String()
	}
	return fmt.Sprintf("%s: %s", r.state, r.tl)
}

// schedule a callback that is ignored if the state has changed in the
// meantime
func (r *Rewind) schedule(at vclock.Time, fn func()) {
	gen := r.generation
	r.clk.ScheduleAt(at, func() {
		if gen == r.generation {
			fn()
		}
	})
}

// SetNotifier sets the recipient of notices about changes to the history.
// A nil value means no notices are sent.
func (r *Rewind) SetNotifier(n notifications.Notify) {
	r.notifier = n
}

func (r *Rewind) notify(notice notifications.Notice) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(notice); err != nil {
		logger.Logf(r, "rewind", "notify %s: %v", notice, err)
	}
}

func (r *Rewind) interval() vclock.Time {
	return max(vclock.FromSeconds(r.Prefs.CheckpointInterval.Get().(float64)), 1)
}

// Start collecting history. The current state of the machine becomes the
// first checkpoint of a new timeline. Does nothing if history is already
// being collected.
func (r *Rewind) Start() {
	if r.state != Stopped {
		return
	}

	r.tl = history.New(r.Prefs.RegionSize.Get().(int), r.Prefs.KeyframeSpacing.Get().(int))
	r.unusable = nil
	r.origin = r.clk.Now()
	r.comparison = comparison{}
	r.state = Live
	r.generation++

	logger.Logf(r, "rewind", "started %s", r.tl.Session)
	r.notify(notifications.NotifyRewindStarted)

	r.checkpoint()
}

// Stop collecting history and discard the timeline.
func (r *Rewind) Stop() {
	if r.state == Stopped {
		return
	}

	if err := r.tl.Release(); err != nil {
		logger.Log(r, "rewind", err)
	}

	r.tl = nil
	r.unusable = nil
	r.comparison = comparison{}
	r.state = Stopped
	r.generation++

	logger.Log(r, "rewind", "stopped")
	r.notify(notifications.NotifyRewindStopped)
}

// the time of the next checkpoint after the current time
func (r *Rewind) nextCheckpointTime() vclock.Time {
	iv := r.interval()
	return r.origin + (r.clk.Now().Sub(r.origin)/iv+1)*iv
}

// sequence numbers are derived from the time so that the retention policy
// makes the same decisions for checkpoints taken at the same time on
// different branches. the sequence number is always greater than that of the
// most recent checkpoint
func (r *Rewind) sequence(t vclock.Time) int {
	iv := r.interval()
	seq := int((t.Sub(r.origin) + iv/2) / iv)
	if last := r.tl.Checkpoints.Last(); last != nil && seq <= last.Seq {
		seq = last.Seq + 1
	}
	return seq
}

// checkpoint takes a new checkpoint and schedules the next one
func (r *Rewind) checkpoint() {
	if r.unusable != nil {
		return
	}

	r.schedule(r.nextCheckpointTime(), r.checkpoint)

	now := r.clk.Now()
	if last := r.tl.Checkpoints.Last(); last != nil && last.Time >= now {
		return
	}

	blob, err := r.ser.Snapshot()
	if err != nil {
		logger.Logf(r, "rewind", "checkpoint skipped at %v: %v", now, curated.Errorf(SerializationFailure, err))
		return
	}

	_, err = r.tl.Checkpoints.Insert(r.sequence(now), now, r.tl.Events.Len(), blob)
	if err != nil {
		logger.Logf(r, "rewind", "checkpoint failed at %v: %v", now, r.fail(err))
		return
	}

	r.pruneRetention()
}

// fail checks the error for an internal consistency error, in which case the
// timeline is marked as unusable. the error is returned unchanged
func (r *Rewind) fail(err error) error {
	if curated.Has(err, InternalConsistencyError) && r.unusable == nil {
		r.unusable = err
		logger.Logf(logger.Allow, "rewind", "history can no longer be used: %v", err)
		r.notify(notifications.NotifyHistoryUnusable)
	}
	return err
}

// Usable returns false if history is not being collected or if an internal
// error has made the timeline unusable.
func (r *Rewind) Usable() bool {
	return r.state != Stopped && r.unusable == nil
}

// Record an input event. The event is logged and then delivered to the
// machine through the InputDistributor. The time must be the current time
// of the Clock so that the event is delivered at the same time during
// replay. Any other time is an OutOfOrderError.
//
// Events can not be recorded while replaying. Call StopReplay() first to
// start a new branch of history. If history is not being collected the event
// is delivered to the machine but not logged.
func (r *Rewind) Record(time vclock.Time, payload events.Payload) error {
	switch r.state {
	case Stopped:
		if payload == nil {
			return curated.Errorf("rewind: nil payload")
		}
		r.input.Dispatch(payload)
		return nil
	case Seeking, Replaying:
		return curated.Errorf(OutOfOrderError, fmt.Sprintf("cannot record while %s", r.state))
	}

	// live and replayed input must reach the machine at the same time
	if now := r.clk.Now(); time != now {
		return curated.Errorf(OutOfOrderError, fmt.Sprintf("%v is not the current time (%v)", time, now))
	}

	if _, err := r.tl.Events.Record(time, payload); err != nil {
		return err
	}
	r.input.Dispatch(payload)

	return nil
}

// GoTo moves the emulation to the target time. Targets later than the latest
// time in the history are clamped. Targets earlier than the earliest time
// fail with NoHistoryError and nothing is changed.
//
// If the emulation was live then the recording ends at the current time and
// the emulation will be replaying once GoTo() returns. It will return to live
// when the end of the recording is reached.
func (r *Rewind) GoTo(target vclock.Time) error {
	switch r.state {
	case Stopped:
		return curated.Errorf(NotCollecting)
	case Seeking:
		return curated.Errorf(Busy, r.state)
	}

	if r.unusable != nil {
		return r.unusable
	}

	cp, ok := r.tl.Checkpoints.FindAtOrBefore(min(target, r.LatestTime()))
	if !ok {
		return curated.Errorf(NoHistoryError, target)
	}

	if r.state == Live {
		r.tl.End = r.clk.Now()
	}

	return r.goTo(cp, min(target, r.LatestTime()))
}

// GoBack moves the emulation back by the number of ticks. If there is not
// enough history the emulation moves to the earliest point available.
func (r *Rewind) GoBack(ticks vclock.Time) error {
	if r.state == Stopped {
		return curated.Errorf(NotCollecting)
	}
	return r.GoTo(max(r.clk.Now().Sub(ticks), r.EarliestTime()))
}

func (r *Rewind) goTo(cp *checkpoints.Checkpoint, target vclock.Time) error {
	prev := r.state
	now := r.clk.Now()

	r.state = Seeking
	r.generation++

	// already replaying the timeline and seeking forward. the restore is not
	// required if no checkpoint is closer to the target than the current time
	if prev != Replaying || target < now || cp.Time > now {
		if err := r.restore(r.tl, cp); err != nil {
			r.resume(prev)
			return r.fail(err)
		}
	}

	r.state = Replaying
	r.replay()
	r.notify(notifications.NotifyReplaying)

	return r.catchUp(target)
}

// restore the machine to the checkpoint and prepare the event log for replay
func (r *Rewind) restore(tl *history.Timeline, cp *checkpoints.Checkpoint) error {
	if cp.EventCount < tl.Events.Base() || cp.EventCount > tl.Events.Len() {
		return curated.Errorf(InternalConsistencyError,
			fmt.Sprintf("checkpoint #%d refers to event %d which is not in the log", cp.Seq, cp.EventCount))
	}

	blob, err := tl.Checkpoints.Materialize(cp)
	if err != nil {
		return err
	}

	if err := r.ser.Restore(blob); err != nil {
		return curated.Errorf(SerializationFailure, err)
	}

	return tl.Events.StartReplay(cp.EventCount)
}

// resume the previous state after a failed seek
func (r *Rewind) resume(prev State) {
	r.state = prev
	r.generation++

	switch prev {
	case Live:
		r.checkpoint()
	case Replaying:
		r.replay()
	}
}

func (r *Rewind) catchUp(target vclock.Time) error {
	r.catchingUp = true
	defer func() {
		r.catchingUp = false
	}()

	if err := r.runner.CatchUpLoop(target); err != nil {
		return curated.Errorf("rewind: %v", err)
	}
	return nil
}

// replay schedules delivery of the next event in the log. when there are no
// more events the end of replay is scheduled for the end of the recording
func (r *Rewind) replay() {
	now := r.clk.Now()

	if e, ok := r.tl.Events.Peek(); ok {
		r.schedule(max(e.Time, now), r.replayEvents)
		return
	}

	r.schedule(max(r.tl.End, now), r.StopReplay)
}

// replayEvents delivers every event due at the current time
func (r *Rewind) replayEvents() {
	now := r.clk.Now()
	for {
		e, ok := r.tl.Events.Peek()
		if !ok || e.Time > now {
			break
		}
		r.tl.Events.ReplayNext()
		r.input.Dispatch(e.Payload)
	}
	r.replay()
}

// StopReplay returns the emulation to live immediately. The machine remains
// in the state reached by the replay.
//
// Any events not yet replayed and any checkpoints later than the current time
// are discarded. If anything is discarded the re-record count is increased.
// Does nothing if the emulation is not replaying.
func (r *Rewind) StopReplay() {
	if r.state != Replaying {
		return
	}

	now := r.clk.Now()
	discarded := false

	cursor := r.tl.Events.Cursor()
	r.tl.Events.StopReplay()
	if cursor < r.tl.Events.Len() {
		r.tl.Events.TruncateAfter(cursor)
		discarded = true
	}

	if last := r.tl.Checkpoints.Last(); last != nil && last.Time > now {
		if err := r.tl.Checkpoints.TruncateAfter(now); err != nil {
			logger.Log(r, "rewind", r.fail(err))
		}
		discarded = true
	}

	r.tl.End = now
	r.state = Live
	r.generation++

	if discarded {
		r.tl.ReRecordCount++
		logger.Logf(r, "rewind", "new branch at %v (re-record count %d)", now, r.tl.ReRecordCount)
		r.notify(notifications.NotifyNewBranch)
	}
	r.notify(notifications.NotifyLive)

	r.checkpoint()
}
