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

package notifications

// Notice describes a change to the rewind history or to the way the
// emulation is being driven.
type Notice string

// List of defined notifications.
const (
	// collection of history has started or stopped
	NotifyRewindStarted Notice = "NotifyRewindStarted"
	NotifyRewindStopped Notice = "NotifyRewindStopped"

	// the emulation is replaying recorded input. sent at the end of every
	// successful seek
	NotifyReplaying Notice = "NotifyReplaying"

	// replay has finished and the emulation is live again
	NotifyLive Notice = "NotifyLive"

	// stopping a replay discarded history and started a new branch
	NotifyNewBranch Notice = "NotifyNewBranch"

	// a replay file has replaced the history
	NotifyReplayLoaded Notice = "NotifyReplayLoaded"

	// an internal error means history can no longer be used. collection must
	// be restarted
	NotifyHistoryUnusable Notice = "NotifyHistoryUnusable"
)

// Notify is implemented by anything that wants to receive notices. Errors are
// logged by the sender but otherwise ignored.
type Notify interface {
	Notify(notice Notice) error
}
