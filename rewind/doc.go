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


// Package rewind records the history of an emulation so that it can be
// returned to any earlier point in time.
//
// History is made up of periodic checkpoints of the entire machine state and
// a log of every input event. A point in time is reconstructed by restoring
// the nearest checkpoint at or before that time and replaying the logged
// events forward. The emulation itself is driven by the Runner.
//
// The Rewind type is a state machine with four states. Stopped until Start()
// is called, Live while the emulation is running normally and history is
// being collected, Seeking during a call to GoTo() and Replaying while logged
// events are being fed back into the machine. Replay returns to Live
// automatically when the end of the recording is reached, or immediately
// with a call to StopReplay(). Stopping replay part way through the recording
// creates a new branch of history and discards the old one.
//
// Everything happens on the emulation thread. The package is not safe for
// concurrent use.
package rewind
