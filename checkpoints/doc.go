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

// Package checkpoints keeps the machine state snapshots of a timeline.
//
// A checkpoint is either full, in which case it holds the entire state blob,
// or it is a delta, in which case it holds a segment set that is applied to
// the blob of the most recent full checkpoint before it (its base). Deltas are
// never based on other deltas so the chain is never more than one step long.
//
// Removing a full checkpoint that is the base of other checkpoints causes
// the earliest of those to be promoted to a full checkpoint. The remaining
// dependents are re-based onto the promoted checkpoint. In this way, every
// checkpoint in the table can always be materialized.
package checkpoints
