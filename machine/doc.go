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


// Package machine is a small deterministic machine that can be driven by the
// rewind package. It is used by the rewinder tool to demonstrate the rewind
// system and by tests to check that replay is deterministic.
//
// The machine has a handful of registers and a block of RAM. The machine
// steps at a regular interval and each step changes a few bytes of RAM in a
// way that depends on the registers and on the input that has been delivered
// to the machine. Two machines that are given the same input at the same
// times will always be in the same state.
//
// The machine state is brought up to date lazily, whenever input is delivered
// or the state is requested. This means that the order in which the machine
// steps and input is delivered never depends on the order of scheduler
// callbacks registered for the same instant.
package machine
