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

// Package events records the non-deterministic input that arrives at the
// emulated machine. Every input is stored as an InputEvent with the virtual
// time it arrived at. The Log is append-only while recording and is read back
// with a cursor while replaying.
//
// Payloads are a closed set of types, one for each category of input device.
// The Payload interface is sealed so the set can only be extended in this
// package. Code that consumes payloads should use a type switch over the
// concrete types with a panic in the default case, so that a new payload type
// is noticed as soon as it is used.
package events
