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

package replayfile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jetsetilly/rewinder/vclock"
)

// CorruptFileError is returned by Load() when the replay file is malformed,
// truncated or was made by an incompatible machine.
const CorruptFileError = "replayfile: corrupt file: %v"

// Extension is the conventional file extension for replay files.
const Extension = ".rpl"

const magic = "RWNDRPLY"

const formatVersion uint16 = 1

// upper limits on values read from a file. protects against allocating huge
// amounts of memory for a corrupt file
const (
	maxTagLength  = 0x400
	maxBlobLength = 1 << 30
)

// Shape describes the layout of the machine state blobs. A replay file can
// only be loaded by a machine with the same shape.
type Shape struct {
	// Tag identifies the machine type and the version of its serializer
	Tag string

	// the size of every state blob. zero if the size can vary
	StateSize int
}

func (s Shape) String() string {
	if s.StateSize == 0 {
		return s.Tag
	}
	return fmt.Sprintf("%s (%d bytes)", s.Tag, s.StateSize)
}

// compatible returns an error string if the file shape does not match the
// expected shape. an expected shape with an empty tag accepts any file.
func (s Shape) compatible(file Shape) string {
	if s.Tag == "" {
		return ""
	}
	if s.Tag != file.Tag {
		return fmt.Sprintf("machine shape %q does not match %q", file.Tag, s.Tag)
	}
	if s.StateSize != file.StateSize {
		return fmt.Sprintf("state size %d does not match %d", file.StateSize, s.StateSize)
	}
	return ""
}

// header is the first part of a replay file.
type header struct {
	version       uint16
	shape         Shape
	session       uuid.UUID
	reRecordCount int
	end           vclock.Time
}
