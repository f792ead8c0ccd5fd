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
	"bufio"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/history"
)

// Save writes the timeline to the io.Writer. Checkpoints are materialized and
// written as full blobs.
//
// The timeline is not modified. An error is returned if a checkpoint can not
// be materialized or if a blob does not match the machine shape.
func Save(w io.Writer, tl *history.Timeline, shape Shape) error {
	if len(shape.Tag) > maxTagLength {
		return curated.Errorf("replayfile: shape tag too long (%d bytes)", len(shape.Tag))
	}

	bw := bufio.NewWriter(w)
	digest := xxhash.New()
	enc := &encoder{w: io.MultiWriter(bw, digest)}

	enc.write([]byte(magic))
	enc.u16(formatVersion)
	enc.u16(uint16(len(shape.Tag)))
	enc.write([]byte(shape.Tag))
	enc.u32(uint32(shape.StateSize))
	enc.write(tl.Session[:])
	enc.u32(uint32(tl.ReRecordCount))
	enc.u64(uint64(tl.Latest()))

	// events are written from the earliest remaining event. checkpoint event
	// counts are adjusted accordingly
	base := tl.Events.Base()

	enc.u32(uint32(tl.Events.Len() - base))
	for _, e := range tl.Events.All() {
		p, err := e.Payload.MarshalBinary()
		if err != nil {
			return curated.Errorf("replayfile: %v", err)
		}
		if len(p) > 0xffff {
			return curated.Errorf("replayfile: %s payload too long (%d bytes)", e.Payload.Kind(), len(p))
		}
		enc.u64(uint64(e.Time))
		enc.u8(uint8(e.Payload.Kind()))
		enc.u16(uint16(len(p)))
		enc.write(p)
	}

	enc.u32(uint32(tl.Checkpoints.Len()))
	for cp := range tl.Checkpoints.All() {
		blob, err := tl.Checkpoints.Materialize(cp)
		if err != nil {
			return curated.Errorf("replayfile: %v", err)
		}
		if shape.StateSize > 0 && len(blob) != shape.StateSize {
			return curated.Errorf("replayfile: checkpoint #%d is %d bytes but the machine state is %d bytes", cp.Seq, len(blob), shape.StateSize)
		}
		if len(blob) > maxBlobLength {
			return curated.Errorf("replayfile: checkpoint #%d is too large (%d bytes)", cp.Seq, len(blob))
		}
		enc.u64(uint64(cp.Time))
		enc.u32(uint32(cp.Seq))
		enc.u32(uint32(cp.EventCount - base))
		enc.u32(uint32(len(blob)))
		enc.write(blob)
	}

	if enc.err != nil {
		return curated.Errorf("replayfile: %v", enc.err)
	}

	// the trailer is not part of its own digest
	enc.w = bw
	enc.u64(digest.Sum64())
	if enc.err != nil {
		return curated.Errorf("replayfile: %v", enc.err)
	}

	if err := bw.Flush(); err != nil {
		return curated.Errorf("replayfile: %v", err)
	}

	return nil
}
