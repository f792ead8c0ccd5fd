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
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/jetsetilly/rewinder/checkpoints"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/history"
	"github.com/jetsetilly/rewinder/vclock"
)

// Options for the Timeline created by Load().
type Options struct {
	RegionSize      int
	KeyframeSpacing int
}

// DefaultOptions are used by Inspect() and can be used by callers that have no
// preference.
var DefaultOptions = Options{
	RegionSize:      delta.DefaultRegionSize,
	KeyframeSpacing: checkpoints.DefaultKeyframeSpacing,
}

func corrupt(detail any) error {
	return curated.Errorf(CorruptFileError, detail)
}

func readHeader(dec *decoder) (header, error) {
	var hdr header

	m := dec.bytes(len(magic))
	if dec.err != nil {
		return hdr, corrupt(dec.err)
	}
	if string(m) != magic {
		return hdr, corrupt("not a replay file")
	}

	hdr.version = dec.u16()
	if dec.err == nil && hdr.version != formatVersion {
		return hdr, corrupt(fmt.Sprintf("unsupported format version (%d)", hdr.version))
	}

	n := int(dec.u16())
	if n > maxTagLength {
		return hdr, corrupt(fmt.Sprintf("shape tag too long (%d bytes)", n))
	}
	hdr.shape.Tag = string(dec.bytes(n))
	hdr.shape.StateSize = int(dec.u32())

	copy(hdr.session[:], dec.bytes(len(uuid.UUID{})))
	hdr.reRecordCount = int(dec.u32())
	hdr.end = vclock.Time(dec.u64())

	if dec.err != nil {
		return hdr, corrupt(dec.err)
	}

	return hdr, nil
}

// Load reads a replay file and creates a new Timeline from it. The file must
// have been created for a machine with the expected shape. An expected shape
// with an empty Tag accepts files of any shape.
//
// Nothing is shared between the new Timeline and any other Timeline. If an
// error is returned, no Timeline is returned.
func Load(r io.Reader, expected Shape, opts Options) (*history.Timeline, error) {
	tl, _, err := load(r, expected, opts)
	return tl, err
}

func load(r io.Reader, expected Shape, opts Options) (*history.Timeline, header, error) {
	digest := xxhash.New()
	br := bufio.NewReader(r)
	dec := &decoder{r: io.TeeReader(br, digest)}

	hdr, err := readHeader(dec)
	if err != nil {
		return nil, hdr, err
	}
	if s := expected.compatible(hdr.shape); s != "" {
		return nil, hdr, corrupt(s)
	}

	tl := history.New(opts.RegionSize, opts.KeyframeSpacing)
	tl.Session = hdr.session
	tl.ReRecordCount = hdr.reRecordCount

	// release the partially built timeline on error. it has not been seen by
	// anyone else
	fail := func(err error) (*history.Timeline, header, error) {
		_ = tl.Release()
		return nil, hdr, err
	}

	numEvents := int(dec.u32())
	for i := 0; i < numEvents && dec.err == nil; i++ {
		t := vclock.Time(dec.u64())
		kind := events.Kind(dec.u8())
		data := dec.bytes(int(dec.u16()))
		if dec.err != nil {
			break
		}

		p, err := events.Unmarshal(kind, data)
		if err != nil {
			return fail(corrupt(fmt.Sprintf("event %d: %v", i, err)))
		}
		if _, err := tl.Events.Record(t, p); err != nil {
			return fail(corrupt(fmt.Sprintf("event %d: %v", i, err)))
		}
	}
	if dec.err != nil {
		return fail(corrupt(dec.err))
	}

	numCheckpoints := int(dec.u32())
	for i := 0; i < numCheckpoints && dec.err == nil; i++ {
		t := vclock.Time(dec.u64())
		seq := int(dec.u32())
		eventCount := int(dec.u32())
		size := int(dec.u32())
		if dec.err != nil {
			break
		}

		if size > maxBlobLength {
			return fail(corrupt(fmt.Sprintf("checkpoint %d: blob too large (%d bytes)", i, size)))
		}
		if hdr.shape.StateSize > 0 && size != hdr.shape.StateSize {
			return fail(corrupt(fmt.Sprintf("checkpoint %d: blob is %d bytes but the machine state is %d bytes", i, size, hdr.shape.StateSize)))
		}
		if eventCount > numEvents {
			return fail(corrupt(fmt.Sprintf("checkpoint %d: refers to event %d of %d", i, eventCount, numEvents)))
		}

		blob := dec.bytes(size)
		if dec.err != nil {
			break
		}

		if _, err := tl.Checkpoints.Insert(seq, t, eventCount, blob); err != nil {
			return fail(corrupt(fmt.Sprintf("checkpoint %d: %v", i, err)))
		}
	}
	if dec.err != nil {
		return fail(corrupt(dec.err))
	}

	// the trailer is read directly and not through the digest
	sum := digest.Sum64()
	trailer := &decoder{r: br}
	if v := trailer.u64(); trailer.err != nil {
		return fail(corrupt(trailer.err))
	} else if v != sum {
		return fail(corrupt("checksum mismatch"))
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return fail(corrupt("unexpected data after trailer"))
	}

	tl.End = hdr.end
	if tl.Latest() != hdr.end {
		return fail(corrupt(fmt.Sprintf("recording extends beyond end time %v", hdr.end)))
	}

	// the checksum only shows that the file is as it was written. checkpoints
	// must also agree with the events they include
	if err := tl.Verify(); err != nil {
		return fail(corrupt(err))
	}

	return tl, hdr, nil
}

// Info summarises the contents of a replay file.
type Info struct {
	Version       int
	Shape         Shape
	Session       uuid.UUID
	ReRecordCount int
	Events        int
	Checkpoints   int
	Start         vclock.Time
	End           vclock.Time
}

func (inf Info) String() string {
	return fmt.Sprintf("session %s (v%d, %s): %d events, %d checkpoints, %v to %v, %d re-records",
		inf.Session, inf.Version, inf.Shape, inf.Events, inf.Checkpoints, inf.Start, inf.End, inf.ReRecordCount)
}

// Inspect reads the entire replay file, checking it for corruption, and
// returns a summary of its contents. Files of any machine shape are accepted.
func Inspect(r io.Reader) (Info, error) {
	var inf Info

	tl, hdr, err := load(r, Shape{}, DefaultOptions)
	if err != nil {
		return inf, err
	}
	defer tl.Release()

	inf.Version = int(hdr.version)
	inf.Shape = hdr.shape
	inf.Session = tl.Session
	inf.ReRecordCount = tl.ReRecordCount
	inf.Events = tl.Events.Len()
	inf.Checkpoints = tl.Checkpoints.Len()
	inf.Start, _ = tl.Earliest()
	inf.End = tl.End

	return inf, nil
}
