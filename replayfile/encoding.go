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
	"bytes"
	"encoding/binary"
	"io"
)

// encoder writes big-endian values. the first error is kept and all
// subsequent writes are ignored.
type encoder struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) u8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *encoder) u16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[:], v)
	e.write(e.buf[:2])
}

func (e *encoder) u32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:], v)
	e.write(e.buf[:4])
}

func (e *encoder) u64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:], v)
	e.write(e.buf[:8])
}

// decoder reads big-endian values. the first error is kept and subsequent
// reads return zero values.
type decoder struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return d.buf[:n]
	}
	_, d.err = io.ReadFull(d.r, d.buf[:n])
	if d.err == io.EOF {
		d.err = io.ErrUnexpectedEOF
	}
	return d.buf[:n]
}

func (d *decoder) u8() uint8 {
	return d.read(1)[0]
}

func (d *decoder) u16() uint16 {
	return binary.BigEndian.Uint16(d.read(2))
}

func (d *decoder) u32() uint32 {
	return binary.BigEndian.Uint32(d.read(4))
}

func (d *decoder) u64() uint64 {
	return binary.BigEndian.Uint64(d.read(8))
}

// bytes reads n bytes. the buffer grows as data arrives so a corrupt length
// field does not cause a huge allocation before the truncation is noticed.
func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	var b bytes.Buffer
	c, err := io.CopyN(&b, d.r, int64(n))
	if err != nil {
		if err == io.EOF || c < int64(n) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return nil
	}
	if b.Len() == 0 {
		return []byte{}
	}
	return b.Bytes()
}
