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

package curated_test

import (
	"errors"
	"io"
	"testing"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/test"
)

const testPattern = "test error: %v"
const otherPattern = "other error: %v"

func TestIs(t *testing.T) {
	e := curated.Errorf(testPattern, 10)
	test.ExpectSuccess(t, curated.IsAny(e))
	test.ExpectSuccess(t, curated.Is(e, testPattern))
	test.ExpectFailure(t, curated.Is(e, otherPattern))

	f := curated.Errorf(otherPattern, e)
	test.ExpectFailure(t, curated.Is(f, testPattern))
	test.ExpectSuccess(t, curated.Has(f, testPattern))
	test.ExpectSuccess(t, curated.Has(f, otherPattern))

	test.ExpectFailure(t, curated.IsAny(nil))
	test.ExpectFailure(t, curated.IsAny(errors.New("plain")))
	test.ExpectFailure(t, curated.Has(errors.New("plain"), testPattern))
}

func TestDuplicateParts(t *testing.T) {
	e := curated.Errorf("rewind: %v", curated.Errorf("rewind: no history"))
	test.ExpectEquality(t, e.Error(), "rewind: no history")

	e = curated.Errorf("a: %v", curated.Errorf("b: %v", curated.Errorf("b: c")))
	test.ExpectEquality(t, e.Error(), "a: b: c")
}

func TestUnwrap(t *testing.T) {
	e := curated.Errorf("replayfile: %v", io.ErrUnexpectedEOF)
	test.ExpectSuccess(t, errors.Is(e, io.ErrUnexpectedEOF))

	f := curated.Errorf("outer: %v", e)
	test.ExpectSuccess(t, errors.Is(f, io.ErrUnexpectedEOF))
}
