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

package prefs_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jetsetilly/rewinder/prefs"
	"github.com/jetsetilly/rewinder/test"
)

func tmpPrefsFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), prefs.DefaultPrefsFile)
}

func TestTypes(t *testing.T) {
	var b prefs.Bool
	test.ExpectEquality(t, b.String(), "false")
	test.ExpectSuccess(t, b.Set("TRUE"))
	test.ExpectEquality(t, b.Get(), prefs.Value(true))
	test.ExpectSuccess(t, b.Set("foo"))
	test.ExpectEquality(t, b.Get(), prefs.Value(false))
	test.ExpectFailure(t, b.Set(10))

	var i prefs.Int
	test.ExpectEquality(t, i.String(), "0")
	test.ExpectSuccess(t, i.Set(" 42 "))
	test.ExpectEquality(t, i.Get(), prefs.Value(42))
	test.ExpectSuccess(t, i.Set(int64(7)))
	test.ExpectEquality(t, i.String(), "7")
	test.ExpectFailure(t, i.Set("seven"))
	test.ExpectEquality(t, i.Get(), prefs.Value(7))

	var f prefs.Float
	test.ExpectEquality(t, f.String(), "0.000")
	test.ExpectSuccess(t, f.Set(2))
	test.ExpectEquality(t, f.Get(), prefs.Value(2.0))
	test.ExpectSuccess(t, f.Set("0.5"))
	test.ExpectEquality(t, f.String(), "0.500")

	var s prefs.String
	test.ExpectEquality(t, s.String(), "")
	test.ExpectSuccess(t, s.Set(99))
	test.ExpectEquality(t, s.String(), "99")
	test.ExpectSuccess(t, s.Reset())
	test.ExpectEquality(t, s.String(), "")
}

func TestHooks(t *testing.T) {
	var v prefs.Int
	var post int

	v.SetHookPre(func(nv prefs.Value) error {
		if nv.(int) < 0 {
			return errors.New("negative")
		}
		return nil
	})
	v.SetHookPost(func(nv prefs.Value) error {
		post = nv.(int)
		return nil
	})

	test.ExpectSuccess(t, v.Set(10))
	test.ExpectEquality(t, post, 10)

	// pre hook prevents the update
	test.ExpectFailure(t, v.Set(-1))
	test.ExpectEquality(t, v.Get(), prefs.Value(10))
	test.ExpectEquality(t, post, 10)
}

func TestDiskRoundTrip(t *testing.T) {
	fn := tmpPrefsFile(t)

	dsk, err := prefs.NewDisk(fn)
	test.DemandSuccess(t, err)

	var b prefs.Bool
	var i prefs.Int
	var f prefs.Float
	var s prefs.String
	test.DemandSuccess(t, dsk.Add("test.bool", &b))
	test.DemandSuccess(t, dsk.Add("test.int", &i))
	test.DemandSuccess(t, dsk.Add("test.sub.float", &f))
	test.DemandSuccess(t, dsk.Add("string", &s))

	// keys can only be added once
	test.ExpectFailure(t, dsk.Add("test.int", &i))
	test.ExpectFailure(t, dsk.Add("test..int", &i))

	test.ExpectSuccess(t, b.Set(true))
	test.ExpectSuccess(t, i.Set(100))
	test.ExpectSuccess(t, f.Set(1.25))
	test.ExpectSuccess(t, s.Set("hello world"))
	test.DemandSuccess(t, dsk.Save())

	data, err := os.ReadFile(fn)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.HasPrefix(string(data), prefs.WarningBoilerPlate))
	test.ExpectSuccess(t, strings.Contains(string(data), "[test]"))

	// load into a second disk instance
	dsk2, err := prefs.NewDisk(fn)
	test.DemandSuccess(t, err)

	var b2 prefs.Bool
	var i2 prefs.Int
	var f2 prefs.Float
	var s2 prefs.String
	test.DemandSuccess(t, dsk2.Add("test.bool", &b2))
	test.DemandSuccess(t, dsk2.Add("test.int", &i2))
	test.DemandSuccess(t, dsk2.Add("test.sub.float", &f2))
	test.DemandSuccess(t, dsk2.Add("string", &s2))
	test.DemandSuccess(t, dsk2.Load(false))

	test.ExpectEquality(t, b2.Get(), prefs.Value(true))
	test.ExpectEquality(t, i2.Get(), prefs.Value(100))
	test.ExpectEquality(t, f2.Get(), prefs.Value(1.25))
	test.ExpectEquality(t, s2.Get(), prefs.Value("hello world"))
	test.ExpectEquality(t, dsk2.String(), dsk.String())
}

func TestDiskSharedFile(t *testing.T) {
	fn := tmpPrefsFile(t)

	dskA, _ := prefs.NewDisk(fn)
	var a prefs.Int
	test.DemandSuccess(t, dskA.Add("alpha.value", &a))
	test.ExpectSuccess(t, a.Set(1))
	test.DemandSuccess(t, dskA.Save())

	dskB, _ := prefs.NewDisk(fn)
	var b prefs.Int
	test.DemandSuccess(t, dskB.Add("beta.value", &b))
	test.ExpectSuccess(t, b.Set(2))
	test.DemandSuccess(t, dskB.Save())

	// saving B did not remove the value saved by A
	var a2 prefs.Int
	dskA2, _ := prefs.NewDisk(fn)
	test.DemandSuccess(t, dskA2.Add("alpha.value", &a2))
	test.DemandSuccess(t, dskA2.Load(false))
	test.ExpectEquality(t, a2.Get(), prefs.Value(1))
}

func TestDiskFirstUse(t *testing.T) {
	fn := tmpPrefsFile(t)

	dsk, _ := prefs.NewDisk(fn)
	var v prefs.Int
	test.DemandSuccess(t, dsk.Add("test.value", &v))
	test.ExpectSuccess(t, v.Set(5))

	test.DemandSuccess(t, dsk.Load(false))
	_, err := os.Stat(fn)
	test.ExpectFailure(t, err == nil)

	test.DemandSuccess(t, dsk.Load(true))
	_, err = os.Stat(fn)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v.Get(), prefs.Value(5))
}

func TestDiskCommandLine(t *testing.T) {
	fn := tmpPrefsFile(t)

	dsk, _ := prefs.NewDisk(fn)
	var v prefs.Int
	var w prefs.Int
	test.DemandSuccess(t, dsk.Add("test.value", &v))
	test.DemandSuccess(t, dsk.Add("test.other", &w))
	test.ExpectSuccess(t, v.Set(5))
	test.ExpectSuccess(t, w.Set(6))
	test.DemandSuccess(t, dsk.Save())

	prefs.PushCommandLineStack("test.value::50; unused::true")
	test.DemandSuccess(t, dsk.Load(false))
	test.ExpectEquality(t, v.Get(), prefs.Value(50))
	test.ExpectEquality(t, w.Get(), prefs.Value(6))

	// the used value has been removed from the group
	test.ExpectEquality(t, prefs.PopCommandLineStack(), "unused::true")
}
