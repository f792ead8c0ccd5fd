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

package rewind

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/logger"
	"github.com/jetsetilly/rewinder/notifications"
	"github.com/jetsetilly/rewinder/paths"
	"github.com/jetsetilly/rewinder/replayfile"
	"github.com/jetsetilly/rewinder/vclock"
)

// Save writes the entire history to the writer in the replay file format.
func (r *Rewind) Save(w io.Writer) error {
	switch r.state {
	case Stopped:
		return curated.Errorf(NotCollecting)
	case Seeking:
		return curated.Errorf(Busy, r.state)
	}

	if r.unusable != nil {
		return r.unusable
	}
	if r.tl.Empty() {
		return curated.Errorf(NoHistoryError, r.clk.Now())
	}

	if r.state == Live {
		r.tl.End = r.clk.Now()
	}

	return replayfile.Save(w, r.tl, r.shape)
}

// Load replaces the history with the history read from the reader. The
// existing history is only discarded if the new history is loaded
// successfully. Collection of history is started if necessary.
//
// Once loaded, the machine is at the earliest point of the new history and
// is replaying.
func (r *Rewind) Load(rd io.Reader) error {
	if r.state == Seeking {
		return curated.Errorf(Busy, r.state)
	}

	tl, err := replayfile.Load(rd, r.shape, replayfile.Options{
		RegionSize:      r.Prefs.RegionSize.Get().(int),
		KeyframeSpacing: r.Prefs.KeyframeSpacing.Get().(int),
	})
	if err != nil {
		return err
	}

	cp := tl.Checkpoints.First()
	if cp == nil {
		_ = tl.Release()
		return curated.Errorf(CorruptFileError, "no checkpoints")
	}

	// the machine is restored before the old timeline is discarded. if the
	// restore fails then nothing has changed
	if err := r.restore(tl, cp); err != nil {
		_ = tl.Release()
		return err
	}

	if r.tl != nil {
		if err := r.tl.Release(); err != nil {
			logger.Log(r, "rewind", err)
		}
	}

	r.tl = tl
	r.unusable = nil
	r.comparison = comparison{}
	r.origin = cp.Time.Sub(r.interval() * vclock.Time(cp.Seq))
	r.state = Replaying
	r.generation++

	logger.Logf(r, "rewind", "loaded %s", r.tl)
	r.notify(notifications.NotifyReplayLoaded)

	r.replay()

	return r.catchUp(cp.Time)
}

// replayPath returns the path of the replay file. names without a directory
// are placed in the replay directory and the replay extension is added if
// there is no extension.
func replayPath(name string) (string, error) {
	if filepath.Ext(name) == "" {
		name += replayfile.Extension
	}
	if filepath.Base(name) != name {
		return name, nil
	}
	return paths.ResourcePath(paths.ReplayDir, name)
}

// SaveReplayFile saves the history to the named file. If the name is empty a
// unique name is created. Returns the path of the saved file.
func (r *Rewind) SaveReplayFile(name string) (string, error) {
	if name == "" {
		name = paths.UniqueFilename("replay", "")
	}

	pth, err := replayPath(name)
	if err != nil {
		return "", curated.Errorf("rewind: %v", err)
	}

	f, err := os.Create(pth)
	if err != nil {
		return "", curated.Errorf("rewind: %v", err)
	}

	err = r.Save(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = curated.Errorf("rewind: %v", cerr)
	}
	if err != nil {
		_ = os.Remove(pth)
		return "", err
	}

	logger.Logf(r, "rewind", "saved replay to %s", pth)

	return pth, nil
}

// LoadReplayFile loads history from the named file. See Load() for details.
func (r *Rewind) LoadReplayFile(name string) error {
	pth, err := replayPath(name)
	if err != nil {
		return curated.Errorf("rewind: %v", err)
	}

	f, err := os.Open(pth)
	if err != nil {
		return curated.Errorf("rewind: %v", err)
	}
	defer f.Close()

	return r.Load(f)
}
