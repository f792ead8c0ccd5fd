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
	"fmt"

	"github.com/jetsetilly/rewinder/checkpoints"
	"github.com/jetsetilly/rewinder/curated"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/prefs"
)

// Preferences for the rewind system. Changes take effect immediately.
type Preferences struct {
	r   *Rewind
	dsk *prefs.Disk

	// the number of seconds between checkpoints
	CheckpointInterval prefs.Float

	// retention policy. see the retained() function for details. a
	// MaxCheckpoints value of zero means there is no limit
	DenseWindow    prefs.Int
	DecayFactor    prefs.Int
	MaxCheckpoints prefs.Int

	// delta encoding of checkpoints
	RegionSize      prefs.Int
	KeyframeSpacing prefs.Int

	// suppress logging while the emulation is catching up to a seek target
	QuietCatchUp prefs.Bool
}

func (p *Preferences) String() string {
	if p.dsk == nil {
		return ""
	}
	return p.dsk.String()
}

// default values
const (
	checkpointInterval = 1.0
	denseWindow        = 25
	decayFactor        = 2
	maxCheckpoints     = 500
)

func atLeast(n int) func(prefs.Value) error {
	return func(v prefs.Value) error {
		if v.(int) < n {
			return fmt.Errorf("value must be at least %d", n)
		}
		return nil
	}
}

// newPreferences is the preferred method of initialisation for the Preferences type.
func newPreferences(r *Rewind) *Preferences {
	p := &Preferences{r: r}

	_ = p.CheckpointInterval.Set(checkpointInterval)
	_ = p.DenseWindow.Set(denseWindow)
	_ = p.DecayFactor.Set(decayFactor)
	_ = p.MaxCheckpoints.Set(maxCheckpoints)
	_ = p.RegionSize.Set(delta.DefaultRegionSize)
	_ = p.KeyframeSpacing.Set(checkpoints.DefaultKeyframeSpacing)
	_ = p.QuietCatchUp.Set(true)

	p.CheckpointInterval.SetHookPre(func(v prefs.Value) error {
		if v.(float64) <= 0 {
			return fmt.Errorf("checkpoint interval must be positive")
		}
		return nil
	})
	p.DenseWindow.SetHookPre(atLeast(1))
	p.DecayFactor.SetHookPre(atLeast(2))
	p.MaxCheckpoints.SetHookPre(atLeast(0))
	p.RegionSize.SetHookPre(atLeast(1))
	p.KeyframeSpacing.SetHookPre(atLeast(1))

	prune := func(_ prefs.Value) error {
		if r.tl != nil {
			r.pruneRetention()
		}
		return nil
	}
	p.DenseWindow.SetHookPost(prune)
	p.DecayFactor.SetHookPost(prune)
	p.MaxCheckpoints.SetHookPost(prune)

	p.RegionSize.SetHookPost(func(v prefs.Value) error {
		if r.tl != nil {
			r.tl.Checkpoints.Store().SetRegionSize(v.(int))
		}
		return nil
	})
	p.KeyframeSpacing.SetHookPost(func(v prefs.Value) error {
		if r.tl != nil {
			r.tl.Checkpoints.SetKeyframeSpacing(v.(int))
		}
		return nil
	})

	return p
}

// UseFile connects the preferences to the preferences file. Values in the
// file are loaded immediately. The file is created if it does not exist.
func (p *Preferences) UseFile(pth string) error {
	var err error

	p.dsk, err = prefs.NewDisk(pth)
	if err != nil {
		return err
	}

	err = p.dsk.Add("rewind.checkpointInterval", &p.CheckpointInterval)
	if err != nil {
		return err
	}
	err = p.dsk.Add("rewind.denseWindow", &p.DenseWindow)
	if err != nil {
		return err
	}
	err = p.dsk.Add("rewind.decayFactor", &p.DecayFactor)
	if err != nil {
		return err
	}
	err = p.dsk.Add("rewind.maxCheckpoints", &p.MaxCheckpoints)
	if err != nil {
		return err
	}
	err = p.dsk.Add("rewind.regionSize", &p.RegionSize)
	if err != nil {
		return err
	}
	err = p.dsk.Add("rewind.keyframeSpacing", &p.KeyframeSpacing)
	if err != nil {
		return err
	}
	err = p.dsk.Add("rewind.quietCatchUp", &p.QuietCatchUp)
	if err != nil {
		return err
	}

	return p.dsk.Load(true)
}

// Load rewind preferences from the preferences file.
func (p *Preferences) Load() error {
	if p.dsk == nil {
		return curated.Errorf("rewind: preferences are not connected to a file")
	}
	return p.dsk.Load(false)
}

// Save current rewind preferences to the preferences file.
func (p *Preferences) Save() error {
	if p.dsk == nil {
		return curated.Errorf("rewind: preferences are not connected to a file")
	}
	return p.dsk.Save()
}
