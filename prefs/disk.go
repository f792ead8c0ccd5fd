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

package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jetsetilly/rewinder/curated"
)

// DefaultPrefsFile is the default filename of the global preferences file.
const DefaultPrefsFile = "preferences.toml"

// WarningBoilerPlate is written to the head of every preferences file.
const WarningBoilerPlate = "# rewinder preferences. values not recognised by the program are kept"

// Disk represents preference values as stored on disk. More than one Disk
// instance can share the same file. Each instance only updates the keys that
// have been added to it and keeps all other keys in the file intact.
//
// Keys are dot separated. The part before the final dot is the TOML table the
// value is stored in. For example, "rewind.denseWindow" is stored as the
// denseWindow key in the [rewind] table.
type Disk struct {
	path    string
	entries map[string]pref
}

// NewDisk is the preferred method of initialisation for the Disk type.
func NewDisk(path string) (*Disk, error) {
	return &Disk{
		path:    path,
		entries: make(map[string]pref),
	}, nil
}

func (dsk *Disk) keys() []string {
	k := make([]string, 0, len(dsk.entries))
	for key := range dsk.entries {
		k = append(k, key)
	}
	slices.Sort(k)
	return k
}

func (dsk *Disk) String() string {
	s := strings.Builder{}
	for _, key := range dsk.keys() {
		s.WriteString(fmt.Sprintf("%s :: %s\n", key, dsk.entries[key]))
	}
	return s.String()
}

// Add preference value to list of values to store/load from Disk. The key
// value is used to identify the value in the file.
func (dsk *Disk) Add(key string, p pref) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return curated.Errorf("prefs: illegal key %q", key)
	}
	if _, ok := dsk.entries[key]; ok {
		return curated.Errorf("prefs: key %q already added", key)
	}
	if isDefunct(key) {
		return curated.Errorf("prefs: key %q is defunct", key)
	}
	dsk.entries[key] = p
	return nil
}

// Reset all entries to their zero values.
func (dsk *Disk) Reset() error {
	for _, key := range dsk.keys() {
		if err := dsk.entries[key].Reset(); err != nil {
			return curated.Errorf("prefs: %v", err)
		}
	}
	return nil
}

// read the preferences file into a flat map of dot separated keys. a missing
// file is not an error and results in an empty map.
func (dsk *Disk) read() (map[string]Value, error) {
	flat := make(map[string]Value)

	var tree map[string]any
	_, err := toml.DecodeFile(dsk.path, &tree)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return flat, nil
		}
		return nil, err
	}

	flatten("", tree, flat)

	for key := range flat {
		if isDefunct(key) {
			delete(flat, key)
		}
	}

	return flat, nil
}

// Save current preference values to disk.
func (dsk *Disk) Save() error {
	flat, err := dsk.read()
	if err != nil {
		return curated.Errorf("prefs: %v", err)
	}

	for key, p := range dsk.entries {
		flat[key] = p.Get()
	}

	tree, err := unflatten(flat)
	if err != nil {
		return curated.Errorf("prefs: %v", err)
	}

	var b bytes.Buffer
	b.WriteString(WarningBoilerPlate)
	b.WriteString("\n\n")
	if err := toml.NewEncoder(&b).Encode(tree); err != nil {
		return curated.Errorf("prefs: %v", err)
	}

	if err := os.WriteFile(dsk.path, b.Bytes(), 0o600); err != nil {
		return curated.Errorf("prefs: %v", err)
	}

	return nil
}

// Load preference values from disk. If the file does not exist and
// saveOnFirstUse is true then the current values are saved to a new file.
//
// Values on the command line stack (see PushCommandLineStack()) take priority
// over the values on disk.
func (dsk *Disk) Load(saveOnFirstUse bool) error {
	if _, err := os.Stat(dsk.path); errors.Is(err, fs.ErrNotExist) && saveOnFirstUse {
		if err := dsk.Save(); err != nil {
			return err
		}
	}

	flat, err := dsk.read()
	if err != nil {
		return curated.Errorf("prefs: %v", err)
	}

	for _, key := range dsk.keys() {
		v, ok := flat[key]
		if clok, clv := GetCommandLinePref(key); clok {
			v = clv
			ok = true
		}
		if !ok {
			continue
		}
		if err := dsk.entries[key].Set(v); err != nil {
			return curated.Errorf("prefs: %s: %v", key, err)
		}
	}

	return nil
}

func flatten(prefix string, tree map[string]any, flat map[string]Value) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = fmt.Sprintf("%s.%s", prefix, k)
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, flat)
		} else {
			flat[key] = v
		}
	}
}

func unflatten(flat map[string]Value) (map[string]any, error) {
	tree := make(map[string]any)

	for key, v := range flat {
		parts := strings.Split(key, ".")

		m := tree
		for _, p := range parts[:len(parts)-1] {
			sub, ok := m[p]
			if !ok {
				n := make(map[string]any)
				m[p] = n
				m = n
				continue
			}
			if m, ok = sub.(map[string]any); !ok {
				return nil, fmt.Errorf("key %q is both a value and a table", key)
			}
		}

		last := parts[len(parts)-1]
		if _, ok := m[last].(map[string]any); ok {
			return nil, fmt.Errorf("key %q is both a value and a table", key)
		}
		m[last] = v
	}

	return tree, nil
}
