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
	"fmt"
	"maps"
	"slices"
	"strings"
)

// each group on the stack is the set of preferences from one command line.
// preferences are removed from the group as they are used.
var commandLineStack []map[string]Value

// SizeCommandLineStack returns the number of groups that have been added with
// PushCommandLineStack().
func SizeCommandLineStack() int {
	return len(commandLineStack)
}

// PushCommandLineStack parses a preferences string and adds it as a new group.
// The string is a list of key/value pairs separated by semi-colons. Keys and
// values are separated by a double colon:
//
//	rewind.denseWindow::20; rewind.maxCheckpoints::500
//
// Badly formed pairs are ignored.
func PushCommandLineStack(prefs string) {
	group := make(map[string]Value)

	for _, p := range strings.Split(prefs, ";") {
		k, v, ok := strings.Cut(p, "::")
		if !ok || strings.Contains(v, "::") {
			continue
		}
		group[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	commandLineStack = append(commandLineStack, group)
}

// PopCommandLineStack forgets the most recent group added by
// PushCommandLineStack().
//
// Returns the unused preferences of the group in the same format as accepted
// by PushCommandLineStack(), sorted by key.
func PopCommandLineStack() string {
	if len(commandLineStack) == 0 {
		return ""
	}

	popped := commandLineStack[len(commandLineStack)-1]
	commandLineStack = commandLineStack[:len(commandLineStack)-1]

	s := make([]string, 0, len(popped))
	for _, key := range slices.Sorted(maps.Keys(popped)) {
		s = append(s, fmt.Sprintf("%s::%v", key, popped[key]))
	}

	return strings.Join(s, "; ")
}

// GetCommandLinePref value from current group. The value is deleted when it is
// returned.
func GetCommandLinePref(key string) (bool, Value) {
	if len(commandLineStack) == 0 {
		return false, nil
	}

	group := commandLineStack[len(commandLineStack)-1]
	if v, ok := group[key]; ok {
		delete(group, key)
		return true, v
	}

	return false, nil
}
