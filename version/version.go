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

// Package version reports the version of the program. The version number is
// set at link time:
//
//	go build -ldflags "-X github.com/jetsetilly/rewinder/version.number=v0.1.0"
//
// Otherwise the version is taken from the build information embedded by the
// Go toolchain.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// ApplicationName is the name to use when referring to the application.
const ApplicationName = "Rewinder"

// set by the linker
var number string

var (
	once     sync.Once
	version  string
	revision string
)

func initialise() {
	version = number
	revision = "no revision information"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		if version == "" {
			version = "local"
		}
		return
	}

	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if modified {
		revision = fmt.Sprintf("%s+dirty", revision)
	}

	if version == "" {
		switch info.Main.Version {
		case "", "(devel)":
			version = "unreleased"
		default:
			version = info.Main.Version
		}
	}
}

// Version returns the version string, the revision string and whether this
// is a numbered release.
func Version() (string, string, bool) {
	once.Do(initialise)
	return version, revision, number != "" && version == number
}

// String returns the application name and the version in a form suitable for
// display.
func String() string {
	v, r, release := Version()
	if release {
		return fmt.Sprintf("%s %s", ApplicationName, v)
	}
	return fmt.Sprintf("%s %s (%s)", ApplicationName, v, r)
}
