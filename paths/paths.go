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

package paths

import (
	"os"
	"path/filepath"
)

// the base path for all resources in the current directory
const baseResourcePath = ".rewinder"

// ReplayDir is the sub-path for replay files.
const ReplayDir = "replays"

// ResourcePath returns the path to the file in the sub-path of the resource
// directory. The sub-path is created if necessary. Either argument can be
// empty.
func ResourcePath(subPth string, file string) (string, error) {
	pth, err := getBasePath(subPth)
	if err != nil {
		return "", err
	}
	return filepath.Join(pth, file), nil
}

// getBasePath returns the path to the sub-path, preferring the base resource
// path in the current directory to the one in the user's config directory.
func getBasePath(subPth string) (string, error) {
	base := baseResourcePath

	if _, err := os.Stat(baseResourcePath); err != nil {
		cnf, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(cnf, baseResourcePath[1:])
	}

	pth := filepath.Join(base, subPth)
	if err := os.MkdirAll(pth, 0o700); err != nil {
		return "", err
	}

	return pth, nil
}
