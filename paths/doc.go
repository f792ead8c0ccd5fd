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


// Package paths contains functions to prepare paths to rewinder resources.
//
// The ResourcePath() function joins the supplied sub-path and file name to the
// appropriate config directory. For example, the following will return the
// path to a saved replay.
//
//	d, err := paths.ResourcePath(paths.ReplayDir, "session.rpl")
//
// If the base resource directory, ".rewinder", is present in the program's
// current directory then that is the base path that will be used. If it is not
// present then the user's config directory is used, as returned by
// os.UserConfigDir(). For example, on a modern Linux system:
//
//	/home/user/.config/rewinder/replays/session.rpl
//
// The sub-path is created if it does not exist. The file is not.
package paths
