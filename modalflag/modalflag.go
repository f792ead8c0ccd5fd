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

package modalflag

import (
	"errors"
	"flag"
	"io"
	"slices"
	"strings"
)

const modeSeparator = "/"

// Modes handles command line arguments that select program modes. The Output
// field should be set before calling Parse() or help messages will not be
// seen.
type Modes struct {
	// where to print help messages
	Output io.Writer

	// a new flagset is created on every call to NewArgs() and NewMode()
	flags  *flag.FlagSet
	parsed bool

	args    []string
	argsIdx int

	// sub-modes for the next call to Parse(). the first is the default
	subModes []string

	// the modes selected by every call to Parse() since NewArgs()
	path []string

	additionalHelp string
}

func (md *Modes) String() string {
	return md.Path()
}

// Mode returns the most recently selected mode.
func (md *Modes) Mode() string {
	if len(md.path) == 0 {
		return ""
	}
	return md.path[len(md.path)-1]
}

// Path returns every mode selected so far, separated by a slash.
func (md *Modes) Path() string {
	return strings.Join(md.path, modeSeparator)
}

// NewArgs starts processing a new list of arguments.
func (md *Modes) NewArgs(args []string) {
	md.args = args
	md.argsIdx = 0
	md.path = md.path[:0]
	md.NewMode()
}

// NewMode indicates that further arguments belong to a new mode. Flags and
// sub-modes added before the call are forgotten.
func (md *Modes) NewMode() {
	md.subModes = nil
	md.additionalHelp = ""
	md.flags = flag.NewFlagSet("", flag.ContinueOnError)
	md.parsed = false
}

// AdditionalHelp is shown after the help for the flags and sub-modes.
func (md *Modes) AdditionalHelp(help string) {
	md.additionalHelp = help
}

// Parsed returns true if Parse() has been called since the most recent call to
// NewArgs() or NewMode(), even if the call resulted in an error.
func (md *Modes) Parsed() bool {
	return md.parsed
}

// ParseResult is returned from the Parse() function.
type ParseResult int

// List of valid ParseResult values.
const (
	// continue with command line processing. if sub-modes were specified then
	// Mode() should be checked
	ParseContinue ParseResult = iota

	// help was requested and has been printed
	ParseHelp

	// the error returned by Parse() should be shown
	ParseError
)

// Parse the arguments for the current mode. Typical use:
//
//	p, err := md.Parse()
//	switch p {
//	case modalflag.ParseHelp:
//		return nil
//	case modalflag.ParseError:
//		return err
//	}
//
// Help messages are printed to the Output writer automatically.
func (md *Modes) Parse() (ParseResult, error) {
	md.parsed = true

	hw := &helpWriter{}
	md.flags.SetOutput(hw)

	err := md.flags.Parse(md.args[md.argsIdx:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			hw.help(md.Output, md.Path(), md.subModes, md.additionalHelp)
			return ParseHelp, nil
		}

		// unrecognised flags are an error unless there is a default mode to
		// fall back on
		if len(md.subModes) == 0 {
			return ParseError, err
		}
		md.path = append(md.path, md.subModes[0])
		return ParseContinue, nil
	}

	if len(md.subModes) > 0 {
		// flags have been consumed. the mode argument, if present, is after
		// them
		md.argsIdx = len(md.args) - md.flags.NArg()

		mode := md.subModes[0]
		if arg := strings.ToUpper(md.flags.Arg(0)); slices.Contains(md.subModes, arg) {
			mode = arg
			md.argsIdx++
		}
		md.path = append(md.path, mode)
	}

	return ParseContinue, nil
}

// RemainingArgs returns the arguments after the flags of the most recent
// Parse(). If a sub-mode was selected it is the first of these arguments.
func (md *Modes) RemainingArgs() []string {
	return md.flags.Args()
}

// GetArg returns the numbered argument of RemainingArgs(), or the empty string
// if there is no such argument.
func (md *Modes) GetArg(i int) string {
	return md.flags.Arg(i)
}

// AddSubModes adds to the list of sub-modes for the next call to Parse(). The
// first sub-mode is the default.
func (md *Modes) AddSubModes(subModes ...string) {
	for _, m := range subModes {
		md.subModes = append(md.subModes, strings.ToUpper(m))
	}
}

// AddDefaultSubMode adds a sub-mode to the front of the list, making it the
// default.
func (md *Modes) AddDefaultSubMode(defSubMode string) {
	md.subModes = slices.Insert(md.subModes, 0, strings.ToUpper(defSubMode))
}

// AddBool flag for next call to Parse().
func (md *Modes) AddBool(name string, value bool, usage string) *bool {
	return md.flags.Bool(name, value, usage)
}

// AddFloat64 flag for next call to Parse().
func (md *Modes) AddFloat64(name string, value float64, usage string) *float64 {
	return md.flags.Float64(name, value, usage)
}

// AddInt flag for next call to Parse().
func (md *Modes) AddInt(name string, value int, usage string) *int {
	return md.flags.Int(name, value, usage)
}

// AddString flag for next call to Parse().
func (md *Modes) AddString(name string, value string, usage string) *string {
	return md.flags.String(name, value, usage)
}

// Visit calls fn for every flag that was set by the most recent Parse(), in
// lexicographical order.
func (md *Modes) Visit(fn func(flag string)) {
	md.flags.Visit(func(f *flag.Flag) {
		fn(f.Name)
	})
}
