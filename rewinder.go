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

package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/jetsetilly/rewinder/delta"
	"github.com/jetsetilly/rewinder/events"
	"github.com/jetsetilly/rewinder/logger"
	"github.com/jetsetilly/rewinder/machine"
	"github.com/jetsetilly/rewinder/modalflag"
	"github.com/jetsetilly/rewinder/notifications"
	"github.com/jetsetilly/rewinder/paths"
	"github.com/jetsetilly/rewinder/prefs"
	"github.com/jetsetilly/rewinder/replayfile"
	"github.com/jetsetilly/rewinder/rewind"
	"github.com/jetsetilly/rewinder/statsview"
	"github.com/jetsetilly/rewinder/vclock"
	"github.com/jetsetilly/rewinder/version"
)

// environment variables that change the defaults of the program
type environment struct {
	RAMSize   int    `env:"REWINDER_RAM_SIZE"        envDefault:"4096"`
	PrefsFile string `env:"REWINDER_PREFS_FILE"`
	StatsAddr string `env:"REWINDER_STATSVIEW_ADDR"  envDefault:"localhost:12700"`
}

func main() {
	os.Exit(launch(os.Args[1:], os.Stdout))
}

// launch the program with the command line arguments. returns the exit
// status of the program
func launch(args []string, output io.Writer) int {
	var cfg environment
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(output, "* error in environment: %v\n", err)
		return 10
	}

	md := &modalflag.Modes{Output: output}
	md.NewArgs(args)
	echo := md.AddBool("log", false, "echo log to output")
	stats := md.AddBool("statsview", false, "run runtime statistics server")
	cmdPrefs := md.AddString("prefs", "", "preference overrides (eg. rewind.denseWindow::10)")
	showVersion := md.AddBool("version", false, "show version information")
	md.AddSubModes("DEMO", "INFO", "VERIFY", "GRAPH")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		return 0
	case modalflag.ParseError:
		fmt.Fprintf(output, "* error: %v\n", err)
		return 10
	}

	if *showVersion {
		fmt.Fprintln(output, version.String())
		return 0
	}

	if *echo {
		logger.SetEcho(output)
	} else {
		logger.SetEcho(nil)
	}

	if *stats {
		stop := statsview.Launch(output, cfg.StatsAddr)
		defer stop()
	}

	prefs.PushCommandLineStack(*cmdPrefs)
	defer func() {
		if unused := prefs.PopCommandLineStack(); unused != "" {
			fmt.Fprintf(output, "! unused preferences: %s\n", unused)
		}
	}()

	switch md.Mode() {
	case "DEMO":
		err = demo(md, cfg)
	case "INFO":
		err = info(md)
	case "VERIFY":
		err = verify(md, cfg)
	case "GRAPH":
		err = graph(md, cfg)
	}

	if err != nil {
		fmt.Fprintf(output, "* error in %s mode: %s\n", md, err)
		return 20
	}

	return 0
}

// the machine and the rewind system attached to it
type system struct {
	clk *vclock.Scheduler
	m   *machine.Machine
	r   *rewind.Rewind
}

// Notify implements the notifications.Notify interface.
func (sys *system) Notify(notice notifications.Notice) error {
	logger.Logf(logger.Allow, "notice", "%s at %v", notice, sys.clk.Now())
	return nil
}

func newSystem(cfg environment, m *machine.Machine, clk *vclock.Scheduler) (*system, error) {
	sys := &system{
		clk: clk,
		m:   m,
		r:   rewind.NewRewind(clk, m, m, m, m.Shape()),
	}
	sys.r.SetNotifier(sys)

	pth := cfg.PrefsFile
	if pth == "" {
		var err error
		pth, err = paths.ResourcePath("", prefs.DefaultPrefsFile)
		if err != nil {
			return nil, err
		}
	}

	if err := sys.r.Prefs.UseFile(pth); err != nil {
		return nil, err
	}

	return sys, nil
}

// loadSystem creates a machine suitable for the replay file and loads the
// replay into the rewind system
func loadSystem(cfg environment, pth string) (*system, error) {
	f, err := os.Open(pth)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inf, err := replayfile.Inspect(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	clk := &vclock.Scheduler{}
	m, err := machine.NewMachineForShape(clk, inf.Shape)
	if err != nil {
		return nil, err
	}

	sys, err := newSystem(cfg, m, clk)
	if err != nil {
		return nil, err
	}

	if err := sys.r.Load(f); err != nil {
		return nil, err
	}

	return sys, nil
}

// scripted input for the demonstration. one event for every frame
func scripted(frame int) events.Payload {
	if frame%600 == 300 {
		return events.Setting{Name: "period", Value: fmt.Sprintf("%d", 1+frame/600%3)}
	}

	switch frame % 4 {
	case 0:
		return events.Joystick{Port: uint8(frame / 4 % 2), State: uint8(frame)}
	case 1:
		return events.Paddle{Position: uint16(frame * 7 % 1024)}
	case 2:
		return events.Keyboard{Row: uint8(frame % 8), Press: 1 << (frame % 8)}
	}
	return events.Mouse{DX: int16(frame%11 - 5), DY: int16(frame%7 - 3), Buttons: uint8(frame % 3)}
}

func demo(md *modalflag.Modes, cfg environment) error {
	md.NewMode()
	md.AdditionalHelp("runs the machine with scripted input, rewinds to check that replay\nreproduces the recording and then starts a new branch of history")

	seconds := md.AddInt("seconds", 10, "number of seconds to emulate")
	ramSize := md.AddInt("ram", cfg.RAMSize, "size of machine RAM in bytes")
	save := md.AddString("save", "", "save replay to file. use AUTO for a unique filename")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if len(md.RemainingArgs()) > 0 {
		return fmt.Errorf("too many arguments for %s mode", md)
	}
	if *seconds < 2 {
		return fmt.Errorf("%s mode requires at least two seconds", md)
	}

	clk := &vclock.Scheduler{}
	sys, err := newSystem(cfg, machine.NewMachine(clk, *ramSize), clk)
	if err != nil {
		return err
	}

	sys.r.Start()

	frame := vclock.FromSeconds(1.0 / 60)

	// digest of the machine state at the end of every second
	digests := make(map[vclock.Time]uint64)

	for f := range *seconds * 60 {
		sys.m.Run(frame)
		if err := sys.r.Record(sys.clk.Now(), scripted(f)); err != nil {
			return err
		}
		if f%60 == 59 {
			state, err := sys.m.Snapshot()
			if err != nil {
				return err
			}
			digests[sys.clk.Now()] = delta.Digest(state)
		}
	}

	fmt.Fprintf(md.Output, "recorded: %s\n", sys.r.Status())

	// rewind to each of the recorded points, latest first
	times := slices.Sorted(maps.Keys(digests))
	for _, t := range slices.Backward(times) {
		if err := sys.r.GoTo(t); err != nil {
			return err
		}
		state, err := sys.m.Snapshot()
		if err != nil {
			return err
		}
		if delta.Digest(state) != digests[t] {
			return fmt.Errorf("replay at %v does not match the recording", t)
		}
	}

	fmt.Fprintf(md.Output, "replay matches the recording at %d points\n", len(times))

	// start a new branch of history from the middle of the recording
	if err := sys.r.GoTo(times[len(times)/2]); err != nil {
		return err
	}
	sys.r.StopReplay()

	for f := range 60 {
		sys.m.Run(frame)
		if err := sys.r.Record(sys.clk.Now(), scripted(f+1)); err != nil {
			return err
		}
	}

	fmt.Fprintf(md.Output, "branched: %s\n", sys.r.Status())

	if err := sys.r.Verify(); err != nil {
		return err
	}

	if *save != "" {
		name := *save
		if name == "AUTO" {
			name = ""
		}
		pth, err := sys.r.SaveReplayFile(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(md.Output, "replay saved to %s\n", pth)
	}

	return nil
}

func info(md *modalflag.Modes) error {
	md.NewMode()

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("replay file required for %s mode", md)
	case 1:
		f, err := os.Open(md.GetArg(0))
		if err != nil {
			return err
		}
		defer f.Close()

		inf, err := replayfile.Inspect(f)
		if err != nil {
			return err
		}
		fmt.Fprintln(md.Output, inf)
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	return nil
}

func verify(md *modalflag.Modes, cfg environment) error {
	md.NewMode()

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("replay file required for %s mode", md)
	case 1:
		sys, err := loadSystem(cfg, md.GetArg(0))
		if err != nil {
			return err
		}

		if err := sys.r.Verify(); err != nil {
			return err
		}

		// replay the entire recording
		if err := sys.r.GoTo(sys.r.LatestTime()); err != nil {
			return err
		}
		if sys.r.State() != rewind.Live {
			return fmt.Errorf("replay did not reach the end of the recording")
		}

		fmt.Fprintf(md.Output, "ok: %s\n", sys.r.Status())
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	return nil
}

func graph(md *modalflag.Modes, cfg environment) error {
	md.NewMode()

	out := md.AddString("out", "", "write graph to file rather than to the output")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("replay file required for %s mode", md)
	case 1:
		sys, err := loadSystem(cfg, md.GetArg(0))
		if err != nil {
			return err
		}

		if *out == "" {
			sys.r.DumpStructure(md.Output)
			return nil
		}

		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		sys.r.DumpStructure(f)
		return f.Close()
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}
}
