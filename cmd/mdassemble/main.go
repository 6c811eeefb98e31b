// Command mdassemble drives the assembly core from the command line:
// parse flags, resolve the device list (argv or config file), open the
// target array device node, and hand everything to the assemble
// package to probe, reconcile, and start the array.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"mdassemble.dev/core/assemble"
	"mdassemble.dev/core/identity"
	"mdassemble.dev/core/mdconf"
	"mdassemble.dev/core/mdctl"
)

func deviceMinor(path string) (uint32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	return unix.Minor(st.Rdev), nil
}

// options mirrors the classic mdadm --assemble flag surface, narrowed
// to what the assembly core actually consumes.
type options struct {
	UUID       string `long:"uuid" description:"Only assemble devices carrying this array UUID"`
	SuperMinor int    `long:"super-minor" default:"-1" description:"Only assemble devices whose superblock records this minor number"`
	Level      string `long:"level" description:"Only assemble devices reporting this RAID level"`
	RaidDisks  uint   `long:"raid-disks" description:"Only assemble devices whose superblock expects this many member disks"`

	Config string `short:"c" long:"config" default:"/etc/mdadm.conf" description:"Device-list config file used when no devices are named"`
	Update string `short:"U" long:"update" description:"Superblock update mode: sparc2.2, super-minor, summaries, or resync"`

	Force   bool   `short:"f" long:"force" description:"Assemble even if some superblocks disagree, rewriting stale metadata as needed"`
	Verbose []bool `short:"v" long:"verbose" description:"Increase diagnostic verbosity"`

	Run      bool `short:"R" long:"run" description:"Start the array even if it isn't completely assembled"`
	ScanOnly bool `short:"S" long:"scan-only" description:"Assemble but do not start the array"`

	Args struct {
		MDDevice string   `positional-arg-name:"device" required:"1"`
		Devices  []string `positional-arg-name:"component-devices"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Name = "mdassemble"
	parser.Usage = "[OPTIONS] <md-device> [component-devices...]"

	if _, err := parser.ParseArgs(argv); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		return 1
	}

	log := newLogger(len(opts.Verbose))

	result, err := do(opts, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mdassemble: %s\n", err)
		return 1
	}

	fmt.Printf("mdassemble: %s\n", result.Summary())
	if !result.Started && !result.Deferred {
		return 1
	}
	return 0
}

func newLogger(verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func do(opts options, log *slog.Logger) (assemble.Result, error) {
	id, err := buildIdentity(opts)
	if err != nil {
		return assemble.Result{}, err
	}

	devices := opts.Args.Devices
	explicit := len(devices) > 0
	if !explicit {
		f, err := os.Open(opts.Config)
		if err != nil {
			return assemble.Result{}, errors.Wrapf(err, "cannot read %s", opts.Config)
		}
		defer f.Close()
		devices, err = mdconf.New(f).Devices()
		if err != nil {
			return assemble.Result{}, err
		}
	}

	mdFile, err := os.OpenFile(opts.Args.MDDevice, os.O_RDWR, 0)
	if err != nil {
		return assemble.Result{}, errors.Wrapf(err, "%s appears not to be an md device", opts.Args.MDDevice)
	}
	defer mdFile.Close()

	ctl := mdctl.NewHandle(mdFile)

	vers, err := ctl.GetVersion()
	if err != nil {
		return assemble.Result{}, errors.Wrapf(err, "%s appears not to be an md device", opts.Args.MDDevice)
	}
	if vers.Packed() < mdctl.MinDriverVersion {
		return assemble.Result{}, errors.New("assemble requires driver version 0.90.0 or later; upgrade your kernel or try --build")
	}

	oldKernel := false
	if kv, err := mdctl.KernelVersion(); err == nil && kv < mdctl.MinKernelVersion {
		oldKernel = true
	}

	targetMinor, err := deviceMinor(opts.Args.MDDevice)
	if err != nil {
		return assemble.Result{}, err
	}

	runStop := assemble.RunStopAuto
	switch {
	case opts.Run:
		runStop = assemble.RunStopForce
	case opts.ScanOnly:
		runStop = assemble.RunStopNever
	}

	return assemble.Run(ctl, assemble.Options{
		MDDevice:    opts.Args.MDDevice,
		Identity:    id,
		Devices:     devices,
		Explicit:    explicit,
		Update:      assemble.UpdateMode(opts.Update),
		Force:       opts.Force,
		Verbose:     len(opts.Verbose) > 0,
		RunStop:     runStop,
		OldKernel:   oldKernel,
		TargetMinor: targetMinor,
	}, log)
}

func buildIdentity(opts options) (identity.Array, error) {
	id := identity.Array{SuperMinor: int32(opts.SuperMinor)}

	if opts.UUID != "" {
		u, err := uuid.Parse(opts.UUID)
		if err != nil {
			return identity.Array{}, errors.Wrapf(err, "invalid --uuid %q", opts.UUID)
		}
		id.UUID, id.UUIDSet = u, true
	}

	if opts.Level != "" {
		lvl, err := parseLevel(opts.Level)
		if err != nil {
			return identity.Array{}, err
		}
		id.Level = &lvl
	}

	if opts.RaidDisks > 0 {
		n := uint32(opts.RaidDisks)
		id.RaidDisks = &n
	}

	id.DeviceGlobs = opts.Args.Devices
	return id, nil
}

func parseLevel(s string) (int32, error) {
	switch s {
	case "linear":
		return -1, nil
	case "multipath", "mp":
		return -4, nil
	}
	var lvl int32
	if _, err := fmt.Sscanf(s, "%d", &lvl); err != nil {
		return 0, errors.Errorf("unrecognized raid level %q", s)
	}
	return lvl, nil
}
