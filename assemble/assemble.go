package assemble

import (
	"log/slog"

	"github.com/pkg/errors"

	"mdassemble.dev/core/identity"
	"mdassemble.dev/core/mdctl"
	"mdassemble.dev/core/superblock"
)

// Options is everything a single assembly attempt needs, already
// resolved by the caller: the CLI has parsed flags, the config reader
// has expanded a bare "scan" request into a device list, and the
// driver-control handle is already open on the target md device node.
type Options struct {
	// MDDevice is the target array device's path, used only for
	// diagnostics (Result.Summary) — the caller supplies ctl already
	// opened on it.
	MDDevice string

	Identity identity.Array

	// Devices is the set of candidate paths to probe. Explicit means
	// they came from an argv device list rather than a config-file
	// scan — the original logs rejections more verbosely for named
	// devices, and relaxes the "must start with all slots" rule
	// (start_partial_ok) only for scanned devices or under Force.
	Devices  []string
	Explicit bool

	Update  UpdateMode
	Force   bool
	Verbose bool
	RunStop RunStop

	// OldKernel selects the legacy START_ARRAY path instead of the
	// SET_ARRAY_INFO/ADD_NEW_DISK/RUN_ARRAY sequence modern drivers
	// expect; the caller decides this from the running kernel version.
	OldKernel bool

	// TargetMinor is the minor number of the md device node assembly
	// is targeting, used only by the "super-minor" update mode to
	// stamp a candidate's superblock with where it's actually being
	// assembled into.
	TargetMinor uint32
}

// Run executes one assembly attempt against ctl: probe every candidate
// device, filter by identity, apply any requested metadata update,
// compute quorum (running the force loop if asked), reconcile the
// chosen reference superblock, and drive the control handle through
// the sequence that brings the array up.
func Run(ctl mdctl.Controller, opts Options, log *slog.Logger) (Result, error) {
	log = log.With("module", "assemble")

	if _, err := ctl.GetArrayInfo(); err == nil {
		return Result{}, mdctl.ErrAlreadyActive
	}
	// Defensive: clear any partially-started state left by a previous
	// failed attempt before looking at a single device.
	_ = ctl.StopArray()

	if len(opts.Devices) == 0 && !opts.Identity.HasAnyConstraint() {
		return Result{}, errors.New("no identity information available - cannot assemble")
	}

	cands, err := probeAll(opts, log)
	if err != nil {
		return Result{}, err
	}
	if len(cands) == 0 {
		return Result{}, errors.New("no devices found")
	}

	ref := cands[0].SB
	level, raidDisks, layout := ref.Level(), ref.RaidDisks(), ref.Layout()

	ev := evaluateCandidates(cands, level, raidDisks, layout, opts.Force)

	rr, err := reconcile(ev, opts.Force)
	if err != nil {
		return Result{}, err
	}
	if err := rr.writeBack(opts.Force, opts.OldKernel); err != nil {
		return Result{}, err
	}

	startPartialOK := opts.Force || !opts.Explicit

	var res Result
	if !opts.OldKernel {
		res, err = runModernPlan(ctl, ev, rr, opts.RunStop, startPartialOK)
	} else {
		res, err = runLegacyPlan(ctl, rr)
	}
	res.mddev = opts.MDDevice

	log.Info("assembly finished",
		"started", res.Started,
		"okcnt", res.OKCount,
		"sparecnt", res.SpareCount,
	)
	return res, err
}

// probeAll runs the Device Probe + Identity Filter over every
// candidate path, enforcing the whitelist, the generic-prefix
// agreement check (compare_super), and the fixed MAX_SLOTS ceiling the
// on-disk format can represent.
func probeAll(opts Options, log *slog.Logger) ([]Candidate, error) {
	var cands []Candidate
	var ref *superblock.Superblock

	if opts.Verbose {
		log.Debug("looking for devices")
	}

	for _, path := range opts.Devices {
		if !opts.Identity.MatchesName(path) {
			if opts.Explicit || opts.Verbose {
				log.Warn("not one of the allowed devices", "device", path)
			}
			continue
		}

		res := probeDevice(path, opts.Identity, opts.Explicit, opts.Verbose)
		switch res.kind {
		case outcomeFatal:
			return nil, res.err
		case outcomeSkipped:
			if res.reason != "" {
				log.Warn(res.reason)
			}
			continue
		}

		if ref == nil {
			ref = res.cand.SB
		} else if err := superblock.Compare(ref, res.cand.SB); err != nil {
			return nil, errors.Wrapf(err, "superblock on %s doesn't match others - assembly aborted", path)
		}

		if len(cands) >= superblock.MaxSlots {
			log.Warn("too many devices appear to be in this array, ignoring", "device", path)
			continue
		}

		if opts.Update != UpdateNone {
			if err := applyUpdate(opts.Update, path, res.cand.SB, opts.TargetMinor); err != nil {
				log.Warn("superblock update failed", "device", path, "error", err)
			} else {
				res.cand.EventCounter = res.cand.SB.EventCounter()
				res.cand.Slot = res.cand.SB.ThisDisk().RaidDisk
			}
		}

		if opts.Verbose {
			log.Debug("identified as array member",
				"device", path, "slot", res.cand.SB.ThisDisk().RaidDisk)
		}
		cands = append(cands, res.cand)
	}

	return cands, nil
}
