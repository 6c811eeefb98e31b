package assemble

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"mdassemble.dev/core/superblock"
)

// changeFlag tracks why the reconciled reference superblock needs to
// be written back to disk, kept as two separate bits (unlike the
// single conflated bit the reconciliation logic this is grounded on
// uses) so the legacy-kernel and force-mode write conditions can be
// judged independently, as the two are logically distinct reasons.
type changeFlag int

const (
	changeRenumber changeFlag = 1 << iota
	changeState
)

// reconcileResult is the reconciled reference superblock plus whether
// it still needs writing back, and to which device.
type reconcileResult struct {
	reference *superblock.Superblock
	chosen    *deviceState
	change    changeFlag
}

// reconcile picks the reference superblock (the first up-to-date
// candidate in slot order) and, slot by slot, patches its per-slot disk
// table to match what the force/quorum pass actually found: recorded
// device numbers are trusted over whatever the reference superblock
// currently says, and — under force — a mismatched state is corrected
// to the desired ACTIVE|SYNC (or 0 for spare slots).
func reconcile(ev *evaluation, force bool) (*reconcileResult, error) {
	var chosen *deviceState
	for i := 0; i < ev.slots.Len() && chosen == nil; i++ {
		idx := ev.slots.At(i)
		if idx < 0 {
			continue
		}
		d := ev.devices[idx]
		if !d.uptodate {
			continue
		}
		chosen = d
	}
	if chosen == nil {
		return nil, errors.New("no up-to-date candidate available to reconcile from")
	}

	// The reference is a clone of chosen.cand.SB, the in-memory copy;
	// it is not re-read from the device. That copy carries any update
	// mode and force-loop rewrite applied to it, so it matches the disk
	// unless an update mode's write-back failed, in which case it holds
	// the updated contents the disk lacks.
	ref := chosen.cand.SB.Clone()
	var change changeFlag

	for i := 0; i < ev.slots.Len(); i++ {
		idx := ev.slots.At(i)

		var desiredState uint32
		if uint32(i) < ev.raidDisks {
			desiredState = superblock.DiskActive | superblock.DiskSync
		}

		if idx < 0 {
			continue
		}
		d := ev.devices[idx]
		if !d.uptodate {
			if ref.Disk(i).State&superblock.DiskFaulty == 0 {
				// No warning is emitted for a stale member the
				// reference doesn't mark faulty, here or by the
				// caller; its slot is left as the reference records it.
			}
			continue
		}

		this := d.cand.SB.ThisDisk()
		slotDisk := ref.Disk(i)
		if this.Major != slotDisk.Major || this.Minor != slotDisk.Minor {
			slotDisk.Major = this.Major
			slotDisk.Minor = this.Minor
			ref.SetDisk(i, slotDisk)
			change |= changeRenumber
		}

		if slotDisk = ref.Disk(i); slotDisk.State != desiredState {
			if force {
				slotDisk.State = desiredState
				ref.SetDisk(i, slotDisk)
				change |= changeState
			}
		}
	}

	if force && (ev.level == 4 || ev.level == 5) && ev.okcnt == ev.raidDisks-1 {
		ref.SetState(superblock.StateClean)
		change |= changeState
	}

	return &reconcileResult{reference: ref, chosen: chosen, change: change}, nil
}

// requiredCount counts slots the reference superblock itself records as
// ACTIVE & SYNC & !FAULTY, across the full disk table (not just the
// nominal raid_disks) — the number of in-sync members needed to start
// the array without an explicit --run or --scan override.
func requiredCount(ref *superblock.Superblock) uint32 {
	var n uint32
	for i := 0; i < superblock.MaxSlots; i++ {
		s := ref.Disk(i).State
		want := superblock.DiskSync | superblock.DiskActive
		if s&want == want && s&superblock.DiskFaulty == 0 {
			n++
		}
	}
	return n
}

// writeBack stores the reconciled reference superblock to the chosen
// device when force+STATE or legacy-kernel+RENUMBER calls for it. A
// failure here is fatal: unlike the force loop's speculative rewrites,
// this is the superblock the plan executor is about to trust.
func (r *reconcileResult) writeBack(force, oldLinux bool) error {
	if !((force && r.change&changeState != 0) || (oldLinux && r.change&changeRenumber != 0)) {
		return nil
	}

	path := r.chosen.cand.Path
	fd, err := unix.Open(path, probeOpenRDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "could not open %s for write - cannot assemble array", path)
	}
	defer unix.Close(fd)

	f := os.NewFile(uintptr(fd), path)
	if err := r.reference.Store(f); err != nil {
		return errors.Wrapf(err, "could not re-write superblock on %s", path)
	}
	return nil
}
