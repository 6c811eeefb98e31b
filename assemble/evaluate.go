package assemble

import (
	"os"

	"golang.org/x/sys/unix"

	"mdassemble.dev/core/superblock"
)

// deviceState is the working record for one committed candidate across
// the quorum and force-loop computation: its probed Candidate plus the
// bookkeeping (uptodate, slot) that changes as the force loop rewrites
// stale superblocks.
type deviceState struct {
	cand     Candidate
	slot     int // -4 multipath uses arrival index instead of Candidate.Slot
	uptodate bool
}

func (d *deviceState) events() uint64 { return d.cand.EventCounter }

// evaluation is everything the quorum/force computation produces: the
// slot map, per-device working state, the availability vector, and the
// up-to-date/spare counts the plan executor and reconciler both need.
type evaluation struct {
	devices    []*deviceState
	slots      *SlotMap
	avail      AvailabilityVector
	okcnt      uint32
	sparecnt   uint32
	mostRecent *deviceState
	level      int32
	raidDisks  uint32
	layout     int32
}

// evaluateCandidates builds the slot map, picks the most-recent event
// counter among committed candidates, computes okcnt/sparecnt/avail,
// and — if force is set and the result isn't enough to run — runs the
// force loop, rewriting stale superblocks until the predicate holds or
// no more stale candidates remain.
func evaluateCandidates(cands []Candidate, level int32, raidDisks uint32, layout int32, force bool) *evaluation {
	ev := &evaluation{
		slots:     NewSlotMap(),
		avail:     make(AvailabilityVector, raidDisks),
		level:     level,
		raidDisks: raidDisks,
		layout:    layout,
	}

	for i, c := range cands {
		d := &deviceState{cand: c}
		if level == -4 {
			d.slot = i
		} else {
			d.slot = int(c.Slot)
		}
		ev.devices = append(ev.devices, d)

		if ev.mostRecent == nil || d.events() > ev.mostRecent.events() {
			ev.mostRecent = d
		}

		if d.slot < 10000 {
			ev.slots.Consider(d.slot, i, func(idx int) uint64 { return ev.devices[idx].events() })
		}
	}

	ev.recomputeAvailability(force)

	// The force loop updates okcnt/avail incrementally as each stale
	// candidate is rewritten (forceOneRound), rather than re-deriving
	// them from scratch: a full recompute would re-run every candidate
	// through the sync-flag gate below, which would drop a just-forced
	// drive right back out if it isn't SYNC-flagged (e.g. a FAULTY
	// member force is meant to reinstate).
	for force && !Enough(level, raidDisks, layout, ev.avail, ev.okcnt) {
		if !ev.forceOneRound() {
			break
		}
	}

	return ev
}

// recomputeAvailability walks the slot map exactly as the okcnt/avail
// pass does: each slot's chosen candidate is up-to-date if (multipath
// sync ignored) it's sync-flagged and its events are within the margin
// of the most-recent candidate's.
func (ev *evaluation) recomputeAvailability(force bool) {
	for i := range ev.avail {
		ev.avail[i] = false
	}
	ev.okcnt, ev.sparecnt = 0, 0

	margin := uint64(0)
	if !force {
		margin = 1
	}

	for slot := 0; slot < ev.slots.Len(); slot++ {
		idx := ev.slots.At(slot)
		if idx < 0 {
			continue
		}
		d := ev.devices[idx]

		if ev.level != -4 {
			state := d.cand.SB.ThisDisk().State
			if state&superblock.DiskSync == 0 {
				if state&superblock.DiskFaulty == 0 {
					ev.sparecnt++
				}
				continue
			}
		}

		if d.events()+margin >= ev.mostRecent.events() {
			d.uptodate = true
			if uint32(slot) < ev.raidDisks {
				ev.okcnt++
				ev.avail[slot] = true
			} else {
				ev.sparecnt++
			}
		}
	}
}

// forceOneRound picks, among slots within raid_disks, the highest-event
// non-up-to-date candidate with a nonzero event counter, rewrites its
// superblock to the most-recent event count (forcing CLEAN state for
// level 4/5), and marks it up-to-date. Returns false when no candidate
// is eligible, ending the force loop.
func (ev *evaluation) forceOneRound() bool {
	var chosen *deviceState
	limit := int(ev.raidDisks)
	if ev.slots.Len() < limit {
		limit = ev.slots.Len()
	}
	for i := 0; i < limit; i++ {
		idx := ev.slots.At(i)
		if idx < 0 {
			continue
		}
		d := ev.devices[idx]
		if d.uptodate || d.events() == 0 {
			continue
		}
		if chosen == nil || d.events() > chosen.events() {
			chosen = d
		}
	}
	if chosen == nil {
		return false
	}

	if err := rewriteStale(chosen, ev.mostRecent.events(), ev.level); err != nil {
		chosen.cand.EventCounter = 0
		return true // reselect next round; this one is now ineligible
	}

	// Count the forced drive directly — it was deliberately excluded
	// from recomputeAvailability's sync-flag gate (that's precisely why
	// it needed forcing), so it must be added here rather than by
	// re-running it through that gate.
	chosen.uptodate = true
	if chosen.slot < int(ev.raidDisks) {
		ev.avail[chosen.slot] = true
		ev.okcnt++
	} else {
		ev.sparecnt++
	}
	return true
}

// rewriteStale reopens the chosen device exclusively for read-write,
// re-reads its superblock (in case it changed underneath us), stamps
// the new event counter, forces CLEAN state for level 4/5 arrays, and
// writes it back.
func rewriteStale(d *deviceState, targetEvents uint64, level int32) error {
	fd, err := unix.Open(d.cand.Path, probeOpenRDWR, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	f := os.NewFile(uintptr(fd), d.cand.Path)
	sb, err := superblock.Load(f)
	if err != nil {
		return err
	}

	sb.SetEventCounter(targetEvents)
	if level == 5 || level == 4 {
		sb.SetState(superblock.StateClean)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if err := sb.Store(f); err != nil {
		return err
	}

	d.cand.SB = sb
	d.cand.EventCounter = targetEvents
	return nil
}
