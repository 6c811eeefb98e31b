package assemble

import (
	"fmt"

	"github.com/pkg/errors"

	"mdassemble.dev/core/mdctl"
)

// RunStop mirrors the three-way --run/--scan-only/neither policy the CLI
// exposes: whether the plan executor is told to start the array
// unconditionally, leave it assembled-but-stopped, or decide based on
// quorum.
type RunStop int

const (
	// RunStopAuto starts the array only if quorum (and req_cnt) allow
	// it — the default when neither --run nor --scan-only was given.
	RunStopAuto RunStop = iota
	RunStopForce
	RunStopNever
)

// Result summarizes what the plan executor actually did, for the
// caller to report to the user the way the original's final
// diagnostic line does.
type Result struct {
	Started    bool
	Deferred   bool // RunStopNever: assembled on purpose, never attempted RUN_ARRAY
	OKCount    uint32
	SpareCount uint32
	TotalSlots uint32
	NotEnough  bool
	RequireAll bool
	RequireCnt uint32

	mddev string
}

// Summary renders the same one-line human summary the original's final
// diagnostic prints: "assembled from N drives (out of M) and S spares",
// started or not, with the reason when it wasn't.
func (r Result) Summary() string {
	plural := "s"
	if r.OKCount == 1 {
		plural = ""
	}

	var extra string
	if r.OKCount < r.TotalSlots {
		extra = fmt.Sprintf(" (out of %d)", r.TotalSlots)
	}
	if r.SpareCount > 0 {
		sp := "s"
		if r.SpareCount == 1 {
			sp = ""
		}
		extra += fmt.Sprintf(" and %d spare%s", r.SpareCount, sp)
	}

	if r.Started {
		return fmt.Sprintf("%s has been started with %d drive%s%s.", r.mddev, r.OKCount, plural, extra)
	}

	base := fmt.Sprintf("%s assembled from %d drive%s%s", r.mddev, r.OKCount, plural, extra)
	if r.Deferred {
		return base + ", but not started."
	}
	if r.NotEnough {
		return base + " - not enough to start the array."
	}
	if r.RequireAll {
		return fmt.Sprintf("%s - need all %d to start it (use --run to insist).", base, r.RequireCnt)
	}
	return fmt.Sprintf("%s - need %d of %d to start (use --run to insist).", base, r.RequireCnt, r.TotalSlots)
}

// runModernPlan issues the SET_ARRAY_INFO / ADD_NEW_DISK / RUN_ARRAY
// sequence a 2.4+ kernel's MD driver expects: prepare the array, add
// every slot's chosen device (the reconciliation's chosen drive added
// last), then start it according to runStop policy and quorum.
func runModernPlan(ctl mdctl.Controller, ev *evaluation, rr *reconcileResult, runStop RunStop, startPartialOK bool) (Result, error) {
	if err := ctl.SetArrayInfo(mdctl.ArrayInfo{}); err != nil {
		return Result{}, errors.Wrap(err, "SET_ARRAY_INFO failed")
	}

	addOne := func(d *deviceState) error {
		di := mdctl.DiskInfo{
			Major: int32(d.cand.Major),
			Minor: int32(d.cand.Minor),
		}
		if err := ctl.AddNewDisk(di); err != nil {
			if d.slot < int(ev.raidDisks) {
				ev.okcnt--
			} else {
				ev.sparecnt--
			}
			return errors.Wrapf(err, "failed to add %s", d.cand.Path)
		}
		return nil
	}

	for i := 0; i < ev.slots.Len(); i++ {
		idx := ev.slots.At(i)
		if idx < 0 {
			continue
		}
		d := ev.devices[idx]
		if d == rr.chosen {
			continue // the chosen drive is always added last
		}
		_ = addOne(d) // a failed add degrades okcnt/sparecnt but doesn't abort
	}
	_ = addOne(rr.chosen)

	reqCnt := requiredCount(rr.reference)
	enough := Enough(ev.level, ev.raidDisks, ev.layout, ev.avail, ev.okcnt)

	shouldRun := runStop == RunStopForce ||
		(runStop == RunStopAuto && enough && (ev.okcnt >= reqCnt || startPartialOK))

	res := Result{
		OKCount:    ev.okcnt,
		SpareCount: ev.sparecnt,
		TotalSlots: ev.raidDisks,
		NotEnough:  !enough,
		RequireCnt: reqCnt,
		RequireAll: reqCnt == ev.raidDisks,
	}

	if shouldRun {
		if err := ctl.RunArray(); err != nil {
			return res, errors.Wrap(err, "failed to RUN_ARRAY")
		}
		res.Started = true
		return res, nil
	}

	if runStop == RunStopNever {
		res.Deferred = true
		return res, nil
	}
	// Assembled but not started: not a failure of the executor itself,
	// just insufficient quorum for --run to have been implied. The
	// caller reports this via Result.Summary and its own exit status.
	return res, nil
}

// runLegacyPlan is the pre-2.4-kernel fallback: by this point the
// chosen drive's superblock already points at the right device
// numbers (the reconciler's RENUMBER write-back handled that), so
// there is nothing left to do but START_ARRAY against its (major,
// minor).
func runLegacyPlan(ctl mdctl.Controller, rr *reconcileResult) (Result, error) {
	if err := ctl.StartArray(rr.chosen.cand.Major, rr.chosen.cand.Minor); err != nil {
		return Result{}, errors.Wrap(err, "cannot start array")
	}
	return Result{Started: true}, nil
}
