package assemble

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"mdassemble.dev/core/identity"
	"mdassemble.dev/core/superblock"
)

// probeOpenRDONLY and probeOpenRDWR are the two modes a device is
// opened in: read-only while discovering candidates, read-write only
// when a metadata rewrite is actually needed. Both always carry
// O_EXCL: on a block device that flag alone (no O_CREAT needed) asks
// the kernel to refuse the open if anything else has the device open,
// which is exactly the guarantee assembly needs against racing with an
// already-running array or another admin tool.
const (
	probeOpenRDONLY = unix.O_RDONLY | unix.O_EXCL
	probeOpenRDWR   = unix.O_RDWR | unix.O_EXCL
)

// probeDevice implements the Device Probe component: open path
// exclusively, confirm it's a block device, and attempt to load its
// superblock. named is true when path came from an explicit device
// list rather than a config-file scan — the original only logs
// rejections at this verbosity for named devices, or when verbose is
// set.
func probeDevice(path string, id identity.Array, named, verbose bool) probeResult {
	loud := named || verbose

	fd, err := unix.Open(path, probeOpenRDONLY, 0)
	if err != nil {
		return skip(loud, "cannot open device %s: %v", path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return fatal(errors.Wrapf(err, "fstat failed for %s", path))
	}
	if st.Mode&unix.S_IFMT != unix.S_IFBLK {
		return skip(true, "%s is not a block device", path)
	}

	f := os.NewFile(uintptr(fd), path)
	sb, err := superblock.Load(f)
	if err != nil {
		// With no identity constraint at all, every named device is
		// required to carry a matching superblock — there is nothing
		// else to filter on, so a miss aborts the whole run rather
		// than being silently dropped.
		if !id.HasAnyConstraint() {
			return fatal(errors.Errorf("%s has no superblock - assembly aborted", path))
		}
		return skip(loud, "no RAID superblock on %s", path)
	}

	if ok, reason := id.Matches(sb); !ok {
		return skip(loud, "%s %s", path, reason)
	}

	return probeResult{
		kind: outcomeCommitted,
		cand: Candidate{
			Path:         path,
			Major:        unix.Major(st.Rdev),
			Minor:        unix.Minor(st.Rdev),
			SB:           sb,
			Slot:         sb.ThisDisk().RaidDisk,
			EventCounter: sb.EventCounter(),
		},
	}
}

func skip(log bool, format string, args ...any) probeResult {
	r := probeResult{kind: outcomeSkipped}
	if log {
		r.reason = errors.Errorf(format, args...).Error()
	}
	return r
}

func fatal(err error) probeResult {
	return probeResult{kind: outcomeFatal, err: err}
}
