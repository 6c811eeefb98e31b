package assemble

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"mdassemble.dev/core/superblock"
)

// UpdateMode names one of the optional metadata rewrites the Metadata
// Updater can apply to a freshly-probed candidate's superblock before
// assembly decides slots and quorum.
type UpdateMode string

const (
	UpdateNone       UpdateMode = ""
	UpdateSparc22    UpdateMode = "sparc2.2"
	UpdateSuperMinor UpdateMode = "super-minor"
	UpdateSummaries  UpdateMode = "summaries"
	UpdateResync     UpdateMode = "resync"
)

// applyUpdate mutates sb in place per mode, then reopens path for
// exclusive read-write and stores it back.
// A write failure here is non-fatal to the overall run: the candidate
// keeps its in-memory (updated) superblock and assembly proceeds, it
// just means the on-disk copy lags until the next run.
func applyUpdate(mode UpdateMode, path string, sb *superblock.Superblock, mdMinor uint32) error {
	if mode == UpdateNone {
		return nil
	}

	switch mode {
	case UpdateSparc22:
		sb.ApplySparc22Fix()
	case UpdateSuperMinor:
		sb.SetMDMinor(mdMinor)
	case UpdateSummaries:
		sb.SetSummaries()
	case UpdateResync:
		sb.SetState(sb.State() &^ superblock.StateClean)
		sb.SetRecoveryCp(0)
	default:
		return errors.Errorf("unknown update mode %q", mode)
	}

	fd, err := unix.Open(path, probeOpenRDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s for superblock update", path)
	}
	defer unix.Close(fd)

	f := os.NewFile(uintptr(fd), path)
	if err := sb.Store(f); err != nil {
		return errors.Wrapf(err, "could not re-write superblock on %s", path)
	}
	return nil
}
