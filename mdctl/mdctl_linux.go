//go:build linux

package mdctl

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	raidVersionCmd  = ioR(0x10, unsafe.Sizeof(Version{}))
	getArrayInfoCmd = ioR(0x11, unsafe.Sizeof(ArrayInfo{}))
	addNewDiskCmd   = ioW(0x21, unsafe.Sizeof(DiskInfo{}))
	setArrayInfoCmd = ioW(0x23, unsafe.Sizeof(ArrayInfo{}))
	runArrayCmd     = ioNo(0x30)
	startArrayCmd   = ioNo(0x31)
	stopArrayCmd    = ioNo(0x32)
)

// Handle is a Controller backed by an already-open file descriptor on an
// md device node (e.g. /dev/md0). The caller opens and closes it; mdctl
// never does either — the array-control handle is always supplied by
// the caller.
type Handle struct {
	f *os.File
}

// NewHandle wraps an already-open array device file in a Controller.
func NewHandle(f *os.File) *Handle {
	return &Handle{f: f}
}

func (h *Handle) ioctl(cmd uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, h.f.Fd(), cmd, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (h *Handle) GetVersion() (Version, error) {
	var v Version
	if err := h.ioctl(raidVersionCmd, unsafe.Pointer(&v)); err != nil {
		return Version{}, errors.Wrap(err, "RAID_VERSION")
	}
	return v, nil
}

func (h *Handle) GetArrayInfo() (ArrayInfo, error) {
	var info ArrayInfo
	if err := h.ioctl(getArrayInfoCmd, unsafe.Pointer(&info)); err != nil {
		return ArrayInfo{}, errors.Wrap(err, "GET_ARRAY_INFO")
	}
	return info, nil
}

// StopArray issues STOP_ARRAY and returns the raw ioctl error: it is
// run defensively at the start of every assembly attempt, where the
// caller discards the result because it is expected to fail
// (ENODEV/EINVAL) when nothing is running.
func (h *Handle) StopArray() error {
	return h.ioctl(stopArrayCmd, nil)
}

func (h *Handle) SetArrayInfo(info ArrayInfo) error {
	if err := h.ioctl(setArrayInfoCmd, unsafe.Pointer(&info)); err != nil {
		return errors.Wrap(err, "SET_ARRAY_INFO")
	}
	return nil
}

func (h *Handle) AddNewDisk(d DiskInfo) error {
	if err := h.ioctl(addNewDiskCmd, unsafe.Pointer(&d)); err != nil {
		return errors.Wrap(err, "ADD_NEW_DISK")
	}
	return nil
}

func (h *Handle) RunArray() error {
	if err := h.ioctl(runArrayCmd, nil); err != nil {
		return errors.Wrap(err, "RUN_ARRAY")
	}
	return nil
}

// StartArray issues the legacy single-call START_ARRAY, passing the
// chosen drive's device number the way pre-2.4 kernels expect: as the
// ioctl argument itself, not a pointer to a struct.
func (h *Handle) StartArray(major, minor uint32) error {
	dev := unix.Mkdev(major, minor)
	if err := h.ioctl(startArrayCmd, unsafe.Pointer(uintptr(dev))); err != nil {
		return errors.Wrap(err, "START_ARRAY")
	}
	return nil
}

// KernelVersion reports the running kernel's release as a packed
// major*10000+minor*100+patch integer, the same convention GetVersion
// uses for the driver version, so the driver-version and kernel-version
// gates (0.90.0 and 2.4.0 respectively) compare like with like.
func KernelVersion() (int, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return 0, errors.Wrap(err, "uname")
	}

	release := unix.ByteSliceToString(uts.Release[:])

	var major, minor, patch int
	n, _ := fmt.Sscanf(release, "%d.%d.%d", &major, &minor, &patch)
	if n < 2 {
		return 0, errors.Errorf("unparseable kernel release: %q", release)
	}

	return major*10000 + minor*100 + patch, nil
}
