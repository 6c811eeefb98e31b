// Package mdctl drives the Linux MD driver's control interface: the
// small set of ioctls that prepare, populate, and start an array. It is
// a thin Go mirror of the kernel ABI struct layout, dispatched through
// golang.org/x/sys/unix, the way the veritysetup-go device-mapper
// bindings issue raw ioctls.
package mdctl

import (
	"fmt"
)

// mdMajor is the ioctl "type" byte the MD driver registers all of its
// control codes under (linux/major.h: MD_MAJOR).
const mdMajor = 0x09

// ioctl direction/size encoding, following the same convention as
// asm-generic/ioctl.h that every Linux ioctl number is built from.
const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

func ioNo(nr uintptr) uintptr       { return ioc(iocNone, mdMajor, nr, 0) }
func ioR(nr, size uintptr) uintptr  { return ioc(iocRead, mdMajor, nr, size) }
func ioW(nr, size uintptr) uintptr  { return ioc(iocWrite, mdMajor, nr, size) }
func ioWR(nr, size uintptr) uintptr { return ioc(iocWrite|iocRead, mdMajor, nr, size) }

// Version is the driver version report from RAID_VERSION: major, minor,
// patch. Packed returns the single integer the minimum-driver-version
// gate compares against 9000 (0.90.0).
type Version struct {
	Major, Minor, Patch int32
}

// Packed returns major*10000 + minor*100 + patch, the classic mdadm
// convention for comparing driver versions against a single integer
// (e.g. >= 9000 means >= 0.90.0).
func (v Version) Packed() int {
	return int(v.Major)*10000 + int(v.Minor)*100 + int(v.Patch)
}

// ArrayInfo mirrors mdu_array_info_t: the generic + personality
// constants the kernel reports back via GET_ARRAY_INFO, and the values
// SET_ARRAY_INFO expects to be told.
type ArrayInfo struct {
	MajorVersion  int32
	MinorVersion  int32
	PatchVersion  int32
	CTime         int32
	Level         int32
	Size          int32
	NrDisks       int32
	RaidDisks     int32
	MDMinor       int32
	NotPersistent int32

	UTime        int32
	State        int32
	ActiveDisks  int32
	WorkingDisks int32
	FailedDisks  int32
	SpareDisks   int32

	Layout    int32
	ChunkSize int32
}

// DiskInfo mirrors mdu_disk_info_t: the argument to ADD_NEW_DISK.
type DiskInfo struct {
	Number   int32
	Major    int32
	Minor    int32
	RaidDisk int32
	State    int32
}

// MinDriverVersion and MinKernelVersion are the lowest Packed()-scale
// versions assembly will run against: driver 0.90.0, kernel 2.4.0. A
// kernel older than MinKernelVersion only gets the legacy single-call
// START_ARRAY path.
const (
	MinDriverVersion = 9000
	MinKernelVersion = 20400
)

// ErrAlreadyActive is returned by assemble.Run when
// GET_ARRAY_INFO succeeds before assembly has done anything — the array
// is already running and must not be reassembled.
var ErrAlreadyActive = fmt.Errorf("device already active - cannot assemble it")

// Controller is the interface the assembly core consumes; Handle is its
// real, ioctl-backed implementation. Defined here, next to the
// implementation, because mdctl owns the kernel ABI and assemble should
// only ever see this narrow surface.
type Controller interface {
	GetVersion() (Version, error)
	GetArrayInfo() (ArrayInfo, error)
	StopArray() error
	SetArrayInfo(ArrayInfo) error
	AddNewDisk(DiskInfo) error
	RunArray() error
	StartArray(major, minor uint32) error
}
