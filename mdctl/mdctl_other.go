//go:build !linux

package mdctl

import (
	"os"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by every Handle method on non-Linux
// platforms; the MD driver and its ioctls only exist on Linux.
var ErrUnsupported = errors.New("mdctl: the MD driver is Linux-only")

// Handle meets the package interface so this module builds on non-Linux
// platforms; every operation fails with ErrUnsupported.
type Handle struct{}

func NewHandle(f *os.File) *Handle { return &Handle{} }

func (h *Handle) GetVersion() (Version, error) { return Version{}, ErrUnsupported }

func (h *Handle) GetArrayInfo() (ArrayInfo, error) { return ArrayInfo{}, ErrUnsupported }

func (h *Handle) StopArray() error { return ErrUnsupported }

func (h *Handle) SetArrayInfo(ArrayInfo) error { return ErrUnsupported }

func (h *Handle) AddNewDisk(DiskInfo) error { return ErrUnsupported }

func (h *Handle) RunArray() error { return ErrUnsupported }

func (h *Handle) StartArray(major, minor uint32) error { return ErrUnsupported }

func KernelVersion() (int, error) { return 0, ErrUnsupported }
