// Package mdconf reads the bare device-list config file assembly falls
// back to when no devices are named on the command line: one device
// path per non-comment, non-blank line. Everything else about array
// identity (UUID, level, raid-disks) is supplied on the command line,
// not here — this package's only job is "which devices might be
// out there".
package mdconf

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// DeviceLister is the narrow interface the assembly core's caller
// consumes; Reader is its file-backed implementation.
type DeviceLister interface {
	Devices() ([]string, error)
}

// Reader reads a device list from an underlying io.Reader.
type Reader struct {
	r io.Reader
}

// New wraps r as a DeviceLister.
func New(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Devices scans r line by line, trimming whitespace, skipping blank
// lines and lines starting with '#', and returns whatever device paths
// remain in the order they were listed.
func (d *Reader) Devices() ([]string, error) {
	var devices []string

	sc := bufio.NewScanner(d.r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		devices = append(devices, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading device list")
	}

	return devices, nil
}
