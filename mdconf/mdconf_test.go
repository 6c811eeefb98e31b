package mdconf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevicesSkipsBlankAndComments(t *testing.T) {
	in := "# this is a config\n\n/dev/sda1\n  /dev/sdb1  \n# trailing comment\n/dev/sdc1\n"
	r := New(strings.NewReader(in))

	devs, err := r.Devices()
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/sda1", "/dev/sdb1", "/dev/sdc1"}, devs)
}

func TestDevicesEmptyFile(t *testing.T) {
	r := New(strings.NewReader(""))
	devs, err := r.Devices()
	require.NoError(t, err)
	require.Empty(t, devs)
}
