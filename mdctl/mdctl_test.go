package mdctl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionPacked(t *testing.T) {
	v := Version{Major: 0, Minor: 90, Patch: 3}
	require.Equal(t, 9003, v.Packed())
}

func TestVersionPackedGate(t *testing.T) {
	require.Less(t, Version{Major: 0, Minor: 89, Patch: 9}.Packed(), 9000)
	require.GreaterOrEqual(t, Version{Major: 0, Minor: 90, Patch: 0}.Packed(), 9000)
}

func TestIoctlEncodingIsStableAndDistinct(t *testing.T) {
	cmds := map[string]uintptr{
		"raid_version":   ioR(0x10, 12),
		"get_array_info": ioR(0x11, 72),
		"add_new_disk":   ioW(0x21, 20),
		"set_array_info": ioW(0x23, 72),
		"run_array":      ioNo(0x30),
		"start_array":    ioNo(0x31),
		"stop_array":     ioNo(0x32),
	}

	seen := make(map[uintptr]string)
	for name, cmd := range cmds {
		if other, ok := seen[cmd]; ok {
			t.Fatalf("%s and %s collide on ioctl number %#x", name, other, cmd)
		}
		seen[cmd] = name
	}
}

func TestIoctlDirectionEncoded(t *testing.T) {
	read := ioR(0x11, 8)
	write := ioW(0x11, 8)
	none := ioNo(0x11)

	require.NotEqual(t, read, write)
	require.NotEqual(t, read, none)
	require.NotEqual(t, write, none)
}
