package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"mdassemble.dev/core/superblock"
)

func TestMatchesUnsetAlwaysPasses(t *testing.T) {
	a := Array{SuperMinor: -1}
	sb := superblock.New(5, 3, 0)

	ok, _ := a.Matches(sb)
	require.True(t, ok)
}

func TestMatchesUUID(t *testing.T) {
	want := uuid.New()
	sb := superblock.New(5, 3, 0)
	sb.SetUUID(want)

	a := Array{UUIDSet: true, UUID: want, SuperMinor: -1}
	ok, _ := a.Matches(sb)
	require.True(t, ok)

	a.UUID = uuid.New()
	ok, reason := a.Matches(sb)
	require.False(t, ok)
	require.Equal(t, "wrong uuid", reason)
}

func TestMatchesLevelAndRaidDisks(t *testing.T) {
	sb := superblock.New(5, 3, 0)

	wrongLevel := int32(6)
	a := Array{SuperMinor: -1, Level: &wrongLevel}
	ok, reason := a.Matches(sb)
	require.False(t, ok)
	require.Equal(t, "wrong raid level", reason)

	rightLevel := int32(5)
	wrongCount := uint32(4)
	a = Array{SuperMinor: -1, Level: &rightLevel, RaidDisks: &wrongCount}
	ok, reason = a.Matches(sb)
	require.False(t, ok)
	require.Equal(t, "requires wrong number of drives", reason)
}

func TestHasAnyConstraint(t *testing.T) {
	require.False(t, Array{SuperMinor: -1}.HasAnyConstraint())
	require.True(t, Array{SuperMinor: -1, UUIDSet: true}.HasAnyConstraint())
	require.True(t, Array{SuperMinor: 3}.HasAnyConstraint())

	level := int32(5)
	require.True(t, Array{SuperMinor: -1, Level: &level}.HasAnyConstraint())
	raidDisks := uint32(3)
	require.True(t, Array{SuperMinor: -1, RaidDisks: &raidDisks}.HasAnyConstraint())

	// A device whitelist alone narrows by name, not by superblock
	// content, so it does not count as an identity constraint here.
	require.False(t, Array{SuperMinor: -1, DeviceGlobs: []string{"/dev/sd*"}}.HasAnyConstraint())
}

func TestMatchesName(t *testing.T) {
	a := Array{SuperMinor: -1}
	require.True(t, a.MatchesName("/dev/anything"))

	a.DeviceGlobs = []string{"/dev/sd[ab]1"}
	require.True(t, a.MatchesName("/dev/sda1"))
	require.False(t, a.MatchesName("/dev/sdc1"))
}
