package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]int32{
		"5":         5,
		"linear":    -1,
		"multipath": -4,
		"mp":        -4,
		"-4":        -4,
	}
	for in, want := range cases {
		got, err := parseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseLevelRejectsGarbage(t *testing.T) {
	_, err := parseLevel("banana")
	require.Error(t, err)
}

func TestBuildIdentityDefaults(t *testing.T) {
	opts := options{SuperMinor: -1}
	id, err := buildIdentity(opts)
	require.NoError(t, err)
	require.False(t, id.UUIDSet)
	require.Equal(t, int32(-1), id.SuperMinor)
	require.Nil(t, id.Level)
}

func TestBuildIdentityParsesUUIDAndLevel(t *testing.T) {
	opts := options{
		SuperMinor: -1,
		UUID:       "11111111-2222-3333-4444-555555555555",
		Level:      "6",
		RaidDisks:  4,
	}
	id, err := buildIdentity(opts)
	require.NoError(t, err)
	require.True(t, id.UUIDSet)
	require.NotNil(t, id.Level)
	require.Equal(t, int32(6), *id.Level)
	require.NotNil(t, id.RaidDisks)
	require.Equal(t, uint32(4), *id.RaidDisks)
}

func TestBuildIdentityRejectsBadUUID(t *testing.T) {
	opts := options{SuperMinor: -1, UUID: "not-a-uuid"}
	_, err := buildIdentity(opts)
	require.Error(t, err)
}
