// Package identity defines the predicate an assembly run uses to decide
// which candidate devices belong to the array being assembled.
package identity

import (
	"github.com/google/uuid"
	"mdassemble.dev/core/superblock"
)

// Array is the identity predicate supplied by the caller: a set of
// optional fields, any of which left unset matches anything. Mirrors
// the CLI's --uuid/--super-minor/--level/--raid-disks options; the
// device whitelist comes from the named component devices.
type Array struct {
	UUID         uuid.UUID
	UUIDSet      bool
	SuperMinor   int32 // -1 means unset
	Level        *int32
	RaidDisks    *uint32
	DeviceGlobs  []string // whitelist of device name patterns, empty = match anything
}

// Matches reports whether a probed superblock satisfies every identity
// field that is actually set. An unset field always matches.
func (a Array) Matches(sb *superblock.Superblock) (bool, string) {
	if a.UUIDSet && sb.UUID() != a.UUID {
		return false, "wrong uuid"
	}
	if a.SuperMinor >= 0 && uint32(a.SuperMinor) != sb.MDMinor() {
		return false, "wrong super-minor"
	}
	if a.Level != nil && *a.Level != sb.Level() {
		return false, "wrong raid level"
	}
	if a.RaidDisks != nil && *a.RaidDisks != sb.RaidDisks() {
		return false, "requires wrong number of drives"
	}
	return true, ""
}

// HasAnyConstraint reports whether at least one of the four superblock
// identity fields (uuid, super-minor, level, raid-disks) is set. A
// device-less, identity-less run has no way at all to recognize its
// target, but a device whitelist alone doesn't count here: it narrows
// by device *name*, not by anything read from a superblock, so it has
// no bearing on whether a superblock-less device is expected or not
// (see probe.go's use of this for exactly that decision).
func (a Array) HasAnyConstraint() bool {
	return a.UUIDSet || a.SuperMinor >= 0 || a.Level != nil || a.RaidDisks != nil
}

// MatchesName reports whether path matches the device-name whitelist,
// when one was supplied. An empty whitelist matches everything.
func (a Array) MatchesName(path string) bool {
	if len(a.DeviceGlobs) == 0 {
		return true
	}
	for _, pattern := range a.DeviceGlobs {
		if ok, _ := globMatch(pattern, path); ok {
			return true
		}
	}
	return false
}
