// Package assemble implements the assembly core: turning a set of
// candidate block devices into a running array. It owns the probe,
// identity filter, quorum/force decision, metadata reconciliation, and
// the sequencing of calls against the driver control handle — but
// never the byte-level superblock codec, the driver itself, or the
// outer CLI/config surfaces, which all live in their own packages.
package assemble

import (
	"mdassemble.dev/core/superblock"
)

// outcomeKind is a sum type for what happened when a device was probed,
// rather than overloading a *Superblock==nil or error!=nil convention
// across the whole pipeline.
type outcomeKind int

const (
	// outcomeSkipped means the device was looked at and silently
	// rejected: no superblock, wrong identity, not a block device.
	// Not an error — most scans are expected to reject most devices.
	outcomeSkipped outcomeKind = iota
	// outcomeCommitted means the device carries a superblock that
	// matches the target identity and is now a Candidate.
	outcomeCommitted
	// outcomeFatal means something the caller must stop and report
	// went wrong: fstat failed on an opened device, or a device has no
	// superblock while no identity constraint is set. A device that
	// doesn't exist or can't be opened exclusively is skipped instead.
	outcomeFatal
)

// probeResult is the outcome of probing a single device path.
type probeResult struct {
	kind   outcomeKind
	reason string // human-readable, set for outcomeSkipped when the rejection is to be logged
	err    error  // set for outcomeFatal
	cand   Candidate
}

// Candidate is a block device that was found, opened, and found to
// carry a superblock matching the array identity being assembled.
type Candidate struct {
	Path  string
	Major uint32
	Minor uint32

	SB *superblock.Superblock

	// Slot is the raid_disk value read from the device's own
	// superblock at probe time, before any reconciliation. SlotNone
	// means the device reports itself as a spare.
	Slot uint32

	// EventCounter is cached from SB at probe time so the slot
	// chooser and quorum computation can sort/compare candidates
	// without re-reading the superblock.
	EventCounter uint64
}
