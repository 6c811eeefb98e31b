// Package superblock implements the classic version-0.90 Linux MD on-disk
// metadata format: the fixed-layout record each array member carries,
// decoded and encoded the way lsvd/pkg/ext4 decodes an ext4 superblock —
// a single binary.Read/binary.Write over a fixed-size struct, gated by a
// magic number.
package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Magic090 is the magic number stamped in every version-0.90 superblock.
const Magic090 = 0xa92b4efc

// MaxSlots is the number of entries in the on-disk per-slot disk
// table. The reference ("this_disk") descriptor is stored separately,
// after the table. Fixed by the format, never resized.
const MaxSlots = 28

// Disk state bits, stored in DiskDescriptor.State.
const (
	DiskFaulty  = 1 << 0
	DiskActive  = 1 << 1
	DiskSync    = 1 << 2
	DiskRemoved = 1 << 3
)

// Superblock-level state bits.
const (
	StateClean = 1 << 0
)

// SlotNone is the sentinel raid_disk value meaning "no slot assigned".
const SlotNone = 10000

// ErrNoSuperblock is returned by Load when the magic number doesn't match
// or the read is short — there is no valid metadata on this device.
var ErrNoSuperblock = fmt.Errorf("no RAID superblock found")

// ErrChecksum is returned by Load when the magic matches but the stored
// checksum doesn't agree with the computed one.
var ErrChecksum = fmt.Errorf("RAID superblock checksum mismatch")

// DiskDescriptor is a single entry in the per-slot disk table, or the
// "this_disk" reference descriptor.
type DiskDescriptor struct {
	Number   uint32
	Major    uint32
	Minor    uint32
	RaidDisk uint32
	State    uint32
	_        [27]uint32 // reserved, matches the on-disk descriptor width
}

// onDisk mirrors the byte-for-byte layout of a version-0.90 superblock.
// Field groups and their padding follow the real md_p.h layout, widened
// from 27 to MaxSlots (28) disk descriptors per this format's invariant
// that MAX_SLOTS is fixed at 28 — one descriptor wider than upstream
// mdadm's classic 4096-byte superblock, so the on-disk image here is
// 4224 bytes rather than 4096. See DESIGN.md for the rationale.
type onDisk struct {
	// Generic constant section (32 words)
	Magic         uint32
	MajorVersion  uint32
	MinorVersion  uint32
	PatchVersion  uint32
	GValidWords   uint32
	SetUUID0      uint32
	CTime         uint32
	Level         int32
	Size          uint32
	NrDisks       uint32
	RaidDisks     uint32
	MDMinor       uint32
	NotPersistent uint32
	SetUUID1      uint32
	SetUUID2      uint32
	SetUUID3      uint32
	_             [16]uint32 // reserved to fill the generic-constant section

	// Generic state section (32 words)
	UTime           uint32
	State           uint32
	ActiveDisks     uint32
	WorkingDisks    uint32
	FailedDisks     uint32
	SpareDisks      uint32
	SBCsum          uint32
	EventsLo        uint32
	EventsHi        uint32
	CPEventsHi      uint32
	RecoveryCp      uint32
	ReshapePosition uint64
	NewLevel        int32
	DeltaDisks      int32
	NewLayout       int32
	NewChunk        int32
	_               [15]uint32 // reserved

	// Personality section (64 words)
	Layout    int32
	ChunkSize uint32
	RootPV    uint32
	RootBlock uint32
	_         [60]uint32 // reserved

	// Per-slot disk table and the reference descriptor.
	Disks    [MaxSlots]DiskDescriptor
	ThisDisk DiskDescriptor
}

// Superblock is the parsed, in-memory form of a version-0.90 on-disk
// superblock, exposing exactly the fields the assembly core reads or
// writes.
type Superblock struct {
	raw onDisk
}

// Load reads and validates a superblock from r, which must be positioned
// at the start of the superblock record (offset conventions, e.g. where
// on the device the superblock lives for a given metadata size, are the
// caller's concern — this package only knows the record's own layout).
func Load(r io.Reader) (*Superblock, error) {
	var raw onDisk
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrNoSuperblock
		}
		return nil, err
	}

	if raw.Magic != Magic090 {
		return nil, ErrNoSuperblock
	}

	sb := &Superblock{raw: raw}
	if checksum(&raw) != raw.SBCsum {
		return nil, ErrChecksum
	}

	return sb, nil
}

// Store writes the superblock, with a freshly recomputed checksum, to w.
func (sb *Superblock) Store(w io.Writer) error {
	sb.raw.SBCsum = checksum(&sb.raw)
	return binary.Write(w, binary.LittleEndian, &sb.raw)
}

// Checksum recomputes and stamps sb.SBCsum without writing it anywhere.
func (sb *Superblock) Checksum() uint32 {
	sb.raw.SBCsum = checksum(&sb.raw)
	return sb.raw.SBCsum
}

// checksum implements the classic calc_sb_csum algorithm: sum every
// 32-bit word of the record with sb_csum itself treated as zero, then
// fold the 64-bit accumulator's high half back into the low half.
func checksum(raw *onDisk) uint32 {
	cp := *raw
	cp.SBCsum = 0

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &cp)

	data := buf.Bytes()
	var sum uint64
	for i := 0; i+4 <= len(data); i += 4 {
		sum += uint64(binary.LittleEndian.Uint32(data[i : i+4]))
	}

	return uint32(sum) + uint32(sum>>32)
}

// New builds a fresh, zeroed version-0.90 superblock with the magic
// number and generic constants that describe an array's shape stamped
// in. Used by tests and by callers constructing fixtures.
func New(level int32, raidDisks uint32, layout int32) *Superblock {
	sb := &Superblock{}
	sb.raw.Magic = Magic090
	sb.raw.MajorVersion = 0
	sb.raw.MinorVersion = 90
	sb.raw.Level = level
	sb.raw.RaidDisks = raidDisks
	sb.raw.Layout = layout
	return sb
}

func (sb *Superblock) Magic() uint32     { return sb.raw.Magic }
func (sb *Superblock) Level() int32      { return sb.raw.Level }
func (sb *Superblock) SetLevel(l int32)  { sb.raw.Level = l }
func (sb *Superblock) RaidDisks() uint32 { return sb.raw.RaidDisks }
func (sb *Superblock) SetRaidDisks(n uint32) {
	sb.raw.RaidDisks = n
}
func (sb *Superblock) Layout() int32 { return sb.raw.Layout }
func (sb *Superblock) SetLayout(l int32) {
	sb.raw.Layout = l
}
func (sb *Superblock) MDMinor() uint32 { return sb.raw.MDMinor }
func (sb *Superblock) SetMDMinor(m uint32) {
	sb.raw.MDMinor = m
}

func (sb *Superblock) Size() uint32      { return sb.raw.Size }
func (sb *Superblock) SetSize(v uint32)  { sb.raw.Size = v }
func (sb *Superblock) ChunkSize() uint32 { return sb.raw.ChunkSize }
func (sb *Superblock) SetChunkSize(v uint32) {
	sb.raw.ChunkSize = v
}
func (sb *Superblock) CTime() uint32     { return sb.raw.CTime }
func (sb *Superblock) SetCTime(v uint32) { sb.raw.CTime = v }
func (sb *Superblock) NrDisks() uint32   { return sb.raw.NrDisks }

func (sb *Superblock) UTime() uint32     { return sb.raw.UTime }
func (sb *Superblock) SetUTime(v uint32) { sb.raw.UTime = v }
func (sb *Superblock) State() uint32     { return sb.raw.State }
func (sb *Superblock) SetState(s uint32) {
	sb.raw.State = s
}

func (sb *Superblock) RecoveryCp() uint32 { return sb.raw.RecoveryCp }
func (sb *Superblock) SetRecoveryCp(v uint32) {
	sb.raw.RecoveryCp = v
}

// ThisDisk returns the reference descriptor describing this device's own
// role in the array, as it was when the superblock was last loaded.
func (sb *Superblock) ThisDisk() DiskDescriptor { return sb.raw.ThisDisk }

func (sb *Superblock) SetThisDisk(d DiskDescriptor) { sb.raw.ThisDisk = d }

// Disk returns the disk-table entry for slot i (0-indexed).
func (sb *Superblock) Disk(i int) DiskDescriptor { return sb.raw.Disks[i] }

// SetDisk overwrites the disk-table entry for slot i.
func (sb *Superblock) SetDisk(i int, d DiskDescriptor) { sb.raw.Disks[i] = d }

// SetSummaries recomputes NrDisks/ActiveDisks/WorkingDisks/FailedDisks/
// SpareDisks from the disk table, the way the "summaries" update mode
// does. Slots beyond raidDisks whose Number is zero are normalized to
// state 0, matching the original's "else if" branch.
func (sb *Superblock) SetSummaries() {
	var nr, active, working, failed, spare uint32

	for i := 0; i < MaxSlots; i++ {
		d := &sb.raw.Disks[i]
		if d.Major != 0 || d.Minor != 0 {
			if d.State&DiskRemoved != 0 {
				continue
			}
			nr++
			if d.State&DiskActive != 0 {
				active++
			}
			if d.State&DiskFaulty != 0 {
				failed++
			} else {
				working++
			}
			if d.State == 0 {
				spare++
			}
		} else if uint32(i) >= sb.raw.RaidDisks && d.Number == 0 {
			d.State = 0
		}
	}

	sb.raw.NrDisks = nr
	sb.raw.ActiveDisks = active
	sb.raw.WorkingDisks = working
	sb.raw.FailedDisks = failed
	sb.raw.SpareDisks = spare
}

// ApplySparc22Fix shifts the tail of the record, from the eighth word of
// the generic state section onward, up by one 32-bit word, the historical fix for a
// SPARC/2.2 bug that put the event counters one word later than every
// later kernel expects. Grounded on the literal memmove in Assemble.c:
// each word from MD_SB_GENERIC_CONSTANT_WORDS+7 onward is overwritten
// with the word after it, discarding the word at that offset; the last
// word of the record keeps its old value.
func (sb *Superblock) ApplySparc22Fix() {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &sb.raw)
	words := buf.Bytes()

	const shiftFromWord = 32 + 7 // MD_SB_GENERIC_CONSTANT_WORDS + 7
	shiftFrom := shiftFromWord * 4

	copy(words[shiftFrom:], words[shiftFrom+4:])

	_ = binary.Read(bytes.NewReader(words), binary.LittleEndian, &sb.raw)
}

// EventCounter returns the 64-bit event counter, combining the split
// hi/lo halves with the high half in the more significant bits.
func (sb *Superblock) EventCounter() uint64 {
	return uint64(sb.raw.EventsHi)<<32 | uint64(sb.raw.EventsLo)
}

// SetEventCounter splits a 64-bit event counter back into the on-disk
// hi/lo halves.
func (sb *Superblock) SetEventCounter(ev uint64) {
	sb.raw.EventsHi = uint32(ev >> 32)
	sb.raw.EventsLo = uint32(ev)
}

// UUID returns the array's 128-bit set UUID, assembled from the four
// 32-bit generic-constant words.
func (sb *Superblock) UUID() uuid.UUID {
	var b [16]byte
	binary.BigEndian.PutUint32(b[0:4], sb.raw.SetUUID0)
	binary.BigEndian.PutUint32(b[4:8], sb.raw.SetUUID1)
	binary.BigEndian.PutUint32(b[8:12], sb.raw.SetUUID2)
	binary.BigEndian.PutUint32(b[12:16], sb.raw.SetUUID3)
	id, _ := uuid.FromBytes(b[:])
	return id
}

// SetUUID stamps a 128-bit UUID into the four generic-constant words.
func (sb *Superblock) SetUUID(id uuid.UUID) {
	b := id[:]
	sb.raw.SetUUID0 = binary.BigEndian.Uint32(b[0:4])
	sb.raw.SetUUID1 = binary.BigEndian.Uint32(b[4:8])
	sb.raw.SetUUID2 = binary.BigEndian.Uint32(b[8:12])
	sb.raw.SetUUID3 = binary.BigEndian.Uint32(b[12:16])
}

// Compare checks equality of the generic prefix between a reference
// superblock and a candidate: magic, set UUID, level, raid_disks,
// layout, size, chunk size, and ctime. Returns nil when they agree.
func Compare(ref, sb *Superblock) error {
	switch {
	case ref.raw.Magic != sb.raw.Magic:
		return fmt.Errorf("magic mismatch: %#x != %#x", ref.raw.Magic, sb.raw.Magic)
	case ref.UUID() != sb.UUID():
		return fmt.Errorf("uuid mismatch: %s != %s", ref.UUID(), sb.UUID())
	case ref.raw.Level != sb.raw.Level:
		return fmt.Errorf("level mismatch: %d != %d", ref.raw.Level, sb.raw.Level)
	case ref.raw.RaidDisks != sb.raw.RaidDisks:
		return fmt.Errorf("raid_disks mismatch: %d != %d", ref.raw.RaidDisks, sb.raw.RaidDisks)
	case ref.raw.Layout != sb.raw.Layout:
		return fmt.Errorf("layout mismatch: %d != %d", ref.raw.Layout, sb.raw.Layout)
	case ref.raw.Size != sb.raw.Size:
		return fmt.Errorf("size mismatch: %d != %d", ref.raw.Size, sb.raw.Size)
	case ref.raw.ChunkSize != sb.raw.ChunkSize:
		return fmt.Errorf("chunk size mismatch: %d != %d", ref.raw.ChunkSize, sb.raw.ChunkSize)
	case ref.raw.CTime != sb.raw.CTime:
		return fmt.Errorf("ctime mismatch: %d != %d", ref.raw.CTime, sb.raw.CTime)
	}
	return nil
}

// Clone returns a deep copy, so callers can mutate a working copy
// without disturbing a cached reference superblock.
func (sb *Superblock) Clone() *Superblock {
	cp := *sb
	return &cp
}
