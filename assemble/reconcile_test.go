package assemble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mdassemble.dev/core/superblock"
)

func TestReconcilePatchesRenumberedSlot(t *testing.T) {
	sbA := sbWithSlot(t, 5, 3, 0, 10, superblock.DiskActive|superblock.DiskSync)
	sbA.SetDisk(0, superblock.DiskDescriptor{Major: 8, Minor: 1, State: superblock.DiskActive | superblock.DiskSync})
	sbA.SetDisk(1, superblock.DiskDescriptor{Major: 8, Minor: 99, State: superblock.DiskActive | superblock.DiskSync})
	sbA.SetThisDisk(superblock.DiskDescriptor{Major: 8, Minor: 1, RaidDisk: 0, State: superblock.DiskActive | superblock.DiskSync})

	sbB := sbWithSlot(t, 5, 3, 1, 10, superblock.DiskActive|superblock.DiskSync)
	sbB.SetThisDisk(superblock.DiskDescriptor{Major: 8, Minor: 17, RaidDisk: 1, State: superblock.DiskActive | superblock.DiskSync})

	cands := []Candidate{
		{Path: "a", Slot: 0, EventCounter: 10, SB: sbA, Major: 8, Minor: 1},
		{Path: "b", Slot: 1, EventCounter: 10, SB: sbB, Major: 8, Minor: 17},
	}

	ev := evaluateCandidates(cands, 5, 3, 0, false)
	rr, err := reconcile(ev, false)
	require.NoError(t, err)

	require.NotZero(t, rr.change&changeRenumber)
	require.Equal(t, uint32(17), rr.reference.Disk(1).Minor)
}

func TestReconcileForceLevel5OneMissingForcesClean(t *testing.T) {
	sbA := sbWithSlot(t, 5, 3, 0, 10, superblock.DiskActive|superblock.DiskSync)
	sbA.SetDisk(0, superblock.DiskDescriptor{Major: 8, Minor: 1, State: superblock.DiskActive | superblock.DiskSync})
	sbA.SetThisDisk(superblock.DiskDescriptor{Major: 8, Minor: 1, RaidDisk: 0, State: superblock.DiskActive | superblock.DiskSync})

	sbB := sbWithSlot(t, 5, 3, 1, 10, superblock.DiskActive|superblock.DiskSync)
	sbB.SetThisDisk(superblock.DiskDescriptor{Major: 8, Minor: 2, RaidDisk: 1, State: superblock.DiskActive | superblock.DiskSync})

	cands := []Candidate{
		{Path: "a", Slot: 0, EventCounter: 10, SB: sbA, Major: 8, Minor: 1},
		{Path: "b", Slot: 1, EventCounter: 10, SB: sbB, Major: 8, Minor: 2},
	}

	ev := evaluateCandidates(cands, 5, 3, 0, true)
	require.Equal(t, uint32(2), ev.okcnt) // raid_disks-1 == 2

	rr, err := reconcile(ev, true)
	require.NoError(t, err)
	require.NotZero(t, rr.change&changeState)
	require.Equal(t, uint32(superblock.StateClean), rr.reference.State())
}

func TestRequiredCount(t *testing.T) {
	sb := superblock.New(5, 3, 0)
	sb.SetDisk(0, superblock.DiskDescriptor{State: superblock.DiskActive | superblock.DiskSync})
	sb.SetDisk(1, superblock.DiskDescriptor{State: superblock.DiskActive | superblock.DiskSync})
	sb.SetDisk(2, superblock.DiskDescriptor{State: superblock.DiskFaulty})

	require.Equal(t, uint32(2), requiredCount(sb))
}
