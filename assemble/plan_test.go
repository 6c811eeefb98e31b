package assemble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummaryStarted(t *testing.T) {
	r := Result{Started: true, OKCount: 3, TotalSlots: 3, mddev: "/dev/md0"}
	require.Equal(t, "/dev/md0 has been started with 3 drives.", r.Summary())
}

func TestSummaryStartedSingularWithSpares(t *testing.T) {
	r := Result{Started: true, OKCount: 1, TotalSlots: 2, SpareCount: 1, mddev: "/dev/md0"}
	require.Equal(t, "/dev/md0 has been started with 1 drive (out of 2) and 1 spare.", r.Summary())
}

func TestSummaryDeferred(t *testing.T) {
	r := Result{Deferred: true, OKCount: 2, TotalSlots: 2, mddev: "/dev/md0"}
	require.Equal(t, "/dev/md0 assembled from 2 drives, but not started.", r.Summary())
}

func TestSummaryNotEnough(t *testing.T) {
	r := Result{NotEnough: true, OKCount: 1, TotalSlots: 3, mddev: "/dev/md0"}
	require.Equal(t, "/dev/md0 assembled from 1 drive (out of 3) - not enough to start the array.", r.Summary())
}

func TestSummaryRequireAll(t *testing.T) {
	r := Result{OKCount: 2, TotalSlots: 3, RequireAll: true, RequireCnt: 3, mddev: "/dev/md0"}
	require.Equal(t, "/dev/md0 assembled from 2 drives (out of 3) - need all 3 to start it (use --run to insist).", r.Summary())
}

func TestSummaryRequireCnt(t *testing.T) {
	r := Result{OKCount: 1, TotalSlots: 3, RequireCnt: 2, mddev: "/dev/md0"}
	require.Equal(t, "/dev/md0 assembled from 1 drive (out of 3) - need 2 of 3 to start (use --run to insist).", r.Summary())
}
