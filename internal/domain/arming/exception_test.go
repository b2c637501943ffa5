package arming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIndexExceptions verifies grouping by building and flag filtering.
func TestIndexExceptions(t *testing.T) {
	t.Parallel()

	idx := IndexExceptions(map[int64]ExceptionRule{
		12: {BuildingID: 1, IgnoreOnArm: true},
		11: {BuildingID: 1, IgnoreOnDisarm: true},
		13: {BuildingID: 1, IgnoreOnArm: true, IgnoreOnDisarm: true},
		21: {BuildingID: 2, IgnoreOnDisarm: true},
	})

	require.Equal(t, []int64{12, 13}, idx.IgnoredOnArm(1))
	require.Equal(t, []int64{11, 13}, idx.IgnoredOnDisarm(1))
	require.Equal(t, []int64{21}, idx.IgnoredOnDisarm(2))
	require.Empty(t, idx.IgnoredOnArm(3))

	require.True(t, idx.Rule(1, 13).IgnoreOnArm)
	require.Equal(t, int64(13), idx.Rule(1, 13).PointID)

	// Missing rule behaves as no exception.
	missing := idx.Rule(2, 99)
	require.False(t, missing.IgnoreOnArm)
	require.False(t, missing.IgnoreOnDisarm)
}
