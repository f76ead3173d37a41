package rebalance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedLaneScheduler(t *testing.T) {
	require.Equal(t, 4, NewFixedLaneScheduler(4).LaneCount())
	require.Equal(t, 1, NewFixedLaneScheduler(0).LaneCount(), "zero configured size falls back to one lane")
}

func TestCPUAwareLaneScheduler_Bounded(t *testing.T) {
	n := NewCPUAwareLaneScheduler().LaneCount()
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, 32)
}

func TestSplitIntoLanes_NoEmptyLanesAndDisjointPartitions(t *testing.T) {
	parts := NewPartitionSet(0, 1, 2, 3, 4, 5, 6, 7)
	lanes := splitIntoLanes(1, parts, 3)

	seen := NewPartitionSet()
	for _, lane := range lanes {
		require.False(t, lane.Partitions.Empty())
		for _, p := range lane.Partitions.Sorted() {
			require.False(t, seen.Contains(p), "partition %d assigned to more than one lane", p)
			seen.Add(p)
			require.Equal(t, int(p)%3, lane.Index)
		}
	}
	require.Equal(t, parts.Sorted(), seen.Sorted())
}

func TestSplitIntoLanes_EmptySetProducesNoLanes(t *testing.T) {
	lanes := splitIntoLanes(1, NewPartitionSet(), 4)
	require.Empty(t, lanes)
}
